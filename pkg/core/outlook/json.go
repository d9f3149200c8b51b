package outlook

import (
	"encoding/json"

	"github.com/tradelens/ecomplexity/pkg/errors"
)

// indicatorJSON is the serialized form: dense row-major values with the axis
// labels spelled out.
type indicatorJSON struct {
	Countries []string    `json:"countries"`
	Products  []string    `json:"products"`
	Values    [][]float64 `json:"values"`
}

// MarshalJSON encodes the indicator as labeled dense rows.
func (ind *Indicator) MarshalJSON() ([]byte, error) {
	return json.Marshal(indicatorJSON{
		Countries: ind.countries,
		Products:  ind.products,
		Values:    ind.values,
	})
}

// UnmarshalJSON decodes the labeled dense form, validating row shapes.
func (ind *Indicator) UnmarshalJSON(data []byte) error {
	var raw indicatorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Values) != len(raw.Countries) {
		return errors.New(errors.ErrCodeInvalidShape,
			"indicator has %d rows for %d countries", len(raw.Values), len(raw.Countries))
	}
	decoded := newIndicator(raw.Countries, raw.Products)
	for i, row := range raw.Values {
		if len(row) != len(raw.Products) {
			return errors.New(errors.ErrCodeInvalidShape,
				"indicator row %d has %d values for %d products", i, len(row), len(raw.Products))
		}
		copy(decoded.values[i], row)
	}
	*ind = *decoded
	return nil
}
