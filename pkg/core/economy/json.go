package economy

import (
	"encoding/json"

	"github.com/tradelens/ecomplexity/pkg/errors"
)

// matrixJSON is the canonical serialization format for matrices.
// Labels and entries are emitted in sorted order so the encoding is
// deterministic and suitable for content-addressed cache keys.
type matrixJSON struct {
	Countries []string `json:"countries" bson:"countries"`
	Products  []string `json:"products" bson:"products"`
	Entries   []Entry  `json:"entries" bson:"entries"`
}

// MarshalJSON encodes the matrix in its canonical sparse form.
func (m *Matrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(matrixJSON{
		Countries: m.countries,
		Products:  m.products,
		Entries:   m.Entries(),
	})
}

// UnmarshalJSON decodes a matrix from its canonical sparse form.
// The decoded matrix passes the same validation as one built from scratch.
func (m *Matrix) UnmarshalJSON(data []byte) error {
	var mj matrixJSON
	if err := json.Unmarshal(data, &mj); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode matrix")
	}
	b, err := NewBuilder(mj.Countries, mj.Products)
	if err != nil {
		return err
	}
	rowIdx, colIdx := indexOf(mj.Countries), indexOf(mj.Products)
	for _, e := range mj.Entries {
		i, okRow := rowIdx[e.Country]
		j, okCol := colIdx[e.Product]
		if !okRow || !okCol {
			return errors.New(errors.ErrCodeInvalidInput, "entry (%s, %s) outside declared labels", e.Country, e.Product)
		}
		b.Add(i, j, e.Value)
	}
	built, err := b.Build()
	if err != nil {
		return err
	}
	*m = *built
	return nil
}
