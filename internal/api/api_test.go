package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/tradelens/ecomplexity/pkg/pipeline"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	runner := pipeline.NewRunner(nil, nil, logger)
	srv := httptest.NewServer(NewServer(runner, logger).Router())
	t.Cleanup(srv.Close)
	return srv
}

const requestBody = `{
	"rows": [
		{"country": "c1", "product": "p1", "value": 10},
		{"country": "c1", "product": "p2", "value": 5},
		{"country": "c1", "product": "p3", "value": 3},
		{"country": "c2", "product": "p1", "value": 8},
		{"country": "c2", "product": "p2", "value": 4},
		{"country": "c3", "product": "p1", "value": 12}
	]
}`

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
	if body["version"] == "" {
		t.Error("version field missing")
	}
}

func TestComplexityEndpoint(t *testing.T) {
	srv := testServer(t)
	resp := postJSON(t, srv.URL+"/v1/complexity", requestBody)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		RunID      string `json:"run_id"`
		MatrixHash string `json:"matrix_hash"`
		Complexity struct {
			Countries    []string  `json:"countries"`
			CountryIndex []float64 `json:"country_index"`
			Method       string    `json:"method"`
		} `json:"complexity"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Complexity.Countries) != 3 {
		t.Errorf("countries = %v, want 3 entries", body.Complexity.Countries)
	}
	if len(body.Complexity.CountryIndex) != 3 {
		t.Errorf("country_index has %d values, want 3", len(body.Complexity.CountryIndex))
	}
	if body.Complexity.Method != "fitness" {
		t.Errorf("method = %q, want fitness (default)", body.Complexity.Method)
	}
	if body.MatrixHash == "" {
		t.Error("matrix_hash missing")
	}
}

func TestProximityEndpoint(t *testing.T) {
	srv := testServer(t)
	resp := postJSON(t, srv.URL+"/v1/proximity", requestBody)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Proximity struct {
			Country json.RawMessage `json:"country"`
			Product json.RawMessage `json:"product"`
		} `json:"proximity"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Proximity.Country) == 0 || len(body.Proximity.Product) == 0 {
		t.Error("proximity matrices missing from response")
	}
}

func TestProjectionEndpoint(t *testing.T) {
	srv := testServer(t)
	body := strings.TrimSuffix(requestBody, "}") + `, "axis": "country"}`
	resp := postJSON(t, srv.URL+"/v1/projection", body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var payload struct {
		Axis  string `json:"axis"`
		Graph struct {
			Nodes []struct {
				ID string `json:"id"`
			} `json:"nodes"`
		} `json:"graph"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Axis != "country" {
		t.Errorf("axis = %q, want country", payload.Axis)
	}
	if len(payload.Graph.Nodes) != 3 {
		t.Errorf("graph has %d nodes, want 3 countries", len(payload.Graph.Nodes))
	}
}

func TestProjectionEndpointDefaultsToProductAxis(t *testing.T) {
	srv := testServer(t)
	resp := postJSON(t, srv.URL+"/v1/projection", requestBody)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var payload struct {
		Axis string `json:"axis"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Axis != "product" {
		t.Errorf("axis = %q, want product default", payload.Axis)
	}
}

func TestOutlookEndpoint(t *testing.T) {
	srv := testServer(t)
	resp := postJSON(t, srv.URL+"/v1/outlook", requestBody)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Outlook struct {
			Index map[string]float64 `json:"index"`
		} `json:"outlook"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Outlook.Index) != 3 {
		t.Errorf("outlook index has %d countries, want 3", len(body.Outlook.Index))
	}
}

func TestErrorResponses(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"malformed json", "/v1/complexity", `{{{`, http.StatusBadRequest, "INVALID_INPUT"},
		{"no rows", "/v1/complexity", `{}`, http.StatusBadRequest, ""},
		{"bad method", "/v1/complexity", strings.TrimSuffix(requestBody, "}") + `, "method": "voodoo"}`, http.StatusBadRequest, "INVALID_METHOD"},
		{"bad axis", "/v1/projection", strings.TrimSuffix(requestBody, "}") + `, "axis": "diagonal"}`, http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if tt.code != "" && body.Error.Code != tt.code {
				t.Errorf("error code = %q, want %q", body.Error.Code, tt.code)
			}
			if body.Error.Message == "" {
				t.Error("error message missing")
			}
		})
	}
}
