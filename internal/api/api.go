// Package api exposes the complexity pipeline over HTTP.
//
// The router serves a small JSON API:
//
//	GET  /healthz        - liveness and version
//	POST /v1/complexity  - build, specialize, and compute complexity indices
//	POST /v1/proximity   - compute the proximity matrices
//	POST /v1/projection  - project one proximity matrix onto a network
//	POST /v1/outlook     - compute outlook indicators
//
// All POST endpoints accept a pipeline options document as the request body.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tradelens/ecomplexity/pkg/buildinfo"
	"github.com/tradelens/ecomplexity/pkg/cache"
	"github.com/tradelens/ecomplexity/pkg/core/complexity"
	"github.com/tradelens/ecomplexity/pkg/core/economy"
	"github.com/tradelens/ecomplexity/pkg/core/outlook"
	"github.com/tradelens/ecomplexity/pkg/core/proximity"
	"github.com/tradelens/ecomplexity/pkg/errors"
	"github.com/tradelens/ecomplexity/pkg/graphio"
	"github.com/tradelens/ecomplexity/pkg/observability"
	"github.com/tradelens/ecomplexity/pkg/pipeline"
)

// Server handles API requests by delegating to a pipeline runner.
type Server struct {
	runner *pipeline.Runner
	logger *log.Logger
}

// NewServer creates an API server around a runner.
func NewServer(runner *pipeline.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, logger: logger}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/complexity", s.handleComplexity)
		r.Post("/proximity", s.handleProximity)
		r.Post("/projection", s.handleProjection)
		r.Post("/outlook", s.handleOutlook)
	})
	return r
}

// observe reports request events to the registered API hooks.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		observability.API().OnRequest(r.Context(), r.Method, r.URL.Path)
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		observability.API().OnResponse(r.Context(), r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

// complexityResponse is the payload for POST /v1/complexity.
type complexityResponse struct {
	RunID      string             `json:"run_id"`
	MatrixHash string             `json:"matrix_hash"`
	Complexity *complexity.Result `json:"complexity"`
	Cached     bool               `json:"cached"`
}

func (s *Server) handleComplexity(w http.ResponseWriter, r *http.Request) {
	opts, ok := s.decodeOptions(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	m, _, err := s.runner.BuildWithCacheInfo(ctx, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	spec, _, err := s.runner.BalassaWithCacheInfo(ctx, m, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	cx, hit, err := s.runner.ComplexityWithCacheInfo(ctx, spec, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	data, _ := json.Marshal(m)
	writeJSON(w, http.StatusOK, complexityResponse{
		RunID:      middleware.GetReqID(ctx),
		MatrixHash: cache.Hash(data),
		Complexity: cx,
		Cached:     hit,
	})
}

// proximityResponse is the payload for POST /v1/proximity.
type proximityResponse struct {
	RunID     string            `json:"run_id"`
	Proximity *proximity.Result `json:"proximity"`
	Cached    bool              `json:"cached"`
}

func (s *Server) handleProximity(w http.ResponseWriter, r *http.Request) {
	opts, ok := s.decodeOptions(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	spec, err := s.specialization(ctx, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	prox, hit, err := s.runner.ProximityWithCacheInfo(ctx, spec, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, proximityResponse{
		RunID:     middleware.GetReqID(ctx),
		Proximity: prox,
		Cached:    hit,
	})
}

// projectionRequest extends pipeline options with the projection axis.
type projectionRequest struct {
	pipeline.Options
	Axis string `json:"axis"`
}

// projectionResponse is the payload for POST /v1/projection.
type projectionResponse struct {
	RunID  string        `json:"run_id"`
	Axis   string        `json:"axis"`
	Graph  graphio.Graph `json:"graph"`
	Cached bool          `json:"cached"`
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	var req projectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	if req.Axis == "" {
		req.Axis = pipeline.AxisProduct
	}
	if err := pipeline.ValidateAxis(req.Axis); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid axis"))
		return
	}
	ctx := r.Context()

	spec, err := s.specialization(ctx, req.Options)
	if err != nil {
		s.writeError(w, err)
		return
	}
	prox, _, err := s.runner.ProximityWithCacheInfo(ctx, spec, req.Options)
	if err != nil {
		s.writeError(w, err)
		return
	}
	proxMatrix := prox.Product
	if req.Axis == pipeline.AxisCountry {
		proxMatrix = prox.Country
	}
	net, hit, err := s.runner.ProjectWithCacheInfo(ctx, proxMatrix, req.Axis, req.Options)
	if err != nil {
		s.writeError(w, err)
		return
	}

	graph := graphio.Graph{Edges: net.Links()}
	for _, label := range net.Labels() {
		graph.Nodes = append(graph.Nodes, graphio.Node{ID: label})
	}
	writeJSON(w, http.StatusOK, projectionResponse{
		RunID:  middleware.GetReqID(ctx),
		Axis:   req.Axis,
		Graph:  graph,
		Cached: hit,
	})
}

// outlookResponse is the payload for POST /v1/outlook.
type outlookResponse struct {
	RunID   string          `json:"run_id"`
	Outlook *outlook.Result `json:"outlook"`
	Cached  bool            `json:"cached"`
}

func (s *Server) handleOutlook(w http.ResponseWriter, r *http.Request) {
	opts, ok := s.decodeOptions(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	spec, err := s.specialization(ctx, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	cx, _, err := s.runner.ComplexityWithCacheInfo(ctx, spec, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	prox, _, err := s.runner.ProximityWithCacheInfo(ctx, spec, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ol, hit, err := s.runner.OutlookWithCacheInfo(ctx, spec, prox.Product, cx, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outlookResponse{
		RunID:   middleware.GetReqID(ctx),
		Outlook: ol,
		Cached:  hit,
	})
}

// =============================================================================
// Helpers
// =============================================================================

// decodeOptions parses the request body into pipeline options, writing an
// error response on failure.
func (s *Server) decodeOptions(w http.ResponseWriter, r *http.Request) (pipeline.Options, bool) {
	var opts pipeline.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return opts, false
	}
	return opts, true
}

// specialization runs the build and balassa stages for handlers that need
// the specialization matrix.
func (s *Server) specialization(ctx context.Context, opts pipeline.Options) (*economy.Matrix, error) {
	m, _, err := s.runner.BuildWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, err
	}
	spec, _, err := s.runner.BalassaWithCacheInfo(ctx, m, opts)
	if err != nil {
		return nil, err
	}
	return spec, nil
}

// errorResponse is the envelope for API errors.
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// writeError maps error codes to HTTP statuses and writes a JSON error body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch code := errors.GetCode(err); {
	case code == errors.ErrCodeNotFound,
		code == errors.ErrCodeFileNotFound,
		code == errors.ErrCodeDatasetNotFound:
		status = http.StatusNotFound
	case code == errors.ErrCodeConvergence:
		status = http.StatusUnprocessableEntity
	case code != "" && code != errors.ErrCodeInternal:
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}

	var body errorResponse
	body.Error.Code = string(errors.GetCode(err))
	body.Error.Message = errors.UserMessage(err)
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
