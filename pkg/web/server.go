// Package web serves the validation API, the document catalog and the
// embedded graph viewer.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/promptgraph/pkg/analysis"
	"github.com/ritzau/promptgraph/pkg/catalog"
	"github.com/ritzau/promptgraph/pkg/logging"
	"github.com/ritzau/promptgraph/pkg/model"
	"github.com/ritzau/promptgraph/pkg/projection"
	"github.com/ritzau/promptgraph/pkg/pubsub"
	"github.com/ritzau/promptgraph/pkg/schema"
)

//go:embed static/*
var staticFiles embed.FS

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 8 << 20

const shutdownTimeout = 5 * time.Second

// Server represents the web server
type Server struct {
	router    *mux.Router
	catalog   *catalog.Catalog
	publisher *pubsub.SSEPublisher
	strict    bool
}

// Option configures a Server.
type Option func(*Server)

// WithStrict makes integrity checks the default for POST endpoints.
// Clients can still pass ?strict=false.
func WithStrict(strict bool) Option {
	return func(s *Server) { s.strict = strict }
}

// NewServer creates a server backed by cat.
func NewServer(cat *catalog.Catalog, opts ...Option) *Server {
	publisher := pubsub.NewSSEPublisher()
	for topic, config := range pubsub.DefaultTopics() {
		publisher.ConfigureTopic(topic, config)
	}

	s := &Server{
		router:    mux.NewRouter(),
		catalog:   cat,
		publisher: publisher,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/subscribe/documents", s.handleSubscribe(pubsub.TopicDocuments)).Methods(http.MethodGet)
	api.HandleFunc("/subscribe/catalog", s.handleSubscribe(pubsub.TopicCatalog)).Methods(http.MethodGet)

	api.HandleFunc("/validate", s.handleValidate).Methods(http.MethodPost)
	api.HandleFunc("/project", s.handleProject).Methods(http.MethodPost)

	// Ids contain slashes; the graph route must be matched first.
	api.HandleFunc("/documents", s.handleDocuments).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id:.+}/graph", s.handleDocumentGraph).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id:.+}", s.handleDocument).Methods(http.MethodGet)

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))
}

// Handler returns the router wrapped in request-id middleware.
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

// PublishChange forwards a catalog change to SSE subscribers, followed by
// the updated catalog summary.
func (s *Server) PublishChange(change catalog.Change) {
	status := pubsub.DocumentStatus{ID: change.ID}
	var eventType string

	switch change.Type {
	case catalog.ChangeLoaded:
		eventType = pubsub.EventLoaded
		if change.Entry != nil {
			summary := change.Entry.Summary()
			status.Valid = summary.Valid
			status.ErrorCount = summary.ErrorCount
			status.Nodes = summary.Nodes
			status.Links = summary.Links
		}
	case catalog.ChangeRemoved:
		eventType = pubsub.EventRemoved
	default:
		eventType = pubsub.EventError
		if change.Err != nil {
			status.Error = change.Err.Error()
		}
	}

	if err := s.publisher.Publish(pubsub.TopicDocuments, eventType, status); err != nil {
		logging.Warn("failed to publish document status", "id", change.ID, "error", err)
		return
	}
	s.PublishSummary()
}

// PublishSummary publishes the catalog's current counts.
func (s *Server) PublishSummary() {
	stats := s.catalog.Stats()
	summary := pubsub.CatalogSummary{Total: stats.Total, Valid: stats.Valid, Invalid: stats.Invalid}
	if err := s.publisher.Publish(pubsub.TopicCatalog, pubsub.EventSummary, summary); err != nil {
		logging.Warn("failed to publish catalog summary", "error", err)
	}
}

// Start serves on port until ctx is cancelled, then shuts down gracefully.
// SSE streams are ended before the listener drains.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.publisher.Close()
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
	}

	logging.Info("shutting down web server")
	s.publisher.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close ends every SSE stream.
func (s *Server) Close() error {
	return s.publisher.Close()
}

func (s *Server) handleSubscribe(topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		flusher, _ := w.(http.Flusher)
		flush := func() {
			if flusher != nil {
				flusher.Flush()
			}
		}

		sub, err := s.publisher.Subscribe(r.Context(), topic)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		defer sub.Close()

		// Safari needs a first chunk before it reports the stream as open.
		fmt.Fprintf(w, ": connected\n\n")
		flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				if err := pubsub.WriteSSE(w, event); err != nil {
					logging.DebugContext(r.Context(), "SSE client went away", "topic", topic, "error", err)
					return
				}
				flush()
			}
		}
	}
}

// validateResponse is the body of POST /api/validate.
type validateResponse struct {
	Valid    bool                     `json:"valid"`
	Errors   []schema.ValidationError `json:"errors"`
	Document *model.GraphDocument     `json:"document,omitempty"`
	Graph    *model.ProjectedGraph    `json:"graph,omitempty"`
	Metrics  *analysis.Metrics        `json:"metrics,omitempty"`
}

func newValidateResponse(res schema.Result) validateResponse {
	out := validateResponse{
		Valid:    res.Valid(),
		Errors:   res.Errors,
		Document: res.Document,
	}
	if out.Errors == nil {
		out.Errors = []schema.ValidationError{}
	}
	if res.Valid() {
		graph := projection.Project(res.Document)
		metrics := analysis.Analyze(res.Document)
		out.Graph = &graph
		out.Metrics = &metrics
	}
	return out
}

// validateRequest is the JSON form of POST /api/validate.
type validateRequest struct {
	Response *string `json:"response"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	strict, err := s.strictParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, ok := readBody(w, r)
	if !ok {
		return
	}

	raw := string(body)
	if isJSON(r) {
		var req validateRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if req.Response == nil {
			writeError(w, http.StatusBadRequest, `request body must contain a "response" string`)
			return
		}
		raw = *req.Response
	}

	res := schema.ValidateString(raw, validateOptions(strict)...)
	logging.DebugContext(r.Context(), "validated response", "valid", res.Valid(), "errors", len(res.Errors))
	writeJSON(w, http.StatusOK, newValidateResponse(res))
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	strict, err := s.strictParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, ok := readBody(w, r)
	if !ok {
		return
	}

	res := schema.Validate(json.RawMessage(body), validateOptions(strict)...)
	if !res.Valid() {
		writeJSON(w, http.StatusUnprocessableEntity, newValidateResponse(res))
		return
	}
	writeJSON(w, http.StatusOK, projection.Project(res.Document))
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.List())
}

// documentResponse is the body of GET /api/documents/{id}.
type documentResponse struct {
	catalog.Summary
	Raw      string                   `json:"raw"`
	Errors   []schema.ValidationError `json:"errors"`
	Document *model.GraphDocument     `json:"document,omitempty"`
	Metrics  *analysis.Metrics        `json:"metrics,omitempty"`
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}

	resp := documentResponse{
		Summary:  entry.Summary(),
		Raw:      entry.Raw,
		Errors:   entry.Result.Errors,
		Document: entry.Result.Document,
		Metrics:  entry.Metrics,
	}
	if resp.Errors == nil {
		resp.Errors = []schema.ValidationError{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDocumentGraph(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if entry.Graph == nil {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  "document is not a valid graph",
			"errors": entry.Result.Errors,
		})
		return
	}
	writeJSON(w, http.StatusOK, entry.Graph)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*catalog.Entry, bool) {
	id := mux.Vars(r)["id"]
	entry, ok := s.catalog.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s: %s", catalog.ErrNotFound, id))
		return nil, false
	}
	return entry, true
}

func (s *Server) strictParam(r *http.Request) (bool, error) {
	v := r.URL.Query().Get("strict")
	if v == "" {
		return s.strict, nil
	}
	strict, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid strict parameter %q", v)
	}
	return strict, nil
}

func validateOptions(strict bool) []schema.Option {
	if strict {
		return []schema.Option{schema.WithIntegrity()}
	}
	return nil
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// readBody reads at most MaxBodyBytes; on failure it writes the error
// response itself.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", MaxBodyBytes))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
