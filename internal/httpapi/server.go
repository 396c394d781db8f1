// Package httpapi exposes the inventory over a JSON REST surface.
package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"qrganizer/internal/dispatch"
	"qrganizer/internal/inventory"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Server serves the REST API. dispatcher may be nil, in which case the
// free-text endpoints answer 503.
type Server struct {
	db         inventory.Database
	dispatcher *dispatch.Dispatcher
	logger     inventory.Logger
}

func New(db inventory.Database, dispatcher *dispatch.Dispatcher, logger inventory.Logger) *Server {
	if logger == nil {
		logger = inventory.NewNopLogger()
	}
	return &Server{db: db, dispatcher: dispatcher, logger: logger}
}

// Handler returns the routed API wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.withRequestLog(mux)
}

// RegisterRoutes registers the API endpoints on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /spaces", s.handleListSpaces)
	mux.HandleFunc("POST /spaces", s.handleCreateSpace)
	mux.HandleFunc("GET /spaces/tree", s.handleTree)
	mux.HandleFunc("GET /spaces/{id}", s.handleGetSpace)
	mux.HandleFunc("PUT /spaces/{id}", s.handleRenameSpace)
	mux.HandleFunc("DELETE /spaces/{id}", s.handleDeleteSpace)
	mux.HandleFunc("GET /spaces/{id}/children", s.handleChildren)
	mux.HandleFunc("GET /spaces/{id}/tree", s.handleTree)
	mux.HandleFunc("GET /spaces/{id}/path", s.handlePath)
	mux.HandleFunc("GET /spaces/{id}/items", s.handleSpaceItems)
	mux.HandleFunc("PUT /spaces/{id}/parent", s.handleReparent)

	mux.HandleFunc("GET /items", s.handleListItems)
	mux.HandleFunc("POST /items", s.handleCreateItem)
	mux.HandleFunc("GET /items/{id}", s.handleGetItem)
	mux.HandleFunc("PUT /items/{id}", s.handleUpdateItem)
	mux.HandleFunc("PUT /items/{id}/space", s.handleMoveItem)
	mux.HandleFunc("DELETE /items/{id}", s.handleDeleteItem)

	mux.HandleFunc("GET /search", s.handleSearch)

	mux.HandleFunc("POST /voice/interpret", s.handleInterpret)
	mux.HandleFunc("GET /voice/history", s.handleHistory)

	mux.HandleFunc("GET /up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestLog tags each request with an id (kept from the client when
// present) and logs it once served.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		s.logger.Info("request served",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}
