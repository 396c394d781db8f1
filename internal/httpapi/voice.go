package httpapi

import (
	"net/http"
)

// defaultSearchLimit caps search results unless ?limit= says otherwise.
const defaultSearchLimit = 20

type interpretRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit, ok, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		limit = defaultSearchLimit
	}
	hits, err := s.db.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(hits))
}

// handleInterpret runs a free-text command. Expected rejections are still
// 200: the outcome message is the answer.
func (s *Server) handleInterpret(w http.ResponseWriter, r *http.Request) {
	if s.dispatcher == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "command interpreter not configured"})
		return
	}
	var req interpretRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.dispatcher.Handle(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, _, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := s.db.ListCommands(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(records))
}
