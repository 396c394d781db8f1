package httpapi

import (
	"net/http"
)

type createSpaceRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

type renameSpaceRequest struct {
	Name string `json:"name"`
}

type reparentRequest struct {
	ParentID *int64 `json:"parent_id"`
}

type deleteSpaceResponse struct {
	Spaces int `json:"spaces_deleted"`
	Items  int `json:"items_deleted"`
}

func (s *Server) handleListSpaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := s.db.ListSpaces(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(spaces))
}

func (s *Server) handleCreateSpace(w http.ResponseWriter, r *http.Request) {
	var req createSpaceRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sp, err := s.db.CreateSpace(r.Context(), req.Name, req.ParentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sp)
}

func (s *Server) handleGetSpace(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sp, err := s.db.GetSpace(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

func (s *Server) handleRenameSpace(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req renameSpaceRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sp, err := s.db.UpdateSpace(r.Context(), id, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

func (s *Server) handleReparent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req reparentRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sp, err := s.db.ReparentSpace(r.Context(), id, req.ParentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

func (s *Server) handleDeleteSpace(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.db.DeleteSpace(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteSpaceResponse{Spaces: res.Spaces, Items: res.Items})
}

func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	children, err := s.db.GetChildren(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(children))
}

// handleTree serves /spaces/tree (every root) and /spaces/{id}/tree.
func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	var root *int64
	if r.PathValue("id") != "" {
		id, err := pathID(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		root = &id
	}
	tree, err := s.db.GetSubtree(r.Context(), root)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tree))
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	path, err := s.db.GetPath(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, path)
}

func (s *Server) handleSpaceItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.db.GetSpace(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.db.ListItemsInSpace(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
