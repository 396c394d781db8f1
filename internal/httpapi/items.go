package httpapi

import (
	"net/http"
	"strconv"

	"qrganizer/internal/inventory"
	"qrganizer/internal/model"
)

type createItemRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	SpaceID     *int64  `json:"space_id"`
}

type updateItemRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type moveItemRequest struct {
	SpaceID *int64 `json:"space_id"`
}

// handleListItems lists every item, or those of one space with ?space_id=.
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	var (
		items []*model.Item
		err   error
	)
	if raw := r.URL.Query().Get("space_id"); raw != "" {
		id, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			s.writeError(w, r, &inventory.ValidationError{Field: "space_id", Reason: "not a valid id"})
			return
		}
		items, err = s.db.ListItemsInSpace(r.Context(), id)
	} else {
		items, err = s.db.ListItems(r.Context())
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	it, err := s.db.CreateItem(r.Context(), req.Name, req.Description, req.SpaceID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	it, err := s.db.GetItem(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req updateItemRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	it, err := s.db.UpdateItem(r.Context(), id, req.Name, req.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleMoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req moveItemRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	it, err := s.db.MoveItem(r.Context(), id, req.SpaceID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.db.DeleteItem(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
