// internal/control/handler.go
package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"grccore/internal/domain"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the control endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Delete("/{id}", h.handleDelete)
	r.Post("/{id}/implement", h.handleImplement)
	r.Post("/{id}/reassess", h.handleReassess)
	r.Post("/{id}/retire", h.handleRetire)
	return r
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string `json:"name"`
		FrameworkRef string `json:"framework_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c, err := h.service.CreateControl(r.Context(), req.Name, req.FrameworkRef)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	controls, err := h.service.ListControls(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, controls)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	c, err := h.service.GetControl(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteControl(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleImplement(w http.ResponseWriter, r *http.Request) {
	h.rated(w, r, h.service.ImplementControl)
}

func (h *Handler) handleReassess(w http.ResponseWriter, r *http.Request) {
	h.rated(w, r, h.service.ReassessControl)
}

func (h *Handler) rated(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uuid.UUID, rating int) (*Control, error)) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req struct {
		Effectiveness int `json:"effectiveness"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c, err := fn(r.Context(), id, req.Effectiveness)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleRetire(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	c, err := h.service.RetireControl(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid control ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var conflict *domain.ConcurrencyConflictError
	var transition *domain.InvalidTransitionError
	var validation *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "control not found", http.StatusNotFound)
	case errors.As(err, &conflict):
		http.Error(w, "data changed, please retry", http.StatusConflict)
	case errors.As(err, &transition):
		http.Error(w, transition.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &validation):
		http.Error(w, validation.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
