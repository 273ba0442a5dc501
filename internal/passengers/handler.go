package passengers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"booking-service/pkg/errs"
	"booking-service/pkg/jwt"
)

// Handler exposes passenger HTTP endpoints.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the passenger service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router with all passenger routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.Get("/{id}", h.GetByID)
	return r
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "passenger": p})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, errs.HTTPStatus(err), map[string]any{"success": false, "error": err.Error()})
}
