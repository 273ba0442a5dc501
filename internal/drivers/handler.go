package drivers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"booking-service/pkg/errs"
	"booking-service/pkg/jwt"
)

// Handler exposes driver HTTP endpoints.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the driver service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router with all driver routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)

	r.Get("/nearby", h.GetNearby) // must come before /{id}
	r.Get("/{id}", h.GetByID)
	r.Get("/{id}/earnings", h.GetEarnings)
	r.Get("/{id}/stats", h.GetStats)
	r.Patch("/location", h.UpdateLocation)
	r.Patch("/status", h.UpdateStatus)

	return r
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "driver": d})
}

func (h *Handler) GetEarnings(w http.ResponseWriter, r *http.Request) {
	total, err := h.svc.Earnings(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "totalEarnings": total})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "statistics": stats})
}

// UpdateLocation records the authenticated driver's own position.
func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var loc LocationUpdate
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
		writeErr(w, errs.E(errs.Validation, "invalid body"))
		return
	}
	if err := h.svc.UpdateLocation(r.Context(), jwt.CallerID(r.Context()), loc.Lat, loc.Lng); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Location updated successfully"})
}

// UpdateStatus flips the authenticated driver's availability.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.E(errs.Validation, "invalid body"))
		return
	}
	if err := h.svc.SetAvailability(r.Context(), jwt.CallerID(r.Context()), req.Status); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Status updated successfully"})
}

func (h *Handler) GetNearby(w http.ResponseWriter, r *http.Request) {
	lat, _ := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, _ := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	radius := 5.0
	if v := r.URL.Query().Get("radius"); v != "" {
		radius, _ = strconv.ParseFloat(v, 64)
	}
	ids, err := h.svc.Nearby(r.Context(), lat, lng, radius)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "drivers": ids})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, errs.HTTPStatus(err), map[string]any{"success": false, "error": err.Error()})
}
