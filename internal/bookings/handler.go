package bookings

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"booking-service/internal/matching"
	"booking-service/pkg/errs"
	"booking-service/pkg/jwt"
)

// Handler exposes booking HTTP endpoints.
type Handler struct {
	svc    *Service
	engine *matching.Engine
}

// NewHandler wires a handler to the booking service and matching engine.
func NewHandler(svc *Service, engine *matching.Engine) *Handler {
	return &Handler{svc: svc, engine: engine}
}

// Routes returns a chi.Router with all booking routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)

	r.Post("/", h.Create)
	r.Get("/{id}", h.GetByID)
	r.Post("/{id}/search", h.SearchDrivers)
	r.Patch("/{id}/assign", h.Assign)
	r.Patch("/{id}/cancel", h.Cancel)
	r.Patch("/{id}/pickup", h.DriverAtPickup)
	r.Patch("/{id}/start", h.StartRide)
	r.Patch("/{id}/end", h.EndRide)
	r.Post("/{id}/payment", h.ConfirmPayment)

	return r
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.E(errs.Validation, "invalid body"))
		return
	}
	b, err := h.svc.Create(r.Context(), jwt.CallerID(r.Context()), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Booking request received successfully!",
		"booking": b,
	})
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "booking": b})
}

// SearchDrivers blocks until the live search resolves: either a driver set
// within range or a timeout failure.
func (h *Handler) SearchDrivers(w http.ResponseWriter, r *http.Request) {
	found, err := h.engine.Search(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Drivers found",
		"drivers": found,
	})
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.E(errs.Validation, "invalid body"))
		return
	}
	if _, err := h.svc.Assign(r.Context(), chi.URLParam(r, "id"), req.DriverID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Driver selected and booking confirmed successfully!",
	})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Booking cancelled successfully."})
}

func (h *Handler) DriverAtPickup(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkDriverAtPickup(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Driver has arrived at pickup location."})
}

func (h *Handler) StartRide(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.StartRide(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Ride has started."})
}

func (h *Handler) EndRide(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.EndRide(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Ride has ended."})
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req ConfirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.E(errs.Validation, "invalid body"))
		return
	}
	p, err := h.svc.ConfirmPayment(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Payment confirmed and ride marked as successful.",
		"payment": p,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, errs.HTTPStatus(err), map[string]any{"success": false, "error": err.Error()})
}
