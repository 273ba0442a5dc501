package admin

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"booking-service/pkg/errs"
	"booking-service/pkg/jwt"
)

// Handler exposes administrative HTTP endpoints.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the admin service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router with all admin routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requireAdmin)

	r.Get("/driver-applications", h.ListDriverApplications)
	r.Get("/driver-applications/{id}", h.GetDriverApplication)
	r.Post("/driver-applications/approve", h.ApproveDriver)
	r.Post("/driver-applications/deny", h.DenyDriver)
	r.Get("/child-pickup-applications", h.ListChildPickupApplications)
	r.Get("/child-pickup-applications/{id}", h.GetChildPickupApplication)
	r.Post("/child-pickup-applications/approve", h.ApproveChildPickup)
	r.Post("/child-pickup-applications/deny", h.DenyChildPickup)

	return r
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := jwt.GetClaims(r.Context())
		if claims == nil || claims.Role != "admin" {
			http.Error(w, `{"success":false,"error":"unauthorized"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) ListDriverApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.svc.ListDriverApplications(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "applications": apps})
}

func (h *Handler) ListChildPickupApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.svc.ListChildPickupApplications(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "applications": apps})
}

func (h *Handler) GetDriverApplication(w http.ResponseWriter, r *http.Request) {
	app, err := h.svc.GetDriverApplication(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "application": app})
}

func (h *Handler) GetChildPickupApplication(w http.ResponseWriter, r *http.Request) {
	app, err := h.svc.GetChildPickupApplication(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "application": app})
}

func (h *Handler) ApproveDriver(w http.ResponseWriter, r *http.Request) {
	var req ApproveDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.E(errs.Validation, "invalid body"))
		return
	}
	if err := h.svc.ApproveDriverApplication(r.Context(), req.ApplicationID, req.DriverID, req.BookingClass, req.DeliveryClass); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Driver application approved",
		"driverId": req.DriverID,
	})
}

func (h *Handler) DenyDriver(w http.ResponseWriter, r *http.Request) {
	var req DenyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.E(errs.Validation, "invalid body"))
		return
	}
	if err := h.svc.DenyDriverApplication(r.Context(), req.ApplicationID, req.DriverID, req.Reason); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Driver application denied",
		"driverId": req.DriverID,
	})
}

func (h *Handler) ApproveChildPickup(w http.ResponseWriter, r *http.Request) {
	var req ApproveChildPickupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.E(errs.Validation, "invalid body"))
		return
	}
	if err := h.svc.ApproveChildPickupApplication(r.Context(), req.ApplicationID, req.DriverID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Child pickup application approved",
		"driverId": req.DriverID,
	})
}

func (h *Handler) DenyChildPickup(w http.ResponseWriter, r *http.Request) {
	var req DenyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.E(errs.Validation, "invalid body"))
		return
	}
	if err := h.svc.DenyChildPickupApplication(r.Context(), req.ApplicationID, req.DriverID, req.Reason); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Child pickup application denied",
		"driverId": req.DriverID,
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
