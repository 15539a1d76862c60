package webapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
)

func (a *api) adminListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := a.orders.ListRecent(r.Context(), 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := a.orders.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": a.views(orders), "stats": st})
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (a *api) adminSetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	status, ok := entity.ParseOrderStatus(req.Status)
	if !ok {
		writeError(w, r, entity.ErrInvalidStatus)
		return
	}
	o, changed, err := a.orders.SetStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": a.view(o), "changed": changed})
}

type trackingRequest struct {
	Number  string `json:"number" validate:"required,max=64"`
	Carrier string `json:"carrier" validate:"max=64"`
}

func (a *api) adminSetTracking(w http.ResponseWriter, r *http.Request) {
	var req trackingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := a.orders.SetTracking(r.Context(), chi.URLParam(r, "id"), req.Number, req.Carrier)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.view(o))
}

func (a *api) adminDeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := a.orders.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type markupRequest struct {
	Percent *int `json:"percent" validate:"required"`
}

func (a *api) adminSetMarkup(w http.ResponseWriter, r *http.Request) {
	var req markupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.pricing.SetMarkup(r.Context(), *req.Percent); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"markup_percent": *req.Percent})
}
