package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/snackhub/orderfeed/internal/catalog"
	"github.com/snackhub/orderfeed/internal/checkout"
	"github.com/snackhub/orderfeed/internal/config"
	"github.com/snackhub/orderfeed/internal/model"
	"github.com/snackhub/orderfeed/internal/notify"
	"github.com/snackhub/orderfeed/internal/orders"
)

// App bundles the services behind the HTTP surface.
type App struct {
	Cfg      config.Config
	Orders   *orders.Service
	Checkout *checkout.Service
	Catalog  *catalog.Repository
	Notify   *notify.Service

	started  time.Time
	upgrader websocket.Upgrader
}

// NewApp wires the handlers to their services.
func NewApp(cfg config.Config, ord *orders.Service, chk *checkout.Service, cat *catalog.Repository, ntf *notify.Service) *App {
	return &App{
		Cfg:      cfg,
		Orders:   ord,
		Checkout: chk,
		Catalog:  cat,
		Notify:   ntf,
		started:  time.Now(),
	}
}

// pathUser resolves the acting user. A present X-User-Id header must
// match the path segment; mismatches are rejected before any data is
// touched. Token issuance is out of scope, so the header is trusted.
func (a *App) pathUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid := r.PathValue("id")
	if uid == "" {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "user id is required")
		return "", false
	}
	if h := r.Header.Get("X-User-Id"); h != "" && h != uid {
		WriteJSONError(w, http.StatusForbidden, "forbidden", "user id mismatch")
		return "", false
	}
	return uid, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// --- orders ---

func (a *App) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := a.pathUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), a.Cfg.FirstResultTimeout)
	defer cancel()

	list, err := a.Orders.ListUserOrders(ctx, uid)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, list)
	case errors.Is(err, orders.ErrUnauthenticated):
		WriteJSONError(w, http.StatusUnauthorized, "unauthenticated", "")
	case errors.Is(err, context.DeadlineExceeded):
		WriteJSONError(w, http.StatusGatewayTimeout, "timeout", "")
	default:
		WriteJSONError(w, http.StatusBadGateway, "order_feed_unavailable", err.Error())
	}
}

func (a *App) placeOrderHandler(w http.ResponseWriter, r *http.Request) {
	var in checkout.PlaceOrderInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.UserID == "" {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "user_id is required")
		return
	}
	ord, err := a.Checkout.PlaceOrder(r.Context(), in)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "place_order_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, ord)
}

func (a *App) updateStatusHandler(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status model.OrderStatus `json:"status"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	ord, err := a.Checkout.UpdateStatus(r.Context(), r.PathValue("id"), in.Status)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ord)
	case errors.Is(err, orders.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
	default:
		WriteJSONError(w, http.StatusBadRequest, "status_update_failed", err.Error())
	}
}

func (a *App) rateOrderHandler(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Rating int `json:"rating"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	ord, err := a.Checkout.RateOrder(r.Context(), r.PathValue("id"), in.Rating)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ord)
	case errors.Is(err, orders.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
	case errors.Is(err, checkout.ErrNotRateable):
		WriteJSONError(w, http.StatusConflict, "not_rateable", "")
	default:
		WriteJSONError(w, http.StatusBadRequest, "rating_failed", err.Error())
	}
}

// --- notifications ---

func (a *App) listNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := a.pathUser(w, r)
	if !ok {
		return
	}
	list, err := a.Notify.List(r.Context(), uid)
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// --- catalog ---

func (a *App) saveStoreHandler(w http.ResponseWriter, r *http.Request) {
	var st model.Store
	if !decodeJSON(w, r, &st) {
		return
	}
	if err := a.Catalog.SaveStore(r.Context(), st); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "save_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (a *App) getStoreHandler(w http.ResponseWriter, r *http.Request) {
	st, err := a.Catalog.GetStore(r.Context(), r.PathValue("id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, st)
	case errors.Is(err, orders.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
	default:
		WriteJSONError(w, http.StatusInternalServerError, "get_failed", err.Error())
	}
}

func (a *App) listStoresHandler(w http.ResponseWriter, r *http.Request) {
	list, err := a.Catalog.ListStores(r.Context())
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *App) saveProductHandler(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if !decodeJSON(w, r, &p) {
		return
	}
	p.StoreID = r.PathValue("id")
	if err := a.Catalog.SaveProduct(r.Context(), p); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "save_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *App) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := a.Catalog.ListProducts(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *App) saveCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var c model.Category
	if !decodeJSON(w, r, &c) {
		return
	}
	if err := a.Catalog.SaveCategory(r.Context(), c); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "save_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (a *App) listCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := a.Catalog.ListCategories(r.Context())
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *App) toggleFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := a.pathUser(w, r)
	if !ok {
		return
	}
	on, err := a.Catalog.ToggleFavorite(r.Context(), uid, r.PathValue("storeID"))
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "toggle_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": on})
}

func (a *App) listFavoritesHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := a.pathUser(w, r)
	if !ok {
		return
	}
	ids, err := a.Catalog.ListFavorites(r.Context(), uid)
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

// --- ops ---

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	m := a.Orders.Metrics()
	writeJSON(w, http.StatusOK, map[string]any{
		"batches_started":    m.BatchesStarted,
		"batches_emitted":    m.BatchesEmitted,
		"batches_superseded": m.BatchesSuperseded,
		"slots_rejected":     m.SlotsRejected,
		"slots_missing":      m.SlotsMissing,
		"uptime_sec":         time.Since(a.started).Seconds(),
	})
}
