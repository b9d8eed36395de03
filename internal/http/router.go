package httpapi

import (
	"expvar"
	"net/http"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(app *App) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /users/{id}/orders", app.listOrdersHandler)
	mux.HandleFunc("GET /users/{id}/orders/watch", app.watchOrdersHandler)
	mux.HandleFunc("GET /users/{id}/notifications", app.listNotificationsHandler)
	mux.HandleFunc("GET /users/{id}/notifications/watch", app.watchNotificationsHandler)
	mux.HandleFunc("GET /users/{id}/favorites", app.listFavoritesHandler)
	mux.HandleFunc("POST /users/{id}/favorites/{storeID}", app.toggleFavoriteHandler)

	mux.HandleFunc("POST /orders", app.placeOrderHandler)
	mux.HandleFunc("POST /orders/{id}/status", app.updateStatusHandler)
	mux.HandleFunc("POST /orders/{id}/rating", app.rateOrderHandler)

	mux.HandleFunc("GET /stores", app.listStoresHandler)
	mux.HandleFunc("POST /stores", app.saveStoreHandler)
	mux.HandleFunc("GET /stores/{id}", app.getStoreHandler)
	mux.HandleFunc("GET /stores/{id}/products", app.listProductsHandler)
	mux.HandleFunc("POST /stores/{id}/products", app.saveProductHandler)
	mux.HandleFunc("GET /categories", app.listCategoriesHandler)
	mux.HandleFunc("POST /categories", app.saveCategoryHandler)

	mux.HandleFunc("GET /healthz", app.healthHandler)
	mux.HandleFunc("GET /debug/metrics", app.metricsHandler)
	mux.Handle("GET /debug/vars", expvar.Handler())

	return WithRequestID(WithLogging(WithRecover(mux)))
}
