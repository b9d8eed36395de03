// Package main boots the order feed HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/snackhub/orderfeed/internal/catalog"
	"github.com/snackhub/orderfeed/internal/checkout"
	"github.com/snackhub/orderfeed/internal/config"
	"github.com/snackhub/orderfeed/internal/docstore"
	httpapi "github.com/snackhub/orderfeed/internal/http"
	"github.com/snackhub/orderfeed/internal/notify"
	"github.com/snackhub/orderfeed/internal/obs"
	"github.com/snackhub/orderfeed/internal/orders"
)

func main() {
	cfg := config.Load()
	obs.InitLogger()
	obs.Logger.Info("service_starting")

	ds, err := docstore.Open(docstore.Options{
		Dir:      cfg.DataDir,
		InMemory: cfg.InMemory,
		GCEvery:  cfg.BadgerGCEvery,
		GCRatio:  cfg.BadgerGCRatio,
		Logger:   obs.Logger,
	})
	if err != nil {
		obs.Logger.Error("docstore_open_error", "error", err)
		os.Exit(1)
	}

	ntf := notify.NewService(ds)
	app := httpapi.NewApp(cfg,
		orders.NewService(ds),
		checkout.NewService(ds, ntf),
		catalog.NewRepository(ds),
		ntf,
	)
	mux := httpapi.NewRouter(app)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No WriteTimeout: the watch endpoints hold their connections
		// open for the lifetime of the subscription.
	}

	go func() {
		obs.Logger.Info("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obs.Logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	obs.Logger.Info("shutdown_signal", "signal", s.String())

	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		obs.Logger.Error("http_shutdown_error", "error", err)
	}

	// Closing the store ends every live watch, which lets the watch
	// handlers drain.
	if err := ds.Close(); err != nil {
		obs.Logger.Error("docstore_close_error", "error", err)
	}
	obs.Logger.Info("service_stopped")
}
