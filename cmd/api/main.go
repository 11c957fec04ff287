package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sweetmart/sweetmart/internal/auth"
	"github.com/sweetmart/sweetmart/internal/config"
	"github.com/sweetmart/sweetmart/internal/database"
	"github.com/sweetmart/sweetmart/internal/events"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Connect to database")
	}
	defer db.Close()
	log.Info().Msg("Connected to database")

	var pub events.Publisher = events.NopPublisher{}
	if cfg.Events.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			log.Fatal().Err(err).Msg("Connect to message broker")
		}
		pub = amqpPub
	}
	defer pub.Close()

	authn := auth.NewTokenAuthenticator(db)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      logRequests(routes(db, authn, pub)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	errs := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server starting")
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		log.Fatal().Err(err).Msg("Server error")
	case sig := <-shutdown:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
			server.Close()
		}
	}
}

func routes(db *sql.DB, authn auth.Authenticator, pub events.Publisher) *http.ServeMux {
	mux := http.NewServeMux()

	// Public catalog.
	mux.HandleFunc("GET /sweets", handleSearchSweets(db))
	mux.HandleFunc("GET /sweets/featured", handleFeaturedSweets(db))
	mux.HandleFunc("GET /sweets/top-rated", handleTopRatedSweets(db))
	mux.HandleFunc("GET /sweets/categories/stats", handleCategoryStats(db))
	mux.HandleFunc("GET /sweets/category/{category}", handleSweetsByCategory(db))
	mux.HandleFunc("GET /sweets/{id}", handleGetSweet(db))

	// Catalog management.
	mux.HandleFunc("POST /sweets", requireAction(authn, auth.ActionManageCatalog, handleCreateSweet(db)))
	mux.HandleFunc("PUT /sweets/{id}", requireAction(authn, auth.ActionManageCatalog, handleUpdateSweet(db)))
	mux.HandleFunc("DELETE /sweets/{id}", requireAction(authn, auth.ActionManageCatalog, handleDeleteSweet(db)))

	// Reviews.
	mux.HandleFunc("POST /sweets/{id}/reviews", requireAction(authn, auth.ActionShop, handleAddReview(db)))

	// Cart.
	mux.HandleFunc("GET /cart", requireAction(authn, auth.ActionShop, handleGetCart(db)))
	mux.HandleFunc("GET /cart/count", requireAction(authn, auth.ActionShop, handleCartCount(db)))
	mux.HandleFunc("POST /cart/items", requireAction(authn, auth.ActionShop, handleAddCartItem(db)))
	mux.HandleFunc("PUT /cart/items/{itemId}", requireAction(authn, auth.ActionShop, handleUpdateCartItem(db)))
	mux.HandleFunc("DELETE /cart/items/{itemId}", requireAction(authn, auth.ActionShop, handleRemoveCartItem(db)))
	mux.HandleFunc("DELETE /cart", requireAction(authn, auth.ActionShop, handleClearCart(db)))

	// Orders.
	mux.HandleFunc("POST /orders", requireAction(authn, auth.ActionShop, handleCheckout(db, pub)))
	mux.HandleFunc("GET /orders/my-orders", requireAction(authn, auth.ActionShop, handleMyOrders(db)))
	mux.HandleFunc("GET /orders/stats", requireAction(authn, auth.ActionManageOrders, handleOrderStats(db)))
	mux.HandleFunc("GET /orders/all", requireAction(authn, auth.ActionManageOrders, handleListAllOrders(db)))
	mux.HandleFunc("GET /orders/{id}", requireAction(authn, auth.ActionShop, handleGetOrder(db)))
	mux.HandleFunc("PUT /orders/{id}/status", requireAction(authn, auth.ActionManageOrders, handleUpdateOrderStatus(db, pub)))

	// Inventory administration.
	mux.HandleFunc("GET /inventory/summary", requireAction(authn, auth.ActionViewInventory, handleInventorySummary(db)))
	mux.HandleFunc("GET /inventory", requireAction(authn, auth.ActionViewInventory, handleListInventory(db)))
	mux.HandleFunc("GET /inventory/low-stock", requireAction(authn, auth.ActionViewInventory, handleLowStock(db)))
	mux.HandleFunc("GET /inventory/out-of-stock", requireAction(authn, auth.ActionViewInventory, handleOutOfStock(db)))
	mux.HandleFunc("PUT /inventory/{id}/quantity", requireAction(authn, auth.ActionViewInventory, handleAdjustQuantity(db)))
	mux.HandleFunc("PUT /inventory/{id}/toggle", requireAction(authn, auth.ActionViewInventory, handleToggleAvailability(db)))
	mux.HandleFunc("POST /inventory/bulk-update", requireAction(authn, auth.ActionViewInventory, handleBulkAdjust(db)))

	return mux
}
