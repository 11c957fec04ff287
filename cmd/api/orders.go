package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sweetmart/sweetmart/internal/auth"
	"github.com/sweetmart/sweetmart/internal/events"
	"github.com/sweetmart/sweetmart/internal/models"
	"github.com/sweetmart/sweetmart/internal/store"
	"github.com/sweetmart/sweetmart/internal/validate"
)

func handleCheckout(db *sql.DB, pub events.Publisher) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		var in validate.CheckoutInput
		if err := decodeJSON(r, &in); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := validate.Checkout(in); err != nil {
			respondStoreError(w, err)
			return
		}

		order, err := store.Checkout(r.Context(), db, store.CheckoutRequest{
			UserID:          identity.UserID,
			DeliveryAddress: in.DeliveryAddress,
			PhoneNumber:     in.PhoneNumber,
			Notes:           in.Notes,
		})
		if err != nil {
			respondStoreError(w, err)
			return
		}

		publishOrderEvent(r, pub, events.RoutingKeyOrderCreated, order)

		respondData(w, http.StatusCreated, order)
	}
}

func handleMyOrders(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		q := r.URL.Query()

		status := models.OrderStatus(q.Get("status"))
		if status != "" && !status.Valid() {
			respondStoreError(w, validate.NewError("status", "Invalid order status"))
			return
		}

		_, limit := pageParams(r)

		page, err := store.ListUserOrders(r.Context(), db, identity.UserID, status, q.Get("cursor"), limit)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondCursorPage(w, http.StatusOK, page)
	}
}

func handleGetOrder(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		id, err := pathID(r, "id")
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid order ID")
			return
		}

		order, err := store.GetOrder(r.Context(), db, id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		// Customers only see their own orders; staff see everything.
		if order.UserID != identity.UserID && !auth.Staff(identity.Role) {
			respondStoreError(w, auth.ErrForbidden)
			return
		}

		respondData(w, http.StatusOK, order)
	}
}

func handleListAllOrders(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		q := r.URL.Query()

		filter := store.OrderListFilter{}
		filter.Page, filter.PageSize = pageParams(r)

		if raw := q.Get("status"); raw != "" {
			status := models.OrderStatus(raw)
			if !status.Valid() {
				respondStoreError(w, validate.NewError("status", "Invalid order status"))
				return
			}
			filter.Status = status
		}
		if raw := q.Get("from"); raw != "" {
			from, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				respondStoreError(w, validate.NewError("from", "Must be an RFC 3339 timestamp"))
				return
			}
			filter.From = &from
		}
		if raw := q.Get("to"); raw != "" {
			to, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				respondStoreError(w, validate.NewError("to", "Must be an RFC 3339 timestamp"))
				return
			}
			filter.To = &to
		}

		page, err := store.ListAllOrders(r.Context(), db, filter)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondPage(w, http.StatusOK, page)
	}
}

func handleUpdateOrderStatus(db *sql.DB, pub events.Publisher) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		id, err := pathID(r, "id")
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid order ID")
			return
		}

		var req struct {
			Status models.OrderStatus `json:"status"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		order, err := store.UpdateOrderStatus(r.Context(), db, id, req.Status)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		routingKey := events.RoutingKeyOrderStatusChanged
		if order.Status == models.OrderStatusCancelled {
			routingKey = events.RoutingKeyOrderCancelled
		}
		publishOrderEvent(r, pub, routingKey, order)

		respondData(w, http.StatusOK, order)
	}
}

func handleOrderStats(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		stats, err := store.GetOrderStats(r.Context(), db)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondData(w, http.StatusOK, stats)
	}
}

// publishOrderEvent is best effort. The order is already committed, so a
// broker failure only costs the notification, never the request.
func publishOrderEvent(r *http.Request, pub events.Publisher, routingKey string, order *models.Order) {
	if err := pub.Publish(r.Context(), routingKey, events.NewOrderEvent(order)); err != nil {
		log.Error().
			Err(err).
			Int64("orderId", order.ID).
			Str("routingKey", routingKey).
			Msg("Publish order event")
	}
}
