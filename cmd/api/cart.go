package main

import (
	"database/sql"
	"net/http"

	"github.com/sweetmart/sweetmart/internal/auth"
	"github.com/sweetmart/sweetmart/internal/store"
)

func handleGetCart(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		cart, err := store.GetCart(r.Context(), db, identity.UserID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondData(w, http.StatusOK, cart)
	}
}

func handleCartCount(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		count, err := store.CartCount(r.Context(), db, identity.UserID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondData(w, http.StatusOK, envelope{"count": count})
	}
}

func handleAddCartItem(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		var req struct {
			SweetID  int64 `json:"sweet_id"`
			Quantity int   `json:"quantity"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		cart, err := store.AddCartItem(r.Context(), db, identity.UserID, req.SweetID, req.Quantity)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondData(w, http.StatusOK, cart)
	}
}

func handleUpdateCartItem(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		itemID, err := pathID(r, "itemId")
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid cart item ID")
			return
		}

		var req struct {
			Quantity int `json:"quantity"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		cart, err := store.UpdateCartItem(r.Context(), db, identity.UserID, itemID, req.Quantity)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondData(w, http.StatusOK, cart)
	}
}

func handleRemoveCartItem(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		itemID, err := pathID(r, "itemId")
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid cart item ID")
			return
		}

		cart, err := store.RemoveCartItem(r.Context(), db, identity.UserID, itemID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondData(w, http.StatusOK, cart)
	}
}

func handleClearCart(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		cart, err := store.ClearCart(r.Context(), db, identity.UserID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondData(w, http.StatusOK, cart)
	}
}
