package main

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/sweetmart/sweetmart/internal/auth"
	"github.com/sweetmart/sweetmart/internal/models"
	"github.com/sweetmart/sweetmart/internal/store"
	"github.com/sweetmart/sweetmart/internal/validate"
)

func handleInventorySummary(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		summary, err := store.GetInventorySummary(r.Context(), db)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondData(w, http.StatusOK, summary)
	}
}

func handleListInventory(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		q := r.URL.Query()

		filter := store.InventoryFilter{
			StockStatus: q.Get("stock_status"),
		}
		filter.Page, filter.PageSize = pageParams(r)

		if category := q.Get("category"); category != "" {
			c := models.Category(category)
			if !c.Valid() {
				respondStoreError(w, validate.NewError("category", "Invalid category"))
				return
			}
			filter.Category = c
		}

		page, err := store.ListInventory(r.Context(), db, filter)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondPage(w, http.StatusOK, page)
	}
}

func handleLowStock(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		threshold, _ := strconv.Atoi(r.URL.Query().Get("threshold"))

		sweets, err := store.LowStockSweets(r.Context(), db, threshold)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondData(w, http.StatusOK, sweets)
	}
}

func handleOutOfStock(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		sweets, err := store.OutOfStockSweets(r.Context(), db)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondData(w, http.StatusOK, sweets)
	}
}

func handleAdjustQuantity(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		id, err := pathID(r, "id")
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid sweet ID")
			return
		}

		var req struct {
			Operation store.QuantityOp `json:"operation"`
			Quantity  int              `json:"quantity"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Operation == "" {
			req.Operation = store.QuantityOpSet
		}

		sweet, err := store.AdjustQuantity(r.Context(), db, id, req.Operation, req.Quantity)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondData(w, http.StatusOK, sweet)
	}
}

func handleToggleAvailability(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		id, err := pathID(r, "id")
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid sweet ID")
			return
		}

		sweet, err := store.ToggleAvailability(r.Context(), db, id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondData(w, http.StatusOK, sweet)
	}
}

func handleBulkAdjust(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		var req struct {
			Updates []store.BulkQuantityUpdate `json:"updates"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if len(req.Updates) == 0 {
			respondStoreError(w, validate.NewError("updates", "At least one update is required"))
			return
		}

		modified, err := store.BulkAdjustQuantities(r.Context(), db, req.Updates)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondData(w, http.StatusOK, envelope{"modified": modified})
	}
}
