package main

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/sweetmart/sweetmart/internal/auth"
	"github.com/sweetmart/sweetmart/internal/models"
	"github.com/sweetmart/sweetmart/internal/store"
	"github.com/sweetmart/sweetmart/internal/validate"
)

func handleSearchSweets(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := searchFilterFromQuery(r)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		page, err := store.SearchSweets(r.Context(), db, filter)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondPage(w, http.StatusOK, page)
	}
}

func handleSweetsByCategory(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := models.Category(r.PathValue("category"))
		if !category.Valid() {
			respondError(w, http.StatusBadRequest, "Invalid category")
			return
		}

		filter, err := searchFilterFromQuery(r)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		filter.Category = category

		page, err := store.SearchSweets(r.Context(), db, filter)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondPage(w, http.StatusOK, page)
	}
}

func handleFeaturedSweets(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit < 1 || limit > 50 {
			limit = 10
		}

		sweets, err := store.FeaturedSweets(r.Context(), db, limit)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondData(w, http.StatusOK, sweets)
	}
}

func handleTopRatedSweets(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topRated, err := store.TopRatedByCategory(r.Context(), db)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondData(w, http.StatusOK, topRated)
	}
}

func handleCategoryStats(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.CategoryStats(r.Context(), db)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondData(w, http.StatusOK, stats)
	}
}

func handleGetSweet(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid sweet ID")
			return
		}

		sweet, err := store.GetSweet(r.Context(), db, id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondData(w, http.StatusOK, sweet)
	}
}

func handleCreateSweet(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		var in validate.SweetInput
		if err := decodeJSON(r, &in); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := validate.Sweet(in); err != nil {
			respondStoreError(w, err)
			return
		}

		sweet, err := store.CreateSweet(r.Context(), db, store.CreateSweetRequest{
			Name:        in.Name,
			Description: in.Description,
			Category:    in.Category,
			Price:       in.Price,
			ImageURL:    in.ImageURL,
			Ingredients: in.Ingredients,
			Quantity:    in.Quantity,
			IsFeatured:  in.IsFeatured,
			Discount:    in.Discount,
			CreatedBy:   identity.UserID,
		})
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondData(w, http.StatusCreated, sweet)
	}
}

func handleUpdateSweet(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		id, err := pathID(r, "id")
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid sweet ID")
			return
		}

		var req store.UpdateSweetRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := validatePatch(req); err != nil {
			respondStoreError(w, err)
			return
		}

		sweet, err := store.UpdateSweet(r.Context(), db, id, req)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondData(w, http.StatusOK, sweet)
	}
}

// validatePatch reuses the full-input validator for whichever fields the
// patch actually carries.
func validatePatch(req store.UpdateSweetRequest) error {
	in := validate.SweetInput{
		Name:        "placeholder",
		Description: "placeholder",
		Category:    models.CategoryChocolate,
		ImageURL:    "https://example.com/placeholder.jpg",
	}

	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Category != nil {
		in.Category = *req.Category
	}
	if req.Price != nil {
		in.Price = *req.Price
	}
	if req.ImageURL != nil {
		in.ImageURL = *req.ImageURL
	}
	if req.Quantity != nil {
		in.Quantity = *req.Quantity
	}
	if req.Discount != nil {
		in.Discount = *req.Discount
	}

	return validate.Sweet(in)
}

func handleDeleteSweet(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		id, err := pathID(r, "id")
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid sweet ID")
			return
		}

		if err := store.DeleteSweet(r.Context(), db, id); err != nil {
			respondStoreError(w, err)
			return
		}

		respondMessage(w, http.StatusOK, "Sweet deleted successfully")
	}
}

func handleAddReview(db *sql.DB) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		id, err := pathID(r, "id")
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid sweet ID")
			return
		}

		var in validate.ReviewInput
		if err := decodeJSON(r, &in); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := validate.Review(in); err != nil {
			respondStoreError(w, err)
			return
		}

		review, err := store.AddReview(r.Context(), db, id, identity.UserID, identity.Name, in.Rating, in.Comment)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondData(w, http.StatusCreated, review)
	}
}

func searchFilterFromQuery(r *http.Request) (store.SearchFilter, error) {
	q := r.URL.Query()

	filter := store.SearchFilter{
		Query: q.Get("q"),
		Sort:  q.Get("sort"),
	}
	filter.Page, filter.PageSize = pageParams(r)

	if category := q.Get("category"); category != "" {
		c := models.Category(category)
		if !c.Valid() {
			return filter, validate.NewError("category", "Invalid category")
		}
		filter.Category = c
	}

	if raw := q.Get("min_price"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, validate.NewError("min_price", "Must be a decimal number")
		}
		filter.MinPrice = &price
	}
	if raw := q.Get("max_price"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, validate.NewError("max_price", "Must be a decimal number")
		}
		filter.MaxPrice = &price
	}
	if raw := q.Get("min_rating"); raw != "" {
		rating, err := strconv.ParseFloat(raw, 64)
		if err != nil || rating < 0 || rating > 5 {
			return filter, validate.NewError("min_rating", "Must be a number between 0 and 5")
		}
		filter.MinRating = &rating
	}

	return filter, nil
}

func pageParams(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}
