package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/sweetmart/sweetmart/internal/auth"
	"github.com/sweetmart/sweetmart/internal/database"
	"github.com/sweetmart/sweetmart/internal/store"
	"github.com/sweetmart/sweetmart/internal/validate"
)

type envelope map[string]interface{}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Encode JSON response")
	}
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, envelope{"success": true, "data": data})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, envelope{"success": true, "message": message})
}

func respondPage(w http.ResponseWriter, status int, page *store.OffsetPage) {
	respondJSON(w, status, envelope{
		"success":     true,
		"data":        page.Items,
		"count":       page.Count,
		"total":       page.Total,
		"totalPages":  page.TotalPages,
		"currentPage": page.Page,
	})
}

func respondCursorPage(w http.ResponseWriter, status int, page *store.CursorPage) {
	respondJSON(w, status, envelope{
		"success":    true,
		"data":       page.Items,
		"nextCursor": page.NextCursor,
		"hasMore":    page.HasMore,
	})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, envelope{"success": false, "message": message})
}

// respondStoreError maps domain errors onto HTTP statuses. Anything
// unrecognized is logged in full and reported as a generic 500 so internal
// detail never leaks to clients.
func respondStoreError(w http.ResponseWriter, err error) {
	var verr *validate.ValidationError
	if errors.As(err, &verr) {
		respondJSON(w, http.StatusBadRequest, envelope{
			"success": false,
			"message": "Validation failed",
			"errors":  verr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrSweetNotFound),
		errors.Is(err, database.ErrCartNotFound),
		errors.Is(err, database.ErrCartItemNotFound),
		errors.Is(err, database.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, database.ErrInsufficientStock),
		errors.Is(err, database.ErrSweetUnavailable),
		errors.Is(err, database.ErrEmptyCart),
		errors.Is(err, database.ErrInvalidQuantity),
		errors.Is(err, database.ErrInvalidStatus),
		errors.Is(err, database.ErrInvalidTransition),
		errors.Is(err, database.ErrDuplicateReview):
		respondError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, auth.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "Authentication required")

	case errors.Is(err, auth.ErrForbidden):
		respondError(w, http.StatusForbidden, "You do not have permission to perform this action")

	default:
		log.Error().Err(err).Msg("Unhandled error")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
