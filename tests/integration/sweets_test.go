package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sweetmart/sweetmart/internal/database"
	"github.com/sweetmart/sweetmart/internal/models"
	"github.com/sweetmart/sweetmart/internal/store"
)

func TestCreateAndGetSweet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := seedUser(t, db, "admin-sweets", models.RoleAdmin)

	created := seedSweet(t, db, admin, "Dark Truffle", 12, 8)

	if created.ID == 0 {
		t.Error("Sweet ID should not be 0")
	}
	if !created.IsAvailable {
		t.Error("Sweet with stock should be available")
	}
	if created.Version != 1 {
		t.Errorf("Expected version 1, got %d", created.Version)
	}

	fetched, err := store.GetSweet(ctx, db, created.ID)
	if err != nil {
		t.Fatalf("Get sweet: %v", err)
	}
	if fetched.Name != "Dark Truffle" {
		t.Errorf("Expected name Dark Truffle, got %s", fetched.Name)
	}
	if len(fetched.Ingredients) != 2 {
		t.Errorf("Expected 2 ingredients, got %d", len(fetched.Ingredients))
	}
	if !fetched.Price.Equal(decimal.NewFromInt(12)) {
		t.Errorf("Expected price 12, got %s", fetched.Price)
	}
}

func TestCreateSweetZeroStockUnavailable(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	admin := seedUser(t, db, "admin-zero", models.RoleAdmin)
	sweet := seedSweet(t, db, admin, "Sold Out Fudge", 5, 0)

	if sweet.IsAvailable {
		t.Error("Sweet with zero stock should not be available")
	}
}

func TestUpdateSweetPartial(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := seedUser(t, db, "admin-update", models.RoleAdmin)
	sweet := seedSweet(t, db, admin, "Caramel Swirl", 8, 10)

	newName := "Salted Caramel Swirl"
	zero := 0
	updated, err := store.UpdateSweet(ctx, db, sweet.ID, store.UpdateSweetRequest{
		Name:     &newName,
		Quantity: &zero,
	})
	if err != nil {
		t.Fatalf("Update sweet: %v", err)
	}

	if updated.Name != newName {
		t.Errorf("Expected name %s, got %s", newName, updated.Name)
	}
	if updated.Quantity != 0 {
		t.Errorf("Expected quantity 0, got %d", updated.Quantity)
	}
	if updated.IsAvailable {
		t.Error("Availability should be recomputed when quantity drops to 0")
	}
	if updated.Description != sweet.Description {
		t.Error("Untouched fields should keep their values")
	}
	if updated.Version != sweet.Version+1 {
		t.Errorf("Expected version %d, got %d", sweet.Version+1, updated.Version)
	}
}

func TestDeleteSweetCascadesCartLines(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := seedUser(t, db, "admin-delete", models.RoleAdmin)
	shopper := seedUser(t, db, "shopper-delete", models.RoleUser)
	sweet := seedSweet(t, db, admin, "Vanishing Bonbon", 6, 10)

	if _, err := store.AddCartItem(ctx, db, shopper.ID, sweet.ID, 2); err != nil {
		t.Fatalf("Add cart item: %v", err)
	}

	if err := store.DeleteSweet(ctx, db, sweet.ID); err != nil {
		t.Fatalf("Delete sweet: %v", err)
	}

	cart, err := store.GetCart(ctx, db, shopper.ID)
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Errorf("Cart lines for a deleted sweet should be gone, got %d lines", len(cart.Items))
	}

	if _, err := store.GetSweet(ctx, db, sweet.ID); !errors.Is(err, database.ErrSweetNotFound) {
		t.Errorf("Expected sweet not found, got: %v", err)
	}
}

func TestAddReviewAggregates(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := seedUser(t, db, "admin-review", models.RoleAdmin)
	alice := seedUser(t, db, "alice-review", models.RoleUser)
	bob := seedUser(t, db, "bob-review", models.RoleUser)
	sweet := seedSweet(t, db, admin, "Praline Star", 9, 5)

	_, err := store.AddReview(ctx, db, sweet.ID, alice.ID, alice.Name, 5, "Absolutely delicious praline")
	if err != nil {
		t.Fatalf("Add first review: %v", err)
	}

	_, err = store.AddReview(ctx, db, sweet.ID, bob.ID, bob.Name, 3, "Decent but a bit too sweet")
	if err != nil {
		t.Fatalf("Add second review: %v", err)
	}

	fetched, err := store.GetSweet(ctx, db, sweet.ID)
	if err != nil {
		t.Fatalf("Get sweet: %v", err)
	}

	if fetched.Rating.Count != 2 {
		t.Errorf("Expected rating count 2, got %d", fetched.Rating.Count)
	}
	if fetched.Rating.Average != 4 {
		t.Errorf("Expected rating average 4, got %f", fetched.Rating.Average)
	}
	if len(fetched.Reviews) != 2 {
		t.Errorf("Expected 2 reviews, got %d", len(fetched.Reviews))
	}
}

func TestDuplicateReviewRejected(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := seedUser(t, db, "admin-dup", models.RoleAdmin)
	alice := seedUser(t, db, "alice-dup", models.RoleUser)
	sweet := seedSweet(t, db, admin, "Twice Nice Toffee", 4, 5)

	_, err := store.AddReview(ctx, db, sweet.ID, alice.ID, alice.Name, 4, "Chewy and satisfying toffee")
	if err != nil {
		t.Fatalf("Add review: %v", err)
	}

	_, err = store.AddReview(ctx, db, sweet.ID, alice.ID, alice.Name, 2, "Changed my mind about this")
	if !errors.Is(err, database.ErrDuplicateReview) {
		t.Errorf("Expected duplicate review error, got: %v", err)
	}

	fetched, err := store.GetSweet(ctx, db, sweet.ID)
	if err != nil {
		t.Fatalf("Get sweet: %v", err)
	}
	if fetched.Rating.Count != 1 {
		t.Errorf("Rejected review must not change the aggregate, got count %d", fetched.Rating.Count)
	}
}

func TestSearchSweets(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := seedUser(t, db, "admin-search", models.RoleAdmin)

	seedSweet(t, db, admin, "Cheap Chocolate", 3, 10)
	seedSweet(t, db, admin, "Fancy Chocolate", 30, 10)
	seedSweet(t, db, admin, "Hidden Chocolate", 10, 0) // unavailable

	min := decimal.NewFromInt(5)
	page, err := store.SearchSweets(ctx, db, store.SearchFilter{
		Query:    "chocolate",
		MinPrice: &min,
		Sort:     "price_asc",
		Page:     1,
		PageSize: 20,
	})
	if err != nil {
		t.Fatalf("Search sweets: %v", err)
	}

	sweets, ok := page.Items.([]models.Sweet)
	if !ok {
		t.Fatalf("Expected []models.Sweet items, got %T", page.Items)
	}
	if len(sweets) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(sweets))
	}
	if sweets[0].Name != "Fancy Chocolate" {
		t.Errorf("Expected Fancy Chocolate, got %s", sweets[0].Name)
	}
	if page.Total != 1 {
		t.Errorf("Expected total 1, got %d", page.Total)
	}
}
