package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sweetmart/sweetmart/internal/database"
	"github.com/sweetmart/sweetmart/internal/models"
	"github.com/sweetmart/sweetmart/internal/store"
)

func TestAddCartItemReservesStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := seedUser(t, db, "admin-cart-add", models.RoleAdmin)
	shopper := seedUser(t, db, "shopper-cart-add", models.RoleUser)
	sweet := seedSweet(t, db, admin, "Hazelnut Cluster", 10, 5)

	cart, err := store.AddCartItem(ctx, db, shopper.ID, sweet.ID, 3)
	if err != nil {
		t.Fatalf("Add cart item: %v", err)
	}

	if len(cart.Items) != 1 {
		t.Fatalf("Expected 1 cart line, got %d", len(cart.Items))
	}
	if cart.Items[0].Quantity != 3 {
		t.Errorf("Expected line quantity 3, got %d", cart.Items[0].Quantity)
	}
	if cart.TotalItems != 3 {
		t.Errorf("Expected 3 total items, got %d", cart.TotalItems)
	}
	if !cart.TotalPrice.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Expected total price 30, got %s", cart.TotalPrice)
	}

	if got := sweetQuantity(t, db, sweet.ID); got != 2 {
		t.Errorf("Expected remaining stock 2, got %d", got)
	}
}

func TestAddCartItemInsufficientStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := seedUser(t, db, "admin-cart-short", models.RoleAdmin)
	shopper := seedUser(t, db, "shopper-cart-short", models.RoleUser)
	sweet := seedSweet(t, db, admin, "Rare Nougat", 10, 5)

	if _, err := store.AddCartItem(ctx, db, shopper.ID, sweet.ID, 3); err != nil {
		t.Fatalf("First add: %v", err)
	}

	_, err := store.AddCartItem(ctx, db, shopper.ID, sweet.ID, 3)
	if !errors.Is(err, database.ErrInsufficientStock) {
		t.Errorf("Expected insufficient stock error, got: %v", err)
	}

	// The failed add must change nothing.
	if got := sweetQuantity(t, db, sweet.ID); got != 2 {
		t.Errorf("Expected stock to stay at 2, got %d", got)
	}

	cart, err := store.GetCart(ctx, db, shopper.ID)
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}
	if cart.TotalItems != 3 {
		t.Errorf("Expected cart to keep 3 items, got %d", cart.TotalItems)
	}
}

func TestAddCartItemMergesLines(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := seedUser(t, db, "admin-cart-merge", models.RoleAdmin)
	shopper := seedUser(t, db, "shopper-cart-merge", models.RoleUser)
	sweet := seedSweet(t, db, admin, "Mint Crunch", 7, 10)

	if _, err := store.AddCartItem(ctx, db, shopper.ID, sweet.ID, 2); err != nil {
		t.Fatalf("First add: %v", err)
	}

	cart, err := store.AddCartItem(ctx, db, shopper.ID, sweet.ID, 3)
	if err != nil {
		t.Fatalf("Second add: %v", err)
	}

	if len(cart.Items) != 1 {
		t.Fatalf("Same sweet should merge into one line, got %d lines", len(cart.Items))
	}
	if cart.Items[0].Quantity != 5 {
		t.Errorf("Expected merged quantity 5, got %d", cart.Items[0].Quantity)
	}
	if got := sweetQuantity(t, db, sweet.ID); got != 5 {
		t.Errorf("Expected remaining stock 5, got %d", got)
	}
}

func TestUpdateCartItemReleasesDifference(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := seedUser(t, db, "admin-cart-upd", models.RoleAdmin)
	shopper := seedUser(t, db, "shopper-cart-upd", models.RoleUser)
	sweet := seedSweet(t, db, admin, "Lemon Drop", 2, 5)

	cart, err := store.AddCartItem(ctx, db, shopper.ID, sweet.ID, 3)
	if err != nil {
		t.Fatalf("Add cart item: %v", err)
	}

	cart, err = store.UpdateCartItem(ctx, db, shopper.ID, cart.Items[0].ID, 1)
	if err != nil {
		t.Fatalf("Update cart item: %v", err)
	}

	if cart.Items[0].Quantity != 1 {
		t.Errorf("Expected quantity 1, got %d", cart.Items[0].Quantity)
	}
	if got := sweetQuantity(t, db, sweet.ID); got != 4 {
		t.Errorf("Expected stock back at 4, got %d", got)
	}

	_, err = store.UpdateCartItem(ctx, db, shopper.ID, cart.Items[0].ID, 0)
	if !errors.Is(err, database.ErrInvalidQuantity) {
		t.Errorf("Expected invalid quantity error for 0, got: %v", err)
	}
}

func TestRemoveCartItemRestoresStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := seedUser(t, db, "admin-cart-rm", models.RoleAdmin)
	shopper := seedUser(t, db, "shopper-cart-rm", models.RoleUser)
	sweet := seedSweet(t, db, admin, "Apple Chew", 2, 5)

	cart, err := store.AddCartItem(ctx, db, shopper.ID, sweet.ID, 4)
	if err != nil {
		t.Fatalf("Add cart item: %v", err)
	}

	cart, err = store.RemoveCartItem(ctx, db, shopper.ID, cart.Items[0].ID)
	if err != nil {
		t.Fatalf("Remove cart item: %v", err)
	}

	if len(cart.Items) != 0 {
		t.Errorf("Expected empty cart, got %d lines", len(cart.Items))
	}
	if got := sweetQuantity(t, db, sweet.ID); got != 5 {
		t.Errorf("Expected stock restored to 5, got %d", got)
	}
}

func TestClearCartRestoresStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := seedUser(t, db, "admin-cart-clear", models.RoleAdmin)
	shopper := seedUser(t, db, "shopper-cart-clear", models.RoleUser)
	sweet1 := seedSweet(t, db, admin, "Berry Gum", 1, 10)
	sweet2 := seedSweet(t, db, admin, "Cola Gum", 1, 10)

	if _, err := store.AddCartItem(ctx, db, shopper.ID, sweet1.ID, 4); err != nil {
		t.Fatalf("Add sweet 1: %v", err)
	}
	if _, err := store.AddCartItem(ctx, db, shopper.ID, sweet2.ID, 6); err != nil {
		t.Fatalf("Add sweet 2: %v", err)
	}

	cart, err := store.ClearCart(ctx, db, shopper.ID)
	if err != nil {
		t.Fatalf("Clear cart: %v", err)
	}

	if cart.TotalItems != 0 {
		t.Errorf("Expected empty cart, got %d items", cart.TotalItems)
	}
	if got := sweetQuantity(t, db, sweet1.ID); got != 10 {
		t.Errorf("Expected sweet 1 stock 10, got %d", got)
	}
	if got := sweetQuantity(t, db, sweet2.ID); got != 10 {
		t.Errorf("Expected sweet 2 stock 10, got %d", got)
	}
}

func TestConcurrentAddCartItemNoOversell(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := seedUser(t, db, "admin-cart-conc", models.RoleAdmin)
	sweet := seedSweet(t, db, admin, "Contested Candy", 5, 10)

	concurrency := 10
	shoppers := make([]*models.User, concurrency)
	for i := range shoppers {
		shoppers[i] = seedUser(t, db, fmt.Sprintf("shopper-conc-%d", i), models.RoleUser)
	}

	var wg sync.WaitGroup
	results := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := store.AddCartItem(ctx, db, userID, sweet.ID, 3)
			results <- err
		}(shoppers[i].ID)
	}

	wg.Wait()
	close(results)

	successCount := 0
	insufficientCount := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, database.ErrInsufficientStock):
			insufficientCount++
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}

	// 10 units, 3 per attempt: exactly 3 reservations fit.
	if successCount != 3 {
		t.Errorf("Expected 3 successful adds, got %d", successCount)
	}
	if insufficientCount != concurrency-3 {
		t.Errorf("Expected %d insufficient stock errors, got %d", concurrency-3, insufficientCount)
	}
	if got := sweetQuantity(t, db, sweet.ID); got != 1 {
		t.Errorf("Expected final stock 1, got %d", got)
	}
}
