package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sweetmart/sweetmart/internal/database"
	"github.com/sweetmart/sweetmart/internal/models"
)

// Cart mutations pair a ledger call with the line change inside one retried
// transaction, so a reservation can never be left without its cart line or
// the other way round.

// GetCart returns the user's cart, creating it lazily on first access.
// Totals are recomputed from the lines on every read.
func GetCart(ctx context.Context, db *sql.DB, userID int64) (*models.Cart, error) {
	cart := &models.Cart{UserID: userID}

	err := db.QueryRowContext(ctx,
		`INSERT INTO carts (user_id, created_at, updated_at)
		 VALUES ($1, NOW(), NOW())
		 ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING id, created_at, updated_at`,
		userID).Scan(&cart.ID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT ci.id, ci.cart_id, ci.sweet_id, ci.quantity, ci.unit_price,
		        s.name, s.image_url, s.category, s.quantity, s.is_available, s.price
		 FROM cart_items ci
		 JOIN sweets s ON s.id = ci.sweet_id
		 WHERE ci.cart_id = $1
		 ORDER BY ci.id`,
		cart.ID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.CartItem
		err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.SweetID,
			&item.Quantity,
			&item.UnitPrice,
			&item.SweetName,
			&item.ImageURL,
			&item.Category,
			&item.InStock,
			&item.IsAvailable,
			&item.CurrentPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	cart.ComputeTotals()
	return cart, nil
}

// AddCartItem reserves stock and appends or merges the line. Merging keeps
// the original price snapshot: already-added units keep the price they were
// added at, only the reservation is additive.
func AddCartItem(ctx context.Context, db *sql.DB, userID, sweetID int64, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, database.ErrInvalidQuantity
	}

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var price decimal.Decimal
		var available bool
		err := tx.QueryRowContext(ctx,
			`SELECT price, is_available FROM sweets WHERE id = $1 FOR UPDATE`,
			sweetID).Scan(&price, &available)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrSweetNotFound
			}
			return fmt.Errorf("lock sweet: %w", err)
		}

		if !available {
			return database.ErrSweetUnavailable
		}

		if err := Reserve(ctx, tx, sweetID, quantity); err != nil {
			return err
		}

		var cartID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO carts (user_id, created_at, updated_at)
			 VALUES ($1, NOW(), NOW())
			 ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
			 RETURNING id`,
			userID).Scan(&cartID)
		if err != nil {
			return fmt.Errorf("get or create cart: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO cart_items (cart_id, sweet_id, quantity, unit_price, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, NOW(), NOW())
			 ON CONFLICT (cart_id, sweet_id)
			 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()`,
			cartID, sweetID, quantity, price)
		if err != nil {
			return fmt.Errorf("upsert cart item: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetCart(ctx, db, userID)
}

// UpdateCartItem sets a line to newQuantity, reserving or releasing the
// difference. Quantities below 1 are rejected; use RemoveCartItem instead.
func UpdateCartItem(ctx context.Context, db *sql.DB, userID, itemID int64, newQuantity int) (*models.Cart, error) {
	if newQuantity < 1 {
		return nil, database.ErrInvalidQuantity
	}

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var sweetID int64
		var current int
		err := tx.QueryRowContext(ctx,
			`SELECT ci.sweet_id, ci.quantity
			 FROM cart_items ci
			 JOIN carts c ON c.id = ci.cart_id
			 WHERE ci.id = $1 AND c.user_id = $2
			 FOR UPDATE OF ci`,
			itemID, userID).Scan(&sweetID, &current)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrCartItemNotFound
			}
			return fmt.Errorf("lock cart item: %w", err)
		}

		delta := newQuantity - current
		switch {
		case delta > 0:
			if err := Reserve(ctx, tx, sweetID, delta); err != nil {
				return err
			}
		case delta < 0:
			if err := Release(ctx, tx, sweetID, -delta); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE cart_items SET quantity = $1, updated_at = NOW() WHERE id = $2`,
			newQuantity, itemID)
		if err != nil {
			return fmt.Errorf("update cart item: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetCart(ctx, db, userID)
}

// RemoveCartItem releases the line's full quantity and deletes the line.
func RemoveCartItem(ctx context.Context, db *sql.DB, userID, itemID int64) (*models.Cart, error) {
	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var sweetID int64
		var quantity int
		err := tx.QueryRowContext(ctx,
			`SELECT ci.sweet_id, ci.quantity
			 FROM cart_items ci
			 JOIN carts c ON c.id = ci.cart_id
			 WHERE ci.id = $1 AND c.user_id = $2
			 FOR UPDATE OF ci`,
			itemID, userID).Scan(&sweetID, &quantity)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrCartItemNotFound
			}
			return fmt.Errorf("lock cart item: %w", err)
		}

		if err := Release(ctx, tx, sweetID, quantity); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
		if err != nil {
			return fmt.Errorf("delete cart item: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetCart(ctx, db, userID)
}

// ClearCart releases every line and empties the cart. Checkout does NOT go
// through here: it clears lines without releasing, because the reservation
// transfers to the order.
func ClearCart(ctx context.Context, db *sql.DB, userID int64) (*models.Cart, error) {
	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var cartID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM carts WHERE user_id = $1`, userID).Scan(&cartID)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrCartNotFound
			}
			return fmt.Errorf("get cart: %w", err)
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT sweet_id, quantity FROM cart_items WHERE cart_id = $1 FOR UPDATE`,
			cartID)
		if err != nil {
			return fmt.Errorf("list cart items: %w", err)
		}

		type line struct {
			sweetID  int64
			quantity int
		}
		var lines []line
		for rows.Next() {
			var l line
			if err := rows.Scan(&l.sweetID, &l.quantity); err != nil {
				rows.Close()
				return fmt.Errorf("scan cart item: %w", err)
			}
			lines = append(lines, l)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		for _, l := range lines {
			if err := Release(ctx, tx, l.sweetID, l.quantity); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
		if err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetCart(ctx, db, userID)
}

func CartCount(ctx context.Context, db *sql.DB, userID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(ci.quantity), 0)
		 FROM cart_items ci
		 JOIN carts c ON c.id = ci.cart_id
		 WHERE c.user_id = $1`,
		userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count cart items: %w", err)
	}
	return count, nil
}
