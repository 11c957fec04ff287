package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sweetmart/sweetmart/internal/database"
)

// The stock ledger is the only safe path for changing a sweet's quantity.
// Reserve and Release are single conditional updates, so two concurrent
// reservations against the same sweet can never together take the quantity
// below zero, and the availability flag is recomputed in the same statement.
// Both operate inside the caller's transaction: cart and order flows combine
// a reservation with their own writes as one atomic unit.

// Reserve decrements available stock by amount if enough remains.
func Reserve(ctx context.Context, tx *sql.Tx, sweetID int64, amount int) error {
	if amount <= 0 {
		return database.ErrInvalidQuantity
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE sweets
		 SET quantity = quantity - $1,
		     is_available = quantity - $1 > 0,
		     updated_at = NOW(),
		     version = version + 1
		 WHERE id = $2
		   AND quantity >= $1`,
		amount, sweetID)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		exists, err := sweetExists(ctx, tx, sweetID)
		if err != nil {
			return err
		}
		if !exists {
			return database.ErrSweetNotFound
		}
		return database.ErrInsufficientStock
	}

	return nil
}

// Release returns previously reserved stock. Used on cart-item removal and
// reduction, cart clearing and order cancellation.
func Release(ctx context.Context, tx *sql.Tx, sweetID int64, amount int) error {
	if amount <= 0 {
		return database.ErrInvalidQuantity
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE sweets
		 SET quantity = quantity + $1,
		     is_available = quantity + $1 > 0,
		     updated_at = NOW(),
		     version = version + 1
		 WHERE id = $2`,
		amount, sweetID)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrSweetNotFound
	}

	return nil
}

func sweetExists(ctx context.Context, tx *sql.Tx, sweetID int64) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM sweets WHERE id = $1)",
		sweetID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check sweet exists: %w", err)
	}
	return exists, nil
}
