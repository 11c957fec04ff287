package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sweetmart/sweetmart/internal/database"
	"github.com/sweetmart/sweetmart/internal/models"
)

// Staff-only inventory administration. Quantity changes here bypass the
// reserve/release pairing on purpose (restocking, corrections), but still
// run as single atomic updates with the availability recompute attached.

const DefaultLowStockThreshold = 10

type InventorySummary struct {
	TotalSweets     int64          `json:"total_sweets"`
	AvailableSweets int64          `json:"available_sweets"`
	OutOfStock      int64          `json:"out_of_stock"`
	LowStock        int64          `json:"low_stock"`
	CategoryStats   []CategoryStat `json:"category_stats"`
}

func GetInventorySummary(ctx context.Context, db *sql.DB) (*InventorySummary, error) {
	summary := &InventorySummary{}

	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_available),
		       COUNT(*) FILTER (WHERE quantity = 0),
		       COUNT(*) FILTER (WHERE quantity > 0 AND quantity <= $1)
		FROM sweets`, DefaultLowStockThreshold).Scan(
		&summary.TotalSweets,
		&summary.AvailableSweets,
		&summary.OutOfStock,
		&summary.LowStock,
	)
	if err != nil {
		return nil, fmt.Errorf("inventory summary: %w", err)
	}

	stats, err := CategoryStats(ctx, db)
	if err != nil {
		return nil, err
	}
	summary.CategoryStats = stats

	return summary, nil
}

type InventoryFilter struct {
	Category    models.Category
	StockStatus string // "in", "low", "out"
	Page        int
	PageSize    int
}

func ListInventory(ctx context.Context, db *sql.DB, filter InventoryFilter) (*OffsetPage, error) {
	where := []string{"TRUE"}
	args := []interface{}{}

	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}

	switch filter.StockStatus {
	case "out":
		where = append(where, "quantity = 0")
	case "low":
		where = append(where, fmt.Sprintf("quantity > 0 AND quantity <= %d", DefaultLowStockThreshold))
	case "in":
		where = append(where, fmt.Sprintf("quantity > %d", DefaultLowStockThreshold))
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sweets WHERE `+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count inventory: %w", err)
	}

	offset := (filter.Page - 1) * filter.PageSize
	args = append(args, filter.PageSize, offset)
	query := fmt.Sprintf(`SELECT %s FROM sweets WHERE %s ORDER BY updated_at DESC LIMIT $%d OFFSET $%d`,
		sweetColumns, whereClause, len(args)-1, len(args))

	sweets, err := querySweets(ctx, db, query, args...)
	if err != nil {
		return nil, err
	}

	return newOffsetPage(sweets, len(sweets), total, filter.Page, filter.PageSize), nil
}

type QuantityOp string

const (
	QuantityOpSet      QuantityOp = "set"
	QuantityOpAdd      QuantityOp = "add"
	QuantityOpSubtract QuantityOp = "subtract"
)

// AdjustQuantity applies a staff stock correction. Subtracting below zero
// clamps at zero; availability is recomputed from the new quantity.
func AdjustQuantity(ctx context.Context, db *sql.DB, sweetID int64, op QuantityOp, quantity int) (*models.Sweet, error) {
	if quantity < 0 {
		return nil, database.ErrInvalidQuantity
	}

	var expr string
	switch op {
	case QuantityOpSet:
		expr = "$1"
	case QuantityOpAdd:
		expr = "quantity + $1"
	case QuantityOpSubtract:
		expr = "GREATEST(0, quantity - $1)"
	default:
		return nil, database.ErrInvalidQuantity
	}

	query := fmt.Sprintf(`
		UPDATE sweets
		SET quantity = %s,
		    is_available = %s > 0,
		    updated_at = NOW(),
		    version = version + 1
		WHERE id = $2
		RETURNING %s`, expr, expr, sweetColumns)

	sweet, err := scanSweet(db.QueryRowContext(ctx, query, quantity, sweetID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrSweetNotFound
		}
		return nil, fmt.Errorf("adjust quantity: %w", err)
	}

	return sweet, nil
}

// ToggleAvailability flips the manual availability override. The next
// ledger mutation recomputes the flag from quantity again.
func ToggleAvailability(ctx context.Context, db *sql.DB, sweetID int64) (*models.Sweet, error) {
	query := fmt.Sprintf(`
		UPDATE sweets
		SET is_available = NOT is_available,
		    updated_at = NOW(),
		    version = version + 1
		WHERE id = $1
		RETURNING %s`, sweetColumns)

	sweet, err := scanSweet(db.QueryRowContext(ctx, query, sweetID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrSweetNotFound
		}
		return nil, fmt.Errorf("toggle availability: %w", err)
	}

	return sweet, nil
}

func LowStockSweets(ctx context.Context, db *sql.DB, threshold int) ([]models.Sweet, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}

	query := fmt.Sprintf(`
		SELECT %s FROM sweets
		WHERE quantity > 0 AND quantity <= $1
		ORDER BY quantity ASC`, sweetColumns)

	return querySweets(ctx, db, query, threshold)
}

func OutOfStockSweets(ctx context.Context, db *sql.DB) ([]models.Sweet, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM sweets
		WHERE quantity = 0
		ORDER BY updated_at DESC`, sweetColumns)

	return querySweets(ctx, db, query)
}

type BulkQuantityUpdate struct {
	SweetID  int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

// BulkAdjustQuantities sets several quantities in one transaction and
// returns how many rows changed.
func BulkAdjustQuantities(ctx context.Context, db *sql.DB, updates []BulkQuantityUpdate) (int, error) {
	modified := 0

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		for _, update := range updates {
			if update.Quantity < 0 {
				return database.ErrInvalidQuantity
			}

			result, err := tx.ExecContext(ctx,
				`UPDATE sweets
				 SET quantity = $1,
				     is_available = $1 > 0,
				     updated_at = NOW(),
				     version = version + 1
				 WHERE id = $2`,
				update.Quantity, update.SweetID)
			if err != nil {
				return fmt.Errorf("bulk update sweet %d: %w", update.SweetID, err)
			}

			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("get rows affected: %w", err)
			}
			modified += int(rowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return modified, nil
}
