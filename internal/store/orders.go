package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sweetmart/sweetmart/internal/database"
	"github.com/sweetmart/sweetmart/internal/models"
)

type CheckoutRequest struct {
	UserID          int64
	DeliveryAddress models.DeliveryAddress
	PhoneNumber     string
	Notes           string
}

func generateOrderNumber() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
}

// Checkout converts the user's cart into an immutable order. Stock was
// already reserved when the items entered the cart, so checkout never
// touches quantities: the reservation's ownership transfers from the cart
// to the order, and the cart lines are deleted without a release.
func Checkout(ctx context.Context, db *sql.DB, req CheckoutRequest) (*models.Order, error) {
	var orderID int64

	err := database.WithRetry(ctx, db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		var cartID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM carts WHERE user_id = $1`, req.UserID).Scan(&cartID)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrEmptyCart
			}
			return fmt.Errorf("get cart: %w", err)
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT ci.sweet_id, ci.quantity, ci.unit_price, s.name, s.image_url, s.is_available
			 FROM cart_items ci
			 JOIN sweets s ON s.id = ci.sweet_id
			 WHERE ci.cart_id = $1
			 ORDER BY ci.id
			 FOR UPDATE`,
			cartID)
		if err != nil {
			return fmt.Errorf("lock cart items: %w", err)
		}

		var items []models.OrderItem
		for rows.Next() {
			var item models.OrderItem
			var available bool
			err := rows.Scan(&item.SweetID, &item.Quantity, &item.UnitPrice,
				&item.Name, &item.ImageURL, &available)
			if err != nil {
				rows.Close()
				return fmt.Errorf("scan cart item: %w", err)
			}
			if !available {
				rows.Close()
				return fmt.Errorf("%s: %w", item.Name, database.ErrSweetUnavailable)
			}
			items = append(items, item)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		if len(items) == 0 {
			return database.ErrEmptyCart
		}

		totalPrice := decimal.Zero
		for _, item := range items {
			totalPrice = totalPrice.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (user_id, order_number, status, total_price,
			                     street, city, state, zip_code, country,
			                     phone_number, notes, created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW(), 1)
			 RETURNING id`,
			req.UserID, generateOrderNumber(), models.OrderStatusPending, totalPrice,
			req.DeliveryAddress.Street, req.DeliveryAddress.City, req.DeliveryAddress.State,
			req.DeliveryAddress.ZipCode, req.DeliveryAddress.Country,
			req.PhoneNumber, req.Notes).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, item := range items {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, sweet_id, name, quantity, unit_price, image_url, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
				orderID, item.SweetID, item.Name, item.Quantity, item.UnitPrice, item.ImageURL)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
		}

		// Clear lines only. No release: the reserved stock now belongs to
		// the order.
		_, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
		if err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetOrder(ctx, db, orderID)
}

func GetOrder(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	order := &models.Order{}

	query := `
		SELECT id, user_id, order_number, status, total_price,
		       street, city, state, zip_code, country,
		       phone_number, notes, created_at, updated_at, completed_at, version
		FROM orders
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.UserID,
		&order.OrderNumber,
		&order.Status,
		&order.TotalPrice,
		&order.DeliveryAddress.Street,
		&order.DeliveryAddress.City,
		&order.DeliveryAddress.State,
		&order.DeliveryAddress.ZipCode,
		&order.DeliveryAddress.Country,
		&order.PhoneNumber,
		&order.Notes,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.CompletedAt,
		&order.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, order_id, sweet_id, name, quantity, unit_price, image_url
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY id`,
		id)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.SweetID, &item.Name,
			&item.Quantity, &item.UnitPrice, &item.ImageURL)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return order, nil
}

// UpdateOrderStatus applies one legal state-machine transition. Moving to
// cancelled is routed through CancelOrder so stock is returned exactly once.
func UpdateOrderStatus(ctx context.Context, db *sql.DB, orderID int64, next models.OrderStatus) (*models.Order, error) {
	if !next.Valid() {
		return nil, database.ErrInvalidStatus
	}
	if next == models.OrderStatusCancelled {
		return CancelOrder(ctx, db, orderID)
	}

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var current models.OrderStatus
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&current)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrOrderNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}

		if !current.CanTransitionTo(next) {
			return fmt.Errorf("%s -> %s: %w", current, next, database.ErrInvalidTransition)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders
			 SET status = $1,
			     completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
			     updated_at = NOW(),
			     version = version + 1
			 WHERE id = $2`,
			next, orderID)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetOrder(ctx, db, orderID)
}

// CancelOrder transitions to cancelled and returns every item's reserved
// stock to the catalog. Idempotent: a second cancel is a no-op. Sweets
// deleted since the order was placed are skipped.
func CancelOrder(ctx context.Context, db *sql.DB, orderID int64) (*models.Order, error) {
	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var current models.OrderStatus
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&current)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrOrderNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}

		if current == models.OrderStatusCancelled {
			return nil
		}
		if !current.CanTransitionTo(models.OrderStatusCancelled) {
			return fmt.Errorf("%s -> %s: %w", current, models.OrderStatusCancelled, database.ErrInvalidTransition)
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT sweet_id, quantity FROM order_items WHERE order_id = $1`, orderID)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
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
				return fmt.Errorf("scan order item: %w", err)
			}
			lines = append(lines, l)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		for _, l := range lines {
			err := Release(ctx, tx, l.sweetID, l.quantity)
			if err == database.ErrSweetNotFound {
				continue
			}
			if err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders
			 SET status = $1, updated_at = NOW(), version = version + 1
			 WHERE id = $2`,
			models.OrderStatusCancelled, orderID)
		if err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetOrder(ctx, db, orderID)
}

// ListUserOrders pages a user's orders newest-first with a keyset cursor.
func ListUserOrders(ctx context.Context, db *sql.DB, userID int64, status models.OrderStatus, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT id, user_id, order_number, status, total_price, phone_number,
		       created_at, updated_at, completed_at, version
		FROM orders
		WHERE user_id = $1
		  AND (created_at, id) < ($2, $3)`
	args := []interface{}{userID, cursorData.CreatedAt, cursorData.ID}

	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	args = append(args, limit+1)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.OrderNumber,
			&order.Status,
			&order.TotalPrice,
			&order.PhoneNumber,
			&order.CreatedAt,
			&order.UpdatedAt,
			&order.CompletedAt,
			&order.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

type OrderListFilter struct {
	Status   models.OrderStatus
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// ListAllOrders is the staff view over every order.
func ListAllOrders(ctx context.Context, db *sql.DB, filter OrderListFilter) (*OffsetPage, error) {
	where := []string{"TRUE"}
	args := []interface{}{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE `+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	offset := (filter.Page - 1) * filter.PageSize
	args = append(args, filter.PageSize, offset)
	query := fmt.Sprintf(`
		SELECT id, user_id, order_number, status, total_price, phone_number,
		       created_at, updated_at, completed_at, version
		FROM orders
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, len(args)-1, len(args))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.OrderNumber,
			&order.Status,
			&order.TotalPrice,
			&order.PhoneNumber,
			&order.CreatedAt,
			&order.UpdatedAt,
			&order.CompletedAt,
			&order.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(orders, len(orders), total, filter.Page, filter.PageSize), nil
}

type TopSellingItem struct {
	SweetID   int64           `json:"sweet_id"`
	Name      string          `json:"name"`
	TotalSold int             `json:"total_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type OrderStats struct {
	TotalOrders     int64            `json:"total_orders"`
	PendingOrders   int64            `json:"pending_orders"`
	CompletedOrders int64            `json:"completed_orders"`
	TotalRevenue    decimal.Decimal  `json:"total_revenue"`
	AvgOrderValue   decimal.Decimal  `json:"avg_order_value"`
	TopSellingItems []TopSellingItem `json:"top_selling_items"`
}

func GetOrderStats(ctx context.Context, db *sql.DB) (*OrderStats, error) {
	stats := &OrderStats{}

	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(*) FILTER (WHERE status = 'completed'),
		       COALESCE(SUM(total_price) FILTER (WHERE status = 'completed'), 0),
		       COALESCE(AVG(total_price) FILTER (WHERE status = 'completed'), 0)
		FROM orders`).Scan(
		&stats.TotalOrders,
		&stats.PendingOrders,
		&stats.CompletedOrders,
		&stats.TotalRevenue,
		&stats.AvgOrderValue,
	)
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT sweet_id, name, SUM(quantity) AS total_sold, SUM(quantity * unit_price) AS revenue
		FROM order_items
		GROUP BY sweet_id, name
		ORDER BY total_sold DESC
		LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("top selling items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item TopSellingItem
		if err := rows.Scan(&item.SweetID, &item.Name, &item.TotalSold, &item.Revenue); err != nil {
			return nil, fmt.Errorf("scan top selling item: %w", err)
		}
		stats.TopSellingItems = append(stats.TopSellingItems, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return stats, nil
}
