package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sweetmart/sweetmart/internal/models"
)

// Read-only projections over the catalog. Nothing here mutates state.

type SearchFilter struct {
	Query     string
	Category  models.Category
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	MinRating *float64
	Sort      string // price_asc, price_desc, rating, newest
	Page      int
	PageSize  int
}

var sortClauses = map[string]string{
	"price_asc":  "price ASC",
	"price_desc": "price DESC",
	"rating":     "rating_average DESC",
	"newest":     "created_at DESC",
}

// SearchSweets lists available sweets matching the filter. Sort keys are
// whitelisted; anything unknown falls back to newest-first.
func SearchSweets(ctx context.Context, db *sql.DB, filter SearchFilter) (*OffsetPage, error) {
	where := []string{"is_available = TRUE"}
	args := []interface{}{}

	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		where = append(where, fmt.Sprintf("price >= $%d", len(args)))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		where = append(where, fmt.Sprintf("price <= $%d", len(args)))
	}
	if filter.MinRating != nil {
		args = append(args, *filter.MinRating)
		where = append(where, fmt.Sprintf("rating_average >= $%d", len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sweets WHERE `+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count sweets: %w", err)
	}

	orderBy, ok := sortClauses[filter.Sort]
	if !ok {
		orderBy = sortClauses["newest"]
	}

	offset := (filter.Page - 1) * filter.PageSize
	args = append(args, filter.PageSize, offset)
	query := fmt.Sprintf(`SELECT %s FROM sweets WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		sweetColumns, whereClause, orderBy, len(args)-1, len(args))

	sweets, err := querySweets(ctx, db, query, args...)
	if err != nil {
		return nil, err
	}

	return newOffsetPage(sweets, len(sweets), total, filter.Page, filter.PageSize), nil
}

// TopRatedByCategory returns the five best-rated available sweets in each
// category that has at least one rating.
func TopRatedByCategory(ctx context.Context, db *sql.DB) (map[models.Category][]models.Sweet, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM (
			SELECT *, ROW_NUMBER() OVER (PARTITION BY category ORDER BY rating_average DESC, id) AS rank
			FROM sweets
			WHERE is_available = TRUE AND rating_count >= 1
		) ranked
		WHERE rank <= 5
		ORDER BY category, rating_average DESC`, sweetColumns)

	sweets, err := querySweets(ctx, db, query)
	if err != nil {
		return nil, err
	}

	topRated := make(map[models.Category][]models.Sweet, len(models.Categories()))
	for _, category := range models.Categories() {
		topRated[category] = []models.Sweet{}
	}
	for _, sweet := range sweets {
		topRated[sweet.Category] = append(topRated[sweet.Category], sweet)
	}

	return topRated, nil
}

func FeaturedSweets(ctx context.Context, db *sql.DB, limit int) ([]models.Sweet, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM sweets
		WHERE is_featured = TRUE AND is_available = TRUE
		ORDER BY rating_average DESC
		LIMIT $1`, sweetColumns)

	return querySweets(ctx, db, query, limit)
}

type CategoryStat struct {
	Category      models.Category `json:"category"`
	Count         int             `json:"count"`
	TotalQuantity int             `json:"total_quantity"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
}

func CategoryStats(ctx context.Context, db *sql.DB) ([]CategoryStat, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT category, COUNT(*), SUM(quantity), AVG(price)
		FROM sweets
		GROUP BY category
		ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}
	defer rows.Close()

	var stats []CategoryStat
	for rows.Next() {
		var stat CategoryStat
		if err := rows.Scan(&stat.Category, &stat.Count, &stat.TotalQuantity, &stat.AvgPrice); err != nil {
			return nil, fmt.Errorf("scan category stat: %w", err)
		}
		stats = append(stats, stat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return stats, nil
}

func querySweets(ctx context.Context, db *sql.DB, query string, args ...interface{}) ([]models.Sweet, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sweets: %w", err)
	}
	defer rows.Close()

	var sweets []models.Sweet
	for rows.Next() {
		sweet, err := scanSweet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sweet: %w", err)
		}
		sweets = append(sweets, *sweet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return sweets, nil
}
