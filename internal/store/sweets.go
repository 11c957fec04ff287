package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sweetmart/sweetmart/internal/database"
	"github.com/sweetmart/sweetmart/internal/models"
)

const sweetColumns = `id, name, description, category, price, image_url, ingredients,
	quantity, is_available, is_featured, discount, rating_average, rating_count,
	created_by, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSweet(row rowScanner) (*models.Sweet, error) {
	sweet := &models.Sweet{}
	err := row.Scan(
		&sweet.ID,
		&sweet.Name,
		&sweet.Description,
		&sweet.Category,
		&sweet.Price,
		&sweet.ImageURL,
		pq.Array(&sweet.Ingredients),
		&sweet.Quantity,
		&sweet.IsAvailable,
		&sweet.IsFeatured,
		&sweet.Discount,
		&sweet.Rating.Average,
		&sweet.Rating.Count,
		&sweet.CreatedBy,
		&sweet.CreatedAt,
		&sweet.UpdatedAt,
		&sweet.Version,
	)
	if err != nil {
		return nil, err
	}
	return sweet, nil
}

type CreateSweetRequest struct {
	Name        string
	Description string
	Category    models.Category
	Price       decimal.Decimal
	ImageURL    string
	Ingredients []string
	Quantity    int
	IsFeatured  bool
	Discount    decimal.Decimal
	CreatedBy   int64
}

func CreateSweet(ctx context.Context, db *sql.DB, req CreateSweetRequest) (*models.Sweet, error) {
	if req.Ingredients == nil {
		req.Ingredients = []string{}
	}

	query := `
		INSERT INTO sweets (name, description, category, price, image_url, ingredients,
		                    quantity, is_available, is_featured, discount, created_by,
		                    created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7 > 0, $8, $9, $10, NOW(), NOW(), 1)
		RETURNING ` + sweetColumns

	sweet, err := scanSweet(db.QueryRowContext(ctx, query,
		req.Name, req.Description, req.Category, req.Price, req.ImageURL,
		pq.Array(req.Ingredients), req.Quantity, req.IsFeatured, req.Discount,
		req.CreatedBy))
	if err != nil {
		return nil, fmt.Errorf("create sweet: %w", err)
	}

	return sweet, nil
}

func GetSweet(ctx context.Context, db *sql.DB, id int64) (*models.Sweet, error) {
	query := `SELECT ` + sweetColumns + ` FROM sweets WHERE id = $1`

	sweet, err := scanSweet(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrSweetNotFound
		}
		return nil, fmt.Errorf("get sweet: %w", err)
	}

	reviews, err := listReviews(ctx, db, id)
	if err != nil {
		return nil, err
	}
	sweet.Reviews = reviews

	return sweet, nil
}

// UpdateSweetRequest is a partial patch: nil fields are left untouched.
// Quantity changes through this path skip the stock ledger; only staff
// endpoints reach it.
type UpdateSweetRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Category    *models.Category `json:"category"`
	Price       *decimal.Decimal `json:"price"`
	ImageURL    *string          `json:"image_url"`
	Ingredients *[]string        `json:"ingredients"`
	Quantity    *int             `json:"quantity"`
	IsAvailable *bool            `json:"is_available"`
	IsFeatured  *bool            `json:"is_featured"`
	Discount    *decimal.Decimal `json:"discount"`
}

func UpdateSweet(ctx context.Context, db *sql.DB, id int64, req UpdateSweetRequest) (*models.Sweet, error) {
	set := []string{"updated_at = NOW()", "version = version + 1"}
	args := []interface{}{}

	addSet := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if req.Name != nil {
		addSet("name", *req.Name)
	}
	if req.Description != nil {
		addSet("description", *req.Description)
	}
	if req.Category != nil {
		addSet("category", *req.Category)
	}
	if req.Price != nil {
		addSet("price", *req.Price)
	}
	if req.ImageURL != nil {
		addSet("image_url", *req.ImageURL)
	}
	if req.Ingredients != nil {
		addSet("ingredients", pq.Array(*req.Ingredients))
	}
	if req.Quantity != nil {
		addSet("quantity", *req.Quantity)
		if req.IsAvailable == nil {
			args = append(args, *req.Quantity > 0)
			set = append(set, fmt.Sprintf("is_available = $%d", len(args)))
		}
	}
	if req.IsAvailable != nil {
		addSet("is_available", *req.IsAvailable)
	}
	if req.IsFeatured != nil {
		addSet("is_featured", *req.IsFeatured)
	}
	if req.Discount != nil {
		addSet("discount", *req.Discount)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE sweets SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(set, ", "), len(args), sweetColumns)

	sweet, err := scanSweet(db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrSweetNotFound
		}
		return nil, fmt.Errorf("update sweet: %w", err)
	}

	return sweet, nil
}

// DeleteSweet hard-deletes the sweet. Cart lines referencing it are removed
// by the schema cascade; order items are denormalized and keep their copy.
func DeleteSweet(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM sweets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sweet: %w", err)
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

// AddReview inserts one review per (sweet, user) and recomputes the rating
// aggregate in the same transaction.
func AddReview(ctx context.Context, db *sql.DB, sweetID, userID int64, userName string, rating int, comment string) (*models.Review, error) {
	review := &models.Review{}

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		exists, err := sweetExists(ctx, tx, sweetID)
		if err != nil {
			return err
		}
		if !exists {
			return database.ErrSweetNotFound
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO reviews (sweet_id, user_id, user_name, rating, comment, created_at)
			 VALUES ($1, $2, $3, $4, $5, NOW())
			 RETURNING id, sweet_id, user_id, user_name, rating, comment, created_at`,
			sweetID, userID, userName, rating, comment).Scan(
			&review.ID,
			&review.SweetID,
			&review.UserID,
			&review.UserName,
			&review.Rating,
			&review.Comment,
			&review.CreatedAt,
		)
		if err != nil {
			if database.IsUniqueViolation(err, "reviews_sweet_id_user_id_key") {
				return database.ErrDuplicateReview
			}
			return fmt.Errorf("insert review: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE sweets
			 SET rating_count = agg.count,
			     rating_average = agg.average,
			     updated_at = NOW()
			 FROM (SELECT COUNT(*) AS count, COALESCE(AVG(rating), 0) AS average
			       FROM reviews WHERE sweet_id = $1) AS agg
			 WHERE id = $1`,
			sweetID)
		if err != nil {
			return fmt.Errorf("update rating aggregate: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return review, nil
}

func listReviews(ctx context.Context, db *sql.DB, sweetID int64) ([]models.Review, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, sweet_id, user_id, user_name, rating, comment, created_at
		 FROM reviews
		 WHERE sweet_id = $1
		 ORDER BY created_at DESC`,
		sweetID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var review models.Review
		err := rows.Scan(
			&review.ID,
			&review.SweetID,
			&review.UserID,
			&review.UserName,
			&review.Rating,
			&review.Comment,
			&review.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return reviews, nil
}
