// Package validate checks request payloads before they reach the store
// layer. Every validator returns nil or a *ValidationError carrying one
// message per failed field.
package validate

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sweetmart/sweetmart/internal/models"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Fields []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// NewError builds a single-field validation failure, for callers that
// validate inputs outside the struct validators (query parameters mostly).
func NewError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

type SweetInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    models.Category `json:"category"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Ingredients []string        `json:"ingredients"`
	Quantity    int             `json:"quantity"`
	IsFeatured  bool            `json:"is_featured"`
	Discount    decimal.Decimal `json:"discount"`
}

func Sweet(in SweetInput) error {
	v := &ValidationError{}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		v.add("name", "Sweet name is required")
	} else if len(name) > 100 {
		v.add("name", "Name cannot exceed 100 characters")
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		v.add("description", "Description is required")
	} else if len(description) > 500 {
		v.add("description", "Description cannot exceed 500 characters")
	}

	if in.Category == "" {
		v.add("category", "Category is required")
	} else if !in.Category.Valid() {
		v.add("category", "Invalid category")
	}

	if in.Price.IsNegative() {
		v.add("price", "Price must be a positive number")
	}

	if in.ImageURL == "" {
		v.add("image_url", "Image URL is required")
	} else if u, err := url.Parse(in.ImageURL); err != nil || u.Scheme == "" || u.Host == "" {
		v.add("image_url", "Please provide a valid URL")
	}

	if in.Quantity < 0 {
		v.add("quantity", "Quantity must be a non-negative integer")
	}

	hundred := decimal.NewFromInt(100)
	if in.Discount.IsNegative() || in.Discount.GreaterThan(hundred) {
		v.add("discount", "Discount must be between 0 and 100")
	}

	return v.orNil()
}

type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func Review(in ReviewInput) error {
	v := &ValidationError{}

	if in.Rating < 1 || in.Rating > 5 {
		v.add("rating", "Rating must be between 1 and 5")
	}

	comment := strings.TrimSpace(in.Comment)
	if comment == "" {
		v.add("comment", "Comment is required")
	} else if len(comment) < 10 || len(comment) > 500 {
		v.add("comment", "Comment must be between 10 and 500 characters")
	}

	return v.orNil()
}

type CheckoutInput struct {
	DeliveryAddress models.DeliveryAddress `json:"delivery_address"`
	PhoneNumber     string                 `json:"phone_number"`
	Notes           string                 `json:"notes"`
}

func Checkout(in CheckoutInput) error {
	v := &ValidationError{}

	if strings.TrimSpace(in.DeliveryAddress.Street) == "" {
		v.add("delivery_address.street", "Street address is required")
	}
	if strings.TrimSpace(in.DeliveryAddress.City) == "" {
		v.add("delivery_address.city", "City is required")
	}
	if strings.TrimSpace(in.DeliveryAddress.State) == "" {
		v.add("delivery_address.state", "State is required")
	}
	if strings.TrimSpace(in.DeliveryAddress.ZipCode) == "" {
		v.add("delivery_address.zip_code", "ZIP code is required")
	}
	if strings.TrimSpace(in.PhoneNumber) == "" {
		v.add("phone_number", "Phone number is required")
	}

	return v.orNil()
}
