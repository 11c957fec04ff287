package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleOwner Role = "owner"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Category string

const (
	CategoryCake      Category = "cake"
	CategoryChocolate Category = "chocolate"
	CategoryLollipops Category = "lollipops"
	CategoryIcecream  Category = "icecream"
	CategoryPudding   Category = "pudding"
	CategoryPancakes  Category = "pancakes"
	CategoryDoughnut  Category = "doughnut"
	CategoryCupcake   Category = "cupcake"
	CategoryCookies   Category = "cookies"
	CategoryWaffle    Category = "waffle"
)

func Categories() []Category {
	return []Category{
		CategoryCake,
		CategoryChocolate,
		CategoryLollipops,
		CategoryIcecream,
		CategoryPudding,
		CategoryPancakes,
		CategoryDoughnut,
		CategoryCupcake,
		CategoryCookies,
		CategoryWaffle,
	}
}

func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type Review struct {
	ID        int64     `json:"id"`
	SweetID   int64     `json:"sweet_id"`
	UserID    int64     `json:"user_id"`
	UserName  string    `json:"user_name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type Sweet struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    Category        `json:"category"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Ingredients []string        `json:"ingredients,omitempty"`
	Quantity    int             `json:"quantity"`
	IsAvailable bool            `json:"is_available"`
	IsFeatured  bool            `json:"is_featured"`
	Discount    decimal.Decimal `json:"discount"`
	Rating      Rating          `json:"rating"`
	Reviews     []Review        `json:"reviews,omitempty"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Version     int             `json:"version"`
}

// FinalPrice is the unit price after the percentage discount.
func (s *Sweet) FinalPrice() decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	return s.Price.Sub(s.Price.Mul(s.Discount).Div(hundred))
}

// CartItem holds a non-owning reference to a sweet plus the price snapshot
// captured when the line was created. The snapshot is never re-synced to
// later catalog price changes.
type CartItem struct {
	ID        int64           `json:"id"`
	CartID    int64           `json:"cart_id"`
	SweetID   int64           `json:"sweet_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`

	// Display fields joined from the current sweet row.
	SweetName    string          `json:"sweet_name,omitempty"`
	ImageURL     string          `json:"image_url,omitempty"`
	Category     Category        `json:"category,omitempty"`
	InStock      int             `json:"in_stock"`
	IsAvailable  bool            `json:"is_available"`
	CurrentPrice decimal.Decimal `json:"current_price"`
}

// Cart totals are derived from the items on every read, never stored.
type Cart struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	Items      []CartItem      `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ComputeTotals recalculates the derived totals from the lines.
func (c *Cart) ComputeTotals() {
	c.TotalItems = 0
	c.TotalPrice = decimal.Zero
	for _, item := range c.Items {
		c.TotalItems += item.Quantity
		c.TotalPrice = c.TotalPrice.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
}

type DeliveryAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country,omitempty"`
}

// OrderItem is fully denormalized at checkout so the order stays readable
// after the sweet is edited or deleted.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	SweetID   int64           `json:"sweet_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ImageURL  string          `json:"image_url,omitempty"`
}

type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	OrderNumber     string          `json:"order_number"`
	Status          OrderStatus     `json:"status"`
	Items           []OrderItem     `json:"items,omitempty"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	DeliveryAddress DeliveryAddress `json:"delivery_address"`
	PhoneNumber     string          `json:"phone_number"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	Version         int             `json:"version"`
}
