// Package auth resolves opaque bearer tokens to an identity and answers
// capability questions about roles. Token issuance and credential storage
// live outside this service.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sweetmart/sweetmart/internal/models"
)

var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrForbidden       = errors.New("not authorized for this action")
)

type Identity struct {
	UserID int64
	Name   string
	Role   models.Role
}

type Action string

const (
	ActionShop          Action = "shop"           // browse, cart, checkout, review
	ActionManageCatalog Action = "manage_catalog" // create/update/delete sweets
	ActionManageOrders  Action = "manage_orders"  // view all orders, change status
	ActionViewInventory Action = "view_inventory" // inventory reports and adjustments
)

// capabilities replaces role-string comparisons at call sites with a single
// lookup table.
var capabilities = map[models.Role]map[Action]bool{
	models.RoleUser: {
		ActionShop: true,
	},
	models.RoleAdmin: {
		ActionShop:          true,
		ActionManageCatalog: true,
		ActionManageOrders:  true,
		ActionViewInventory: true,
	},
	models.RoleOwner: {
		ActionShop:          true,
		ActionManageCatalog: true,
		ActionManageOrders:  true,
		ActionViewInventory: true,
	},
}

func Can(role models.Role, action Action) bool {
	return capabilities[role][action]
}

// Staff reports whether the role may act on resources it does not own.
func Staff(role models.Role) bool {
	return Can(role, ActionManageOrders)
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Identity, error)
}

// TokenAuthenticator resolves tokens against the users table.
type TokenAuthenticator struct {
	db *sql.DB
}

func NewTokenAuthenticator(db *sql.DB) *TokenAuthenticator {
	return &TokenAuthenticator{db: db}
}

func (a *TokenAuthenticator) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	identity := &Identity{}
	err := a.db.QueryRowContext(ctx,
		`SELECT id, name, role FROM users WHERE api_token = $1`,
		token).Scan(&identity.UserID, &identity.Name, &identity.Role)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("authenticate token: %w", err)
	}

	return identity, nil
}
