package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sweetmart/sweetmart/internal/models"
)

func TestCapabilities(t *testing.T) {
	cases := []struct {
		role    models.Role
		action  Action
		allowed bool
	}{
		{models.RoleUser, ActionShop, true},
		{models.RoleUser, ActionManageCatalog, false},
		{models.RoleUser, ActionManageOrders, false},
		{models.RoleUser, ActionViewInventory, false},

		{models.RoleAdmin, ActionShop, true},
		{models.RoleAdmin, ActionManageCatalog, true},
		{models.RoleAdmin, ActionManageOrders, true},
		{models.RoleAdmin, ActionViewInventory, true},

		{models.RoleOwner, ActionShop, true},
		{models.RoleOwner, ActionManageCatalog, true},
		{models.RoleOwner, ActionManageOrders, true},
		{models.RoleOwner, ActionViewInventory, true},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, Can(tc.role, tc.action),
			"%s / %s", tc.role, tc.action)
	}
}

func TestUnknownRoleHasNoCapabilities(t *testing.T) {
	assert.False(t, Can(models.Role("superuser"), ActionShop))
	assert.False(t, Can(models.Role(""), ActionManageOrders))
}

func TestStaff(t *testing.T) {
	assert.False(t, Staff(models.RoleUser))
	assert.True(t, Staff(models.RoleAdmin))
	assert.True(t, Staff(models.RoleOwner))
}
