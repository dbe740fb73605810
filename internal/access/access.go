// Package access holds the capability check shared by every workflow entry point.
package access

import (
	"slices"

	"food-order-service/internal/apperr"
	"food-order-service/internal/entity"
)

var (
	Anyone    = []entity.Role{entity.RoleCustomer, entity.RoleCook, entity.RoleAdmin}
	Customers = []entity.Role{entity.RoleCustomer}
	Operators = []entity.Role{entity.RoleCook, entity.RoleAdmin}
)

// Check rejects callers whose role is not in allowed. When order is non-nil
// the caller must also be able to see it: customers their own orders, cooks
// orders of restaurants they operate, admins everything.
func Check(caller entity.Caller, allowed []entity.Role, order *entity.OrderEntity) error {
	if caller.ID == "" || !caller.Role.Valid() {
		return apperr.New(apperr.Unauthorized, "unknown caller")
	}
	if !slices.Contains(allowed, caller.Role) {
		return apperr.New(apperr.Unauthorized, "role %s may not perform this action", caller.Role)
	}
	if order == nil {
		return nil
	}

	switch caller.Role {
	case entity.RoleAdmin:
		return nil
	case entity.RoleCustomer:
		if order.CustomerID == caller.ID {
			return nil
		}
	case entity.RoleCook:
		if order.RestaurantOwnerID != "" && order.RestaurantOwnerID == caller.ID {
			return nil
		}
	}
	return apperr.New(apperr.Unauthorized, "not allowed to access this order")
}

// Scope narrows a list filter to what the caller may see.
func Scope(caller entity.Caller, filter entity.OrderFilter) (entity.OrderFilter, error) {
	if err := Check(caller, Anyone, nil); err != nil {
		return filter, err
	}
	filter.CustomerID = ""
	filter.OwnerID = ""
	switch caller.Role {
	case entity.RoleCustomer:
		filter.CustomerID = caller.ID
	case entity.RoleCook:
		filter.OwnerID = caller.ID
	}
	return filter, nil
}
