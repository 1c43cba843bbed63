// Package auth учётные записи, JWT и RBAC-проверки для админских маршрутов.
package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// ресурсы; orders, products и banners - админские
const (
	ResourceOrders   = "orders"
	ResourceProducts = "products"
	ResourceBanners  = "banners"
	ResourceCheckout = "checkout"
	ResourceAccount  = "account"
)

// действия
const (
	ActionRead  = "read"
	ActionWrite = "write"
)

var defaultPolicies = [][]string{
	{RoleAdmin, "*", "*"},
	{RoleCustomer, ResourceAccount, "*"},
	{RoleCustomer, ResourceCheckout, ActionWrite},
}

// Authorizer RBAC поверх casbin
type Authorizer struct {
	enforcer *casbin.Enforcer
}

func NewAuthorizer() (*Authorizer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("casbin model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("casbin enforcer: %w", err)
	}
	if _, err := e.AddPolicies(defaultPolicies); err != nil {
		return nil, fmt.Errorf("casbin policies: %w", err)
	}
	return &Authorizer{enforcer: e}, nil
}

// Allow разрешено ли роли действие над ресурсом
func (a *Authorizer) Allow(role, resource, action string) (bool, error) {
	ok, err := a.enforcer.Enforce(role, resource, action)
	if err != nil {
		return false, fmt.Errorf("enforce %s %s %s: %w", role, resource, action, err)
	}
	return ok, nil
}
