// Package access is the authorization gate applied before every operation on
// items and claims.
package access

import (
	"errors"

	"github.com/erazemk/lostfound/internal/model"
)

// Errors returned by Check.
var (
	ErrUnauthenticated = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
)

// Identity is the authenticated caller. A nil *Identity is an anonymous caller.
type Identity struct {
	UserID int64
	Role   string
}

// Authenticated reports whether the identity belongs to a signed-in user.
func (id *Identity) Authenticated() bool {
	return id != nil && id.UserID > 0
}

// Admin reports whether the identity holds the admin role.
func (id *Identity) Admin() bool {
	return id.Authenticated() && id.Role == model.RoleAdmin
}

// Owns reports whether the identity is the given user.
func (id *Identity) Owns(userID int64) bool {
	return id.Authenticated() && userID > 0 && id.UserID == userID
}

// Action is an operation guarded by the gate.
type Action string

// Actions.
const (
	ReadItem      Action = "item.read"
	CreateItem    Action = "item.create"
	UpdateItem    Action = "item.update"
	DeleteItem    Action = "item.delete"
	ItemHistory   Action = "item.history"
	FileClaim     Action = "claim.file"
	ReadClaim     Action = "claim.read"
	ListOwnClaims Action = "claim.list_own"
	ListAllClaims Action = "claim.list_all"
	ReviewClaim   Action = "claim.review"
	ViewStats     Action = "admin.stats"
)

// Resource carries the ownership facts of the target: the item's reporting
// user, or the claim's claimant.
type Resource struct {
	OwnerID int64
}

// Allowed reports whether id may perform action on res.
func Allowed(action Action, id *Identity, res Resource) bool {
	return Check(action, id, res) == nil
}

// Check returns nil when id may perform action on res. Otherwise it returns
// ErrUnauthenticated when a signed-in user is required, ErrForbidden when the
// caller lacks the capability, or model.ErrOwnItem when a reporter tries to
// claim their own item.
func Check(action Action, id *Identity, res Resource) error {
	switch action {
	case ReadItem:
		return nil
	}

	if !id.Authenticated() {
		return ErrUnauthenticated
	}

	switch action {
	case CreateItem, ListOwnClaims:
		return nil
	case UpdateItem, DeleteItem, ItemHistory, ReadClaim:
		if id.Owns(res.OwnerID) || id.Admin() {
			return nil
		}
	case FileClaim:
		if id.Owns(res.OwnerID) {
			return model.ErrOwnItem
		}
		return nil
	case ListAllClaims, ReviewClaim, ViewStats:
		if id.Admin() {
			return nil
		}
	}
	return ErrForbidden
}
