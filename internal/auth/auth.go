// Package auth decides who is an administrator. The allow-list is fixed at startup.
package auth

import (
	"github.com/psds-microservice/helpdesk-bot/internal/errs"
)

type Authorizer struct {
	admins map[int64]struct{}
	order  []int64
}

func NewAuthorizer(adminIDs []int64) *Authorizer {
	a := &Authorizer{admins: make(map[int64]struct{}, len(adminIDs))}
	for _, id := range adminIDs {
		if _, dup := a.admins[id]; dup {
			continue
		}
		a.admins[id] = struct{}{}
		a.order = append(a.order, id)
	}
	return a
}

func (a *Authorizer) IsAdmin(userID int64) bool {
	_, ok := a.admins[userID]
	return ok
}

// Admins returns the allow-list in configuration order, without duplicates.
func (a *Authorizer) Admins() []int64 {
	out := make([]int64, len(a.order))
	copy(out, a.order)
	return out
}

func (a *Authorizer) Require(userID int64) error {
	if !a.IsAdmin(userID) {
		return errs.ErrForbidden
	}
	return nil
}
