// Package repository implements MySQL persistence for the booking
// service.  Repositories own their SQL, return sql.ErrNoRows for missing
// rows and sentinel errors for authorization failures, and run every
// multi-step write inside a transaction with a deferred rollback guard.
// Domain failures that the booking core defines (conflicts, insufficient
// credits, validation) are returned as the corresponding booking/credit
// package errors so callers use a single errors.Is vocabulary.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource owned by someone else: an operator touching another studio's
// booking, an owner granting credits to a foreign client.  Handlers
// translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrEmailExists is returned by user creation when the email is taken.
var ErrEmailExists = errors.New("email already exists")
