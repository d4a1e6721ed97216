// Package domain holds the error taxonomy shared by the storage layer and the
// HTTP server. Every failure a caller can observe maps onto one of these
// sentinels; handlers pick the HTTP status from the sentinel, not the message.
package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrNoCopies           = errors.New("no copies available")
	ErrAlreadyBorrowed    = errors.New("book already borrowed by this user")
	ErrNotBorrowed        = errors.New("book is not borrowed by this user")
)
