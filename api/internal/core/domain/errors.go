package domain

import "errors"

var (
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("resource already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountSuspended   = errors.New("account suspended")

	// ErrInvalidBlob is returned when an encryptedPassword does not have the
	// shape of a sealed blob. The server cannot open blobs; it only checks shape.
	ErrInvalidBlob = errors.New("encrypted password is not a sealed blob")
)
