// Package repository defines error types that are reused across multiple
// repositories. These sentinel values let handlers distinguish failure
// scenarios without inspecting driver-specific errors.
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist. Handlers
// should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrUsernameExists is returned by UserRepo.Create when the username is
// already taken.
var ErrUsernameExists = errors.New("username already exists")

// ErrDuplicate is returned when a unique constraint rejects an insert,
// e.g. creating a category with an existing name. Handlers should
// translate this into an HTTP 409 response.
var ErrDuplicate = errors.New("duplicate")
