package config

import "errors"

// ErrNotFound is returned when a requested resource does not exist in the store.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when creating an admin whose normalized email
// is already registered.
var ErrAlreadyExists = errors.New("already exists")
