package repository

import "errors"

var (
	ErrAlreadyExists = errors.New("error already exists")
	ErrNotFound      = errors.New("error not found")
	ErrOwnerInUse    = errors.New("error owner is referenced by transactions")
)
