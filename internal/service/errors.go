package service

import "errors"

var (
	ErrNotFound         = errors.New("error not found")
	ErrValidation       = errors.New("error validation failed")
	ErrOwnerInUse       = errors.New("error owner has transactions")
	ErrOwnerExists      = errors.New("error owner already exists")
	ErrUnknownOwner     = errors.New("error unknown owner")
	ErrPriceUnavailable = errors.New("error price unavailable")
)
