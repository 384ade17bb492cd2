package service

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrCodeSpaceExhausted = errors.New("redemption code space exhausted")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidAmount      = errors.New("amount must not be zero")
	ErrBalanceOverflow    = errors.New("balance out of range")
	ErrDuplicateCode      = errors.New("redemption code already assigned")
)

// StorageError wraps a persistence failure. It matches both
// ErrStorageUnavailable and the underlying driver error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.Err}
}

// storageErr classifies err for callers. Domain sentinels pass through untouched.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) || isDomainError(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &StorageError{Op: op, Err: err}
}

func isDomainError(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrCodeSpaceExhausted) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrBalanceOverflow)
}
