package storage

import "errors"

var (
	ErrRunNotFound        = errors.New("run not found")
	ErrReadOnlyTx         = errors.New("transaction is read-only")
	ErrIncompatibleSchema = errors.New("incompatible store schema")
	ErrCodecMismatch      = errors.New("store codec mismatch")
)
