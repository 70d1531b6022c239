package storage

import "errors"

var (
	// ErrVaultNotFound is returned when no vault exists for an investor
	ErrVaultNotFound = errors.New("vault not found")

	// ErrVaultExists is returned by CreateVault on a duplicate investor
	ErrVaultExists = errors.New("vault already exists")

	// ErrGlobalConfigNotFound is returned before the config is initialized
	ErrGlobalConfigNotFound = errors.New("global config not found")
)
