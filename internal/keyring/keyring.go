// Package keyring stores wroklog secrets in the OS keyring.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const service = "wroklog"

// Secret names an entry in the keyring.
type Secret string

const (
	DatabaseDSN   Secret = "database-dsn"
	SummaryAPIKey Secret = "summary-api-key"
)

var (
	// ErrNotFound is returned when no secret is stored under a name
	ErrNotFound = errors.New("secret not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// ParseSecret maps a CLI argument onto a known secret name.
func ParseSecret(name string) (Secret, error) {
	switch Secret(name) {
	case DatabaseDSN, SummaryAPIKey:
		return Secret(name), nil
	}
	return "", fmt.Errorf("unknown secret %q (use %q or %q)", name, DatabaseDSN, SummaryAPIKey)
}

// Get retrieves a secret. Returns ErrNotFound if nothing is stored.
func Get(name Secret) (string, error) {
	value, err := keyring.Get(service, string(name))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return value, nil
}

// Set stores a secret.
func Set(name Secret, value string) error {
	if value == "" {
		return errors.New("secret value cannot be empty")
	}
	if err := keyring.Set(service, string(name), value); err != nil {
		return fmt.Errorf("failed to store secret in keyring: %w", err)
	}
	return nil
}

// Delete removes a secret.
func Delete(name Secret) error {
	if err := keyring.Delete(service, string(name)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete secret from keyring: %w", err)
	}
	return nil
}

// Fallback returns current when set, otherwise the stored secret. A missing
// or unavailable keyring yields "".
func Fallback(current string, name Secret) string {
	if current != "" {
		return current
	}
	value, err := Get(name)
	if err != nil {
		return ""
	}
	return value
}
