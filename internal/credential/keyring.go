// Package credential stores API tokens in the operating system keyring.
// Tokens are held encrypted at rest and only decrypted at the instant of use.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "gitify"

// ErrDecrypt marks a failure to retrieve or decrypt a stored token. The error
// classifier treats it as a bad-credential condition.
var ErrDecrypt = errors.New("credential could not be decrypted")

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/gitify/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("gitify-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves the decrypted token for an account UUID. Failures are wrapped
// with ErrDecrypt so they classify as bad credentials.
func Get(accountUUID string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	item, err := ring.Get(accountUUID)
	if err != nil {
		return "", fmt.Errorf("%w: account %s: %v", ErrDecrypt, accountUUID, err)
	}

	return string(item.Data), nil
}

// Set stores a token for an account UUID in the system keyring.
func Set(accountUUID string, token string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  accountUUID,
		Data: []byte(token),
	})
	if err != nil {
		return fmt.Errorf("storing credential for account %s: %w", accountUUID, err)
	}

	return nil
}

// Delete removes the token for an account UUID from the system keyring.
func Delete(accountUUID string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(accountUUID)
	if err != nil {
		return fmt.Errorf("deleting credential for account %s: %w", accountUUID, err)
	}

	return nil
}
