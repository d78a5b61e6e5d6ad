// Package auth manages the registered account set: login validation, token
// storage, removal, and identity refresh.
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gitify-app/gitify-sub003/config"
	"github.com/gitify-app/gitify-sub003/internal/api"
	"github.com/gitify-app/gitify-sub003/internal/credential"
	"github.com/gitify-app/gitify-sub003/internal/log"
	"github.com/gitify-app/gitify-sub003/internal/model"
)

// requiredScopes lists token scopes that grant notification access. The
// classic "repo" scope implies "notifications".
var requiredScopes = []string{"notifications", "repo"}

// Registry is the authoritative account set. All mutations persist the config
// and keep the keyring in sync.
type Registry struct {
	mu  sync.RWMutex
	cfg *config.Config
}

// NewRegistry wraps a loaded config.
func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{cfg: cfg}
}

// Accounts returns a copy of the registered accounts in registration order.
func (r *Registry) Accounts() []model.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	accounts := make([]model.Account, len(r.cfg.Accounts))
	copy(accounts, r.cfg.Accounts)
	return accounts
}

// Has reports whether an account with the given UUID is registered.
func (r *Registry) Has(accountUUID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.cfg.Accounts {
		if a.UUID() == accountUUID {
			return true
		}
	}
	return false
}

// Login validates a token against a host, stores it in the keyring, and
// registers the account. Logging in again with the same identity and method
// replaces the existing registration instead of duplicating it.
func (r *Registry) Login(ctx context.Context, hostname string, method model.AuthMethod, token string) (model.Account, error) {
	account := model.Account{
		Hostname: hostname,
		Method:   method,
		Platform: model.PlatformForHostname(hostname),
	}

	client, err := api.NewClientWithToken(account, token)
	if err != nil {
		return model.Account{}, err
	}

	user, err := client.GetAuthenticatedUser(ctx)
	if err != nil {
		return model.Account{}, api.WrapError("login", hostname, err)
	}
	account.User = user

	scopes, err := client.HeadNotifications(ctx)
	if err != nil {
		return model.Account{}, api.WrapError("login", user.Login, err)
	}
	account.HasRequiredScopes = hasRequiredScopes(scopes)

	if account.IsEnterprise() {
		version, err := client.GetServerVersion(ctx)
		if err != nil {
			// Version gating degrades gracefully; mark-as-done just stays off.
			log.Warn("failed to detect server version",
				"host", hostname, "error", err)
		}
		account.ServerVersion = version
	}

	if err := r.add(account, token); err != nil {
		return model.Account{}, err
	}

	log.Info("account added",
		"login", account.User.Login,
		"host", account.Hostname,
		"method", account.Method,
	)
	return account, nil
}

func (r *Registry) add(account model.Account, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := credential.Set(account.UUID(), token); err != nil {
		return err
	}

	replaced := false
	for i, existing := range r.cfg.Accounts {
		if existing.UUID() == account.UUID() {
			r.cfg.Accounts[i] = account
			replaced = true
			break
		}
	}
	if !replaced {
		r.cfg.Accounts = append(r.cfg.Accounts, account)
	}

	return r.cfg.Save()
}

// Remove unregisters an account and deletes its stored token.
func (r *Registry) Remove(accountUUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := false
	kept := r.cfg.Accounts[:0]
	for _, a := range r.cfg.Accounts {
		if a.UUID() == accountUUID {
			found = true
			continue
		}
		kept = append(kept, a)
	}
	if !found {
		return fmt.Errorf("no account with id %s", accountUUID)
	}
	r.cfg.Accounts = kept

	if err := credential.Delete(accountUUID); err != nil {
		log.Warn("failed to delete stored credential",
			"account", accountUUID, "error", err)
	}

	return r.cfg.Save()
}

// Refresh re-resolves user identity, scopes and server version for every
// registered account. Per-account failures are logged and skipped.
func (r *Registry) Refresh(ctx context.Context) error {
	for _, account := range r.Accounts() {
		client, err := api.NewClient(account)
		if err != nil {
			return err
		}

		user, err := client.GetAuthenticatedUser(ctx)
		if err != nil {
			log.Warn("failed to refresh account",
				"login", account.User.Login, "error", err)
			continue
		}
		account.User = user

		if scopes, err := client.HeadNotifications(ctx); err == nil {
			account.HasRequiredScopes = hasRequiredScopes(scopes)
		}
		if account.IsEnterprise() {
			if version, err := client.GetServerVersion(ctx); err == nil {
				account.ServerVersion = version
			}
		}

		r.mu.Lock()
		for i, existing := range r.cfg.Accounts {
			if existing.UUID() == account.UUID() {
				r.cfg.Accounts[i] = account
				break
			}
		}
		err = r.cfg.Save()
		r.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// hasRequiredScopes parses an X-OAuth-Scopes header. Fine-grained tokens
// report no scopes at all, and those are accepted as-is: the probe request
// already proved notification access.
func hasRequiredScopes(header string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return true
	}
	for _, scope := range strings.Split(header, ",") {
		scope = strings.TrimSpace(scope)
		for _, required := range requiredScopes {
			if scope == required {
				return true
			}
		}
	}
	return false
}
