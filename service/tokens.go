package service

import (
	"context"
	"log/slog"

	"github.com/skyward-cloud/gatehouse/ports"
)

// TokenLifecycle owns revocation of identity-service tokens. Revocation is
// advisory cleanup: failures are logged and swallowed so they never block
// the foreground operation that triggered them (logout, switch, re-login).
type TokenLifecycle struct {
	backend  ports.IdentityBackend
	projects ports.ProjectCache
	logger   *slog.Logger
}

// NewTokenLifecycle creates a token lifecycle manager. projects may be nil
// when no project cache is deployed.
func NewTokenLifecycle(backend ports.IdentityBackend, projects ports.ProjectCache) *TokenLifecycle {
	return &TokenLifecycle{
		backend:  backend,
		projects: projects,
		logger:   slog.Default().With("component", "tokens"),
	}
}

// Revoke invalidates a token at the identity service and purges any locally
// cached per-project data keyed by it.
func (t *TokenLifecycle) Revoke(ctx context.Context, endpoint, tokenID string) {
	if tokenID == "" {
		return
	}

	if t.projects != nil {
		if err := t.projects.Purge(ctx, tokenID); err != nil {
			t.logger.Warn("could not purge project cache", "error", err)
		}
	}

	if err := t.backend.Revoke(ctx, endpoint, tokenID); err != nil {
		t.logger.Info("could not revoke token", "error", err)
		return
	}

	t.logger.Info("revoked token", "token_id", tokenID)
}
