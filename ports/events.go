package ports

import "context"

// EventPublisher notifies other instances about identity changes. Publishing
// is best effort: callers log failures and never fail the user-visible
// operation over them.
type EventPublisher interface {
	PublishLogin(ctx context.Context, username, domain, tokenID string) error
	PublishLogout(ctx context.Context, username, tokenID string) error
	PublishSwitch(ctx context.Context, username, oldTokenID, newTokenID, projectID string) error
}
