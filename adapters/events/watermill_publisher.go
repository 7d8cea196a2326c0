package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/skyward-cloud/gatehouse/ports"
)

const (
	loginTopic  = "auth.login"
	logoutTopic = "auth.logout"
	switchTopic = "auth.switch"
)

// LoginEvent is published when a session is established.
type LoginEvent struct {
	Username string `json:"username"`
	Domain   string `json:"domain"`
	TokenID  string `json:"token_id"`
}

// LogoutEvent is published when a session is torn down.
type LogoutEvent struct {
	Username string `json:"username"`
	TokenID  string `json:"token_id"`
}

// SwitchEvent is published when a session rebinds to a new project token.
type SwitchEvent struct {
	Username   string `json:"username"`
	OldTokenID string `json:"old_token_id"`
	NewTokenID string `json:"new_token_id"`
	ProjectID  string `json:"project_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin publishes a login event.
func (p *WatermillPublisher) PublishLogin(ctx context.Context, username, domain, tokenID string) error {
	return p.publish(loginTopic, LoginEvent{
		Username: username,
		Domain:   domain,
		TokenID:  tokenID,
	})
}

// PublishLogout publishes a logout event.
func (p *WatermillPublisher) PublishLogout(ctx context.Context, username, tokenID string) error {
	return p.publish(logoutTopic, LogoutEvent{
		Username: username,
		TokenID:  tokenID,
	})
}

// PublishSwitch publishes a project-switch event.
func (p *WatermillPublisher) PublishSwitch(ctx context.Context, username, oldTokenID, newTokenID, projectID string) error {
	return p.publish(switchTopic, SwitchEvent{
		Username:   username,
		OldTokenID: oldTokenID,
		NewTokenID: newTokenID,
		ProjectID:  projectID,
	})
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
