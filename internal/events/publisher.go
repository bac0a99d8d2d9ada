package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/selimdilsadercan/iklim-chat-api/internal/model"
)

const (
	// StreamName is the name of the chat activity stream.
	StreamName = "CHAT"

	// SubjectPrefix is the prefix for all chat subjects.
	SubjectPrefix = "chat"
)

// Publisher writes persisted messages to JetStream so dashboards can
// follow live conversations.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher over an established client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// EnsureStream ensures the chat stream exists.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Chat messages for dashboard fan-out",
	})
	if err != nil {
		return fmt.Errorf("creating stream: %w", err)
	}
	return nil
}

// MessageSubject returns the subject a message is published under.
func MessageSubject(personaID, userID string, role model.Role) string {
	return fmt.Sprintf("%s.%s.%s.msg.%s", SubjectPrefix, personaID, userID, role)
}

// PublishMessage publishes one persisted message.
func (p *Publisher) PublishMessage(ctx context.Context, msg model.Message) (uint64, error) {
	subject := MessageSubject(msg.PersonaID, msg.UserID, msg.Role())

	data, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("marshaling message: %w", err)
	}

	ack, err := p.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("publishing message: %w", err)
	}
	return ack.Sequence, nil
}
