package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thanhvinh2808/SoulDiary-FE/internal/domain"
	pkgkafka "github.com/thanhvinh2808/SoulDiary-FE/pkg/kafka"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/logger"
)

// Kafka topics for user domain events.
var (
	TopicUserRegistered = pkgkafka.Topic("user", "registered")
	TopicUserLoggedIn   = pkgkafka.Topic("user", "logged_in")
	TopicUserLoggedOut  = pkgkafka.Topic("user", "logged_out")
)

// AggregateTypeUser is the aggregate type of every user event.
const AggregateTypeUser = "user"

// SourceAPI identifies events originating from this service.
const SourceAPI = "souldiary-api"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID     string `json:"id"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name"`
	Method string `json:"method"`
}

// UserLoggedInData is the payload for a user.logged_in event.
type UserLoggedInData struct {
	ID     string `json:"id"`
	Method string `json:"method"`
}

// UserLoggedOutData is the payload for a user.logged_out event.
type UserLoggedOutData struct {
	ID string `json:"id"`
}

// publisher is the subset of *pkgkafka.Producer used here.
type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes user domain events to Kafka.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// UserRegistered publishes a user.registered event. method is the sign-up
// path: local, google or facebook.
func (p *Producer) UserRegistered(ctx context.Context, u *domain.User, method string) error {
	return p.publish(ctx, TopicUserRegistered, u.ID, UserRegisteredData{
		ID:     u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Method: method,
	})
}

// UserLoggedIn publishes a user.logged_in event.
func (p *Producer) UserLoggedIn(ctx context.Context, u *domain.User, method string) error {
	return p.publish(ctx, TopicUserLoggedIn, u.ID, UserLoggedInData{ID: u.ID, Method: method})
}

// UserLoggedOut publishes a user.logged_out event.
func (p *Producer) UserLoggedOut(ctx context.Context, userID string) error {
	return p.publish(ctx, TopicUserLoggedOut, userID, UserLoggedOutData{ID: userID})
}

func (p *Producer) publish(ctx context.Context, topic, userID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, userID, AggregateTypeUser, SourceAPI, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("user_id", userID),
	)
	return nil
}

// Noop discards events. It is used when Kafka is disabled.
type Noop struct{}

// UserRegistered does nothing.
func (Noop) UserRegistered(context.Context, *domain.User, string) error { return nil }

// UserLoggedIn does nothing.
func (Noop) UserLoggedIn(context.Context, *domain.User, string) error { return nil }

// UserLoggedOut does nothing.
func (Noop) UserLoggedOut(context.Context, string) error { return nil }
