package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thanhvinh2808/SoulDiary-FE/internal/domain"
	pkgkafka "github.com/thanhvinh2808/SoulDiary-FE/pkg/kafka"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/logger"
)

type recordingPublisher struct {
	topics []string
	events []*pkgkafka.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, e *pkgkafka.Event) error {
	if r.err != nil {
		return r.err
	}
	r.topics = append(r.topics, topic)
	r.events = append(r.events, e)
	return nil
}

func newTestProducer(pub publisher) *Producer {
	return &Producer{kafka: pub, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "souldiary.user.registered", TopicUserRegistered)
	assert.Equal(t, "souldiary.user.logged_in", TopicUserLoggedIn)
	assert.Equal(t, "souldiary.user.logged_out", TopicUserLoggedOut)
}

func TestProducer_UserRegistered(t *testing.T) {
	pub := &recordingPublisher{}
	p := newTestProducer(pub)
	ctx := logger.WithCorrelationID(context.Background(), "req-1")

	err := p.UserRegistered(ctx, &domain.User{ID: "u-1", Email: "a@x.com", Name: "Ann"}, domain.ProviderGoogle)
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	e := pub.events[0]
	assert.Equal(t, TopicUserRegistered, pub.topics[0])
	assert.Equal(t, "u-1", e.AggregateID)
	assert.Equal(t, AggregateTypeUser, e.AggregateType)
	assert.Equal(t, "req-1", e.CorrelationID)

	var data UserRegisteredData
	require.NoError(t, e.UnmarshalData(&data))
	assert.Equal(t, UserRegisteredData{ID: "u-1", Email: "a@x.com", Name: "Ann", Method: "google"}, data)
}

func TestProducer_LoginAndLogout(t *testing.T) {
	pub := &recordingPublisher{}
	p := newTestProducer(pub)
	ctx := context.Background()

	require.NoError(t, p.UserLoggedIn(ctx, &domain.User{ID: "u-1"}, domain.ProviderLocal))
	require.NoError(t, p.UserLoggedOut(ctx, "u-1"))

	assert.Equal(t, []string{TopicUserLoggedIn, TopicUserLoggedOut}, pub.topics)
	assert.Empty(t, pub.events[0].CorrelationID)
}

func TestProducer_PublishError(t *testing.T) {
	p := newTestProducer(&recordingPublisher{err: errors.New("broker down")})

	err := p.UserLoggedOut(context.Background(), "u-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish souldiary.user.logged_out event")
}

func TestNoop(t *testing.T) {
	var n Noop
	assert.NoError(t, n.UserRegistered(context.Background(), &domain.User{}, "local"))
	assert.NoError(t, n.UserLoggedIn(context.Background(), &domain.User{}, "local"))
	assert.NoError(t, n.UserLoggedOut(context.Background(), "u"))
}
