package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/secmon/pkg/finding"
	"github.com/user/secmon/pkg/logging"
)

// fakeSession is a manual implementation of sarama.ConsumerGroupSession.
type fakeSession struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32 { return nil }
func (s *fakeSession) MemberID() string           { return "member-1" }
func (s *fakeSession) GenerationID() int32        { return 1 }
func (s *fakeSession) MarkOffset(topic string, partition int32, offset int64, metadata string) {}
func (s *fakeSession) Commit() {}
func (s *fakeSession) ResetOffset(topic string, partition int32, offset int64, metadata string) {}
func (s *fakeSession) Context() context.Context { return s.ctx }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

// fakeClaim is a manual implementation of sarama.ConsumerGroupClaim.
type fakeClaim struct {
	msgs chan *sarama.ConsumerMessage
}

func newFakeClaim(values ...string) *fakeClaim {
	c := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage, len(values))}
	for i, v := range values {
		c.msgs <- &sarama.ConsumerMessage{Topic: "scc-findings", Offset: int64(i), Value: []byte(v)}
	}
	close(c.msgs)
	return c
}

func (c *fakeClaim) Topic() string                            { return "scc-findings" }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return int64(len(c.msgs)) }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

type handlerFunc func(ctx context.Context, payload []byte) error

func (f handlerFunc) HandleNotification(ctx context.Context, payload []byte) error {
	return f(ctx, payload)
}

func newClaimHandler(h NotificationHandler) *claimHandler {
	return &claimHandler{handler: h, clientID: "test", logger: logging.Discard()}
}

func TestConsumeClaimMarksHandledMessages(t *testing.T) {
	var seen []string
	h := newClaimHandler(handlerFunc(func(ctx context.Context, payload []byte) error {
		seen = append(seen, string(payload))
		if string(payload) == "bad" {
			return fmt.Errorf("%w: not json", finding.ErrMalformedEvent)
		}
		return nil
	}))
	sess := &fakeSession{ctx: context.Background()}

	require.NoError(t, h.ConsumeClaim(sess, newFakeClaim(`{"finding":{}}`, "bad", `{}`)))
	assert.Equal(t, []string{`{"finding":{}}`, "bad", `{}`}, seen)
	assert.Equal(t, []int64{0, 1, 2}, sess.marked)
	assert.False(t, h.takeFailure())
}

func TestConsumeClaimStopsOnFailure(t *testing.T) {
	calls := 0
	h := newClaimHandler(handlerFunc(func(ctx context.Context, payload []byte) error {
		calls++
		if calls == 2 {
			return errors.New("analysis failed")
		}
		return nil
	}))
	sess := &fakeSession{ctx: context.Background()}

	err := h.ConsumeClaim(sess, newFakeClaim("a", "b", "c"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scc-findings/0@1")
	assert.Equal(t, 2, calls)
	assert.Equal(t, []int64{0}, sess.marked)
	assert.True(t, h.takeFailure())
	assert.False(t, h.takeFailure())
}

func TestConsumeClaimReturnsWhenSessionEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := newClaimHandler(handlerFunc(func(ctx context.Context, payload []byte) error { return nil }))

	claim := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage)}
	assert.NoError(t, h.ConsumeClaim(&fakeSession{ctx: ctx}, claim))
}

// fakeGroup drives the handler with one claim per Consume call.
type fakeGroup struct {
	claims   []*fakeClaim
	sessions []*fakeSession
	cancel   context.CancelFunc
	closed   bool
}

func (g *fakeGroup) Consume(ctx context.Context, topics []string, handler sarama.ConsumerGroupHandler) error {
	if len(g.claims) == 0 {
		g.cancel()
		return nil
	}
	claim := g.claims[0]
	g.claims = g.claims[1:]

	sess := &fakeSession{ctx: ctx}
	g.sessions = append(g.sessions, sess)
	if err := handler.Setup(sess); err != nil {
		return err
	}
	err := handler.ConsumeClaim(sess, claim)
	if cerr := handler.Cleanup(sess); cerr != nil {
		return cerr
	}
	return err
}

func (g *fakeGroup) Errors() <-chan error                { return nil }
func (g *fakeGroup) Close() error                        { g.closed = true; return nil }
func (g *fakeGroup) Pause(partitions map[string][]int32)  {}
func (g *fakeGroup) Resume(partitions map[string][]int32) {}
func (g *fakeGroup) PauseAll()                           {}
func (g *fakeGroup) ResumeAll()                          {}

func TestRunRedeliversAfterFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := map[string]int{}
	h := handlerFunc(func(ctx context.Context, payload []byte) error {
		attempts[string(payload)]++
		if string(payload) == "b" && attempts["b"] == 1 {
			return errors.New("quota")
		}
		return nil
	})

	group := &fakeGroup{
		// The second session sees "b" again because it was never marked.
		claims: []*fakeClaim{newFakeClaim("a", "b"), newFakeClaim("b")},
		cancel: cancel,
	}
	c := newConsumer(group, Config{Topic: "scc-findings", ClientID: "test"}, h, logging.Discard())
	c.restart = &backoff.ZeroBackOff{}

	require.NoError(t, c.Run(ctx))
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, attempts)
	require.Len(t, group.sessions, 2)
	assert.Equal(t, []int64{0}, group.sessions[0].marked)
	assert.Equal(t, []int64{0}, group.sessions[1].marked)

	require.NoError(t, c.Close())
	assert.True(t, group.closed)
}

func TestRunStopsOnClosedGroup(t *testing.T) {
	group := &closedGroup{}
	c := newConsumer(group, Config{Topic: "t"}, handlerFunc(func(ctx context.Context, payload []byte) error { return nil }), logging.Discard())

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return for a closed group")
	}
}

type closedGroup struct{ fakeGroup }

func (g *closedGroup) Consume(ctx context.Context, topics []string, handler sarama.ConsumerGroupHandler) error {
	return sarama.ErrClosedConsumerGroup
}

func TestNewConsumerRequiresTopic(t *testing.T) {
	_, err := NewConsumer(Config{Brokers: []string{"localhost:9092"}}, nil, logging.Discard())
	assert.EqualError(t, err, "kafka topic is required")
}

// erroringGroup fails every session, as a group does while the brokers are
// unreachable. It cancels the run after a fixed number of attempts.
type erroringGroup struct {
	fakeGroup
	calls int
	limit int
}

func (g *erroringGroup) Consume(ctx context.Context, topics []string, handler sarama.ConsumerGroupHandler) error {
	g.calls++
	if g.calls == g.limit {
		g.cancel()
	}
	return errors.New("kafka: client has run out of available brokers to talk to")
}

// countingBackOff records how Run paces its restarts.
type countingBackOff struct {
	next   int
	resets int
}

func (b *countingBackOff) NextBackOff() time.Duration { b.next++; return 0 }
func (b *countingBackOff) Reset()                     { b.resets++ }

func TestRunPausesWhenGroupKeepsFailing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group := &erroringGroup{fakeGroup: fakeGroup{cancel: cancel}, limit: 3}
	c := newConsumer(group, Config{Topic: "scc-findings"}, handlerFunc(func(ctx context.Context, payload []byte) error {
		t.Fatal("no message should be delivered")
		return nil
	}), logging.Discard())
	pacing := &countingBackOff{}
	c.restart = pacing

	require.NoError(t, c.Run(ctx))
	assert.Equal(t, 3, group.calls)
	// Every failed session except the one that observed cancellation waits.
	assert.Equal(t, 2, pacing.next)
	assert.Zero(t, pacing.resets)
}

func TestRunResetsPacingAfterCleanSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group := &fakeGroup{claims: []*fakeClaim{newFakeClaim("a")}, cancel: cancel}
	c := newConsumer(group, Config{Topic: "scc-findings"}, handlerFunc(func(ctx context.Context, payload []byte) error {
		return nil
	}), logging.Discard())
	pacing := &countingBackOff{}
	c.restart = pacing

	require.NoError(t, c.Run(ctx))
	assert.Zero(t, pacing.next)
	assert.Equal(t, 1, pacing.resets)
}
