package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/campusbot/campusbot-go/internal/config"
	"github.com/campusbot/campusbot-go/internal/conversation"
	"github.com/campusbot/campusbot-go/internal/intent"
	"github.com/campusbot/campusbot-go/internal/kvstore"
	"github.com/campusbot/campusbot-go/internal/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedRand struct {
	seq []int
	i   int
}

func (f *fixedRand) Intn(n int) int {
	v := f.seq[f.i%len(f.seq)] % n
	f.i++
	return v
}

// fakeBackend 记录调用参数，返回预设结果
type fakeBackend struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	message string
	history []model.HistoryEntry
}

func (f *fakeBackend) Chat(_ context.Context, message string, history []model.HistoryEntry) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.message = message
	f.history = history
	return f.reply, f.err
}

// sleepRecorder 记录请求的延迟，不真正等待
type sleepRecorder struct {
	mu        sync.Mutex
	durations []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.durations = append(s.durations, d)
	s.mu.Unlock()
	return ctx.Err()
}

type harness struct {
	svc     *ReplyService
	store   *conversation.Store
	catalog *intent.Registry
	sleeps  *sleepRecorder
}

func newHarness(t *testing.T, backend Backend, rnd intent.RandSource) *harness {
	t.Helper()
	logger := zap.NewNop()

	catalog, err := intent.NewBuiltinCatalog(logger)
	require.NoError(t, err)

	store := conversation.NewStore(kvstore.NewMemoryStore(logger).Slot("visitor"), config.DefaultMaxMessages, logger)
	sleeps := &sleepRecorder{}
	svc := NewReplyService(store, intent.NewClassifier(catalog), catalog, ReplyOptions{
		Backend:     backend,
		Rand:        rnd,
		Sleep:       sleeps.Sleep,
		TypingDelay: config.DelayConfig{Min: 800, Max: 1500},
	}, logger)

	return &harness{svc: svc, store: store, catalog: catalog, sleeps: sleeps}
}

func TestHandleEmptyMessageIsNoop(t *testing.T) {
	backend := &fakeBackend{reply: "should not be used"}
	h := newHarness(t, backend, &fixedRand{seq: []int{0}})

	var signals []bool
	for _, in := range []string{"", "   ", "\n\t"} {
		_, err := h.svc.Handle(context.Background(), in, func(c bool) { signals = append(signals, c) })
		require.ErrorIs(t, err, ErrEmptyMessage)
	}

	require.Zero(t, h.store.Len())
	require.Empty(t, signals)
	require.Zero(t, backend.calls)
}

func TestHandleBackendDisabledFeeQuestion(t *testing.T) {
	h := newHarness(t, nil, &fixedRand{seq: []int{0}})
	fees, err := h.catalog.RepliesFor(intent.Fee)
	require.NoError(t, err)

	var signals []bool
	reply, err := h.svc.Handle(context.Background(), "What are the fee deadlines?", func(c bool) {
		signals = append(signals, c)
	})
	require.NoError(t, err)
	require.Contains(t, fees, reply)
	require.Equal(t, []bool{true, false}, signals)

	turns := h.store.All()
	require.Len(t, turns, 2)
	require.Equal(t, model.RoleUser, turns[0].Role)
	require.Equal(t, "What are the fee deadlines?", turns[0].Text)
	require.Equal(t, model.RoleAssistant, turns[1].Role)
	require.Equal(t, reply, turns[1].Text)

	require.Len(t, h.sleeps.durations, 1)
	require.GreaterOrEqual(t, h.sleeps.durations[0], 800*time.Millisecond)
	require.LessOrEqual(t, h.sleeps.durations[0], 1500*time.Millisecond)
}

func TestHandleTrimsUserText(t *testing.T) {
	h := newHarness(t, nil, &fixedRand{seq: []int{1}})

	_, err := h.svc.Handle(context.Background(), "  hostel room?  ", nil)
	require.NoError(t, err)
	require.Equal(t, "hostel room?", h.store.All()[0].Text)
}

func TestHandleBackendSuccess(t *testing.T) {
	backend := &fakeBackend{reply: "The library opens at 9."}
	h := newHarness(t, backend, &fixedRand{seq: []int{0}})

	for i := 0; i < 6; i++ {
		_, err := h.svc.Handle(context.Background(), "hello", nil)
		require.NoError(t, err)
	}

	reply, err := h.svc.Handle(context.Background(), "When does the library open?", nil)
	require.NoError(t, err)
	require.Equal(t, "The library opens at 9.", reply)
	require.Equal(t, "When does the library open?", backend.message)

	// 最近 10 条，包含本次用户消息
	require.Len(t, backend.history, HistoryWindow)
	last := backend.history[len(backend.history)-1]
	require.Equal(t, model.HistoryEntry{Role: "user", Content: "When does the library open?"}, last)
	require.Equal(t, model.RoleAssistant, backend.history[len(backend.history)-2].Role)

	// 后端成功时不模拟延迟
	require.Empty(t, h.sleeps.durations)
	require.Equal(t, 14, h.store.Len())
}

func TestHandleBackendFailureFallsBackWithinCategory(t *testing.T) {
	backend := &fakeBackend{err: errors.New("connection refused")}
	h := newHarness(t, backend, &fixedRand{seq: []int{0, 1, 2}})
	hostel, err := h.catalog.RepliesFor(intent.Hostel)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 9; i++ {
		reply, err := h.svc.Handle(context.Background(), "hostel room availability", nil)
		require.NoError(t, err)
		require.Contains(t, hostel, reply)
		seen[reply] = true
	}
	require.Len(t, seen, len(hostel))
	require.Equal(t, 9, backend.calls)
	require.Empty(t, h.sleeps.durations)
}

func TestHandleBlankBackendReplyIsFailure(t *testing.T) {
	backend := &fakeBackend{reply: "   "}
	h := newHarness(t, backend, &fixedRand{seq: []int{0}})

	reply, err := h.svc.Handle(context.Background(), "xyz random gibberish", nil)
	require.NoError(t, err)
	require.NotEmpty(t, reply)
	require.NotEqual(t, "   ", reply)
}

func TestHandleCanceledContextStillReplies(t *testing.T) {
	h := newHarness(t, nil, &fixedRand{seq: []int{0}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var signals []bool
	reply, err := h.svc.Handle(ctx, "exam schedule", func(c bool) { signals = append(signals, c) })
	require.NoError(t, err)
	require.NotEmpty(t, reply)
	require.Equal(t, []bool{true, false}, signals)
	require.Equal(t, 2, h.store.Len())
}

func TestThinkingDelayFixedWindow(t *testing.T) {
	logger := zap.NewNop()
	catalog, err := intent.NewBuiltinCatalog(logger)
	require.NoError(t, err)
	store := conversation.NewStore(kvstore.NewMemoryStore(logger).Slot("v"), 5, logger)

	sleeps := &sleepRecorder{}
	svc := NewReplyService(store, intent.NewClassifier(catalog), catalog, ReplyOptions{
		Sleep:       sleeps.Sleep,
		TypingDelay: config.DelayConfig{Min: 0, Max: 0},
	}, logger)

	_, err = svc.Handle(context.Background(), "hello", nil)
	require.NoError(t, err)
	require.Empty(t, sleeps.durations)
}

func TestHandleHistoryStaysBounded(t *testing.T) {
	logger := zap.NewNop()
	catalog, err := intent.NewBuiltinCatalog(logger)
	require.NoError(t, err)
	store := conversation.NewStore(kvstore.NewMemoryStore(logger).Slot("v"), 5, logger)
	svc := NewReplyService(store, intent.NewClassifier(catalog), catalog, ReplyOptions{
		Sleep: func(context.Context, time.Duration) error { return nil },
	}, logger)

	for i := 0; i < 10; i++ {
		_, err := svc.Handle(context.Background(), "fee", nil)
		require.NoError(t, err)
		require.LessOrEqual(t, store.Len(), 5)
	}
	require.Equal(t, model.RoleAssistant, store.All()[4].Role)
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, SleepContext(context.Background(), 0))
	require.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
}
