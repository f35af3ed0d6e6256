package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/campusbot/campusbot-go/internal/kvstore"
	"github.com/campusbot/campusbot-go/internal/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// failingSlot 模拟不可用的存储
type failingSlot struct {
	data      []byte
	getErr    error
	setErr    error
	deleteErr error
	sets      int
}

func (f *failingSlot) Key() string { return "test" }

func (f *failingSlot) Get(context.Context) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.data == nil {
		return nil, kvstore.ErrNotFound
	}
	return f.data, nil
}

func (f *failingSlot) Set(_ context.Context, v []byte) error {
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.data = v
	return nil
}

func (f *failingSlot) Delete(context.Context) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.data = nil
	return nil
}

var base = time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)

func turnAt(i int) model.Turn {
	role := model.RoleUser
	if i%2 == 1 {
		role = model.RoleAssistant
	}
	return model.Turn{Role: role, Text: fmt.Sprintf("message %d", i), CreatedAt: base.Add(time.Duration(i) * time.Second)}
}

func newMemoryStore(t *testing.T, capacity int) (*Store, kvstore.Slot) {
	t.Helper()
	slot := kvstore.NewMemoryStore(zap.NewNop()).Slot("edubot-conversations-v2:test")
	return NewStore(slot, capacity, zap.NewNop()), slot
}

func TestAppendEvictsOldestFirst(t *testing.T) {
	store, _ := newMemoryStore(t, 5)
	ctx := context.Background()

	for i := 0; i < 5+3; i++ {
		store.Append(ctx, turnAt(i))
		require.LessOrEqual(t, store.Len(), 5)
	}

	all := store.All()
	require.Len(t, all, 5)
	for i, turn := range all {
		require.Equal(t, turnAt(i+3), turn)
	}
}

func TestRecent(t *testing.T) {
	store, _ := newMemoryStore(t, 50)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		store.Append(ctx, turnAt(i))
	}

	require.Equal(t, []model.Turn{turnAt(2), turnAt(3)}, store.Recent(2))
	require.Len(t, store.Recent(10), 4)
	require.Empty(t, store.Recent(0))
	require.Empty(t, store.Recent(-1))

	// Recent 不修改内部状态
	recent := store.Recent(1)
	recent[0].Text = "changed"
	require.Equal(t, "message 3", store.Recent(1)[0].Text)
}

func TestRoundTripPersistence(t *testing.T) {
	slot := kvstore.NewMemoryStore(zap.NewNop()).Slot("k")
	ctx := context.Background()

	writer := NewStore(slot, 3, zap.NewNop())
	for i := 0; i < 7; i++ {
		writer.Append(ctx, turnAt(i))
	}

	reader := NewStore(slot, 3, zap.NewNop())
	loaded := reader.LoadAll(ctx)
	require.Equal(t, []model.Turn{turnAt(4), turnAt(5), turnAt(6)}, loaded)
	require.Equal(t, loaded, reader.All())
}

func TestPersistedLayout(t *testing.T) {
	store, slot := newMemoryStore(t, 50)
	ctx := context.Background()
	store.Append(ctx, model.Turn{Role: model.RoleUser, Text: "hi", CreatedAt: time.UnixMilli(1700000000000)})
	store.Append(ctx, model.Turn{Role: model.RoleAssistant, Text: "Hello!", CreatedAt: time.UnixMilli(1700000001000)})

	data, err := slot.Get(ctx)
	require.NoError(t, err)
	require.JSONEq(t, `[
		{"sender":"user","text":"hi","timestamp":1700000000000},
		{"sender":"bot","text":"Hello!","timestamp":1700000001000}
	]`, string(data))
}

func TestLoadAllTruncatesOversizedData(t *testing.T) {
	slot := &failingSlot{}
	ctx := context.Background()
	big := NewStore(slot, 10, zap.NewNop())
	for i := 0; i < 10; i++ {
		big.Append(ctx, turnAt(i))
	}

	small := NewStore(slot, 4, zap.NewNop())
	require.Equal(t, []model.Turn{turnAt(6), turnAt(7), turnAt(8), turnAt(9)}, small.LoadAll(ctx))
}

func TestLoadAllCorruptDataIsEmpty(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	slot := &failingSlot{data: []byte(`{not json`)}
	store := NewStore(slot, 50, zap.New(core))

	require.Empty(t, store.LoadAll(context.Background()))
	require.Equal(t, 0, store.Len())
	require.Equal(t, 1, logs.Len())
}

func TestLoadAllDropsInvalidRecords(t *testing.T) {
	slot := &failingSlot{data: []byte(`[
		{"sender":"user","text":"fee?","timestamp":1},
		{"sender":"alien","text":"??","timestamp":2},
		{"sender":"bot","text":"   ","timestamp":3},
		{"sender":"bot","text":"Pay by the 15th.","timestamp":4}
	]`)}
	store := NewStore(slot, 50, zap.NewNop())

	loaded := store.LoadAll(context.Background())
	require.Len(t, loaded, 2)
	require.Equal(t, model.RoleUser, loaded[0].Role)
	require.Equal(t, model.RoleAssistant, loaded[1].Role)
	require.Equal(t, time.UnixMilli(4).UTC(), loaded[1].CreatedAt)
}

func TestLoadAllMissingSlot(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := NewStore(&failingSlot{}, 50, zap.New(core))

	require.Empty(t, store.LoadAll(context.Background()))
	require.Equal(t, 0, logs.Len())
}

func TestLoadAllUnavailableSlot(t *testing.T) {
	store := NewStore(&failingSlot{getErr: errors.New("redis down")}, 50, zap.NewNop())
	require.Empty(t, store.LoadAll(context.Background()))
}

func TestAppendSurvivesPersistenceFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	slot := &failingSlot{setErr: errors.New("quota exceeded")}
	store := NewStore(slot, 50, zap.New(core))

	store.Append(context.Background(), turnAt(0))
	store.Append(context.Background(), turnAt(1))

	require.Equal(t, 2, store.Len())
	require.Equal(t, 2, slot.sets)
	require.Equal(t, 2, logs.Len())
}

func TestClear(t *testing.T) {
	store, slot := newMemoryStore(t, 50)
	ctx := context.Background()
	store.Append(ctx, turnAt(0))

	store.Clear(ctx)
	require.Equal(t, 0, store.Len())
	_, err := slot.Get(ctx)
	require.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestClearSurvivesUnavailableSlot(t *testing.T) {
	slot := &failingSlot{deleteErr: errors.New("read-only")}
	store := NewStore(slot, 50, zap.NewNop())
	store.Append(context.Background(), turnAt(0))

	store.Clear(context.Background())
	require.Equal(t, 0, store.Len())
}

func TestConcurrentAppendKeepsCapacity(t *testing.T) {
	store, _ := newMemoryStore(t, 20)
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				store.Append(ctx, turnAt(g*100+i))
			}
		}(g)
	}
	wg.Wait()

	require.Equal(t, 20, store.Len())
}

func TestCapacityFloor(t *testing.T) {
	store, _ := newMemoryStore(t, 0)
	require.Equal(t, 1, store.Capacity())
}

func TestAppendAfterFailedLoadKeepsStoredHistory(t *testing.T) {
	saved, err := encode([]model.Turn{turnAt(0), turnAt(1), turnAt(2)})
	require.NoError(t, err)
	slot := &failingSlot{data: saved, getErr: errors.New("i/o timeout")}
	store := NewStore(slot, 50, zap.NewNop())
	ctx := context.Background()

	require.Empty(t, store.LoadAll(ctx))
	require.False(t, store.Synced())

	// 存储仍不可用：只保存在内存，不覆盖已保存的历史
	store.Append(ctx, turnAt(3))
	require.Zero(t, slot.sets)
	require.False(t, store.Synced())

	slot.getErr = nil
	store.Append(ctx, turnAt(4))
	require.True(t, store.Synced())
	want := []model.Turn{turnAt(0), turnAt(1), turnAt(2), turnAt(3), turnAt(4)}
	require.Equal(t, want, store.All())

	reloaded := NewStore(slot, 50, zap.NewNop())
	require.Equal(t, want, reloaded.LoadAll(ctx))
}

func TestSyncMergesPendingTurns(t *testing.T) {
	saved, err := encode([]model.Turn{turnAt(0), turnAt(1), turnAt(2)})
	require.NoError(t, err)
	slot := &failingSlot{data: saved, getErr: errors.New("connection reset")}
	store := NewStore(slot, 3, zap.NewNop())
	ctx := context.Background()

	store.LoadAll(ctx)
	store.Append(ctx, turnAt(3))
	require.Error(t, store.Sync(ctx))

	slot.getErr = nil
	require.NoError(t, store.Sync(ctx))
	require.Equal(t, []model.Turn{turnAt(1), turnAt(2), turnAt(3)}, store.All())
	require.Equal(t, 1, slot.sets)
	require.NoError(t, store.Sync(ctx))
	require.Equal(t, 1, slot.sets)
}

func TestClearAfterFailedLoadOverwrites(t *testing.T) {
	saved, err := encode([]model.Turn{turnAt(0)})
	require.NoError(t, err)
	slot := &failingSlot{data: saved, getErr: errors.New("redis down")}
	store := NewStore(slot, 50, zap.NewNop())
	ctx := context.Background()

	store.LoadAll(ctx)
	store.Clear(ctx)
	slot.getErr = nil
	store.Append(ctx, turnAt(5))
	require.Equal(t, []model.Turn{turnAt(5)}, NewStore(slot, 50, zap.NewNop()).LoadAll(ctx))
}
