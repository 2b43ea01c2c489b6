package taskqueue

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"memoria/internal/fsstore"
)

type mockEvaler struct {
	lastScript string
	val        interface{}
	err        error
}

func (m *mockEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.lastScript = script
	cmd := redis.NewCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	cmd.SetVal(m.val)
	return cmd
}

func newTestStore(t *testing.T) *fsstore.Store {
	t.Helper()
	dir := t.TempDir()
	store := fsstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestEnqueueFallsBackToJournalWhenRedisAbsent(t *testing.T) {
	store := newTestStore(t)
	q := New(nil, store)

	task := Task{ID: "t1", Kind: "rebuild_index", EnqueuedAt: time.Now()}
	if err := q.Enqueue(context.Background(), task); err != nil {
		t.Fatal(err)
	}

	got, ok, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got.ID != "t1" {
		t.Fatalf("Dequeue() = %+v, %v, want t1/true", got, ok)
	}

	_, ok, err = q.Dequeue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected empty queue after single dequeue")
	}
}

func TestEnqueueUsesRedisScriptWhenAvailable(t *testing.T) {
	store := newTestStore(t)
	mock := &mockEvaler{val: int64(1)}
	q := newWithEvaler(mock, store)

	task := Task{ID: "t2", Kind: "consolidate", EnqueuedAt: time.Now()}
	if err := q.Enqueue(context.Background(), task); err != nil {
		t.Fatal(err)
	}
	if mock.lastScript != enqueueScript {
		t.Fatal("expected enqueueScript to be evaluated against redis")
	}

	data, err := store.ReadFile(store.TaskQueueJournalPath())
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Fatal("journal should stay empty when redis succeeds")
	}
}

func TestEnqueueFallsBackToJournalOnRedisError(t *testing.T) {
	store := newTestStore(t)
	mock := &mockEvaler{err: context.DeadlineExceeded}
	q := newWithEvaler(mock, store)

	task := Task{ID: "t3", Kind: "consolidate", EnqueuedAt: time.Now()}
	if err := q.Enqueue(context.Background(), task); err != nil {
		t.Fatal(err)
	}

	data, err := store.ReadFile(store.TaskQueueJournalPath())
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("expected journal fallback write on redis error")
	}
}
