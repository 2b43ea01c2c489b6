// Package taskqueue schedules background work such as consolidation
// runs. A Redis-backed queue does atomic enqueue/dequeue via a Lua
// script for atomicity; when Redis is unavailable, a filesystem journal
// keeps tasks durable so a restart doesn't lose pending work.
package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"memoria/internal/fsstore"
)

// Task is one unit of deferred work, named by Kind. The engine's worker
// in cmd/engine runs "consolidation" tasks and drops any other kind.
type Task struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

// atomically pushes a task onto the list and bumps a pending counter in
// one round trip.
const enqueueScript = `
redis.call("RPUSH", KEYS[1], ARGV[1])
redis.call("INCR", KEYS[2])
return 1
`

const dequeueScript = `
local item = redis.call("LPOP", KEYS[1])
if item then
  redis.call("DECR", KEYS[2])
end
return item
`

// redisEvaler is the narrow slice of *redis.Client this package depends
// on, so tests can substitute a mock for Eval calls.
type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Queue is a Redis list-backed FIFO with a filesystem journal fallback.
type Queue struct {
	client     redisEvaler
	store      *fsstore.Store
	listKey    string
	counterKey string
}

func New(client *redis.Client, store *fsstore.Store) *Queue {
	var evaler redisEvaler
	if client != nil {
		evaler = client
	}
	return &Queue{client: evaler, store: store, listKey: "memoria:tasks", counterKey: "memoria:tasks:pending"}
}

// newWithEvaler is used by tests to inject a mock redisEvaler.
func newWithEvaler(client redisEvaler, store *fsstore.Store) *Queue {
	return &Queue{client: client, store: store, listKey: "memoria:tasks", counterKey: "memoria:tasks:pending"}
}

func (q *Queue) Enqueue(ctx context.Context, t Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("taskqueue: marshal task: %w", err)
	}

	if q.client != nil {
		if err := q.client.Eval(ctx, enqueueScript, []string{q.listKey, q.counterKey}, string(data)).Err(); err == nil {
			return nil
		}
	}
	return q.journalAppend(t)
}

// Dequeue pops the oldest pending task, or returns (Task{}, false) if
// the queue is empty.
func (q *Queue) Dequeue(ctx context.Context) (Task, bool, error) {
	if q.client != nil {
		val, err := q.client.Eval(ctx, dequeueScript, []string{q.listKey, q.counterKey}).Result()
		if err == nil {
			if val == nil {
				return Task{}, false, nil
			}
			s, ok := val.(string)
			if !ok {
				return Task{}, false, fmt.Errorf("taskqueue: unexpected redis reply type")
			}
			var t Task
			if err := json.Unmarshal([]byte(s), &t); err != nil {
				return Task{}, false, fmt.Errorf("taskqueue: unmarshal task: %w", err)
			}
			return t, true, nil
		}
	}
	return q.journalPop()
}

// journal is the degraded-mode store: .task_queue.json holds the full
// pending list when Redis is absent or unreachable.
func (q *Queue) journalAppend(t Task) error {
	tasks, err := q.journalRead()
	if err != nil {
		return err
	}
	tasks = append(tasks, t)
	return q.journalWrite(tasks)
}

func (q *Queue) journalPop() (Task, bool, error) {
	tasks, err := q.journalRead()
	if err != nil {
		return Task{}, false, err
	}
	if len(tasks) == 0 {
		return Task{}, false, nil
	}
	t := tasks[0]
	if err := q.journalWrite(tasks[1:]); err != nil {
		return Task{}, false, err
	}
	return t, true, nil
}

func (q *Queue) journalRead() ([]Task, error) {
	data, err := q.store.ReadFile(q.store.TaskQueueJournalPath())
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("taskqueue: parse journal: %w", err)
	}
	return tasks, nil
}

func (q *Queue) journalWrite(tasks []Task) error {
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return err
	}
	return q.store.WriteFile(q.store.TaskQueueJournalPath(), data)
}
