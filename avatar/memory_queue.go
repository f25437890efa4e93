package avatar

import (
	"context"
	"sync"

	"go.pilab.hu/idlink/domain"
)

// MemoryQueue is an in-process AvatarQueue. Used in tests and as a fallback
// when no Redis is configured.
type MemoryQueue struct {
	mu   sync.Mutex
	jobs []domain.AvatarJob
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Enqueue(_ context.Context, job domain.AvatarJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

// Jobs returns a copy of everything enqueued so far.
func (q *MemoryQueue) Jobs() []domain.AvatarJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.AvatarJob, len(q.jobs))
	copy(out, q.jobs)
	return out
}

var _ domain.AvatarQueue = (*MemoryQueue)(nil)
