package notify

import (
	"context"
	"sync"
	"time"
)

// JobHandle identifies one arming of a notification's timer. A later Arm for
// the same id produces a new handle and invalidates the old one.
type JobHandle struct {
	id  string
	gen uint64
}

// ID returns the notification id the job belongs to.
func (h JobHandle) ID() string {
	return h.id
}

type job struct {
	gen    uint64
	fireAt time.Time
	timer  *time.Timer
}

// Scheduler keeps one timer per notification id. Callbacks run on their own
// goroutine at or after the requested instant; an instant in the past fires
// immediately. Every method is safe for concurrent use.
type Scheduler struct {
	mu      sync.Mutex
	jobs    map[string]*job
	gen     uint64
	stopped bool
	running sync.WaitGroup
	now     func() time.Time
}

// newScheduler returns an empty scheduler reading the clock from now.
func newScheduler(now func() time.Time) *Scheduler {
	return &Scheduler{
		jobs: make(map[string]*job),
		now:  now,
	}
}

// Arm schedules fn for id at fireAt, replacing any timer already armed for id.
func (s *Scheduler) Arm(id string, fireAt time.Time, fn func(JobHandle)) (JobHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armLocked(id, fireAt, fn)
}

// Rearm replaces h with a new timer only if h is still the current arm for its
// id. It reports false when the job was cancelled or replaced in the meantime.
func (s *Scheduler) Rearm(h JobHandle, fireAt time.Time, fn func(JobHandle)) (JobHandle, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return JobHandle{}, false, ErrSchedulerStopped
	}
	if !s.currentLocked(h) {
		return JobHandle{}, false, nil
	}
	next, err := s.armLocked(h.id, fireAt, fn)
	return next, err == nil, err
}

func (s *Scheduler) armLocked(id string, fireAt time.Time, fn func(JobHandle)) (JobHandle, error) {
	if s.stopped {
		return JobHandle{}, ErrSchedulerStopped
	}
	if prev, ok := s.jobs[id]; ok {
		prev.timer.Stop()
	}

	s.gen++
	h := JobHandle{id: id, gen: s.gen}
	delay := fireAt.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	j := &job{gen: h.gen, fireAt: fireAt}
	// The callback blocks on s.mu until this Arm returns, so the entry is
	// always in the map by the time it is checked.
	j.timer = time.AfterFunc(delay, func() { s.run(h, fn) })
	s.jobs[id] = j
	return h, nil
}

func (s *Scheduler) run(h JobHandle, fn func(JobHandle)) {
	s.mu.Lock()
	if s.stopped || !s.currentLocked(h) {
		s.mu.Unlock()
		return
	}
	s.running.Add(1)
	s.mu.Unlock()

	defer s.running.Done()
	fn(h)
}

func (s *Scheduler) currentLocked(h JobHandle) bool {
	j, ok := s.jobs[h.id]
	return ok && j.gen == h.gen
}

// Cancel stops and forgets the timer for id. Unknown ids are a no-op.
// It reports whether a job was removed.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return false
	}
	j.timer.Stop()
	delete(s.jobs, id)
	return true
}

// Release forgets the job once its notification reached a terminal state.
// A handle that has been superseded by a newer arm is ignored.
func (s *Scheduler) Release(h JobHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(h) {
		return false
	}
	delete(s.jobs, h.id)
	return true
}

// Active reports whether id currently has a job.
func (s *Scheduler) Active(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[id]
	return ok
}

// FireAt returns when the job for id is due.
func (s *Scheduler) FireAt(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return time.Time{}, false
	}
	return j.fireAt, true
}

// Len returns the number of armed or in-flight jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Stopped reports whether Stop has been called.
func (s *Scheduler) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Stop cancels every timer and rejects further arms. Callbacks already
// running are not interrupted; use Wait to drain them.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, j := range s.jobs {
		j.timer.Stop()
		delete(s.jobs, id)
	}
}

// Wait blocks until running callbacks return or ctx is done. Call it after
// Stop so no new callback can start while waiting.
func (s *Scheduler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
