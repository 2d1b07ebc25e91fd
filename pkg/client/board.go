package client

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// OpState is the lifecycle of an optimistic change.
type OpState string

const (
	OpPending   OpState = "pending"
	OpConfirmed OpState = "confirmed"
	OpReverted  OpState = "reverted"
)

// Operation records one optimistic favorite toggle.
type Operation struct {
	ID       string
	JobID    string
	Favorite bool // the value the toggle requested
	State    OpState
	Err      error
}

// Observer is told about every operation transition.
type Observer func(Operation)

// JobsAPI is the part of Client a Board needs.
type JobsAPI interface {
	ListJobs(ctx context.Context, opts ListOptions) ([]Job, error)
	UpdateJob(ctx context.Context, id string, in JobInput) (*Job, error)
}

// Board holds the local view of the caller's jobs and applies favorite
// toggles optimistically.
type Board struct {
	api      JobsAPI
	observer Observer

	mu   sync.Mutex
	jobs []Job
	ops  map[string]Operation
}

// NewBoard creates an empty board. observer may be nil.
func NewBoard(api JobsAPI, observer Observer) *Board {
	return &Board{api: api, observer: observer, ops: make(map[string]Operation)}
}

// Load replaces the local state with the server's list.
func (b *Board) Load(ctx context.Context) error {
	jobs, err := b.api.ListJobs(ctx, ListOptions{})
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.jobs = jobs
	b.mu.Unlock()
	return nil
}

// Jobs returns a copy of the local state.
func (b *Board) Jobs() []Job {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Job(nil), b.jobs...)
}

// Upsert merges a job returned by the server into the local state.
func (b *Board) Upsert(job Job) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.merge(job)
}

// Remove drops a job from the local state.
func (b *Board) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.index(id); i >= 0 {
		b.jobs = append(b.jobs[:i], b.jobs[i+1:]...)
	}
}

// ToggleFavorite flips the job's favorite flag locally, then asks the server
// to persist it. The returned operation is confirmed with the server's job
// merged in, or reverted to the prior value when the request fails.
func (b *Board) ToggleFavorite(ctx context.Context, jobID string) (Operation, error) {
	b.mu.Lock()
	i := b.index(jobID)
	if i < 0 {
		b.mu.Unlock()
		return Operation{}, fmt.Errorf("job %s is not on the board", jobID)
	}
	prev := b.jobs[i].Favorite
	b.jobs[i].Favorite = !prev
	op := Operation{ID: uuid.NewString(), JobID: jobID, Favorite: !prev, State: OpPending}
	b.ops[op.ID] = op
	b.mu.Unlock()
	b.notify(op)

	updated, err := b.api.UpdateJob(ctx, jobID, JobInput{Favorite: &op.Favorite})

	b.mu.Lock()
	if err != nil {
		if i := b.index(jobID); i >= 0 {
			b.jobs[i].Favorite = prev
		}
		op.State = OpReverted
		op.Err = err
	} else {
		b.merge(*updated)
		op.State = OpConfirmed
	}
	b.ops[op.ID] = op
	b.mu.Unlock()
	b.notify(op)

	return op, err
}

// Operation looks up a toggle by id.
func (b *Board) Operation(id string) (Operation, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	op, ok := b.ops[id]
	return op, ok
}

// Pending lists toggles still waiting for the server.
func (b *Board) Pending() []Operation {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Operation
	for _, op := range b.ops {
		if op.State == OpPending {
			out = append(out, op)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StatusCounts derives chart data from the local state, one bucket per status in display order.
func (b *Board) StatusCounts() []StatusCount {
	b.mu.Lock()
	defer b.mu.Unlock()
	counts := make(map[string]int64, len(Statuses))
	for _, job := range b.jobs {
		counts[job.Status]++
	}
	out := make([]StatusCount, 0, len(Statuses))
	for _, status := range Statuses {
		out = append(out, StatusCount{Status: status, Count: counts[status]})
	}
	return out
}

// Filter returns the jobs matching status and a case-insensitive search of
// company or position. An empty status or "All" matches every status.
func (b *Board) Filter(status, search string) []Job {
	b.mu.Lock()
	defer b.mu.Unlock()
	term := strings.ToLower(strings.TrimSpace(search))
	out := []Job{}
	for _, job := range b.jobs {
		if status != "" && status != "All" && job.Status != status {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(job.Company), term) &&
			!strings.Contains(strings.ToLower(job.Position), term) {
			continue
		}
		out = append(out, job)
	}
	return out
}

func (b *Board) merge(job Job) {
	if i := b.index(job.ID); i >= 0 {
		b.jobs[i] = job
		return
	}
	b.jobs = append([]Job{job}, b.jobs...)
}

func (b *Board) index(id string) int {
	for i := range b.jobs {
		if b.jobs[i].ID == id {
			return i
		}
	}
	return -1
}

func (b *Board) notify(op Operation) {
	if b.observer != nil {
		b.observer(op)
	}
}
