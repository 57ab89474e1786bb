package orchestrator

import (
	"log"

	"github.com/storytovideo/companion/internal/model"
)

// Task is the record kept for one in-flight remote task: the pipeline stage
// it belongs to and the logical entity (project or shot) its result applies
// to. OwnerID may be empty for shot-image tasks until the result reveals the
// shot.
type Task struct {
	ID      string
	Stage   model.Stage
	OwnerID string
}

// registry tracks all in-flight tasks by identifier. It is the single source
// of truth for "what is still being polled": the poll ticker runs exactly
// while the registry is non-empty. Only the orchestrator goroutine touches
// it, so no locking is needed.
type registry struct {
	tasks map[string]Task
}

func newRegistry() *registry {
	return &registry{tasks: make(map[string]Task)}
}

// register inserts or overwrites the record for taskID. Overwriting is used
// to correct the owner once a result reveals it; it never duplicates an
// entry.
func (r *registry) register(taskID string, stage model.Stage, ownerID string) {
	r.tasks[taskID] = Task{ID: taskID, Stage: stage, OwnerID: ownerID}
}

// unregister removes the record. Removing an absent id is a no-op.
func (r *registry) unregister(taskID string) {
	delete(r.tasks, taskID)
}

func (r *registry) contains(taskID string) bool {
	_, ok := r.tasks[taskID]
	return ok
}

// get looks up a record. A miss is logged because the dispatcher contract is
// to check contains first; the caller drops the event.
func (r *registry) get(taskID string) (Task, bool) {
	task, ok := r.tasks[taskID]
	if !ok {
		log.Printf("[Orchestrator] Task %s is not tracked", taskID)
	}
	return task, ok
}

func (r *registry) isEmpty() bool {
	return len(r.tasks) == 0
}

// allIDs returns a snapshot of tracked task identifiers. Handlers may
// register or unregister tasks while the snapshot is being iterated.
func (r *registry) allIDs() []string {
	ids := make([]string, 0, len(r.tasks))
	for id := range r.tasks {
		ids = append(ids, id)
	}
	return ids
}

// all returns a snapshot of all tracked records.
func (r *registry) all() []Task {
	tasks := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	return tasks
}
