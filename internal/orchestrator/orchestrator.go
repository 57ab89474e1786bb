// Package orchestrator drives the multi-stage generation pipeline: it tracks
// in-flight gateway tasks, polls them on a shared timer, routes completions
// to stage handlers and materializes results into the project record.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/storytovideo/companion/internal/client"
	"github.com/storytovideo/companion/internal/model"
)

// videoFileName is the local filename of an auto-saved compiled video.
const videoFileName = "video.mp4"

// ErrProjectNotFound is returned when a project document cannot be loaded.
var ErrProjectNotFound = errors.New("project not found")

// JobClient submits generation work to the gateway and delivers every
// outcome as an event. All methods are fire-and-forget.
type JobClient interface {
	SubmitTextGeneration(ctx context.Context, storyText, style, title, description string)
	SubmitVideoCompilation(ctx context.Context, projectID string)
	SubmitShotUpdate(ctx context.Context, projectID, shotID, prompt, transition string)
	FetchShotList(ctx context.Context, projectID string)
	PollStatus(ctx context.Context, taskID string)
	Events() <-chan client.Event
}

// ProjectStore checkpoints project records to durable storage.
type ProjectStore interface {
	HandleFor(projectID string) string
	Save(handle string, project *model.Project) error
	Load(handle string) (*model.Project, error)
}

// AssetFetcher downloads generated assets to local disk.
type AssetFetcher interface {
	Download(ctx context.Context, assetURL, destPath string) error
}

// Emitter receives the orchestrator's outward events. Implementations must
// not block; the WebSocket hub satisfies this by handing messages to its own
// broadcast channel.
type Emitter interface {
	StoryboardReady(project *model.Project)
	ShotListUpdated(project *model.Project)
	ImageReady(projectID, shotID, imageURL string)
	VideoReady(projectID, videoURL string)
	CompilationProgress(ownerID string, percent int)
	GenerationFailed(message string)
}

// Orchestrator owns the task registry and the in-memory project record. A
// single goroutine (Run) processes gateway events, poll ticks and externally
// posted calls, so core state needs no locking.
type Orchestrator struct {
	jobs         JobClient
	store        ProjectStore
	assets       AssetFetcher
	emitter      Emitter
	baseURL      string
	pollInterval time.Duration
	now          func() time.Time

	registry      *registry
	project       *model.Project
	projectID     string
	projectHandle string

	forceShotListUpdate bool
	refreshProjectID    string

	calls  chan func()
	ticker *time.Ticker
	tickC  <-chan time.Time
	runCtx context.Context
}

// New creates an orchestrator. baseURL is the gateway base used to resolve
// relative resource paths; pollInterval is the shared poll timer period.
func New(jobs JobClient, store ProjectStore, assets AssetFetcher, emitter Emitter, baseURL string, pollInterval time.Duration) *Orchestrator {
	return &Orchestrator{
		jobs:         jobs,
		store:        store,
		assets:       assets,
		emitter:      emitter,
		baseURL:      strings.TrimRight(baseURL, "/"),
		pollInterval: pollInterval,
		now:          time.Now,
		registry:     newRegistry(),
		calls:        make(chan func()),
	}
}

// Run processes events until ctx is cancelled. It must be started exactly
// once; every other method is safe to call from any goroutine.
func (o *Orchestrator) Run(ctx context.Context) {
	o.runCtx = ctx
	log.Printf("[Orchestrator] Event loop started (poll interval %s)", o.pollInterval)

	for {
		select {
		case <-ctx.Done():
			o.stopPolling()
			return
		case ev := <-o.jobs.Events():
			o.handleEvent(ev)
		case <-o.tickC:
			o.pollAll()
		case fn := <-o.calls:
			fn()
		}
	}
}

// do posts fn onto the orchestrator goroutine.
func (o *Orchestrator) do(ctx context.Context, fn func()) error {
	select {
	case o.calls <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// --- pipeline entry operations ---

// GenerateStoryboard creates a new project from story text and starts the
// text generation stage. An empty projectName gets a timestamped default.
func (o *Orchestrator) GenerateStoryboard(ctx context.Context, storyText, style, projectName string) error {
	title := strings.TrimSpace(projectName)
	if title == "" {
		title = "New Story Project - " + o.now().Format("20060102_150405")
	}
	const description = "Project created from user supplied story text."

	return o.do(ctx, func() {
		o.jobs.SubmitTextGeneration(o.runCtx, storyText, style, title, description)
	})
}

// StartVideoCompilation submits video compilation for a project. Any
// leftover text or video task for the same project is evicted first so a
// stale attempt cannot race progress events against the new one.
func (o *Orchestrator) StartVideoCompilation(ctx context.Context, projectID string) error {
	return o.do(ctx, func() {
		o.evictProjectTasks(projectID)
		o.jobs.SubmitVideoCompilation(o.runCtx, projectID)
	})
}

// GenerateShotImage regenerates the image of a single shot.
func (o *Orchestrator) GenerateShotImage(ctx context.Context, projectID, shotID, prompt, transition string) error {
	return o.do(ctx, func() {
		target := projectID
		if target == "" {
			target = o.projectID
		}
		o.jobs.SubmitShotUpdate(o.runCtx, target, shotID, prompt, transition)
	})
}

// RefreshShots re-fetches the shot list for a project. The resulting update
// is always delivered as ShotListUpdated, even for a project that was not
// the current one.
func (o *Orchestrator) RefreshShots(ctx context.Context, projectID string) error {
	return o.do(ctx, func() {
		target := projectID
		if target == "" {
			target = o.projectID
		}
		if target == "" {
			o.emitter.GenerationFailed("cannot refresh shots: no project selected")
			return
		}
		o.forceShotListUpdate = true
		o.refreshProjectID = target
		o.jobs.FetchShotList(o.runCtx, target)
	})
}

// LoadProject loads an existing project document from a folder path and
// makes it the current project. folderPath must already be a clean
// filesystem path.
func (o *Orchestrator) LoadProject(ctx context.Context, folderPath string) (*model.Project, error) {
	type loadResult struct {
		project *model.Project
		err     error
	}
	reply := make(chan loadResult, 1)

	err := o.do(ctx, func() {
		project, err := o.store.Load(folderPath)
		if err != nil || project == nil {
			o.emitter.GenerationFailed("unable to load project data (project.json missing or invalid)")
			reply <- loadResult{nil, ErrProjectNotFound}
			return
		}
		o.project = project
		o.projectID = project.ID
		o.projectHandle = folderPath
		o.emitter.StoryboardReady(project.Clone())
		reply <- loadResult{project.Clone(), nil}
	})
	if err != nil {
		return nil, err
	}

	res := <-reply
	return res.project, res.err
}

// --- queries ---

// IsGenerationInProgress reports whether a video compilation task for the
// project is currently tracked.
func (o *Orchestrator) IsGenerationInProgress(ctx context.Context, projectID string) (bool, error) {
	reply := make(chan bool, 1)
	err := o.do(ctx, func() {
		found := false
		for _, t := range o.registry.all() {
			if t.Stage == model.StageVideo && t.OwnerID == projectID {
				found = true
				break
			}
		}
		reply <- found
	})
	if err != nil {
		return false, err
	}
	return <-reply, nil
}

// TrackedTasks returns a snapshot of all in-flight task records.
func (o *Orchestrator) TrackedTasks(ctx context.Context) ([]Task, error) {
	reply := make(chan []Task, 1)
	if err := o.do(ctx, func() { reply <- o.registry.all() }); err != nil {
		return nil, err
	}
	return <-reply, nil
}

// PollingActive reports whether the shared poll timer is running.
func (o *Orchestrator) PollingActive(ctx context.Context) (bool, error) {
	reply := make(chan bool, 1)
	if err := o.do(ctx, func() { reply <- o.tickC != nil }); err != nil {
		return false, err
	}
	return <-reply, nil
}

// VideoLocalPath returns the local path of the project's compiled video, or
// "" when no downloaded file exists. Reads only durable state, so it does
// not go through the event loop.
func (o *Orchestrator) VideoLocalPath(projectID string) string {
	handle := o.store.HandleFor(projectID)
	localPath := ""
	if project, err := o.store.Load(handle); err == nil && project != nil {
		localPath = project.VideoLocalPath
	}
	if localPath == "" {
		localPath = filepath.Join(handle, videoFileName)
	}
	if _, err := os.Stat(localPath); err == nil {
		return localPath
	}
	return ""
}

// --- event dispatch ---

func (o *Orchestrator) handleEvent(ev client.Event) {
	switch ev := ev.(type) {
	case client.TextTaskCreated:
		o.handleTextTaskCreated(ev)
	case client.TaskCreated:
		o.handleTaskCreated(ev)
	case client.ShotListReceived:
		o.materializeShotList(ev.ProjectID, ev.Shots)
	case client.TaskStatusReceived:
		o.handleTaskStatus(ev)
	case client.TaskResultReceived:
		o.handleTaskResult(ev)
	case client.TaskRequestFailed:
		o.handleTaskRequestFailed(ev)
	case client.NetworkError:
		log.Printf("[Orchestrator] Network error: %s", ev.Reason)
		o.emitter.GenerationFailed("network communication failed: " + ev.Reason)
	default:
		log.Printf("[Orchestrator] Unknown event %T, dropping", ev)
	}
}

// handleTextTaskCreated registers the text task and its dependent shot tasks
// and starts the poll timer.
func (o *Orchestrator) handleTextTaskCreated(ev client.TextTaskCreated) {
	log.Printf("[Orchestrator] Text task %s created for project %s (%d shot tasks)",
		ev.TextTaskID, ev.ProjectID, len(ev.ShotTaskIDs))

	o.projectID = ev.ProjectID
	o.registry.register(ev.TextTaskID, model.StageText, ev.ProjectID)
	for _, taskID := range ev.ShotTaskIDs {
		if taskID == "" || o.registry.contains(taskID) {
			continue
		}
		o.registry.register(taskID, model.StageShotList, ev.ProjectID)
	}
	o.startPolling()
}

// handleTaskCreated registers a shot-image or video task.
func (o *Orchestrator) handleTaskCreated(ev client.TaskCreated) {
	log.Printf("[Orchestrator] Task %s created (shot=%q)", ev.TaskID, ev.ShotID)

	if ev.ShotID == "" {
		owner := ev.ProjectID
		if owner == "" {
			owner = o.projectID
		}
		o.registry.register(ev.TaskID, model.StageVideo, owner)
	} else {
		o.registry.register(ev.TaskID, model.StageShotImage, ev.ShotID)
	}
	o.startPolling()
}

// handleTaskStatus forwards progress for project-level stages. Status
// updates never change the task's stage.
func (o *Orchestrator) handleTaskStatus(ev client.TaskStatusReceived) {
	if !o.registry.contains(ev.TaskID) {
		return
	}
	task, _ := o.registry.get(ev.TaskID)

	if task.Stage == model.StageText || task.Stage == model.StageVideo {
		o.emitter.CompilationProgress(task.OwnerID, ev.Progress)
	}
	log.Printf("[Orchestrator] Task %s status=%s progress=%d message=%q",
		ev.TaskID, ev.Status, ev.Progress, ev.Message)
}

// handleTaskResult routes a terminal result to its stage handler. Results
// for untracked tasks are expected after eviction races and are dropped.
func (o *Orchestrator) handleTaskResult(ev client.TaskResultReceived) {
	if !o.registry.contains(ev.TaskID) {
		log.Printf("ERROR: result for untracked task %s, dropping", ev.TaskID)
		return
	}
	task, ok := o.registry.get(ev.TaskID)
	if !ok {
		return
	}

	switch task.Stage {
	case model.StageText:
		o.completeTask(task.ID)
		o.jobs.FetchShotList(o.runCtx, task.OwnerID)

	case model.StageShotList:
		o.completeTask(task.ID)
		o.jobs.FetchShotList(o.runCtx, task.OwnerID)

	case model.StageShotImage:
		o.completeTask(task.ID)
		shotID := task.OwnerID
		if shotID == "" {
			shotID = ev.Result.ResolvedShotID()
		}
		if shotID == "" {
			log.Printf("[Orchestrator] Shot task %s finished without a shot id, refreshing shot list", task.ID)
			o.jobs.FetchShotList(o.runCtx, o.projectID)
			return
		}
		o.materializeImage(shotID, ev.Result)

	case model.StageVideo:
		o.materializeVideo(task.OwnerID, ev.Result)
		o.completeTask(task.ID)

	default:
		log.Printf("[Orchestrator] Task %s has unknown stage %q, dropping result", task.ID, task.Stage)
		o.completeTask(task.ID)
	}
}

// handleTaskRequestFailed implements retry-by-inaction: the task stays
// registered and is polled again on the next tick. Eviction is the only way
// a persistently failing task leaves the registry.
func (o *Orchestrator) handleTaskRequestFailed(ev client.TaskRequestFailed) {
	if !o.registry.contains(ev.TaskID) {
		return
	}
	log.Printf("[Orchestrator] Poll for task %s failed (will retry): %s", ev.TaskID, ev.Reason)
}

// --- registry and timer management ---

// completeTask removes a terminal task and stops the timer when nothing is
// left to poll.
func (o *Orchestrator) completeTask(taskID string) {
	o.registry.unregister(taskID)
	if o.registry.isEmpty() {
		o.stopPolling()
	}
}

// evictProjectTasks removes every text or video task owned by the project.
// This always removes matches, even ones that look legitimately in flight:
// last writer wins for a given project.
func (o *Orchestrator) evictProjectTasks(projectID string) {
	for _, task := range o.registry.all() {
		if task.OwnerID != projectID {
			continue
		}
		if task.Stage != model.StageText && task.Stage != model.StageVideo {
			continue
		}
		log.Printf("WARN: evicting zombie task %s (stage %s) for project %s", task.ID, task.Stage, projectID)
		o.registry.unregister(task.ID)
	}
	if o.registry.isEmpty() {
		o.stopPolling()
	}
}

// pollAll issues one status poll per tracked task. Runs on the shared timer;
// a tick that finds the registry empty stops the timer.
func (o *Orchestrator) pollAll() {
	if o.registry.isEmpty() {
		o.stopPolling()
		return
	}
	for _, taskID := range o.registry.allIDs() {
		o.jobs.PollStatus(o.runCtx, taskID)
	}
}

func (o *Orchestrator) startPolling() {
	if o.tickC != nil {
		return
	}
	o.ticker = time.NewTicker(o.pollInterval)
	o.tickC = o.ticker.C
	log.Printf("[Orchestrator] Poll timer started")
}

func (o *Orchestrator) stopPolling() {
	if o.ticker == nil {
		return
	}
	o.ticker.Stop()
	o.ticker = nil
	o.tickC = nil
	log.Printf("[Orchestrator] All tasks done, poll timer stopped")
}
