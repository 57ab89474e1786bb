package orchestrator

import (
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/storytovideo/companion/internal/client"
	"github.com/storytovideo/companion/internal/model"
)

// defaultProjectTitle is used until a shot list provides a better one.
const defaultProjectTitle = "New Story Project"

// materializeShotList converts a raw shot list into the canonical project
// record, emits it to the presentation layer and checkpoints it.
func (o *Orchestrator) materializeShotList(projectID string, shots []client.ShotPayload) {
	log.Printf("[Orchestrator] Shot list received for project %s (%d shots)", projectID, len(shots))

	processed := make([]model.Shot, 0, len(shots))
	for _, payload := range shots {
		shot := model.Shot{
			ID:          payload.ID,
			Order:       payload.Order,
			Title:       payload.Title,
			Description: payload.Description,
			Prompt:      payload.Prompt,
			Narration:   payload.Narration,
			Transition:  payload.Transition,
			Duration:    payload.Duration,
			Status:      payload.Status,
		}
		if path := payload.ResolvedImagePath(); path != "" {
			shot.ImagePath = path
			shot.ImageURL = o.resolveURL(path)
		}
		processed = append(processed, shot)
	}

	title := defaultProjectTitle
	if len(processed) > 0 && processed[0].Title != "" && processed[0].Title != "..." {
		title = processed[0].Title
	}

	record := &model.Project{ID: projectID, Title: title, Shots: processed}

	isInitial := o.project == nil || o.project.ID == "" || o.project.ID != projectID
	if !isInitial {
		// refresh of the current project keeps the compiled video paths
		record.VideoPath = o.project.VideoPath
		record.VideoLocalPath = o.project.VideoLocalPath
	}

	forced := o.forceShotListUpdate && (o.refreshProjectID == "" || o.refreshProjectID == projectID)
	switch {
	case forced:
		o.emitter.ShotListUpdated(record.Clone())
		o.forceShotListUpdate = false
		o.refreshProjectID = ""
	case isInitial:
		o.emitter.StoryboardReady(record.Clone())
	default:
		o.emitter.ShotListUpdated(record.Clone())
	}

	o.project = record
	o.projectID = projectID
	o.projectHandle = o.store.HandleFor(projectID)
	o.checkpoint()
}

// materializeImage applies a finished shot-image result to the matching shot
// record. The shot is matched by identifier equality; an unknown identifier
// is a logged no-op, never an insertion.
func (o *Orchestrator) materializeImage(shotID string, result model.TaskResult) {
	path := result.ResourcePath()
	if path == "" {
		log.Printf("[Orchestrator] Shot %s: result carries no resource path", shotID)
		o.emitter.GenerationFailed(fmt.Sprintf("shot %s: image generation returned no resource path", shotID))
		return
	}

	imageURL := appendCacheBuster(o.resolveURL(path), o.now())
	log.Printf("[Orchestrator] Shot %s image ready: %s", shotID, imageURL)
	o.emitter.ImageReady(o.projectID, shotID, imageURL)

	if o.project == nil {
		return
	}
	shot := o.project.ShotByID(shotID)
	if shot == nil {
		log.Printf("[Orchestrator] Shot %s not in project %s, skipping record update", shotID, o.project.ID)
		return
	}
	shot.ImagePath = path
	shot.ImageURL = imageURL
	o.checkpoint()
	o.emitter.ShotListUpdated(o.project.Clone())
}

// materializeVideo applies a finished video-compilation result: records the
// remote path, checkpoints, starts a best-effort local download and
// announces completion.
func (o *Orchestrator) materializeVideo(projectID string, result model.TaskResult) {
	path := result.ResourcePath()
	if path == "" {
		log.Printf("[Orchestrator] Video for project %s: result carries no resource path", projectID)
		o.emitter.GenerationFailed("video compilation failed: no resource path in result")
		return
	}

	videoURL := o.resolveURL(path)
	log.Printf("[Orchestrator] Video ready for project %s: %s", projectID, videoURL)

	if o.project != nil && o.project.ID == projectID {
		o.project.VideoPath = videoURL
		o.checkpoint()
	}

	o.downloadVideo(projectID, videoURL)

	o.emitter.CompilationProgress(projectID, 100)
	o.emitter.VideoReady(projectID, videoURL)
}

// downloadVideo saves the compiled video next to the project document.
// Download failure only skips recording a local path; the pipeline result
// stands.
func (o *Orchestrator) downloadVideo(projectID, videoURL string) {
	handle := o.projectHandle
	if handle == "" || o.project == nil || o.project.ID != projectID {
		handle = o.store.HandleFor(projectID)
	}
	dest := filepath.Join(handle, videoFileName)
	ctx := o.runCtx

	go func() {
		if err := o.assets.Download(ctx, videoURL, dest); err != nil {
			log.Printf("[Orchestrator] Video auto-save failed: %v", err)
			return
		}
		record := func() {
			if o.project == nil || o.project.ID != projectID {
				return
			}
			o.project.VideoLocalPath = dest
			o.checkpoint()
		}
		select {
		case o.calls <- record:
		case <-ctx.Done():
		}
	}()
}

// checkpoint saves the current project record. A failed save is logged and
// otherwise ignored: in-memory state stays authoritative for the session.
func (o *Orchestrator) checkpoint() {
	if o.project == nil || o.projectHandle == "" {
		return
	}
	if err := o.store.Save(o.projectHandle, o.project); err != nil {
		log.Printf("[Orchestrator] Checkpoint failed for %s: %v", o.projectHandle, err)
	}
}

// resolveURL turns a resource path into an absolute URL. Paths that already
// carry a scheme prefix are used as-is (case-insensitive); relative paths
// get the gateway base URL prepended.
func (o *Orchestrator) resolveURL(path string) string {
	if len(path) >= 4 && strings.EqualFold(path[:4], "http") {
		return path
	}
	return o.baseURL + path
}

// appendCacheBuster appends a timestamp query parameter so a regenerated
// image at the same path is not served stale from a cache.
func appendCacheBuster(rawURL string, now time.Time) string {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + "v=" + strconv.FormatInt(now.UnixMilli(), 10)
}
