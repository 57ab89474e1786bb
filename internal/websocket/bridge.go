package websocket

import (
	"encoding/json"
	"log"

	"github.com/storytovideo/companion/internal/model"
)

// EventBridge adapts orchestrator events onto the hub. Every method hands a
// marshaled message to the hub's broadcast channel, so callers never block on
// slow clients.
type EventBridge struct {
	hub *Hub
}

// NewEventBridge creates a bridge publishing to hub.
func NewEventBridge(hub *Hub) *EventBridge {
	return &EventBridge{hub: hub}
}

func (b *EventBridge) send(projectID string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[WS Bridge] Failed to marshal message: %v", err)
		return
	}
	b.hub.Broadcast(projectID, data)
}

// StoryboardReady announces a freshly created or loaded project.
func (b *EventBridge) StoryboardReady(project *model.Project) {
	b.send(project.ID, model.WSProjectMessage{
		Type:    model.WSMessageTypeStoryboardReady,
		Project: project,
	})
}

// ShotListUpdated announces an updated shot list for the project.
func (b *EventBridge) ShotListUpdated(project *model.Project) {
	b.send(project.ID, model.WSProjectMessage{
		Type:    model.WSMessageTypeShotListUpdated,
		Project: project,
	})
}

// ImageReady announces a regenerated shot image.
func (b *EventBridge) ImageReady(projectID, shotID, imageURL string) {
	b.send(projectID, model.WSImageMessage{
		Type:     model.WSMessageTypeImageReady,
		ShotID:   shotID,
		ImageURL: imageURL,
	})
}

// VideoReady announces a compiled video.
func (b *EventBridge) VideoReady(projectID, videoURL string) {
	b.send(projectID, model.WSVideoMessage{
		Type:      model.WSMessageTypeVideoReady,
		ProjectID: projectID,
		VideoURL:  videoURL,
	})
}

// CompilationProgress forwards a progress percentage for a project-level task.
func (b *EventBridge) CompilationProgress(ownerID string, percent int) {
	b.send(ownerID, model.WSProgressMessage{
		Type:     model.WSMessageTypeProgress,
		OwnerID:  ownerID,
		Progress: percent,
	})
}

// GenerationFailed reports a user-facing failure. Failures are not always
// attributable to a project, so they go to every connected client.
func (b *EventBridge) GenerationFailed(message string) {
	b.send("", model.WSErrorMessage{
		Type:  model.WSMessageTypeError,
		Error: message,
	})
}
