package model

// WebSocket message types
const (
	WSMessageTypeStoryboardReady = "storyboard_ready"
	WSMessageTypeShotListUpdated = "shot_list_updated"
	WSMessageTypeImageReady      = "image_ready"
	WSMessageTypeVideoReady      = "video_ready"
	WSMessageTypeProgress        = "compilation_progress"
	WSMessageTypeError           = "generation_failed"
	WSMessageTypePing            = "ping"
	WSMessageTypePong            = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProjectMessage carries a full project record (storyboard ready / updated)
type WSProjectMessage struct {
	Type    string   `json:"type"`
	Project *Project `json:"project"`
}

// WSImageMessage announces a regenerated shot image
type WSImageMessage struct {
	Type     string `json:"type"`
	ShotID   string `json:"shotId"`
	ImageURL string `json:"imageUrl"`
}

// WSVideoMessage announces a compiled video
type WSVideoMessage struct {
	Type      string `json:"type"`
	ProjectID string `json:"projectId"`
	VideoURL  string `json:"videoUrl"`
}

// WSProgressMessage represents a compilation progress update
type WSProgressMessage struct {
	Type     string `json:"type"`
	OwnerID  string `json:"ownerId"`
	Progress int    `json:"progress"`
}

// WSErrorMessage represents a user-facing generation failure
type WSErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
