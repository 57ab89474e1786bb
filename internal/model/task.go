package model

// Stage identifies the pipeline stage a remote task belongs to. The values
// match the task types used by the gateway.
type Stage string

const (
	StageText      Stage = "text_task"
	StageShotList  Stage = "shot_task"
	StageShotImage Stage = "shot"
	StageVideo     Stage = "video"
)

// Task status values reported by the gateway
const (
	TaskStatusPending    = "pending"
	TaskStatusBlocked    = "blocked"
	TaskStatusProcessing = "processing"
	TaskStatusFinished   = "finished"
	TaskStatusFailed     = "failed"
)

// TaskResult is the result payload of a finished gateway task.
type TaskResult struct {
	ResourceType string          `json:"resource_type,omitempty"`
	ResourceID   string          `json:"resource_id,omitempty"`
	ResourceURL  string          `json:"resource_url,omitempty"`
	ShotID       string          `json:"shot_id,omitempty"`
	ShotIDAlias  string          `json:"shotId,omitempty"`
	TaskVideo    TaskVideoResult `json:"task_video"`
}

// TaskVideoResult is the legacy nested result shape still produced by older
// gateway builds.
type TaskVideoResult struct {
	Path string `json:"path,omitempty"`
}

// ResourcePath extracts the generated resource path, preferring the
// resource_url field and falling back to the legacy task_video.path field.
// Returns "" when neither is set.
func (r TaskResult) ResourcePath() string {
	if r.ResourceURL != "" {
		return r.ResourceURL
	}
	return r.TaskVideo.Path
}

// ResolvedShotID returns the shot identifier carried in the result, checking
// shot_id before the shotId alias.
func (r TaskResult) ResolvedShotID() string {
	if r.ShotID != "" {
		return r.ShotID
	}
	return r.ShotIDAlias
}
