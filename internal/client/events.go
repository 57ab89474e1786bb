package client

import "github.com/storytovideo/companion/internal/model"

// Event is a lifecycle event emitted by the gateway client. All request
// outcomes are delivered as events on a single channel; no method returns a
// result directly.
type Event interface {
	isEvent()
}

// TextTaskCreated reports a newly created project with its text task and the
// dependent shot tasks.
type TextTaskCreated struct {
	ProjectID   string
	TextTaskID  string
	ShotTaskIDs []string
}

// TaskCreated reports a newly created shot-image or video task. ShotID is
// empty for video tasks.
type TaskCreated struct {
	TaskID    string
	ShotID    string
	ProjectID string
}

// ShotListReceived carries the current shot list of a project.
type ShotListReceived struct {
	ProjectID string
	Shots     []ShotPayload
}

// TaskStatusReceived is a non-terminal status poll result.
type TaskStatusReceived struct {
	TaskID   string
	Progress int
	Status   string
	Message  string
}

// TaskResultReceived is a terminal poll result with the task's payload.
type TaskResultReceived struct {
	TaskID string
	Result model.TaskResult
}

// TaskRequestFailed reports a failed poll: either a transport error or a
// server-reported task failure. The orchestrator keeps the task registered
// and retries on the next tick.
type TaskRequestFailed struct {
	TaskID string
	Reason string
}

// NetworkError reports a transport failure not tied to a single task.
type NetworkError struct {
	Reason string
}

func (TextTaskCreated) isEvent()    {}
func (TaskCreated) isEvent()        {}
func (ShotListReceived) isEvent()   {}
func (TaskStatusReceived) isEvent() {}
func (TaskResultReceived) isEvent() {}
func (TaskRequestFailed) isEvent()  {}
func (NetworkError) isEvent()       {}

// ShotPayload is the wire representation of a shot as returned by the
// gateway shot-list endpoint. Newer builds send imagePath, older ones
// image_path.
type ShotPayload struct {
	ID              string  `json:"id"`
	Order           int     `json:"order"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Prompt          string  `json:"prompt"`
	Narration       string  `json:"narration"`
	Transition      string  `json:"transition"`
	Duration        float64 `json:"duration"`
	Status          string  `json:"status"`
	ImagePath       string  `json:"imagePath"`
	LegacyImagePath string  `json:"image_path"`
}

// ResolvedImagePath returns the shot's image path, preferring the current
// field over the legacy one.
func (s ShotPayload) ResolvedImagePath() string {
	if s.ImagePath != "" {
		return s.ImagePath
	}
	return s.LegacyImagePath
}
