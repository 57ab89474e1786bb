package model

// GenerateStoryboardRequest starts the text generation stage for a new project
type GenerateStoryboardRequest struct {
	StoryText   string `json:"storyText" validate:"required"`
	Style       string `json:"style"`
	ProjectName string `json:"projectName"`
}

// ShotImageRequest regenerates the image of a single shot
type ShotImageRequest struct {
	Prompt     string `json:"prompt" validate:"required"`
	Transition string `json:"transition"`
}

// LoadProjectRequest loads an existing project document from disk
type LoadProjectRequest struct {
	Path string `json:"path" validate:"required"`
}
