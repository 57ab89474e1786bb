package model

// Shot represents a single storyboard shot within a project
type Shot struct {
	ID          string  `json:"id"`
	Order       int     `json:"order"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Prompt      string  `json:"prompt,omitempty"`
	Narration   string  `json:"narration,omitempty"`
	Transition  string  `json:"transition,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
	Status      string  `json:"status,omitempty"`
	ImagePath   string  `json:"imagePath,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
}

// Project is the canonical in-memory project record. It is persisted verbatim
// as the project.json document.
type Project struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Shots          []Shot `json:"shots"`
	VideoPath      string `json:"videoPath,omitempty"`
	VideoLocalPath string `json:"videoLocalPath,omitempty"`
}

// ShotByID returns the shot with the given identifier, or nil. Shots are
// matched by identifier equality, never by position.
func (p *Project) ShotByID(shotID string) *Shot {
	for i := range p.Shots {
		if p.Shots[i].ID == shotID {
			return &p.Shots[i]
		}
	}
	return nil
}

// Clone returns a deep copy safe to hand to another goroutine.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Shots = make([]Shot, len(p.Shots))
	copy(cp.Shots, p.Shots)
	return &cp
}
