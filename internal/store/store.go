// Package store persists project records as project.json documents, one
// folder per project under a configured root directory.
package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/storytovideo/companion/internal/model"
)

// DocumentName is the canonical filename of a project document.
const DocumentName = "project.json"

// Store reads and writes project documents. A storage handle is the absolute
// path of the project folder containing the document.
type Store struct {
	rootDir string
}

// New creates a store rooted at rootDir.
func New(rootDir string) *Store {
	return &Store{rootDir: rootDir}
}

// RootDir returns the configured root directory.
func (s *Store) RootDir() string {
	return s.rootDir
}

// HandleFor derives the storage handle for a project identifier. The
// derivation is deterministic: the same project always maps to the same
// folder.
func (s *Store) HandleFor(projectID string) string {
	return filepath.Join(s.rootDir, "Project_"+projectID)
}

// Save writes the project document under the given handle, creating the
// folder if needed. The document is written to a temp file and renamed so a
// concurrent reader never observes a partial write.
func (s *Store) Save(handle string, project *model.Project) error {
	dir := CleanFolderPath(handle)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create project folder: %w", err)
	}

	data, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}

	path := filepath.Join(dir, DocumentName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write project document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace project document: %w", err)
	}

	log.Printf("[Store] Project saved to %s", path)
	return nil
}

// Load reads the project document under the given handle. A missing or
// unparseable document yields (nil, nil): the caller treats it as "not found
// or invalid", matching the persistence contract.
func (s *Store) Load(handle string) (*model.Project, error) {
	path := filepath.Join(CleanFolderPath(handle), DocumentName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read project document: %w", err)
	}

	var project model.Project
	if err := json.Unmarshal(data, &project); err != nil {
		log.Printf("[Store] Invalid project document at %s: %v", path, err)
		return nil, nil
	}

	return &project, nil
}

// ProjectTitle returns a display title for the project stored under the
// given handle: the document title, falling back to the document id, falling
// back to the folder name.
func (s *Store) ProjectTitle(handle string) string {
	project, err := s.Load(handle)
	if err != nil || project == nil {
		return filepath.Base(CleanFolderPath(handle))
	}
	if project.Title != "" {
		return project.Title
	}
	if project.ID != "" {
		return project.ID
	}
	return filepath.Base(CleanFolderPath(handle))
}

// CleanFolderPath strips a file:// URL prefix from folder paths handed over
// by the presentation layer.
func CleanFolderPath(path string) string {
	if !strings.HasPrefix(path, "file://") {
		return path
	}
	cleaned := strings.TrimPrefix(path, "file://")
	// file:///C:/... on Windows keeps a leading slash before the drive letter
	if len(cleaned) >= 3 && cleaned[0] == '/' && cleaned[2] == ':' {
		cleaned = cleaned[1:]
	}
	return cleaned
}
