package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storytovideo/companion/internal/model"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := New(t.TempDir())
	handle := s.HandleFor("p1")

	project := &model.Project{
		ID:    "p1",
		Title: "A Brave Tale",
		Shots: []model.Shot{
			{ID: "s1", Order: 1, Title: "Opening", ImagePath: "/img/s1.png"},
			{ID: "s2", Order: 2, Title: "The Journey"},
		},
		VideoPath: "http://gw/v/p1.mp4",
	}

	require.NoError(t, s.Save(handle, project))

	loaded, err := s.Load(handle)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, project, loaded)

	// no temp file left behind
	_, err = os.Stat(filepath.Join(handle, DocumentName+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestLoad_MissingDocument(t *testing.T) {
	s := New(t.TempDir())

	loaded, err := s.Load(s.HandleFor("nope"))
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoad_InvalidDocument(t *testing.T) {
	s := New(t.TempDir())
	handle := s.HandleFor("p1")
	require.NoError(t, os.MkdirAll(handle, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(handle, DocumentName), []byte("{not json"), 0o644))

	loaded, err := s.Load(handle)
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestHandleFor_Deterministic(t *testing.T) {
	s := New("/data")

	assert.Equal(t, filepath.Join("/data", "Project_p1"), s.HandleFor("p1"))
	assert.Equal(t, s.HandleFor("p1"), s.HandleFor("p1"))
}

func TestProjectTitle(t *testing.T) {
	s := New(t.TempDir())
	handle := s.HandleFor("p1")

	// no document: folder name
	assert.Equal(t, "Project_p1", s.ProjectTitle(handle))

	require.NoError(t, s.Save(handle, &model.Project{ID: "p1"}))
	assert.Equal(t, "p1", s.ProjectTitle(handle))

	require.NoError(t, s.Save(handle, &model.Project{ID: "p1", Title: "Named"}))
	assert.Equal(t, "Named", s.ProjectTitle(handle))
}

func TestCleanFolderPath(t *testing.T) {
	assert.Equal(t, "/home/u/Movies/Project_p1", CleanFolderPath("file:///home/u/Movies/Project_p1"))
	assert.Equal(t, "/home/u/Movies/Project_p1", CleanFolderPath("/home/u/Movies/Project_p1"))
	assert.Equal(t, "C:/Users/u/Project_p1", CleanFolderPath("file:///C:/Users/u/Project_p1"))
	assert.Equal(t, "", CleanFolderPath(""))
}
