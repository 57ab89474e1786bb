package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storytovideo/companion/internal/config"
	"github.com/storytovideo/companion/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) *GatewayClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGatewayClient(&config.APIConfig{BaseURL: srv.URL + "/", TimeoutSeconds: 5})
}

func nextEvent(t *testing.T, c *GatewayClient) Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return nil
	}
}

func TestSubmitTextGeneration_EmitsTextTaskCreated(t *testing.T) {
	var gotQuery map[string]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/api/projects", r.URL.Path)
		gotQuery = map[string]string{
			"Title":     r.URL.Query().Get("Title"),
			"StoryText": r.URL.Query().Get("StoryText"),
			"Style":     r.URL.Query().Get("Style"),
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"project_id":    "p1",
			"text_task_id":  "tt1",
			"shot_task_ids": []string{"st1", "st2"},
		})
	}))

	c.SubmitTextGeneration(context.Background(), "once upon a time", "noir", "My Film", "desc")

	ev := nextEvent(t, c)
	created, ok := ev.(TextTaskCreated)
	require.True(t, ok, "expected TextTaskCreated, got %T", ev)
	assert.Equal(t, "p1", created.ProjectID)
	assert.Equal(t, "tt1", created.TextTaskID)
	assert.Equal(t, []string{"st1", "st2"}, created.ShotTaskIDs)
	assert.Equal(t, "My Film", gotQuery["Title"])
	assert.Equal(t, "once upon a time", gotQuery["StoryText"])
	assert.Equal(t, "noir", gotQuery["Style"])
}

func TestSubmitTextGeneration_ServerErrorEmitsNetworkError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	c.SubmitTextGeneration(context.Background(), "story", "", "t", "d")

	ev := nextEvent(t, c)
	_, ok := ev.(NetworkError)
	assert.True(t, ok, "expected NetworkError, got %T", ev)
}

func TestSubmitVideoCompilation_EmitsTaskCreated(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/api/projects/p1/video", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"task_id": "tv1"})
	}))

	c.SubmitVideoCompilation(context.Background(), "p1")

	ev := nextEvent(t, c)
	created, ok := ev.(TaskCreated)
	require.True(t, ok, "expected TaskCreated, got %T", ev)
	assert.Equal(t, "tv1", created.TaskID)
	assert.Equal(t, "", created.ShotID)
	assert.Equal(t, "p1", created.ProjectID)
}

func TestSubmitShotUpdate_FillsMissingShotID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/api/projects/p1/shots/s1", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "castle at dusk", body["prompt"])

		// older gateway builds omit shot_id in the response
		json.NewEncoder(w).Encode(map[string]string{"task_id": "ti1"})
	}))

	c.SubmitShotUpdate(context.Background(), "p1", "s1", "castle at dusk", "fade")

	ev := nextEvent(t, c)
	created, ok := ev.(TaskCreated)
	require.True(t, ok, "expected TaskCreated, got %T", ev)
	assert.Equal(t, "ti1", created.TaskID)
	assert.Equal(t, "s1", created.ShotID)
}

func TestFetchShotList_EmitsShotListReceived(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/api/projects/p1/shots", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"shots": []map[string]interface{}{
				{"id": "s1", "order": 1, "title": "Opening", "imagePath": "/img/s1.png"},
				{"id": "s2", "order": 2, "image_path": "/img/s2.png"},
			},
		})
	}))

	c.FetchShotList(context.Background(), "p1")

	ev := nextEvent(t, c)
	received, ok := ev.(ShotListReceived)
	require.True(t, ok, "expected ShotListReceived, got %T", ev)
	assert.Equal(t, "p1", received.ProjectID)
	require.Len(t, received.Shots, 2)
	assert.Equal(t, "/img/s1.png", received.Shots[0].ResolvedImagePath())
	assert.Equal(t, "/img/s2.png", received.Shots[1].ResolvedImagePath())
}

func TestPollStatus_NonTerminal(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/api/tasks/tt1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"task": map[string]interface{}{
				"id": "tt1", "status": model.TaskStatusProcessing, "progress": 42, "message": "working",
			},
		})
	}))

	c.PollStatus(context.Background(), "tt1")

	ev := nextEvent(t, c)
	status, ok := ev.(TaskStatusReceived)
	require.True(t, ok, "expected TaskStatusReceived, got %T", ev)
	assert.Equal(t, "tt1", status.TaskID)
	assert.Equal(t, 42, status.Progress)
	assert.Equal(t, model.TaskStatusProcessing, status.Status)
	assert.Equal(t, "working", status.Message)
}

func TestPollStatus_FinishedMergesShotID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"task": map[string]interface{}{
				"id": "ti1", "shot_id": "s1", "status": model.TaskStatusFinished,
				"result": map[string]interface{}{"resource_url": "/img/s1.png"},
			},
		})
	}))

	c.PollStatus(context.Background(), "ti1")

	ev := nextEvent(t, c)
	result, ok := ev.(TaskResultReceived)
	require.True(t, ok, "expected TaskResultReceived, got %T", ev)
	assert.Equal(t, "ti1", result.TaskID)
	assert.Equal(t, "/img/s1.png", result.Result.ResourcePath())
	// shot id from the task envelope backfills the result
	assert.Equal(t, "s1", result.Result.ResolvedShotID())
}

func TestPollStatus_FinishedWithoutResult(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"task": map[string]interface{}{"id": "tt1", "status": model.TaskStatusFinished},
		})
	}))

	c.PollStatus(context.Background(), "tt1")

	ev := nextEvent(t, c)
	result, ok := ev.(TaskResultReceived)
	require.True(t, ok, "expected TaskResultReceived, got %T", ev)
	assert.Equal(t, "", result.Result.ResourcePath())
}

func TestPollStatus_FailedTask(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"task": map[string]interface{}{"id": "tt1", "status": model.TaskStatusFailed, "message": "gpu on fire"},
		})
	}))

	c.PollStatus(context.Background(), "tt1")

	ev := nextEvent(t, c)
	failed, ok := ev.(TaskRequestFailed)
	require.True(t, ok, "expected TaskRequestFailed, got %T", ev)
	assert.Equal(t, "gpu on fire", failed.Reason)
}

func TestPollStatus_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on
	c := NewGatewayClient(&config.APIConfig{BaseURL: srv.URL, TimeoutSeconds: 1})

	c.PollStatus(context.Background(), "tt1")

	ev := nextEvent(t, c)
	failed, ok := ev.(TaskRequestFailed)
	require.True(t, ok, "expected TaskRequestFailed, got %T", ev)
	assert.Equal(t, "tt1", failed.TaskID)
	assert.NotEmpty(t, failed.Reason)
}
