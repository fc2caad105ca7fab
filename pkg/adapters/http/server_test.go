package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/elicit/internal/testutils"
	elicithttp "github.com/aretw0/elicit/pkg/adapters/http"
	"github.com/aretw0/elicit/pkg/adapters/memory"
	"github.com/aretw0/elicit/pkg/domain"
	"github.com/aretw0/elicit/pkg/workflow"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	engine, err := workflow.New(memory.NewStore(), workflow.Collaborators{
		Generator:  &testutils.ScriptedGenerator{Rounds: [][]string{{"What is the goal?", "Any constraints?"}}},
		Structurer: &testutils.EchoStructurer{},
		Judge:      &testutils.StubJudge{Verdicts: []bool{true}},
		Answerer:   &testutils.StubAnswerer{Text: "the final answer"},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(elicithttp.NewHandler(engine, engine.Sessions()))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp, decoded
}

func TestServer_FullLifecycle(t *testing.T) {
	srv := newTestServer(t)

	// Create: the session suspends waiting for the user's choice.
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/sessions", map[string]any{
		"session_id": "http-1",
		"prompt":     "how do I plan this project?",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, string(domain.StatusSuspended), body["status"])

	payload, ok := body["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, domain.SuspendReasonChoice, payload["reason"])
	assert.NotEmpty(t, payload["message"])

	// Inspect while suspended.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/sessions/http-1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.NodeChoice, body["next_node"])
	assert.Equal(t, false, body["terminal"])
	assert.Equal(t, float64(2), body["questions_asked"])

	// Resume straight to the final answer.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/sessions/http-1/resume", map[string]any{
		"data": map[string]any{
			"choice": "final_answer",
			"answered_questions": []map[string]string{
				{"question": "What is the goal?", "answer": "ship fast"},
			},
		},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(domain.StatusCompleted), body["status"])
	assert.Equal(t, "the final answer", body["answer"])

	// Terminal sessions reject further resumes.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/sessions/http-1/resume", map[string]any{
		"data": map[string]any{"choice": "final_answer"},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// List, delete, then 404.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/sessions", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["sessions"], "http-1")

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/sessions/http-1", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/sessions/http-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_GeneratesSessionID(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/sessions", map[string]any{
		"prompt": "pick an id for me",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["session_id"])
}

func TestServer_ErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	// Empty prompt: 400.
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/sessions", map[string]any{
		"session_id": "bad-1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "prompt")

	// Unknown session: 404.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/sessions/ghost/resume", map[string]any{
		"data": map[string]any{"choice": "final_answer"},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Duplicate create: 409.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/sessions", map[string]any{
		"session_id": "dup-1", "prompt": "p",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/sessions", map[string]any{
		"session_id": "dup-1", "prompt": "p",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Invalid choice enum: 400 and the session stays resumable.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/sessions/dup-1/resume", map[string]any{
		"data": map[string]any{"choice": "maybe"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, respBody := doJSON(t, http.MethodPost, srv.URL+"/sessions/dup-1/resume", map[string]any{
		"data": map[string]any{"choice": "final_answer"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(domain.StatusCompleted), respBody["status"])
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}
