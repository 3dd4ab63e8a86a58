package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harun/switchboard/pkg/checkpoint"
	"github.com/harun/switchboard/pkg/router"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine echoes input back as an assistant reply
type fakeEngine struct {
	err      error
	requests []router.TurnRequest
}

func (f *fakeEngine) Turn(ctx context.Context, req router.TurnRequest) (*router.TurnResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}

	threadID := req.ThreadID
	if threadID == "" {
		threadID = "thread-new"
	}
	return &router.TurnResult{
		ThreadID: threadID,
		Node:     router.NodeHuman,
		Delta: []checkpoint.Message{
			{ID: "u", Role: checkpoint.RoleUser, Content: req.Input},
			{ID: "a", Role: checkpoint.RoleAssistant, Content: "echo: " + req.Input},
		},
	}, nil
}

func newTestServer(t *testing.T, engine TurnRunner, secret string) *httptest.Server {
	t.Helper()
	srv, err := NewServer(Config{
		Port:         8790,
		SharedSecret: secret,
		Engine:       engine,
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postTurn(t *testing.T, ts *httptest.Server, secret string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/turns", bytes.NewReader(data))
	require.NoError(t, err)
	if secret != "" {
		req.Header.Set("X-Switchboard-Secret", secret)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestServer_Turn(t *testing.T) {
	engine := &fakeEngine{}
	ts := newTestServer(t, engine, "")

	resp := postTurn(t, ts, "", router.TurnRequest{
		TenantID: "t1", UserID: "u1", Input: "hello",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result router.TurnResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "thread-new", result.ThreadID)
	assert.Equal(t, router.NodeHuman, result.Node)
	require.Len(t, result.Delta, 2)
	assert.Equal(t, "echo: hello", result.Delta[1].Content)
}

func TestServer_TurnValidation(t *testing.T) {
	ts := newTestServer(t, &fakeEngine{}, "")

	resp := postTurn(t, ts, "", map[string]string{"tenant_id": "t1", "user_id": "u1"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	getResp, err := http.Get(ts.URL + "/v1/turns")
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, getResp.StatusCode)
}

func TestServer_TurnAuth(t *testing.T) {
	ts := newTestServer(t, &fakeEngine{}, "s3cret")

	resp := postTurn(t, ts, "", router.TurnRequest{TenantID: "t1", UserID: "u1", Input: "hi"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postTurn(t, ts, "s3cret", router.TurnRequest{TenantID: "t1", UserID: "u1", Input: "hi"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_TurnErrorStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"storage", &router.StorageUnavailableError{Op: "checkpoint save", Err: errors.New("disk full")}, http.StatusServiceUnavailable},
		{"transition", &router.InvalidTransitionError{From: router.NodeRefunds, To: router.NodeProduct}, http.StatusUnprocessableEntity},
		{"loop", &router.RoutingLoopError{ThreadID: "t", Limit: 10}, http.StatusUnprocessableEntity},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, &fakeEngine{err: tc.err}, "")
			resp := postTurn(t, ts, "", router.TurnRequest{TenantID: "t1", UserID: "u1", Input: "hi"})
			defer resp.Body.Close()
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestServer_Healthz(t *testing.T) {
	ts := newTestServer(t, &fakeEngine{}, "")

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	ts := newTestServer(t, &fakeEngine{}, "")

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ChatHoldsThread(t *testing.T) {
	engine := &fakeEngine{}
	ts := newTestServer(t, engine, "")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/chat"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	require.NoError(t, conn.WriteJSON(chatInbound{Input: "first"}))
	var out chatOutbound
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, "thread-new", out.ThreadID)
	assert.Empty(t, out.Error)

	require.NoError(t, conn.WriteJSON(chatInbound{Input: "second"}))
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, "thread-new", out.ThreadID)

	// The second turn reused the thread from the first.
	require.Len(t, engine.requests, 2)
	assert.Empty(t, engine.requests[0].ThreadID)
	assert.Equal(t, "thread-new", engine.requests[1].ThreadID)
	assert.True(t, engine.requests[1].Interactive)
	assert.Equal(t, "cli-test", engine.requests[1].TenantID)
}

func TestServer_ChatRejectsEmptyInput(t *testing.T) {
	ts := newTestServer(t, &fakeEngine{}, "")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/chat"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	require.NoError(t, conn.WriteJSON(chatInbound{}))
	var out chatOutbound
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, "input is required", out.Error)
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer(Config{Port: 0, Engine: &fakeEngine{}})
	assert.Error(t, err, "bad port")

	_, err = NewServer(Config{Port: 8790})
	assert.Error(t, err, "missing engine")
}
