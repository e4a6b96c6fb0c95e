package anythingllm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, workspacesHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/docs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v1/workspaces", workspacesHandler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestCheckAvailability_Success(t *testing.T) {
	var gotAuth string
	server := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"workspaces": [
			{"slug": "other"},
			{"slug": "development", "chatMode": "chat", "agentProvider": "ollama",
			 "chatModel": "llama3", "agentModel": "qwen2"}
		]}`))
	})

	client := NewClient(server.URL, "test-key")
	available, config := client.CheckAvailability(context.Background(), "development")

	require.True(t, available)
	require.NotNil(t, config)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "llama3", config.ChatModel)
	assert.Equal(t, "qwen2", config.AgentModel)
	assert.Equal(t, "ollama", config.AgentProvider)
}

func TestCheckAvailability_WorkspaceNotFound(t *testing.T) {
	server := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"workspaces": [{"slug": "other"}]}`))
	})

	client := NewClient(server.URL, "test-key")
	available, config := client.CheckAvailability(context.Background(), "development")

	assert.False(t, available)
	assert.Nil(t, config)
}

func TestCheckAvailability_UnreachableBackend(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	// Must degrade to a negative signal, never an error or panic.
	client := NewClient(url, "test-key")
	available, config := client.CheckAvailability(context.Background(), "development")

	assert.False(t, available)
	assert.Nil(t, config)
}

func TestCheckAvailability_ProbeRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/docs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	available, config := client.CheckAvailability(context.Background(), "development")

	assert.False(t, available)
	assert.Nil(t, config)
}

func TestCheckAvailability_MalformedWorkspaces(t *testing.T) {
	server := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	client := NewClient(server.URL, "test-key")
	available, config := client.CheckAvailability(context.Background(), "development")

	assert.False(t, available)
	assert.Nil(t, config)
}

func chatBackend(t *testing.T, response string, status int, capture *chatPayload) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/workspace/development/chat", func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(response))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestGenerate_ModelAttributionPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		response string
		request  GenerationRequest
		want     string
	}{
		{
			name:     "metrics model wins over workspace default",
			response: `{"textResponse": "ok", "metrics": {"model": "A"}}`,
			request: GenerationRequest{
				Workspace: "development",
				Mode:      ModeChat,
				Config:    &WorkspaceConfig{ChatModel: "B"},
			},
			want: "A",
		},
		{
			name:     "body chatModel wins over workspace default",
			response: `{"textResponse": "ok", "chatModel": "A2"}`,
			request: GenerationRequest{
				Workspace: "development",
				Mode:      ModeChat,
				Config:    &WorkspaceConfig{ChatModel: "B"},
			},
			want: "A2",
		},
		{
			name:     "workspace chat default when backend is silent",
			response: `{"textResponse": "ok"}`,
			request: GenerationRequest{
				Workspace: "development",
				Mode:      ModeChat,
				Config:    &WorkspaceConfig{ChatModel: "B"},
			},
			want: "B",
		},
		{
			name:     "workspace agent default in agent mode",
			response: `{"textResponse": "ok"}`,
			request: GenerationRequest{
				Workspace: "development",
				Mode:      ModeAgent,
				Config:    &WorkspaceConfig{ChatModel: "B", AgentModel: "AG"},
			},
			want: "AG",
		},
		{
			name:     "explicit model as last resort before sentinel",
			response: `{"textResponse": "ok"}`,
			request: GenerationRequest{
				Workspace: "development",
				Mode:      ModeChat,
				Model:     "C",
			},
			want: "C",
		},
		{
			name:     "unknown sentinel when nothing is available",
			response: `{"textResponse": "ok"}`,
			request: GenerationRequest{
				Workspace: "development",
				Mode:      ModeChat,
			},
			want: UnknownModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := chatBackend(t, tt.response, http.StatusOK, nil)
			client := NewClient(server.URL, "test-key")

			result, err := client.Generate(context.Background(), tt.request)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.ModelUsed)
			assert.Equal(t, "ok", result.Text)
		})
	}
}

func TestGenerate_OutgoingModelSelection(t *testing.T) {
	tests := []struct {
		name    string
		request GenerationRequest
		want    string
	}{
		{
			name: "explicit model",
			request: GenerationRequest{
				Workspace: "development",
				Mode:      ModeChat,
				Model:     "explicit",
				Config:    &WorkspaceConfig{ChatModel: "ws-chat"},
			},
			want: "explicit",
		},
		{
			name: "workspace chat model",
			request: GenerationRequest{
				Workspace: "development",
				Mode:      ModeChat,
				Config:    &WorkspaceConfig{ChatModel: "ws-chat", AgentModel: "ws-agent"},
			},
			want: "ws-chat",
		},
		{
			name: "workspace agent model",
			request: GenerationRequest{
				Workspace: "development",
				Mode:      ModeAgent,
				Config:    &WorkspaceConfig{ChatModel: "ws-chat", AgentModel: "ws-agent"},
			},
			want: "ws-agent",
		},
		{
			name: "omitted so backend default applies",
			request: GenerationRequest{
				Workspace: "development",
				Mode:      ModeChat,
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload chatPayload
			server := chatBackend(t, `{"textResponse": "ok"}`, http.StatusOK, &payload)
			client := NewClient(server.URL, "test-key")

			_, err := client.Generate(context.Background(), tt.request)
			require.NoError(t, err)
			assert.Equal(t, tt.want, payload.Model)
		})
	}
}

func TestGenerate_BackendError(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		server := chatBackend(t, `{"message": "boom"}`, http.StatusInternalServerError, nil)
		client := NewClient(server.URL, "test-key")

		_, err := client.Generate(context.Background(), GenerationRequest{Workspace: "development", Mode: ModeChat})
		require.Error(t, err)

		var backendErr *BackendError
		require.ErrorAs(t, err, &backendErr)
		assert.Equal(t, http.StatusInternalServerError, backendErr.StatusCode)
		assert.Contains(t, backendErr.Body, "boom")
	})

	t.Run("unparseable body", func(t *testing.T) {
		server := chatBackend(t, `<html>not json</html>`, http.StatusOK, nil)
		client := NewClient(server.URL, "test-key")

		_, err := client.Generate(context.Background(), GenerationRequest{Workspace: "development", Mode: ModeChat})

		var backendErr *BackendError
		require.ErrorAs(t, err, &backendErr)
	})

	t.Run("transport failure", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()
		client := NewClient(url, "test-key")

		_, err := client.Generate(context.Background(), GenerationRequest{Workspace: "development", Mode: ModeChat})

		var backendErr *BackendError
		require.ErrorAs(t, err, &backendErr)
	})
}

func TestGenerate_SemanticError(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"string error field", `{"error": "model not loaded", "textResponse": "ignored"}`},
		{"bool error field", `{"error": true, "textResponse": "ignored"}`},
		{"null textResponse", `{"textResponse": null}`},
		{"missing textResponse", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := chatBackend(t, tt.response, http.StatusOK, nil)
			client := NewClient(server.URL, "test-key")

			_, err := client.Generate(context.Background(), GenerationRequest{Workspace: "development", Mode: ModeChat})

			var semanticErr *SemanticError
			require.ErrorAs(t, err, &semanticErr)
		})
	}
}

func TestGenerate_FalsyErrorFieldIsNotAnError(t *testing.T) {
	for _, response := range []string{
		`{"error": null, "textResponse": "ok"}`,
		`{"error": false, "textResponse": "ok"}`,
		`{"error": "", "textResponse": "ok"}`,
	} {
		server := chatBackend(t, response, http.StatusOK, nil)
		client := NewClient(server.URL, "test-key")

		result, err := client.Generate(context.Background(), GenerationRequest{Workspace: "development", Mode: ModeChat})
		require.NoError(t, err, response)
		assert.Equal(t, "ok", result.Text)
	}
}
