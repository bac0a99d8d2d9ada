package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selimdilsadercan/iklim-chat-api/pkg/logger"
)

func TestRefreshModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		assert.Equal(t, "true", r.Header.Get("Ngrok-Skip-Browser-Warning"))
		fmt.Fprintln(w, `{"models":[{"name":"llama3:8b"},{"name":"mistral:7b"}]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	require.NoError(t, c.RefreshModels(context.Background()))
	assert.Equal(t, []string{"llama3:8b", "mistral:7b"}, c.Models())
}

func TestRefreshModelsErrorKeepsOldList(t *testing.T) {
	fail := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprintln(w, `{"models":[{"name":"llama3:8b"}]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.RefreshModels(context.Background()))

	fail = true
	require.Error(t, c.RefreshModels(context.Background()))
	assert.Equal(t, []string{"llama3:8b"}, c.Models())
}

func setAdvertised(c *Client, models []string) {
	c.mu.Lock()
	c.models = models
	c.mu.Unlock()
}

func TestSelectModelChain(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "http://unused", Timeout: time.Second}, logger.NewNop())
	require.NoError(t, err)

	tests := []struct {
		name         string
		advertised   []string
		preferred    string
		wantModel    string
		wantStrategy string
	}{
		{
			name:         "exact match wins",
			advertised:   []string{"mistral:7b", "llama3"},
			preferred:    "llama3",
			wantModel:    "llama3",
			wantStrategy: "exact",
		},
		{
			name:         "prefix on preferred name",
			advertised:   []string{"llama3:8b-instruct", "mistral:7b"},
			preferred:    "llama3",
			wantModel:    "llama3:8b-instruct",
			wantStrategy: "variant",
		},
		{
			name:         "alias table variant",
			advertised:   []string{"foo", "llama3.1"},
			preferred:    "llama3",
			wantModel:    "llama3.1",
			wantStrategy: "variant",
		},
		{
			name:         "first advertised fallback",
			advertised:   []string{"qwen2", "phi3"},
			preferred:    "llama3",
			wantModel:    "qwen2",
			wantStrategy: "first",
		},
		{
			name:         "hard default when list is empty",
			advertised:   nil,
			preferred:    "llama3",
			wantModel:    "llama3",
			wantStrategy: "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setAdvertised(c, tt.advertised)
			gotModel, gotStrategy := c.SelectModel(tt.preferred)
			assert.Equal(t, tt.wantModel, gotModel)
			assert.Equal(t, tt.wantStrategy, gotStrategy)
		})
	}
}
