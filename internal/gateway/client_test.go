package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selimdilsadercan/iklim-chat-api/internal/model"
	"github.com/selimdilsadercan/iklim-chat-api/pkg/logger"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:   baseURL,
		APIKey:    "test-key",
		Timeout:   5 * time.Second,
		KeepAlive: 300,
	}, logger.NewNop())
	require.NoError(t, err)
	return c
}

func testWindow() []model.ChatEntry {
	return []model.ChatEntry{
		{Role: model.RoleSystem, Content: "sistem"},
		{Role: model.RoleUser, Content: "Merhaba"},
	}
}

func TestCompleteStreamConcatenatesFragmentsInOrder(t *testing.T) {
	lines := []string{
		`data: {"choices":[{"delta":{"content":"Tabii, "}}]}`,
		``,
		`data: {"choices":[{"delta":{"content":"nasıl "}}]}`,
		`{"choices":[{"message":{"content":"yardımcı olabilirim?"}}]}`,
		`data: [DONE]`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.Header.Get("Ngrok-Skip-Browser-Warning"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		assert.Equal(t, 300, req.KeepAlive)
		assert.Len(t, req.Messages, 2)

		for _, line := range lines {
			fmt.Fprintf(w, "%s\n", line)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	var fragments []string
	var indices []int
	text, err := c.CompleteStream(context.Background(), "llama3", testWindow(), func(fragment string, index int) error {
		fragments = append(fragments, fragment)
		indices = append(indices, index)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "Tabii, nasıl yardımcı olabilirim?", text)
	assert.Equal(t, []string{"Tabii, ", "nasıl ", "yardımcı olabilirim?"}, fragments)
	assert.Equal(t, []int{0, 1, 2}, indices)
}

func TestCompleteStreamSkipsMalformedRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":"önce"}}]}`)
		fmt.Fprintln(w, `this is not json`)
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":" sonra"}}]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	calls := 0
	text, err := c.CompleteStream(context.Background(), "llama3", testWindow(), func(string, int) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "önce sonra", text)
	assert.Equal(t, 2, calls)
}

func TestCompleteStreamLastLineWithoutNewline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":"a"}}]}`)
		// No trailing newline on the final record.
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"b"}}]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	text, err := c.CompleteStream(context.Background(), "llama3", testWindow(), func(string, int) error {
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ab", text)
}

func TestCompleteStreamTransportFailureMidStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":"kısmi"}}]}`)
		w.(http.Flusher).Flush()

		// Drop the connection without a terminal chunk.
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		conn.Close()
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	var fragments []string
	text, err := c.CompleteStream(context.Background(), "llama3", testWindow(), func(fragment string, _ int) error {
		fragments = append(fragments, fragment)
		return nil
	})

	require.Error(t, err)
	assert.Equal(t, "kısmi", text)
	assert.Equal(t, []string{"kısmi"}, fragments)
}

func TestCompleteStreamNon2xxStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	calls := 0
	_, err := c.CompleteStream(context.Background(), "llama3", testWindow(), func(string, int) error {
		calls++
		return nil
	})

	require.Error(t, err)
	assert.Equal(t, 0, calls)
}

func TestCompleteStreamCallbackErrorAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":"bir"}}]}`)
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":"iki"}}]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.CompleteStream(context.Background(), "llama3", testWindow(), func(string, int) error {
		return fmt.Errorf("client went away")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "client went away")
}

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "Merhaba!"}},
			},
			"done": true,
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	text, err := c.Complete(context.Background(), "llama3", testWindow())
	require.NoError(t, err)
	assert.Equal(t, "Merhaba!", text)
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.Complete(context.Background(), "llama3", testWindow())
	assert.ErrorIs(t, err, ErrNoChoices)
}
