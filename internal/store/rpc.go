package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/selimdilsadercan/iklim-chat-api/internal/model"
)

const (
	rpcLoadPath   = "/rest/v1/rpc/load_chat_messages"
	rpcInsertPath = "/rest/v1/rpc/insert_chat_message"
)

// rpcStore talks to the hosted backend's RPC functions over HTTP.
type rpcStore struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

// NewRPCStore creates a Store backed by the hosted backend's remote
// procedure calls.
func NewRPCStore(baseURL, apiKey string) (Store, error) {
	if baseURL == "" {
		return nil, errors.New("RPC base URL is required")
	}
	return &rpcStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		hc:      &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type rpcMessageRow struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	PersonaIndex int       `json:"persona_index"`
	Text         string    `json:"text"`
	IsUser       bool      `json:"is_user"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *rpcStore) LoadHistory(ctx context.Context, userID string, personaIndex int) ([]model.Message, error) {
	payload := map[string]any{
		"p_user_id":       userID,
		"p_persona_index": personaIndex,
	}

	var rows []rpcMessageRow
	if err := s.call(ctx, rpcLoadPath, payload, &rows); err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	msgs := make([]model.Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, model.Message{
			ID:           r.ID,
			UserID:       r.UserID,
			PersonaIndex: r.PersonaIndex,
			Text:         r.Text,
			IsUser:       r.IsUser,
			CreatedAt:    r.CreatedAt,
		})
	}
	return msgs, nil
}

type rpcInsertResult struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *rpcStore) AppendMessage(ctx context.Context, userID string, personaIndex int, text string, isUser bool) (model.Message, error) {
	payload := map[string]any{
		"p_user_id":       userID,
		"p_persona_index": personaIndex,
		"p_text":          text,
		"p_is_user":       isUser,
	}

	var result rpcInsertResult
	if err := s.call(ctx, rpcInsertPath, payload, &result); err != nil {
		return model.Message{}, fmt.Errorf("%w: %v", ErrNotPersisted, err)
	}

	return model.Message{
		ID:           result.ID,
		UserID:       userID,
		PersonaIndex: personaIndex,
		Text:         text,
		IsUser:       isUser,
		CreatedAt:    result.CreatedAt,
	}, nil
}

func (s *rpcStore) Close() error {
	s.hc.CloseIdleConnections()
	return nil
}

func (s *rpcStore) call(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling RPC payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating RPC request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.hc.Do(req)
	if err != nil {
		return fmt.Errorf("executing RPC request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status code %d from %s: %s", resp.StatusCode, path, respBody)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding RPC response: %w", err)
	}
	return nil
}
