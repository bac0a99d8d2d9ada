// Package model defines data structures for the chat pipeline.
package model

import (
	"time"
)

// Role represents the role of a chat turn when talking to the
// completion gateway.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one persisted conversation message. Messages are immutable
// once created; the persistence collaborator assigns ID and CreatedAt.
type Message struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	PersonaID    string    `json:"persona_id"`
	PersonaIndex int       `json:"persona_index"`
	Text         string    `json:"text"`
	IsUser       bool      `json:"is_user"`
	CreatedAt    time.Time `json:"created_at"`
}

// Role maps the author flag to a gateway role.
func (m Message) Role() Role {
	if m.IsUser {
		return RoleUser
	}
	return RoleAssistant
}

// ChatEntry is one entry of a completion request window.
type ChatEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SendMessageRequest is the request body for sending a chat message.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// InitializeResponse is returned when a chat session is (re)opened.
type InitializeResponse struct {
	PersonaID string    `json:"persona_id"`
	Messages  []Message `json:"messages"`
	Welcomed  bool      `json:"welcomed"`
}

// ListMessagesResponse is the response for listing persisted history.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
}

// TokenEvent is one streamed fragment of an assistant reply.
type TokenEvent struct {
	Token string `json:"token"`
	Index int    `json:"index"`
}

// MessageCompleteEvent signals that the assistant reply finished and
// was persisted.
type MessageCompleteEvent struct {
	Message Message `json:"message"`
}

// ErrorEvent is sent on a stream when the pipeline failed.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
