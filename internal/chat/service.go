// Package chat orchestrates the streaming chat session pipeline:
// history loading, welcome seeding, send gating, stream accumulation
// and persistence.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/selimdilsadercan/iklim-chat-api/internal/gateway"
	"github.com/selimdilsadercan/iklim-chat-api/internal/history"
	"github.com/selimdilsadercan/iklim-chat-api/internal/model"
	"github.com/selimdilsadercan/iklim-chat-api/internal/persona"
	"github.com/selimdilsadercan/iklim-chat-api/internal/store"
	"github.com/selimdilsadercan/iklim-chat-api/pkg/logger"
	"github.com/selimdilsadercan/iklim-chat-api/pkg/metrics"
)

// ApologyText is the fixed user-facing text shown whenever the
// completion gateway fails. The UI must always reach a terminal,
// renderable state, so this is delivered instead of an error.
const ApologyText = "Üzgünüm, şu anda cevap veremiyorum. Lütfen biraz sonra tekrar dener misin? 🙏"

var (
	// ErrEmptyMessage is returned when the user text is blank.
	ErrEmptyMessage = errors.New("message text is empty")

	// ErrSessionBusy is returned when a send is already in flight for
	// the session.
	ErrSessionBusy = errors.New("a send is already in flight for this session")
)

// Completer is the completion gateway surface the orchestrator needs.
type Completer interface {
	CompleteStream(ctx context.Context, personaModel string, msgs []model.ChatEntry, callback gateway.FragmentCallback) (string, error)
}

// EventPublisher fans persisted messages out to the dashboards.
// Publishing is best effort; failures never affect the send path.
type EventPublisher interface {
	PublishMessage(ctx context.Context, msg model.Message) (uint64, error)
}

type sessionKey struct {
	userID    string
	personaID string
}

// Service coordinates the chat pipeline for all sessions.
type Service struct {
	store    store.Store
	gateway  Completer
	sessions *history.SessionStore
	events   EventPublisher
	logger   *logger.Logger

	mu       sync.Mutex
	inflight map[sessionKey]bool
}

// NewService creates the chat orchestrator. events may be nil when no
// dashboard fan-out is configured.
func NewService(st store.Store, gw Completer, sessions *history.SessionStore, events EventPublisher, log *logger.Logger) *Service {
	return &Service{
		store:    st,
		gateway:  gw,
		sessions: sessions,
		events:   events,
		logger:   log,
		inflight: make(map[sessionKey]bool),
	}
}

// Initialize resets the session window, loads persisted history and
// seeds a welcome message when the conversation is empty. Calling it
// again for a pair with history never creates a second welcome.
func (s *Service) Initialize(ctx context.Context, userID, personaID string) (*model.InitializeResponse, error) {
	p, err := persona.Get(personaID)
	if err != nil {
		return nil, err
	}

	s.sessions.Reset(userID, personaID)

	log := s.logger.WithSession(userID, personaID)

	msgs, err := s.store.LoadHistory(ctx, userID, p.Index)
	if err != nil {
		// Transport errors surface as an empty conversation; the
		// welcome path below still persists through the same store.
		log.Warn("loading history failed, treating as empty", zap.Error(err))
		msgs = nil
	}
	for i := range msgs {
		msgs[i].PersonaID = personaID
	}

	welcomed := false
	if len(msgs) == 0 {
		welcome, err := s.store.AppendMessage(ctx, userID, p.Index, p.WelcomeMsg, false)
		if err != nil {
			metrics.PersistenceFailuresTotal.WithLabelValues("welcome").Inc()
			log.Warn("persisting welcome message failed", zap.Error(err))
		} else {
			welcome.PersonaID = personaID
			msgs = append(msgs, welcome)
			welcomed = true
			metrics.MessagesTotal.WithLabelValues(personaID, "assistant").Inc()
			s.publish(ctx, welcome)
		}
	}

	return &model.InitializeResponse{
		PersonaID: personaID,
		Messages:  msgs,
		Welcomed:  welcomed,
	}, nil
}

// History returns the persisted conversation for the session.
func (s *Service) History(ctx context.Context, userID, personaID string) ([]model.Message, error) {
	p, err := persona.Get(personaID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.LoadHistory(ctx, userID, p.Index)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i].PersonaID = personaID
	}
	return msgs, nil
}

// Send persists the user message, streams the assistant reply through
// onFragment and persists the accumulated result. The user message is
// persisted and appended to the window strictly before the completion
// request is issued. At most one send per session may be in flight.
func (s *Service) Send(ctx context.Context, userID, personaID, text string, onFragment gateway.FragmentCallback) (model.Message, error) {
	p, err := persona.Get(personaID)
	if err != nil {
		return model.Message{}, err
	}
	if strings.TrimSpace(text) == "" {
		return model.Message{}, ErrEmptyMessage
	}

	key := sessionKey{userID, personaID}
	s.mu.Lock()
	if s.inflight[key] {
		s.mu.Unlock()
		return model.Message{}, ErrSessionBusy
	}
	s.inflight[key] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inflight, key)
		s.mu.Unlock()
	}()

	log := s.logger.WithSession(userID, personaID)

	userMsg, err := s.store.AppendMessage(ctx, userID, p.Index, text, true)
	if err != nil {
		metrics.PersistenceFailuresTotal.WithLabelValues("user_message").Inc()
		log.Error("persisting user message failed", zap.Error(err))
		return model.Message{}, err
	}
	userMsg.PersonaID = personaID
	metrics.MessagesTotal.WithLabelValues(personaID, "user").Inc()
	s.publish(ctx, userMsg)

	s.sessions.Append(userID, personaID, model.RoleUser, text)
	window := s.sessions.Window(userID, personaID, p.System)

	delivered := 0
	replyText, err := s.gateway.CompleteStream(ctx, p.Model, window, func(fragment string, index int) error {
		delivered = index + 1
		return onFragment(fragment, index)
	})
	if err != nil {
		log.Error("completion stream failed", zap.Error(err))
		replyText = ApologyText
		if cbErr := onFragment(ApologyText, delivered); cbErr != nil {
			log.Warn("delivering apology fragment failed", zap.Error(cbErr))
		}
	}

	botMsg, err := s.store.AppendMessage(ctx, userID, p.Index, replyText, false)
	if err != nil {
		metrics.PersistenceFailuresTotal.WithLabelValues("assistant_message").Inc()
		log.Error("persisting assistant message failed", zap.Error(err))
		// The reply was already shown; keep the session consistent and
		// hand back an unpersisted message.
		botMsg = model.Message{
			UserID:       userID,
			PersonaIndex: p.Index,
			Text:         replyText,
			IsUser:       false,
		}
	} else {
		metrics.MessagesTotal.WithLabelValues(personaID, "assistant").Inc()
		s.publish(ctx, botMsg)
	}
	botMsg.PersonaID = personaID

	s.sessions.Append(userID, personaID, model.RoleAssistant, replyText)

	return botMsg, nil
}

// WindowLen reports how many turns the live session window holds.
func (s *Service) WindowLen(userID, personaID string) int {
	return s.sessions.Len(userID, personaID)
}

func (s *Service) publish(ctx context.Context, msg model.Message) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishMessage(ctx, msg); err != nil {
		s.logger.Warn("publishing message event failed",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	}
}
