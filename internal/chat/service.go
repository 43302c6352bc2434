// Package chat implements message delivery and conversation aggregation.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/storage"
)

// ErrEmptyText reports a message whose text is empty after trimming
var ErrEmptyText = errors.New("message text is empty")

// Store is the subset of the message store the service depends on
type Store interface {
	CreateMessage(ctx context.Context, senderID, receiverID int64, text string) (storage.Message, error)
	MessagesBetween(ctx context.Context, selfID, otherID int64) ([]storage.Message, error)
	MessagesInvolving(ctx context.Context, selfID int64) ([]storage.Message, error)
}

// Notifier delivers a best-effort real-time notification for a persisted
// message. A missing channel is not an error; implementations report only
// push failures.
type Notifier interface {
	NewMessage(receiverID int64, msg storage.Message) error
}

// Conversation is a derived view: the most recent message exchanged with
// one partner. It is recomputed on every read and never stored.
type Conversation struct {
	User        storage.UserRef `json:"user"`
	LastMessage string          `json:"lastMessage"`
	LastAt      time.Time       `json:"lastAt"`
}

// Service validates and persists direct messages and derives conversation
// lists from the store
type Service struct {
	logger   *zap.SugaredLogger
	store    Store
	notifier Notifier
}

func NewService(logger *zap.SugaredLogger, store Store, notifier Notifier) *Service {
	return &Service{
		logger:   logger,
		store:    store,
		notifier: notifier,
	}
}

// Send trims and persists a message, then notifies the receiver's channel
// if one is bound. The message is durably stored before the notification
// is attempted and a failed push never fails the send.
func (s *Service) Send(ctx context.Context, senderID, receiverID int64, text string) (storage.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return storage.Message{}, ErrEmptyText
	}

	msg, err := s.store.CreateMessage(ctx, senderID, receiverID, text)
	if err != nil {
		return storage.Message{}, err
	}

	if err := s.notifier.NewMessage(receiverID, msg); err != nil {
		s.logger.Warnf("real-time notification for message %d dropped: %v", msg.ID, err)
	}

	return msg, nil
}

// ListMessages returns the full history with other in chronological reading
// order (oldest first)
func (s *Service) ListMessages(ctx context.Context, selfID, otherID int64) ([]storage.Message, error) {
	return s.store.MessagesBetween(ctx, selfID, otherID)
}

// ListConversations derives the conversation list for self from a snapshot
// read of its messages. An empty history yields an empty list, not an error.
func (s *Service) ListConversations(ctx context.Context, selfID int64) ([]Conversation, error) {
	msgs, err := s.store.MessagesInvolving(ctx, selfID)
	if err != nil {
		return nil, err
	}

	return Aggregate(selfID, msgs), nil
}

// Aggregate reduces a newest-first message scan to exactly one conversation
// per distinct partner, first seen wins. The result is ordered by most
// recent contact. Pure over its inputs so a cache can later sit behind the
// same contract.
func Aggregate(selfID int64, msgs []storage.Message) []Conversation {
	seen := make(map[int64]struct{}, len(msgs))
	conversations := make([]Conversation, 0, len(msgs))

	for _, m := range msgs {
		other := m.Sender
		if m.Sender.ID == selfID {
			other = m.Receiver
		}
		if _, ok := seen[other.ID]; ok {
			continue
		}
		seen[other.ID] = struct{}{}
		conversations = append(conversations, Conversation{
			User:        other,
			LastMessage: m.Text,
			LastAt:      m.CreatedAt,
		})
	}

	return conversations
}
