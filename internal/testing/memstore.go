package testing

import (
	"context"
	"sync"
	"time"

	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/storage"
)

// MemStore is an in-memory message store used to exercise the delivery and
// aggregation paths without a database. Timestamps are strictly increasing
// in creation order.
type MemStore struct {
	mu       sync.Mutex
	users    map[int64]storage.UserRef
	messages []storage.Message
	nextID   int64
	base     time.Time
}

func NewMemStore(users ...storage.UserRef) *MemStore {
	s := &MemStore{
		users: make(map[int64]storage.UserRef, len(users)),
		base:  time.Now(),
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *MemStore) CreateMessage(_ context.Context, senderID, receiverID int64, text string) (storage.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, ok := s.users[senderID]
	if !ok {
		return storage.Message{}, storage.ErrUserNotExist
	}
	receiver, ok := s.users[receiverID]
	if !ok {
		return storage.Message{}, storage.ErrUserNotExist
	}

	s.nextID++
	m := storage.Message{
		ID:        s.nextID,
		Sender:    sender,
		Receiver:  receiver,
		Text:      text,
		CreatedAt: s.base.Add(time.Duration(s.nextID) * time.Millisecond),
	}
	s.messages = append(s.messages, m)

	return m, nil
}

func (s *MemStore) MessagesBetween(_ context.Context, selfID, otherID int64) ([]storage.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []storage.Message
	for _, m := range s.messages {
		if (m.Sender.ID == selfID && m.Receiver.ID == otherID) ||
			(m.Sender.ID == otherID && m.Receiver.ID == selfID) {
			out = append(out, m)
		}
	}

	return out, nil
}

func (s *MemStore) MessagesInvolving(_ context.Context, selfID int64) ([]storage.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[selfID]; !ok {
		return nil, storage.ErrUserNotExist
	}

	var out []storage.Message
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if m.Sender.ID == selfID || m.Receiver.ID == selfID {
			out = append(out, m)
		}
	}

	return out, nil
}

// Len reports the number of stored messages
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
