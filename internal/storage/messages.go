package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
)

const messageSQL = `
		select m.id,
			   m.sender_id,
			   su.name,
			   m.receiver_id,
			   ru.name,
			   m.text,
			   m.created_at
		  from messages m
		  join users su on su.id = m.sender_id
		  join users ru on ru.id = m.receiver_id`

// CreateMessage creates a message with a server-assigned id and creation
// timestamp and returns it with sender and receiver names resolved.
// Receiver existence is enforced by the messages_receiver_id_fkey
// constraint rather than pre-checked.
func (s *Store) CreateMessage(ctx context.Context, senderID, receiverID int64, text string) (Message, error) {
	s.logger.Debugf("Creating message from user (id: %d) to user (id: %d)", senderID, receiverID)

	var m Message
	sql := `with m as (
				insert into messages (sender_id, receiver_id, text, created_at)
				values ($1, $2, $3, $4)
				returning id, sender_id, receiver_id, text, created_at
			)
			select m.id, m.sender_id, su.name, m.receiver_id, ru.name, m.text, m.created_at
			  from m
			  join users su on su.id = m.sender_id
			  join users ru on ru.id = m.receiver_id`
	err := s.db.QueryRow(ctx, sql, senderID, receiverID, text, time.Now()).
		Scan(&m.ID, &m.Sender.ID, &m.Sender.Name, &m.Receiver.ID, &m.Receiver.Name, &m.Text, &m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.ForeignKeyViolation {
				return Message{}, ErrUserNotExist
			}
		}
		return Message{}, err
	}

	return m, nil
}

// MessagesBetween returns all messages exchanged between self and other in
// either direction, sorted by creation time (from earliest to latest)
func (s *Store) MessagesBetween(ctx context.Context, selfID, otherID int64) ([]Message, error) {
	s.logger.Debugf("Retrieving messages between users (ids: %d, %d)", selfID, otherID)

	sql := messageSQL + `
		 where (m.sender_id = $1 and m.receiver_id = $2)
			or (m.sender_id = $2 and m.receiver_id = $1)
		 order by m.created_at asc, m.id asc`

	return s.queryMessages(ctx, sql, selfID, otherID)
}

// MessagesInvolving returns all messages where self is sender or receiver,
// sorted by creation time (from latest to oldest). The newest-first order
// is what the conversation aggregation relies on.
func (s *Store) MessagesInvolving(ctx context.Context, selfID int64) ([]Message, error) {
	s.logger.Debugf("Retrieving messages involving user (id: %d)", selfID)

	// check if self exists
	var i int8
	err := s.db.QueryRow(ctx, "select 1 from users where id = $1", selfID).Scan(&i)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotExist
		}
		return nil, err
	}

	sql := messageSQL + `
		 where m.sender_id = $1 or m.receiver_id = $1
		 order by m.created_at desc, m.id desc`

	return s.queryMessages(ctx, sql, selfID)
}

func (s *Store) queryMessages(ctx context.Context, sql string, args ...interface{}) ([]Message, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		err = rows.Scan(&m.ID, &m.Sender.ID, &m.Sender.Name, &m.Receiver.ID, &m.Receiver.Name, &m.Text, &m.CreatedAt)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	s.logger.Debugf("Retrieved %d messages", len(messages))

	return messages, nil
}
