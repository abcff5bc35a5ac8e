package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"conduit/internal/domain"
)

const messageColumns = `id, sender_id, event_id, recipient_id, content, message_type, metadata, is_read, created_at, updated_at`

type messageRepository struct {
	DB *sql.DB
}

func NewMessageRepository(db *sql.DB) domain.MessageRepository {
	return &messageRepository{
		DB: db,
	}
}

func scanMessage(s rowScanner) (*domain.Message, error) {
	m := &domain.Message{}
	var eventID, recipientID sql.NullString
	var metadata []byte
	var updatedAt sql.NullTime
	if err := s.Scan(&m.ID, &m.SenderID, &eventID, &recipientID, &m.Content, &m.MessageType, &metadata, &m.IsRead, &m.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	m.EventID = stringPtr(eventID)
	m.RecipientID = stringPtr(recipientID)
	m.UpdatedAt = timePtr(updatedAt)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &m.Metadata); err != nil {
			return nil, fmt.Errorf("decode message metadata: %w", err)
		}
	}
	return m, nil
}

func (r *messageRepository) Create(ctx context.Context, m *domain.Message) error {
	var metadata any
	if m.Metadata != nil {
		b, err := json.Marshal(m.Metadata)
		if err != nil {
			return fmt.Errorf("encode message metadata: %w", err)
		}
		metadata = b
	}
	query := `
		INSERT INTO messages (sender_id, event_id, recipient_id, content, message_type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_read
	`
	err := r.DB.QueryRowContext(ctx, query,
		m.SenderID, m.EventID, m.RecipientID, m.Content, m.MessageType, metadata, m.CreatedAt,
	).Scan(&m.ID, &m.IsRead)
	if err != nil {
		return mapPQError(err, nil)
	}
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	m, err := scanMessage(r.DB.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// ListByEvent returns the latest limit messages of the event in chronological order.
func (r *messageRepository) ListByEvent(ctx context.Context, eventID string, limit int) ([]*domain.Message, error) {
	query := `
		SELECT * FROM (
			SELECT ` + messageColumns + `
			FROM messages
			WHERE event_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) latest
		ORDER BY created_at ASC
	`
	return r.list(ctx, query, eventID, limit)
}

// ListDirect returns the latest limit direct messages between two users in chronological order.
func (r *messageRepository) ListDirect(ctx context.Context, userA, userB string, limit int) ([]*domain.Message, error) {
	query := `
		SELECT * FROM (
			SELECT ` + messageColumns + `
			FROM messages
			WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)
			ORDER BY created_at DESC
			LIMIT $3
		) latest
		ORDER BY created_at ASC
	`
	return r.list(ctx, query, userA, userB, limit)
}

func (r *messageRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Message, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	messages := make([]*domain.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *messageRepository) MarkRead(ctx context.Context, id string) (*domain.Message, error) {
	query := `UPDATE messages SET is_read = TRUE, updated_at = NOW() WHERE id = $1 RETURNING ` + messageColumns
	m, err := scanMessage(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}
