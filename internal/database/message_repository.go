package database

import (
	"context"
	"time"

	"pillscare/internal/models"
	"pillscare/internal/utils"

	"github.com/google/uuid"
)

// --- Message Methods ---

// AppendMessage inserts a new direct message and reads back its seq.
func (p *PostgresDB) AppendMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	stored := msg.Clone()
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}

	query := `
		INSERT INTO messages (id, sender_id, receiver_id, body, sent_at, is_read, read_at)
		VALUES (:id, :sender_id, :receiver_id, :body, :sent_at, :is_read, :read_at)
		RETURNING seq
	`
	rows, err := p.DB.NamedQueryContext(ctx, query, stored)
	if err != nil {
		return nil, utils.StoreError("append message", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&stored.Seq); err != nil {
			return nil, utils.StoreError("append message", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, utils.StoreError("append message", err)
	}
	return stored, nil
}

const messageColumns = `seq, id, sender_id, receiver_id, body, sent_at, is_read, read_at`

// QueryMessagesBetween fetches one conversation using the pair index.
func (p *PostgresDB) QueryMessagesBetween(ctx context.Context, a, b uuid.UUID) ([]*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE LEAST(sender_id, receiver_id) = LEAST($1::uuid, $2::uuid)
		  AND GREATEST(sender_id, receiver_id) = GREATEST($1::uuid, $2::uuid)
		ORDER BY sent_at ASC, seq ASC
	`
	messages := make([]*models.Message, 0)
	if err := p.DB.SelectContext(ctx, &messages, query, a, b); err != nil {
		return nil, utils.StoreError("query conversation", err)
	}
	return messages, nil
}

// QueryMessagesForUser fetches all messages sent or received by a user.
func (p *PostgresDB) QueryMessagesForUser(ctx context.Context, user uuid.UUID) ([]*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY sent_at ASC, seq ASC
	`
	messages := make([]*models.Message, 0)
	if err := p.DB.SelectContext(ctx, &messages, query, user); err != nil {
		return nil, utils.StoreError("query user messages", err)
	}
	return messages, nil
}

// SetRead is a single UPDATE, so concurrent calls commute.
func (p *PostgresDB) SetRead(ctx context.Context, sender, receiver uuid.UUID, at time.Time) (int64, error) {
	query := `
		UPDATE messages SET is_read = TRUE, read_at = $3
		WHERE sender_id = $1 AND receiver_id = $2 AND NOT is_read
	`
	result, err := p.DB.ExecContext(ctx, query, sender, receiver, at)
	if err != nil {
		return 0, utils.StoreError("mark read", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, utils.StoreError("mark read", err)
	}
	return n, nil
}

// CountUnread is answered from the partial unread index.
func (p *PostgresDB) CountUnread(ctx context.Context, recipient uuid.UUID) (int64, error) {
	var n int64
	query := `SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND NOT is_read`
	if err := p.DB.GetContext(ctx, &n, query, recipient); err != nil {
		return 0, utils.StoreError("count unread", err)
	}
	return n, nil
}
