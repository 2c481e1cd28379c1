package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"convoy/internal/thread"
)

// Message is one stored chat message. ThreadID is empty for top-level
// messages and holds the parent's message id for replies.
type Message struct {
	MessageID   string
	ChannelID   string
	ChannelName string
	UserID      string
	Username    string
	Text        string
	Timestamp   time.Time
	ThreadID    string
	MessageType string
	WorkspaceID string
}

const dateLayout = "2006-01-02"

// UpsertMessages inserts messages, replacing any stored copy with the same
// message id. Messages without an id or channel are skipped. It returns the
// number written.
func (s *Store) UpsertMessages(ctx context.Context, messages []Message) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}
	now := s.timestamp()
	var saved int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		saved = 0
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO conversations (
				message_id, channel_id, channel_name, user_id, username,
				message_text, timestamp, message_type, thread_id, workspace_id, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(message_id) DO UPDATE SET
				channel_id = excluded.channel_id,
				channel_name = excluded.channel_name,
				user_id = excluded.user_id,
				username = excluded.username,
				message_text = excluded.message_text,
				timestamp = excluded.timestamp,
				message_type = excluded.message_type,
				thread_id = excluded.thread_id,
				workspace_id = excluded.workspace_id`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, msg := range messages {
			if strings.TrimSpace(msg.MessageID) == "" || strings.TrimSpace(msg.ChannelID) == "" {
				continue
			}
			msgType := msg.MessageType
			if msgType == "" {
				msgType = "message"
			}
			if _, err := stmt.ExecContext(ctx,
				msg.MessageID,
				msg.ChannelID,
				nullableString(msg.ChannelName),
				nullableString(msg.UserID),
				nullableString(msg.Username),
				msg.Text,
				formatTime(msg.Timestamp),
				msgType,
				nullableString(msg.ThreadID),
				nullableString(msg.WorkspaceID),
				now,
			); err != nil {
				return fmt.Errorf("upsert message %s: %w", msg.MessageID, err)
			}
			saved++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("upsert messages: %w", err)
	}
	return saved, nil
}

// MessagesForRange returns the channel's messages relevant to the inclusive
// date range: every thread with at least one message in range, complete with
// its parent and all replies, plus the top-level messages posted in range.
// Top-level messages come first, then replies grouped by thread in timestamp
// order.
func (s *Store) MessagesForRange(ctx context.Context, channelID string, start, end time.Time) ([]thread.Record, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(channelID) == "" {
		return nil, validationError("messages for range", "channel id is required")
	}
	if end.Before(start) {
		return nil, validationError("messages for range", "end date is before start date")
	}
	startDate := start.Format(dateLayout)
	endDate := end.Format(dateLayout)

	rows, err := s.db.QueryContext(ctx, `
		WITH relevant AS (
			SELECT DISTINCT thread_id
			FROM conversations
			WHERE channel_id = ?
			  AND thread_id IS NOT NULL
			  AND date(timestamp) >= date(?)
			  AND date(timestamp) <= date(?)
		)
		SELECT message_id, thread_id, user_id, username, message_text, timestamp
		FROM conversations
		WHERE channel_id = ?
		  AND (
			thread_id IN (SELECT thread_id FROM relevant)
			OR message_id IN (SELECT thread_id FROM relevant)
			OR (thread_id IS NULL AND date(timestamp) >= date(?) AND date(timestamp) <= date(?))
		  )
		ORDER BY
			CASE WHEN thread_id IS NULL THEN 0 ELSE 1 END,
			thread_id,
			timestamp ASC,
			message_id ASC`,
		channelID, startDate, endDate, channelID, startDate, endDate,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages for range: %w", err)
	}
	defer rows.Close()

	var records []thread.Record
	for rows.Next() {
		var (
			rec      thread.Record
			threadID sql.NullString
			userID   sql.NullString
			username sql.NullString
			text     sql.NullString
		)
		if err := rows.Scan(&rec.MessageID, &threadID, &userID, &username, &text, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		rec.ThreadID = threadID.String
		rec.UserID = userID.String
		rec.Username = username.String
		rec.Text = text.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return records, nil
}

// WorkspaceForChannel returns the workspace id recorded on any stored message
// of the channel, or "" when none is known.
func (s *Store) WorkspaceForChannel(ctx context.Context, channelID string) (string, error) {
	if channelID == "" {
		return "", nil
	}
	var workspace sql.NullString
	err := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT workspace_id FROM conversations WHERE channel_id = ? AND workspace_id IS NOT NULL LIMIT 1",
		channelID,
	).Scan(&workspace)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve workspace: %w", err)
	}
	return workspace.String, nil
}

// CountMessages returns the number of stored messages.
func (s *Store) CountMessages(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(*) FROM conversations").Scan(&count); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// LastMessageTime returns the newest stored message timestamp, or the zero
// time when the table is empty.
func (s *Store) LastMessageTime(ctx context.Context) (time.Time, error) {
	var latest sql.NullString
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT MAX(timestamp) FROM conversations").Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("last message time: %w", err)
	}
	return parseNullTime(latest), nil
}
