package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// User is a chat workspace member.
type User struct {
	UserID      string
	Username    string
	RealName    string
	DisplayName string
	WorkspaceID string
}

// Name returns the best human label for the user: display name, then real
// name, then username, then the raw id.
func (u User) Name() string {
	for _, candidate := range []string{u.DisplayName, u.RealName, u.Username} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return u.UserID
}

// UpsertUsers inserts or replaces users keyed by user id and returns the
// number written.
func (s *Store) UpsertUsers(ctx context.Context, users []User) (int, error) {
	if len(users) == 0 {
		return 0, nil
	}
	now := s.timestamp()
	var saved int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		saved = 0
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO users (user_id, username, real_name, display_name, workspace_id, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				username = excluded.username,
				real_name = excluded.real_name,
				display_name = excluded.display_name,
				workspace_id = excluded.workspace_id,
				updated_at = excluded.updated_at`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, u := range users {
			if strings.TrimSpace(u.UserID) == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx,
				u.UserID,
				nullableString(u.Username),
				nullableString(u.RealName),
				nullableString(u.DisplayName),
				nullableString(u.WorkspaceID),
				now,
			); err != nil {
				return fmt.Errorf("upsert user %s: %w", u.UserID, err)
			}
			saved++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("upsert users: %w", err)
	}
	return saved, nil
}

// UserMap maps user ids to display names. An empty workspaceID returns every
// stored user.
func (s *Store) UserMap(ctx context.Context, workspaceID string) (map[string]string, error) {
	query := "SELECT user_id, username, real_name, display_name FROM users"
	var args []any
	if workspaceID != "" {
		query += " WHERE workspace_id = ?"
		args = append(args, workspaceID)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var (
			u                           User
			username, realName, display sql.NullString
		)
		if err := rows.Scan(&u.UserID, &username, &realName, &display); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Username = username.String
		u.RealName = realName.String
		u.DisplayName = display.String
		out[u.UserID] = u.Name()
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

// CountUsers returns the number of stored users.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}
