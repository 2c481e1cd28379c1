package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kanban columns a saved task can sit in. New tasks always land in todo.
const (
	ColumnTodo   = "todo"
	ColumnDoing  = "doing"
	ColumnDone   = "done"
	ColumnIcebox = "icebox"
)

// Columns lists the kanban columns in board order.
var Columns = []string{ColumnTodo, ColumnDoing, ColumnDone, ColumnIcebox}

const defaultTaskLimit = 200

// Task is a saved task.
type Task struct {
	ID               int64     `json:"id"`
	ChannelID        string    `json:"channel_id"`
	ChannelName      string    `json:"channel_name"`
	Model            string    `json:"model"`
	Title            string    `json:"task_title"`
	Description      string    `json:"task_description"`
	ParentThreadID   string    `json:"parent_thread_id"`
	ParentThreadLink string    `json:"parent_thread_slack_link"`
	KanbanColumn     string    `json:"kanban_column"`
	KanbanPosition   int       `json:"kanban_position"`
	WorkspaceID      string    `json:"workspace_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewTask carries the caller-supplied fields of a task to save.
type NewTask struct {
	ChannelID      string
	ChannelName    string
	Model          string
	Title          string
	Description    string
	ParentThreadID string
}

// TaskFilter narrows ListTasks.
type TaskFilter struct {
	ChannelID string
	Limit     int
	Offset    int
}

// TaskUpdate holds the fields to change. Nil fields keep their stored value.
type TaskUpdate struct {
	Title       *string
	Description *string
}

const taskColumns = "id, channel_id, channel_name, model, task_title, task_description, parent_thread_id, parent_thread_slack_link, kanban_column, kanban_position, workspace_id, created_at"

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		t           Task
		channelID   sql.NullString
		channelName sql.NullString
		model       sql.NullString
		parentID    sql.NullString
		parentLink  sql.NullString
		workspaceID sql.NullString
		createdRaw  sql.NullString
	)
	if err := scanner.Scan(
		&t.ID,
		&channelID,
		&channelName,
		&model,
		&t.Title,
		&t.Description,
		&parentID,
		&parentLink,
		&t.KanbanColumn,
		&t.KanbanPosition,
		&workspaceID,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	t.ChannelID = channelID.String
	t.ChannelName = channelName.String
	t.Model = model.String
	t.ParentThreadID = parentID.String
	t.ParentThreadLink = parentLink.String
	t.WorkspaceID = workspaceID.String
	t.CreatedAt = parseNullTime(createdRaw)
	return &t, nil
}

// NormalizeWorkspaceURL strips one trailing slash and adds https:// when the
// URL has no scheme. An empty URL stays empty.
func NormalizeWorkspaceURL(workspaceURL string) string {
	workspaceURL = strings.TrimSpace(workspaceURL)
	if workspaceURL == "" {
		return ""
	}
	workspaceURL = strings.TrimSuffix(workspaceURL, "/")
	if !strings.Contains(workspaceURL, "://") {
		workspaceURL = "https://" + workspaceURL
	}
	return workspaceURL
}

// Permalink builds the Slack link to a thread's parent message:
// {workspace}/archives/{channel}/p{ts without the dot}. It returns "" when
// any part is missing.
func Permalink(workspaceURL, channelID, threadID string) string {
	if workspaceURL == "" || channelID == "" || threadID == "" {
		return ""
	}
	ts := strings.Replace(threadID, ".", "", 1)
	if ts == "" {
		return ""
	}
	return fmt.Sprintf("%s/archives/%s/p%s", NormalizeWorkspaceURL(workspaceURL), channelID, ts)
}

// SaveTask stores a task at the end of the todo column of its workspace.
// The workspace is taken from the channel's stored messages and the
// permalink from the configured workspace URL.
func (s *Store) SaveTask(ctx context.Context, in NewTask) (*Task, error) {
	ctx = ensureContext(ctx)
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationError("save task", "task title is required")
	}
	workspaceID, err := s.WorkspaceForChannel(ctx, in.ChannelID)
	if err != nil {
		return nil, err
	}
	link := Permalink(s.workspaceURL, in.ChannelID, in.ParentThreadID)
	now := s.timestamp()

	var id int64
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		position, err := nextKanbanPosition(ctx, tx, workspaceID, ColumnTodo)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO saved_tasks (
				channel_id, channel_name, model, task_title, task_description,
				parent_thread_id, parent_thread_slack_link, kanban_column,
				kanban_position, workspace_id, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			nullableString(in.ChannelID),
			nullableString(in.ChannelName),
			nullableString(in.Model),
			title,
			in.Description,
			nullableString(in.ParentThreadID),
			nullableString(link),
			ColumnTodo,
			position,
			nullableString(workspaceID),
			now,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}
	return s.GetTask(ctx, id)
}

func workspaceClause(workspaceID string) (string, []any) {
	if workspaceID != "" {
		return "workspace_id = ?", []any{workspaceID}
	}
	return "workspace_id IS NULL", nil
}

func nextKanbanPosition(ctx context.Context, tx *sql.Tx, workspaceID, column string) (int, error) {
	clause, args := workspaceClause(workspaceID)
	args = append(args, column)
	var maxPos sql.NullInt64
	err := tx.QueryRowContext(ctx,
		"SELECT MAX(kanban_position) FROM saved_tasks WHERE "+clause+" AND kanban_column = ?",
		args...,
	).Scan(&maxPos)
	if err != nil {
		return 0, fmt.Errorf("next kanban position: %w", err)
	}
	if !maxPos.Valid {
		return 0, nil
	}
	return int(maxPos.Int64) + 1, nil
}

// GetTask fetches a saved task by id.
func (s *Store) GetTask(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+taskColumns+" FROM saved_tasks WHERE id = ?", id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListTasks returns saved tasks, newest first.
func (s *Store) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	query := "SELECT " + taskColumns + " FROM saved_tasks"
	var args []any
	if filter.ChannelID != "" {
		query += " WHERE channel_id = ?"
		args = append(args, filter.ChannelID)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultTaskLimit
	}
	offset := max(filter.Offset, 0)
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask changes a task's title or description and returns the stored
// result.
func (s *Store) UpdateTask(ctx context.Context, id int64, update TaskUpdate) (*Task, error) {
	ctx = ensureContext(ctx)
	var title any
	if update.Title != nil {
		trimmed := strings.TrimSpace(*update.Title)
		if trimmed == "" {
			return nil, validationError("update task", "task title cannot be empty")
		}
		title = trimmed
	}
	var description any
	if update.Description != nil {
		description = *update.Description
	}
	res, err := s.execWithRetry(ctx, `
		UPDATE saved_tasks
		SET task_title = COALESCE(?, task_title),
		    task_description = COALESCE(?, task_description)
		WHERE id = ?`,
		title, description, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if rowsAffected(res) == 0 {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return s.GetTask(ctx, id)
}

// DeleteTask removes a saved task.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM saved_tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if rowsAffected(res) == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

// CountTasks returns the number of saved tasks.
func (s *Store) CountTasks(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(*) FROM saved_tasks").Scan(&count); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}
