package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"convoy/internal/extraction"
)

// Built-in prompt metadata seeded by EnsureDefaultPrompt.
const (
	SystemPromptName        = "Default Task Extraction"
	SystemPromptDescription = "Default prompt for extracting actionable tasks from Slack conversations"
)

// Prompt is a stored extraction prompt template.
type Prompt struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Template    string    `json:"prompt_template"`
	IsDefault   bool      `json:"is_default"`
	IsSystem    bool      `json:"is_system"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PromptInput carries the editable fields of a prompt.
type PromptInput struct {
	Name        string
	Description string
	Template    string
	IsDefault   bool
	CreatedBy   string
}

// PromptKind selects which prompts ListPrompts returns.
type PromptKind string

const (
	PromptsAll    PromptKind = ""
	PromptsSystem PromptKind = "system"
	PromptsUser   PromptKind = "user"
)

// PromptFilter narrows ListPrompts. CreatedBy only applies to user prompts.
type PromptFilter struct {
	Kind      PromptKind
	CreatedBy string
}

const promptColumns = "id, name, description, prompt_template, is_default, is_system, created_by, created_at, updated_at"

func scanPrompt(scanner interface{ Scan(dest ...any) error }) (*Prompt, error) {
	var (
		p          Prompt
		isDefault  int
		isSystem   int
		createdBy  sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Template,
		&isDefault,
		&isSystem,
		&createdBy,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	p.IsDefault = isDefault != 0
	p.IsSystem = isSystem != 0
	p.CreatedBy = createdBy.String
	p.CreatedAt = parseNullTime(createdRaw)
	p.UpdatedAt = parseNullTime(updatedRaw)
	return &p, nil
}

func validatePrompt(operation string, in PromptInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return validationError(operation, "prompt name is required")
	}
	if strings.TrimSpace(in.Template) == "" {
		return validationError(operation, "prompt template is required")
	}
	if err := extraction.ValidateTemplate(in.Template); err != nil {
		return validationError(operation, err.Error())
	}
	return nil
}

// CreatePrompt stores a user prompt. Marking it default clears the default
// flag on every other user prompt; the system prompt keeps its flag.
func (s *Store) CreatePrompt(ctx context.Context, in PromptInput) (*Prompt, error) {
	ctx = ensureContext(ctx)
	if err := validatePrompt("create prompt", in); err != nil {
		return nil, err
	}
	return s.insertPrompt(ctx, in, false)
}

func (s *Store) insertPrompt(ctx context.Context, in PromptInput, system bool) (*Prompt, error) {
	now := s.timestamp()
	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO prompts (name, description, prompt_template, is_default, is_system, created_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			strings.TrimSpace(in.Name),
			in.Description,
			in.Template,
			boolToInt(in.IsDefault),
			boolToInt(system),
			nullableString(in.CreatedBy),
			now,
			now,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return err
		}
		if in.IsDefault && !system {
			_, err = tx.ExecContext(ctx,
				"UPDATE prompts SET is_default = 0 WHERE id != ? AND is_system = 0", id)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create prompt: %w", err)
	}
	return s.GetPrompt(ctx, id)
}

// GetPrompt fetches a prompt by id.
func (s *Store) GetPrompt(ctx context.Context, id int64) (*Prompt, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+promptColumns+" FROM prompts WHERE id = ?", id)
	p, err := scanPrompt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("prompt %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get prompt: %w", err)
	}
	return p, nil
}

// DefaultPrompt returns the prompt extraction should use when the caller
// names none. A user default wins over the system default.
func (s *Store) DefaultPrompt(ctx context.Context) (*Prompt, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+promptColumns+" FROM prompts WHERE is_default = 1 ORDER BY is_system ASC, updated_at DESC LIMIT 1")
	p, err := scanPrompt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("default prompt: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("default prompt: %w", err)
	}
	return p, nil
}

// ListPrompts returns prompts with defaults first, then newest first. System
// prompts are ordered by name.
func (s *Store) ListPrompts(ctx context.Context, filter PromptFilter) ([]Prompt, error) {
	query := "SELECT " + promptColumns + " FROM prompts"
	var args []any
	switch filter.Kind {
	case PromptsSystem:
		query += " WHERE is_system = 1 ORDER BY name"
	case PromptsUser:
		query += " WHERE is_system = 0"
		if filter.CreatedBy != "" {
			query += " AND created_by = ?"
			args = append(args, filter.CreatedBy)
		}
		query += " ORDER BY created_at DESC, id DESC"
	case PromptsAll:
		query += " ORDER BY is_default DESC, created_at DESC, id DESC"
	default:
		return nil, validationError("list prompts", fmt.Sprintf("unknown prompt kind %q", filter.Kind))
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()

	prompts := []Prompt{}
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		prompts = append(prompts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompts: %w", err)
	}
	return prompts, nil
}

// UpdatePrompt replaces a user prompt's fields. System prompts are read-only.
func (s *Store) UpdatePrompt(ctx context.Context, id int64, in PromptInput) (*Prompt, error) {
	ctx = ensureContext(ctx)
	if err := validatePrompt("update prompt", in); err != nil {
		return nil, err
	}
	existing, err := s.GetPrompt(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.IsSystem {
		return nil, ErrSystemPrompt
	}
	now := s.timestamp()
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if in.IsDefault {
			if _, err := tx.ExecContext(ctx,
				"UPDATE prompts SET is_default = 0 WHERE id != ? AND is_system = 0", id); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE prompts
			SET name = ?, description = ?, prompt_template = ?, is_default = ?, updated_at = ?
			WHERE id = ?`,
			strings.TrimSpace(in.Name), in.Description, in.Template, boolToInt(in.IsDefault), now, id,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update prompt: %w", err)
	}
	return s.GetPrompt(ctx, id)
}

// DeletePrompt removes a user prompt. System prompts cannot be deleted.
func (s *Store) DeletePrompt(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	existing, err := s.GetPrompt(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsSystem {
		return ErrSystemPrompt
	}
	if _, err := s.execWithRetry(ctx, "DELETE FROM prompts WHERE id = ? AND is_system = 0", id); err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}
	return nil
}

// SetDefaultPrompt makes id the default prompt, clearing the flag on every
// other user prompt.
func (s *Store) SetDefaultPrompt(ctx context.Context, id int64) (*Prompt, error) {
	ctx = ensureContext(ctx)
	if _, err := s.GetPrompt(ctx, id); err != nil {
		return nil, err
	}
	now := s.timestamp()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE prompts SET is_default = 0 WHERE is_system = 0"); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "UPDATE prompts SET is_default = 1, updated_at = ? WHERE id = ?", now, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("set default prompt: %w", err)
	}
	return s.GetPrompt(ctx, id)
}

// EnsureDefaultPrompt seeds the built-in extraction template as the system
// default when no default prompt exists. The bool reports whether a prompt
// was created.
func (s *Store) EnsureDefaultPrompt(ctx context.Context) (*Prompt, bool, error) {
	ctx = ensureContext(ctx)
	existing, err := s.DefaultPrompt(ctx)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	p, err := s.insertPrompt(ctx, PromptInput{
		Name:        SystemPromptName,
		Description: SystemPromptDescription,
		Template:    extraction.DefaultPromptTemplate,
		IsDefault:   true,
	}, true)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}
