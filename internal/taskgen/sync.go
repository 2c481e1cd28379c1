package taskgen

import (
	"context"
	"strings"
	"time"

	"convoy/internal/logging"
	"convoy/internal/services"
	"convoy/internal/store"
)

// SyncRequest names a channel and an inclusive date range to pull from
// Slack.
type SyncRequest struct {
	ChannelID   string
	ChannelName string
	Start       time.Time
	End         time.Time
	// IncludeBots overrides slack.include_bot_messages when set.
	IncludeBots *bool
}

// SyncResult reports what a sync wrote.
type SyncResult struct {
	WorkspaceID string `json:"workspaceId"`
	Users       int    `json:"users"`
	Messages    int    `json:"messages"`
	Replies     int    `json:"replies"`
}

// Sync refreshes the workspace member list and stores the channel's
// messages and thread replies for the range.
func (s *Service) Sync(ctx context.Context, req SyncRequest) (SyncResult, error) {
	var result SyncResult
	if strings.TrimSpace(req.ChannelID) == "" {
		return result, services.Wrap(services.ErrValidation, "taskgen", "sync", "channel id is required", nil)
	}
	start, end, err := dayRange(req.Start, req.End)
	if err != nil {
		return result, err
	}
	ctx = services.WithChannelID(ctx, req.ChannelID)
	logger := logging.WithContext(ctx, s.logger)

	identity, err := s.slack.AuthTest(ctx)
	if err != nil {
		return result, err
	}
	result.WorkspaceID = identity.TeamID

	members, err := s.slack.Users(ctx)
	if err != nil {
		return result, err
	}
	users := make([]store.User, 0, len(members))
	names := make(map[string]string, len(members))
	for _, m := range members {
		u := store.User{
			UserID:      m.ID,
			Username:    m.Name,
			RealName:    m.RealName,
			DisplayName: m.DisplayName,
			WorkspaceID: identity.TeamID,
		}
		users = append(users, u)
		names[m.ID] = u.Name()
	}
	if result.Users, err = s.store.UpsertUsers(ctx, users); err != nil {
		return result, err
	}

	includeBots := s.cfg.Slack.IncludeBotMessages
	if req.IncludeBots != nil {
		includeBots = *req.IncludeBots
	}
	history, err := s.slack.History(ctx, req.ChannelID, start, end, includeBots)
	if err != nil {
		return result, err
	}
	messages := make([]store.Message, 0, len(history))
	for _, h := range history {
		username := h.User
		if name, ok := names[h.User]; ok {
			username = name
		}
		msgType := h.Subtype
		if msgType == "" {
			msgType = "message"
		}
		if h.ThreadTS != "" {
			result.Replies++
		}
		messages = append(messages, store.Message{
			MessageID:   h.TS,
			ChannelID:   req.ChannelID,
			ChannelName: req.ChannelName,
			UserID:      h.User,
			Username:    username,
			Text:        h.Text,
			Timestamp:   h.Timestamp,
			ThreadID:    h.ThreadTS,
			MessageType: msgType,
			WorkspaceID: identity.TeamID,
		})
	}
	if result.Messages, err = s.store.UpsertMessages(ctx, messages); err != nil {
		return result, err
	}

	logger.Info("channel synced",
		logging.String(logging.FieldEventType, "sync_complete"),
		logging.String("workspace_id", result.WorkspaceID),
		logging.Int("users", result.Users),
		logging.Int("messages", result.Messages),
		logging.Int("replies", result.Replies),
	)
	return result, nil
}

// dayRange widens [start, end] to whole UTC days: midnight of start through
// the last instant of end.
func dayRange(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() || end.IsZero() {
		return time.Time{}, time.Time{}, services.Wrap(services.ErrValidation, "taskgen", "date range", "start and end dates are required", nil)
	}
	from := truncateDay(start)
	to := truncateDay(end).Add(24*time.Hour - time.Nanosecond)
	if to.Before(from) {
		return time.Time{}, time.Time{}, services.Wrap(services.ErrValidation, "taskgen", "date range", "end date is before start date", nil)
	}
	return from, to, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date as a UTC day.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, services.Wrap(services.ErrValidation, "taskgen", "parse date", "dates must look like 2006-01-02", err)
	}
	return t, nil
}
