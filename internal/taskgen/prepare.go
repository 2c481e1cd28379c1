package taskgen

import (
	"context"
	"strings"
	"time"

	"convoy/internal/services"
	"convoy/internal/thread"
)

// PrepareRequest names the stored channel and range to arrange into
// threads.
type PrepareRequest struct {
	ChannelID   string
	ChannelName string
	Start       time.Time
	End         time.Time
}

// PrepareStats counts the arranged conversation.
type PrepareStats struct {
	TotalThreads    int `json:"totalThreads"`
	TotalStandalone int `json:"totalStandalone"`
	TotalMessages   int `json:"totalMessages"`
}

// Prepared is a channel's conversation for a range, ready for extraction.
type Prepared struct {
	ChannelID   string           `json:"channelId"`
	ChannelName string           `json:"channelName"`
	DateRange   string           `json:"dateRange"`
	Stats       PrepareStats     `json:"threadStats"`
	Threads     []thread.Thread  `json:"threads"`
	Standalone  []thread.Message `json:"standaloneMessages"`
}

// All returns the threads followed by each standalone message as its own
// thread, in extraction order.
func (p Prepared) All() []thread.Thread {
	return thread.Assembled{Threads: p.Threads, Standalone: p.Standalone}.All()
}

// Prepare loads the stored messages for the range, resolves user names and
// arranges them into threads plus standalone messages.
func (s *Service) Prepare(ctx context.Context, req PrepareRequest) (Prepared, error) {
	out := Prepared{
		ChannelID:   req.ChannelID,
		ChannelName: req.ChannelName,
		Threads:     []thread.Thread{},
		Standalone:  []thread.Message{},
	}
	if strings.TrimSpace(req.ChannelID) == "" {
		return out, services.Wrap(services.ErrValidation, "taskgen", "prepare", "channel id is required", nil)
	}
	if _, _, err := dayRange(req.Start, req.End); err != nil {
		return out, err
	}
	out.DateRange = req.Start.Format(time.DateOnly) + " to " + req.End.Format(time.DateOnly)

	records, err := s.store.MessagesForRange(ctx, req.ChannelID, req.Start, req.End)
	if err != nil {
		return out, err
	}
	workspace, err := s.store.WorkspaceForChannel(ctx, req.ChannelID)
	if err != nil {
		return out, err
	}
	userMap, err := s.store.UserMap(ctx, workspace)
	if err != nil {
		return out, err
	}
	assembled := thread.Assemble(thread.ResolveUserNames(records, userMap))
	if assembled.Threads != nil {
		out.Threads = assembled.Threads
	}
	if assembled.Standalone != nil {
		out.Standalone = assembled.Standalone
	}
	out.Stats = PrepareStats{
		TotalThreads:    len(assembled.Threads),
		TotalStandalone: len(assembled.Standalone),
		TotalMessages:   len(records),
	}
	return out, nil
}
