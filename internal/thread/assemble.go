package thread

import (
	"sort"
	"strings"
	"time"
)

// Record is a stored chat message as it comes out of persistence, before it
// has been arranged into threads. ThreadID is empty for top-level messages;
// replies carry the message id of their parent.
type Record struct {
	MessageID string
	ThreadID  string
	UserID    string
	Username  string
	Text      string
	Timestamp string
}

// Assembled groups records into reply threads plus standalone messages.
type Assembled struct {
	Threads    []Thread
	Standalone []Message
}

// ResolveUserNames replaces each record's username with the display name from
// userMap. Records without a usable name fall back to their user id, and to
// "Unknown" when even that is missing.
func ResolveUserNames(records []Record, userMap map[string]string) []Record {
	out := make([]Record, len(records))
	for i, rec := range records {
		name := rec.Username
		if resolved, ok := userMap[rec.UserID]; ok {
			name = resolved
		}
		if strings.TrimSpace(name) == "" || name == rec.UserID {
			name = rec.UserID
			if name == "" {
				name = "Unknown"
			}
		}
		rec.Username = name
		out[i] = rec
	}
	return out
}

// Assemble arranges records into threads. A thread is the top-level record
// whose message id equals the replies' thread id, followed by the replies in
// timestamp order. Reply groups whose parent is absent are dropped. Top-level
// records that do not head a thread become standalone messages. Threads keep
// the order in which their first reply was seen.
func Assemble(records []Record) Assembled {
	parents := make(map[string]Record)
	var (
		order   []string
		replies = make(map[string][]Record)
		topLvl  []Record
	)
	for _, rec := range records {
		if rec.ThreadID == "" {
			topLvl = append(topLvl, rec)
			if _, seen := parents[rec.MessageID]; !seen {
				parents[rec.MessageID] = rec
			}
			continue
		}
		if _, ok := replies[rec.ThreadID]; !ok {
			order = append(order, rec.ThreadID)
		}
		replies[rec.ThreadID] = append(replies[rec.ThreadID], rec)
	}

	var out Assembled
	headsThread := make(map[string]struct{})
	for _, threadID := range order {
		parent, ok := parents[threadID]
		if !ok {
			continue
		}
		group := replies[threadID]
		sort.SliceStable(group, func(i, j int) bool {
			return timestampBefore(group[i].Timestamp, group[j].Timestamp)
		})
		messages := make([]Message, 0, len(group)+1)
		messages = append(messages, toMessage(parent, RoleParent))
		for _, reply := range group {
			messages = append(messages, toMessage(reply, RoleReply))
		}
		out.Threads = append(out.Threads, Thread{
			ThreadID:     threadID,
			MessageCount: len(messages),
			Messages:     messages,
		})
		headsThread[threadID] = struct{}{}
	}

	for _, rec := range topLvl {
		if _, ok := headsThread[rec.MessageID]; ok {
			continue
		}
		out.Standalone = append(out.Standalone, toMessage(rec, RoleParent))
	}
	return out
}

// All returns every thread followed by each standalone message wrapped as a
// one-message thread keyed by its own message id.
func (a Assembled) All() []Thread {
	out := make([]Thread, 0, len(a.Threads)+len(a.Standalone))
	out = append(out, a.Threads...)
	for _, msg := range a.Standalone {
		out = append(out, Standalone(msg))
	}
	return out
}

// MessageCount totals the messages across threads and standalone messages.
func (a Assembled) MessageCount() int {
	total := len(a.Standalone)
	for _, t := range a.Threads {
		total += len(t.Messages)
	}
	return total
}

// Standalone wraps a single message as its own thread.
func Standalone(msg Message) Thread {
	msg.Role = RoleParent
	return Thread{
		ThreadID:     msg.MessageID,
		MessageCount: 1,
		Messages:     []Message{msg},
	}
}

func toMessage(rec Record, role Role) Message {
	return Message{
		Role:      role,
		MessageID: rec.MessageID,
		Timestamp: rec.Timestamp,
		User:      rec.Username,
		Text:      rec.Text,
	}
}

func timestampBefore(a, b string) bool {
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)
	if errA == nil && errB == nil {
		return ta.Before(tb)
	}
	return a < b
}
