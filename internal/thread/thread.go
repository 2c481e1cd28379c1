package thread

import (
	"encoding/json"
	"fmt"

	"convoy/internal/textutil"
)

// Role marks a message's position within its thread.
type Role string

const (
	RoleParent Role = "parent"
	RoleReply  Role = "reply"
)

// Message is one chat message inside a thread.
type Message struct {
	Role      Role   `json:"role"`
	MessageID string `json:"messageId"`
	Timestamp string `json:"timestamp"`
	User      string `json:"user"`
	Text      string `json:"text"`
}

// UnmarshalJSON accepts message ids and other fields of any JSON scalar type.
// Chat APIs hand out numeric-looking timestamps as ids, and callers posting
// threads over HTTP are not always careful to quote them.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role      json.RawMessage `json:"role"`
		MessageID json.RawMessage `json:"messageId"`
		Timestamp json.RawMessage `json:"timestamp"`
		User      json.RawMessage `json:"user"`
		Text      json.RawMessage `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	*m = Message{
		Role:      Role(textutil.ScalarString(raw.Role)),
		MessageID: textutil.ScalarString(raw.MessageID),
		Timestamp: textutil.ScalarString(raw.Timestamp),
		User:      textutil.ScalarString(raw.User),
		Text:      textutil.ScalarString(raw.Text),
	}
	return nil
}

// Thread is a parent message followed by its replies in chronological order.
// A standalone message is a thread of one.
type Thread struct {
	ThreadID     string    `json:"threadId"`
	MessageCount int       `json:"messageCount"`
	Messages     []Message `json:"messages"`
}

// UnmarshalJSON tolerates a numeric thread id and a missing message count.
func (t *Thread) UnmarshalJSON(data []byte) error {
	var raw struct {
		ThreadID     json.RawMessage `json:"threadId"`
		MessageCount json.RawMessage `json:"messageCount"`
		Messages     []Message       `json:"messages"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode thread: %w", err)
	}
	*t = Thread{
		ThreadID: textutil.ScalarString(raw.ThreadID),
		Messages: raw.Messages,
	}
	var count float64
	if len(raw.MessageCount) > 0 && json.Unmarshal(raw.MessageCount, &count) == nil {
		t.MessageCount = int(count)
	}
	return nil
}

// Count returns the declared message count, falling back to the number of
// messages present when the declared value is missing or zero.
func (t Thread) Count() int {
	if t.MessageCount > 0 {
		return t.MessageCount
	}
	return len(t.Messages)
}

// MessageIDs returns the set of non-empty message ids in the thread.
func (t Thread) MessageIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(t.Messages))
	for _, msg := range t.Messages {
		if msg.MessageID == "" {
			continue
		}
		ids[msg.MessageID] = struct{}{}
	}
	return ids
}

// Text joins every message body with newlines. This is the source text that
// extracted tasks are grounded against.
func (t Thread) Text() string {
	size := 0
	for _, msg := range t.Messages {
		size += len(msg.Text) + 1
	}
	buf := make([]byte, 0, size)
	for i, msg := range t.Messages {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, msg.Text...)
	}
	return string(buf)
}

// Sanitized returns a copy restricted to the fields the extraction prompt
// may see. Message order is preserved.
func (t Thread) Sanitized() Thread {
	out := Thread{
		ThreadID:     t.ThreadID,
		MessageCount: t.Count(),
		Messages:     make([]Message, len(t.Messages)),
	}
	copy(out.Messages, t.Messages)
	return out
}
