package testsupport

import (
	"context"
	"testing"
	"time"

	"convoy/internal/config"
	"convoy/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedMessages writes messages to the store, failing the test on error.
func SeedMessages(t testing.TB, st *store.Store, messages ...store.Message) {
	t.Helper()

	if _, err := st.UpsertMessages(context.Background(), messages); err != nil {
		t.Fatalf("store.UpsertMessages: %v", err)
	}
}

// Msg builds a stored message in channel C1 of workspace W1. An empty
// threadID makes it a top-level message.
func Msg(id, threadID, userID, text string, at time.Time) store.Message {
	return store.Message{
		MessageID:   id,
		ChannelID:   "C1",
		ChannelName: "general",
		UserID:      userID,
		Username:    userID,
		Text:        text,
		Timestamp:   at,
		ThreadID:    threadID,
		WorkspaceID: "W1",
	}
}
