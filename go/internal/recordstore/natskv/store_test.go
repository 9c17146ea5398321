package natskv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/mcdev12/rendezvous/go/internal/recordstore/storetest"
)

func connectTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("TEST_NATS_URL")
	if url == "" {
		t.Skip("TEST_NATS_URL not set")
	}
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.Bucket = fmt.Sprintf("SESSIONS_TEST_%d", time.Now().UnixNano())
	cfg.TTL = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store, err := Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		js, err := jetstream.New(store.nc)
		if err == nil {
			_ = js.DeleteKeyValue(context.Background(), cfg.Bucket)
		}
		_ = store.Close()
	})
	return store
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, connectTestStore(t))
}

func TestIsRevisionConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"key exists", jetstream.ErrKeyExists, true},
		{"wrapped key exists", fmt.Errorf("update: %w", jetstream.ErrKeyExists), true},
		{"wrong last sequence", &jetstream.APIError{ErrorCode: jetstream.JSErrCodeStreamWrongLastSequence}, true},
		{"other api error", &jetstream.APIError{ErrorCode: jetstream.JSErrCodeStreamNotFound}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRevisionConflict(tt.err); got != tt.want {
				t.Errorf("isRevisionConflict(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
