package config

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
	"github.com/mcdev12/rendezvous/go/internal/recordstore/memory"
	"github.com/mcdev12/rendezvous/go/internal/recordstore/remote"
	"github.com/mcdev12/rendezvous/go/internal/recordstore/sqlite"
)

func TestOpenStoreBackends(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		env   Env
		check func(recordstore.Store) bool
	}{
		{"memory", Env{StoreBackend: BackendMemory}, func(s recordstore.Store) bool {
			_, ok := s.(*memory.Store)
			return ok
		}},
		{"sqlite", Env{StoreBackend: BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "s.db")}, func(s recordstore.Store) bool {
			_, ok := s.(*sqlite.Store)
			return ok
		}},
		{"remote", Env{StoreBackend: BackendRemote, RecorddURL: "http://localhost:1"}, func(s recordstore.Store) bool {
			_, ok := s.(*remote.Client)
			return ok
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closeStore, err := OpenStore(ctx, tt.env)
			if err != nil {
				t.Fatalf("OpenStore() error = %v", err)
			}
			defer closeStore()
			if !tt.check(store) {
				t.Errorf("OpenStore() = %T", store)
			}
		})
	}
}

func TestOpenStoreSQLiteIsUsable(t *testing.T) {
	ctx := context.Background()
	store, closeStore, err := OpenStore(ctx, Env{StoreBackend: BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "s.db")})
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer closeStore()

	fields, err := recordstore.FieldsOf(map[string]any{models.FieldKind: models.SessionKindWagerRound})
	if err != nil {
		t.Fatalf("FieldsOf() error = %v", err)
	}
	if err := store.Create(ctx, "CONF", models.SessionKindWagerRound, fields); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Fetch(ctx, "CONF"); err != nil {
		t.Errorf("Fetch() error = %v", err)
	}
}

func TestOpenStoreSQLiteLogsOnce(t *testing.T) {
	var buf bytes.Buffer
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	_, closeStore, err := OpenStore(context.Background(), Env{StoreBackend: BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "s.db")})
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer closeStore()

	if got := strings.Count(buf.String(), "sqlite record store opened"); got != 1 {
		t.Errorf("open messages = %d, want 1\n%s", got, buf.String())
	}
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	if _, _, err := OpenStore(context.Background(), Env{StoreBackend: "etcd"}); err == nil {
		t.Error("OpenStore() error = nil, want unknown backend")
	}
}
