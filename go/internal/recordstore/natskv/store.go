// Package natskv keeps session records in a NATS JetStream key-value bucket,
// one key per session code. The bucket only supports whole-value writes, so
// Patch reads the current revision, merges the named fields and writes back
// guarded by that revision, retrying when another writer got there first.
package natskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
)

type Config struct {
	URL           string
	Bucket        string
	TTL           time.Duration // How long an untouched session survives; 0 keeps it forever
	Replicas      int
	MaxReconnects int
	ReconnectWait time.Duration
	MaxAttempts   int           // Revision-conflict retries per patch
	RetryDelay    time.Duration // Linear backoff step between attempts
}

func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Bucket:        "SESSIONS",
		TTL:           24 * time.Hour,
		Replicas:      1,
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
		MaxAttempts:   64,
		RetryDelay:    time.Millisecond,
	}
}

// Store is a recordstore.Store backed by a JetStream key-value bucket.
type Store struct {
	nc  *nats.Conn
	kv  jetstream.KeyValue
	cfg Config
}

var _ recordstore.Store = (*Store)(nil)

// Connect dials NATS and creates or updates the bucket.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	opts := []nats.Option{
		nats.Name("rendezvous-recordstore"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "Shared session records",
		History:     1,
		TTL:         cfg.TTL,
		Storage:     jetstream.FileStorage,
		Replicas:    cfg.Replicas,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure bucket %s: %w", cfg.Bucket, err)
	}

	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	log.Info().Str("bucket", cfg.Bucket).Str("url", nc.ConnectedUrl()).Msg("NATS record store connected")
	return &Store{nc: nc, kv: kv, cfg: cfg}, nil
}

// Close drains the NATS connection.
func (s *Store) Close() error {
	return s.nc.Drain()
}

func (s *Store) Create(ctx context.Context, code string, kind models.SessionKind, fields recordstore.Fields) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%w: encode record: %v", recordstore.ErrCreateFailed, err)
	}

	if _, err := s.kv.Create(ctx, code, body); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return recordstore.ErrAlreadyExists
		}
		return fmt.Errorf("%w: %v", recordstore.ErrCreateFailed, err)
	}
	log.Debug().Str("code", code).Str("kind", string(kind)).Msg("record created")
	return nil
}

func (s *Store) Fetch(ctx context.Context, code string) (recordstore.Fields, error) {
	fields, _, err := s.get(ctx, code)
	return fields, err
}

func (s *Store) Patch(ctx context.Context, code string, fields recordstore.Fields) error {
	var lastErr error

	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := s.cfg.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", recordstore.ErrPatchFailed, ctx.Err())
			case <-time.After(delay):
			}
		}

		current, revision, err := s.get(ctx, code)
		if err != nil {
			if errors.Is(err, recordstore.ErrNotFound) {
				return err
			}
			return fmt.Errorf("%w: %v", recordstore.ErrPatchFailed, err)
		}

		body, err := json.Marshal(recordstore.Merge(current, fields))
		if err != nil {
			return fmt.Errorf("%w: encode record: %v", recordstore.ErrPatchFailed, err)
		}

		_, err = s.kv.Update(ctx, code, body, revision)
		if err == nil {
			return nil
		}
		if !isRevisionConflict(err) {
			return fmt.Errorf("%w: %v", recordstore.ErrPatchFailed, err)
		}
		lastErr = err
		log.Debug().
			Str("code", code).
			Int("attempt", attempt+1).
			Uint64("revision", revision).
			Msg("revision conflict, re-reading record")
	}

	return fmt.Errorf("%w: gave up after %d attempts: %v", recordstore.ErrPatchFailed, s.cfg.MaxAttempts, lastErr)
}

func (s *Store) get(ctx context.Context, code string) (recordstore.Fields, uint64, error) {
	entry, err := s.kv.Get(ctx, code)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, 0, recordstore.ErrNotFound
		}
		return nil, 0, fmt.Errorf("get %s: %w", code, err)
	}

	var fields recordstore.Fields
	if err := json.Unmarshal(entry.Value(), &fields); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", code, err)
	}
	return fields, entry.Revision(), nil
}

// isRevisionConflict reports whether an Update lost the race for a revision.
func isRevisionConflict(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}
