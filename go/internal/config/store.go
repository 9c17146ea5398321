package config

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rendezvous/go/internal/dbconfig"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
	"github.com/mcdev12/rendezvous/go/internal/recordstore/memory"
	"github.com/mcdev12/rendezvous/go/internal/recordstore/natskv"
	"github.com/mcdev12/rendezvous/go/internal/recordstore/postgres"
	"github.com/mcdev12/rendezvous/go/internal/recordstore/remote"
	"github.com/mcdev12/rendezvous/go/internal/recordstore/sqlite"
)

// OpenStore connects the backend selected by e. The returned close function
// releases the backend and is never nil.
func OpenStore(ctx context.Context, e Env) (recordstore.Store, func() error, error) {
	noop := func() error { return nil }

	switch e.StoreBackend {
	case BackendMemory:
		log.Warn().Msg("using the in-process record store; sessions are not shared between processes")
		return memory.NewStore(), noop, nil

	case BackendSQLite:
		s, err := sqlite.Open(e.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case BackendPostgres:
		dbCfg, err := dbconfig.NewConfigFromEnv()
		if err != nil {
			return nil, nil, err
		}
		s, err := postgres.Open(ctx, dbCfg.DSN())
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case BackendNATS:
		cfg := natskv.DefaultConfig()
		cfg.URL = e.NATSURL
		cfg.Bucket = e.NATSBucket
		s, err := natskv.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case BackendRemote:
		log.Info().Str("url", e.RecorddURL).Msg("using remote record store")
		return remote.NewClient(http.DefaultClient, e.RecorddURL), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", e.StoreBackend)
	}
}
