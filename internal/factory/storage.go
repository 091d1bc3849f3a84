package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/adviceline/concierge/internal/config"
	storepkg "github.com/adviceline/concierge/internal/store"
	storepg "github.com/adviceline/concierge/internal/store/postgres"
	storelite "github.com/adviceline/concierge/internal/store/sqlite"
)

// NewStore returns a store.Store for the configured driver. Schema
// bootstrap runs synchronously; the service cannot take traffic against
// missing tables.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	bctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.CollaboratorTimeoutSeconds)*time.Second)
	defer cancel()

	switch cfg.DBDriver {
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("CONCIERGE_POSTGRES_DSN is required when DB_DRIVER=postgres")
		}
		db, err := storepg.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := storepg.Bootstrap(bctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Debug().Str("driver", "postgres").Msg("store ready")
		return storepg.NewWithDB(db), nil

	case "sqlite":
		db, err := storelite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := storelite.Bootstrap(bctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Debug().Str("driver", "sqlite").Str("path", cfg.SQLitePath).Msg("store ready")
		return storelite.NewWithDB(db), nil

	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
