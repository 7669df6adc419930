package providers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/do/v2"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/livraria/livraria-api/internal/config"
	"github.com/livraria/livraria-api/internal/lifecycle"
	"github.com/livraria/livraria-api/internal/logger"
	"github.com/livraria/livraria-api/internal/store"
	"github.com/livraria/livraria-api/internal/store/mongostore"
)

const defaultDatabaseName = "livraria"

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown closes the database connection.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore connects to the configured database, retrying as the
// lifecycle manager allows. Closing is registered as a shutdown step.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	manager := do.MustInvoke[*lifecycle.Manager](i)
	run := do.MustInvoke[RunContext](i)

	var db store.Store
	err := manager.Connect(run, func(ctx context.Context) error {
		var err error
		db, err = openStore(ctx, cfg.Database, log.Logger)
		return err
	})
	if err != nil {
		return nil, err
	}

	handle := &StoreHandle{Store: db}
	manager.OnShutdown("database", func(context.Context) error {
		return handle.Shutdown()
	})

	log.Info("Database initialized", "backend", backendName(cfg.Database.ConnectionString))
	return handle, nil
}

// openStore picks the backend from the connection string:
// mongodb:// and mongodb+srv:// use MongoDB, badger:///path an embedded
// Badger database and "memory" an in-memory Badger database.
func openStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (store.Store, error) {
	conn := strings.TrimSpace(cfg.ConnectionString)

	switch {
	case conn == "memory":
		return store.NewBadger("", log)

	case strings.HasPrefix(conn, "badger://"):
		path := strings.TrimPrefix(conn, "badger://")
		if path == "" {
			return nil, fmt.Errorf("badger connection string needs a path: %q", conn)
		}
		return store.NewBadger(path, log)

	case strings.HasPrefix(conn, "mongodb://"), strings.HasPrefix(conn, "mongodb+srv://"):
		name, err := databaseName(conn, cfg.Name)
		if err != nil {
			return nil, err
		}
		return mongostore.Connect(ctx, conn, name, log)

	default:
		return nil, fmt.Errorf("unsupported database connection string %q", redact(conn))
	}
}

// databaseName prefers the explicit name, then the path of the URI.
func databaseName(uri, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return "", fmt.Errorf("parse mongodb uri: %w", err)
	}
	if cs.Database != "" {
		return cs.Database, nil
	}
	return defaultDatabaseName, nil
}

func backendName(conn string) string {
	switch {
	case strings.HasPrefix(conn, "mongodb"):
		return "mongodb"
	case conn == "memory":
		return "memory"
	default:
		return "badger"
	}
}

// redact hides credentials before a connection string is logged.
func redact(conn string) string {
	scheme, rest, ok := strings.Cut(conn, "://")
	if !ok {
		return conn
	}
	if at := strings.LastIndexByte(rest, '@'); at >= 0 {
		rest = "***" + rest[at:]
	}
	return scheme + "://" + rest
}
