// Package store is the entity store: typed accessors over the SQLite schema,
// allow-listed partial updates, id generation and the error taxonomy shared
// with the conversion pipeline.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/powerman/structlog"

	"tradedesk/internal/config"
	"tradedesk/internal/database"
	"tradedesk/internal/rates"
	"tradedesk/internal/websocket"
)

// Notifier receives change events after a transaction commits.
type Notifier interface {
	Broadcast(websocket.Event)
}

type Store struct {
	db       *sqlx.DB
	log      *structlog.Logger
	rates    *rates.Cache
	notifier Notifier
	now      func() time.Time

	mu    sync.Mutex
	hooks []func()
}

type Option func(*Store)

func WithNotifier(n Notifier) Option { return func(s *Store) { s.notifier = n } }

// WithClock replaces time.Now for id and date generation.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithLogger(log *structlog.Logger) Option { return func(s *Store) { s.log = log } }

// New wraps an open database. The rate cache is owned by the store and is
// invalidated on InitSchema and on every committed rate write.
func New(db *sqlx.DB, cfg config.Config, opts ...Option) *Store {
	s := &Store{
		db:  db,
		log: structlog.New(structlog.KeyUnit, "store"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rates = rates.New(s, cfg.RateCacheSize, cfg.DefaultRates, nil)
	s.OnSchemaInit(s.rates.Invalidate)
	return s
}

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Rates() *rates.Cache { return s.rates }

func (s *Store) Now() time.Time { return s.now() }

func (s *Store) Log() *structlog.Logger { return s.log }

// OnSchemaInit registers fn to run after every InitSchema.
func (s *Store) OnSchemaInit(fn func()) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// InitSchema creates or upgrades the schema and runs the registered hooks.
func (s *Store) InitSchema(ctx context.Context) error {
	if err := database.Migrate(ctx, s.db); err != nil {
		return err
	}
	s.mu.Lock()
	hooks := append([]func(){}, s.hooks...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	s.log.Debug("schema initialized", "hooks", len(hooks))
	return nil
}

func (s *Store) today() string {
	return s.now().Format("2006-01-02")
}
