package mapper

import (
	"context"
	"fmt"
	"sync"

	"github.com/apex/log"

	"github.com/roach88/stiprobe/internal/ir"
	stilog "github.com/roach88/stiprobe/internal/log"
	"github.com/roach88/stiprobe/internal/store"
)

// Mapper is one initialised mapper instance.
//
// Thread-safety: Close may race with other calls; every operation checks
// the closed flag under a mutex. EntityManager forks are not safe for
// concurrent use.
type Mapper struct {
	id          string
	contextName string
	entities    []ir.EntitySchema
	metadata    *MetadataStorage
	store       *store.Store
	logger      log.Interface

	mu     sync.Mutex
	closed bool
}

// Init discovers cfg.Entities and opens the mapper's database. The tables
// do not exist until Schema().RefreshDatabase runs.
func Init(ctx context.Context, cfg Config) (*Mapper, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = stilog.Discard()
	}
	if len(cfg.Entities) == 0 {
		return nil, ErrNoEntities
	}
	logger.Debugf("[%s] Initializing mapper with %d entities", cfg.ContextName, len(cfg.Entities))

	metadata, err := discover(cfg.Entities)
	if err != nil {
		return nil, err
	}

	dbName := cfg.DBName
	if dbName == "" {
		dbName = store.MemoryPath
	}
	var opts []store.Option
	if cfg.Driver != "" {
		opts = append(opts, store.WithDriver(cfg.Driver))
	}
	st, err := store.Open(ctx, dbName, opts...)
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", cfg.ContextName, err)
	}

	gen := cfg.IDGenerator
	if gen == nil {
		gen = UUIDv7Generator{}
	}

	return &Mapper{
		id:          gen.Generate(),
		contextName: cfg.ContextName,
		entities:    append([]ir.EntitySchema(nil), cfg.Entities...),
		metadata:    metadata,
		store:       st,
		logger:      logger,
	}, nil
}

// ID returns the instance ID.
func (m *Mapper) ID() string { return m.id }

// ContextName returns the label given in Config.
func (m *Mapper) ContextName() string { return m.contextName }

// Entities returns the schemas the mapper was initialised with.
func (m *Mapper) Entities() []ir.EntitySchema {
	return append([]ir.EntitySchema(nil), m.entities...)
}

// Metadata returns the mapper's own metadata storage.
func (m *Mapper) Metadata() *MetadataStorage { return m.metadata }

// Store exposes the underlying database for inspection.
func (m *Mapper) Store() *store.Store { return m.store }

// Fork returns a fresh EntityManager.
func (m *Mapper) Fork() *EntityManager {
	return &EntityManager{m: m}
}

// Close releases the database. Closing twice returns ErrClosed.
func (m *Mapper) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.closed = true
	m.logger.Debugf("[%s] Closing mapper", m.contextName)
	if err := m.store.Close(); err != nil {
		return fmt.Errorf("close %s: %w", m.contextName, err)
	}
	return nil
}

// Closed reports whether Close has been called.
func (m *Mapper) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Mapper) checkOpen() error {
	if m.Closed() {
		return ErrClosed
	}
	return nil
}
