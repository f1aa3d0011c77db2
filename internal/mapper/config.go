package mapper

import (
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/roach88/stiprobe/internal/ir"
)

var (
	// ErrNoEntities is returned by Init when Config.Entities is empty.
	ErrNoEntities = errors.New("mapper: no entities to discover")

	// ErrClosed is returned by operations on a closed Mapper.
	ErrClosed = errors.New("mapper: closed")

	// ErrNotFound is returned by FindOne when nothing matches.
	ErrNotFound = errors.New("mapper: entity not found")
)

// DiscoveryError reports an entity schema the mapper cannot register.
type DiscoveryError struct {
	Entity  string
	Message string
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery: %s: %s", e.Entity, e.Message)
}

// IDGenerator produces mapper instance IDs.
// Implemented by UUIDv7Generator and testutil.SequentialIDGenerator.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 instance IDs.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7. Panics if the system random source
// fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Config describes one mapper instance.
type Config struct {
	// Entities lists every schema to discover, parents included.
	Entities []ir.EntitySchema

	// DBName is the database path. Default: ":memory:".
	DBName string

	// Driver selects the SQLite driver ("sqlite3" or "sqlite").
	// Default: "sqlite3".
	Driver string

	// ContextName labels log lines.
	ContextName string

	IDGenerator IDGenerator
	Logger      log.Interface
}
