// Package storage wires the configured backend behind the StorageManager
// interface: the two snapshot stores plus the restore index, all sharing one
// pool in the sqlite case.
package storage

import (
	"database/sql"
	"fmt"

	"github.com/rezilient/restore-request-service/internal/common"
	"github.com/rezilient/restore-request-service/internal/interfaces"
	"github.com/rezilient/restore-request-service/internal/storage/memorydb"
	"github.com/rezilient/restore-request-service/internal/storage/sqlitedb"
)

// Manager implements interfaces.StorageManager over the selected backend.
type Manager struct {
	jobStore  interfaces.JobStateStore
	planStore interfaces.PlanStateStore
	index     interfaces.RestoreIndexReader

	db     *sql.DB
	logger *common.Logger
}

// NewManager builds the storage manager for the configured backend.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	switch config.Storage.Backend {
	case common.StorageBackendMemory:
		logger.Info().Msg("Using in-memory storage backend")
		return &Manager{
			jobStore:  memorydb.NewJobStateStore(),
			planStore: memorydb.NewPlanStateStore(),
			index:     memorydb.NewRestoreIndex(),
			logger:    logger,
		}, nil

	case common.StorageBackendSQLite:
		db, err := sqlitedb.Open(config.Storage.Path)
		if err != nil {
			return nil, err
		}

		jobStore, err := sqlitedb.NewJobStateStore(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		planStore, err := sqlitedb.NewPlanStateStore(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		index, err := sqlitedb.NewRestoreIndex(db)
		if err != nil {
			db.Close()
			return nil, err
		}

		logger.Info().Str("path", config.Storage.Path).Msg("Using sqlite storage backend")
		return &Manager{
			jobStore:  jobStore,
			planStore: planStore,
			index:     index,
			db:        db,
			logger:    logger,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", config.Storage.Backend)
	}
}

// JobStateStore returns the job snapshot store.
func (m *Manager) JobStateStore() interfaces.JobStateStore { return m.jobStore }

// PlanStateStore returns the plan snapshot store.
func (m *Manager) PlanStateStore() interfaces.PlanStateStore { return m.planStore }

// RestoreIndex returns the watermark reader.
func (m *Manager) RestoreIndex() interfaces.RestoreIndexReader { return m.index }

// Close releases the shared pool.
func (m *Manager) Close() error {
	_ = m.jobStore.Close()
	_ = m.planStore.Close()
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
