package repos

import (
	"gorm.io/gorm"

	"github.com/hellocounsel/reports-backend/internal/platform/logger"
)

// ReplicaHandles resolves an environment to its shared database handle.
// Satisfied by db.ReplicaRegistry; tests substitute a single in-memory
// handle.
type ReplicaHandles interface {
	Handle(environment string) (*gorm.DB, error)
}

// ReplicaStores hands out typed repos bound to an environment's replica.
// Repos are cheap wrappers; the underlying handle is the shared resource.
type ReplicaStores struct {
	handles ReplicaHandles
	log     *logger.Logger
}

func NewReplicaStores(handles ReplicaHandles, log *logger.Logger) *ReplicaStores {
	return &ReplicaStores{handles: handles, log: log}
}

func (s *ReplicaStores) Reports(environment string) (ReportRepo, error) {
	h, err := s.handles.Handle(environment)
	if err != nil {
		return nil, err
	}
	return NewReportRepo(h, s.log), nil
}

func (s *ReplicaStores) State(environment string) (ReplicationStateRepo, error) {
	h, err := s.handles.Handle(environment)
	if err != nil {
		return nil, err
	}
	return NewReplicationStateRepo(h, s.log), nil
}
