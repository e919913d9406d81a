package services

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/hellocounsel/reports-backend/internal/platform/apierr"
	"github.com/hellocounsel/reports-backend/internal/platform/logger"
	"github.com/hellocounsel/reports-backend/internal/repos"
)

const defaultClonePageSize = 1000

// ReplicationService populates an empty replica from the source of truth,
// exactly once per environment even under concurrent callers. The guard
// is process-local; two processes racing on the same environment both
// clone, which the idempotent page inserts make safe but wasteful.
type ReplicationService interface {
	EnsureReplica(ctx context.Context, environment string) error
}

type replicationService struct {
	stores   *repos.ReplicaStores
	source   repos.SourceReportRepo
	group    singleflight.Group
	pageSize int
	log      *logger.Logger
}

func NewReplicationService(stores *repos.ReplicaStores, source repos.SourceReportRepo, baseLog *logger.Logger) ReplicationService {
	return &replicationService{
		stores:   stores,
		source:   source,
		pageSize: defaultClonePageSize,
		log:      baseLog.With("service", "ReplicationService"),
	}
}

func (s *replicationService) EnsureReplica(ctx context.Context, environment string) error {
	stateRepo, err := s.stores.State(environment)
	if err != nil {
		return err
	}
	state, err := stateRepo.Get(ctx, environment)
	if err != nil {
		return err
	}
	if state != nil {
		return nil
	}

	// Late joiners attach to the in-flight clone for this environment;
	// singleflight clears the key on success and failure, so a failed
	// clone can be retried by the next caller.
	_, err, _ = s.group.Do(environment, func() (interface{}, error) {
		state, err := stateRepo.Get(ctx, environment)
		if err != nil {
			return nil, err
		}
		if state != nil {
			return nil, nil
		}
		return nil, s.clone(ctx, environment, stateRepo)
	})
	return err
}

func (s *replicationService) clone(ctx context.Context, environment string, stateRepo repos.ReplicationStateRepo) error {
	reportRepo, err := s.stores.Reports(environment)
	if err != nil {
		return err
	}

	s.log.Info("Cloning reports from source of truth", "environment", environment)
	var (
		offset int
		copied int64
	)
	for {
		page, err := s.source.Page(ctx, s.pageSize, offset)
		if err != nil {
			return apierr.Upstream("clone reports for %s: %w", environment, err)
		}
		if len(page) > 0 {
			if err := reportRepo.InsertPageIgnoringDuplicates(ctx, page); err != nil {
				return err
			}
			copied += int64(len(page))
		}
		if len(page) < s.pageSize {
			break
		}
		offset += s.pageSize
	}

	if err := stateRepo.MarkCompleted(ctx, environment, copied); err != nil {
		return err
	}
	s.log.Info("Replica clone completed", "environment", environment, "rows", copied)
	return nil
}
