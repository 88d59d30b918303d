package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nfmw/ttserver/internal/common"
	"github.com/nfmw/ttserver/internal/logging"
	"github.com/nfmw/ttserver/internal/server/arbiter"
	"github.com/nfmw/ttserver/internal/server/blobstore"
	"github.com/nfmw/ttserver/internal/server/users"
)

// Inspector is the slice of the arbiter pool the read paths use: header
// extraction only, no re-simulation.
type Inspector interface {
	Inspect(ctx context.Context, data []byte) (arbiter.ReplayInfo, error)
}

// UserDirectory resolves usernames for filters and display.
type UserDirectory interface {
	GetByUsername(ctx context.Context, username string) (*users.User, error)
	GetByID(ctx context.Context, id int32) (*users.User, error)
}

// SearchFilter is a user-facing record query. Zero-valued fields do not
// constrain, but at least one field must be set.
type SearchFilter struct {
	Username  string
	VehicleID *uuid.UUID
	CourseID  *uuid.UUID
}

// SearchEntry is a record joined with its owner's display name.
type SearchEntry struct {
	Record   *Record
	Username string
}

// Service serves the record read paths: fetching a single record with
// its replay, and searching the ledger.
type Service struct {
	repo      Repository
	blobs     blobstore.BlobStore
	inspector Inspector
	directory UserDirectory
	logger    logging.Logger
}

func NewService(repo Repository, blobs blobstore.BlobStore, inspector Inspector, directory UserDirectory, logger logging.Logger) *Service {
	return &Service{
		repo:      repo,
		blobs:     blobs,
		inspector: inspector,
		directory: directory,
		logger:    logger.With("module", "records"),
	}
}

// Fetch returns the record row, its replay bytes, and the replay metadata
// extracted from them. Validity was established at submission time, so
// the replay is only inspected, never re-simulated.
func (s *Service) Fetch(ctx context.Context, recordID uuid.UUID) (*Record, arbiter.ReplayInfo, []byte, error) {
	rec, err := s.repo.Get(ctx, recordID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, arbiter.ReplayInfo{}, nil, common.ErrorNotFound
		}
		return nil, arbiter.ReplayInfo{}, nil, fmt.Errorf("%w: loading record: %w", common.ErrorInternal, err)
	}

	data, err := s.blobs.Read(ctx, rec.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Row without blob: the write may still be pending on the
			// sweep, or the store lost it. Either way the record cannot
			// be served whole.
			s.logger.Warn(ctx, "record has no replay blob", "record_id", rec.ID)
			return nil, arbiter.ReplayInfo{}, nil, common.ErrorNotFound
		}
		return nil, arbiter.ReplayInfo{}, nil, fmt.Errorf("%w: reading replay blob: %w", common.ErrorInternal, err)
	}

	info, err := s.inspector.Inspect(ctx, data)
	if err != nil {
		return nil, arbiter.ReplayInfo{}, nil, fmt.Errorf("%w: inspecting replay: %w", common.ErrorInternal, err)
	}

	return rec, info, data, nil
}

// Search lists records matching the filter, fastest first, with owner
// display names attached. An unconstrained search is refused.
func (s *Service) Search(ctx context.Context, filter SearchFilter) ([]SearchEntry, error) {
	if filter.Username == "" && filter.VehicleID == nil && filter.CourseID == nil {
		return nil, common.ErrorEmptySearch
	}

	repoFilter := Filter{VehicleID: filter.VehicleID, CourseID: filter.CourseID}
	if filter.Username != "" {
		user, err := s.directory.GetByUsername(ctx, filter.Username)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrorNotFound
			}
			return nil, fmt.Errorf("%w: resolving username: %w", common.ErrorInternal, err)
		}
		repoFilter.UserID = &user.ID
	}

	recs, err := s.repo.FilterList(ctx, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("%w: listing records: %w", common.ErrorInternal, err)
	}

	// Resolve display names once per distinct owner. A record whose user
	// row has vanished still lists, under a placeholder name.
	names := make(map[int32]string)
	entries := make([]SearchEntry, 0, len(recs))
	for _, rec := range recs {
		name, ok := names[rec.UserID]
		if !ok {
			owner, err := s.directory.GetByID(ctx, rec.UserID)
			switch {
			case err == nil:
				name = owner.Username
			case errors.Is(err, common.ErrorNotFound):
				name = "Unknown"
			default:
				return nil, fmt.Errorf("%w: resolving record owner: %w", common.ErrorInternal, err)
			}
			names[rec.UserID] = name
		}
		entries = append(entries, SearchEntry{Record: rec, Username: name})
	}

	return entries, nil
}
