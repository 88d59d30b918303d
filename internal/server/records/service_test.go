package records

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfmw/ttserver/internal/common"
	"github.com/nfmw/ttserver/internal/logging"
	"github.com/nfmw/ttserver/internal/server/arbiter"
	"github.com/nfmw/ttserver/internal/server/users"
)

type memoryRepository struct {
	records map[uuid.UUID]*Record
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{records: make(map[uuid.UUID]*Record)}
}

func (r *memoryRepository) Get(_ context.Context, id uuid.UUID) (*Record, error) {
	rec, ok := r.records[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *rec
	return &copied, nil
}

func (r *memoryRepository) Find(_ context.Context, userID int32, vehicleID, courseID uuid.UUID) (*Record, error) {
	for _, rec := range r.records {
		if rec.UserID == userID && rec.VehicleID == vehicleID && rec.CourseID == courseID {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memoryRepository) FilterList(_ context.Context, filter Filter) ([]*Record, error) {
	var result []*Record
	for _, rec := range r.records {
		if filter.UserID != nil && rec.UserID != *filter.UserID {
			continue
		}
		if filter.VehicleID != nil && rec.VehicleID != *filter.VehicleID {
			continue
		}
		if filter.CourseID != nil && rec.CourseID != *filter.CourseID {
			continue
		}
		copied := *rec
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TotalTicks < result[j].TotalTicks })
	return result, nil
}

func (r *memoryRepository) UpsertIfNotSlower(_ context.Context, candidate *Record) (UpsertResult, error) {
	for _, rec := range r.records {
		if rec.UserID == candidate.UserID && rec.VehicleID == candidate.VehicleID && rec.CourseID == candidate.CourseID {
			if rec.TotalTicks < candidate.TotalTicks {
				return UpsertResult{ID: rec.ID, Improved: false}, nil
			}
			rec.ReplayVersion = candidate.ReplayVersion
			rec.TotalTicks = candidate.TotalTicks
			return UpsertResult{ID: rec.ID, Improved: true}, nil
		}
	}
	id := uuid.New()
	copied := *candidate
	copied.ID = id
	r.records[id] = &copied
	return UpsertResult{ID: id, Improved: true, Inserted: true}, nil
}

func (r *memoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.records, id)
	return nil
}

type memoryBlobs struct {
	blobs map[uuid.UUID][]byte
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{blobs: make(map[uuid.UUID][]byte)}
}

func (b *memoryBlobs) Write(_ context.Context, id uuid.UUID, data []byte) error {
	b.blobs[id] = append([]byte(nil), data...)
	return nil
}

func (b *memoryBlobs) Read(_ context.Context, id uuid.UUID) ([]byte, error) {
	data, ok := b.blobs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return data, nil
}

type fakeInspector struct {
	info  arbiter.ReplayInfo
	err   error
	calls int
}

func (f *fakeInspector) Inspect(_ context.Context, _ []byte) (arbiter.ReplayInfo, error) {
	f.calls++
	return f.info, f.err
}

type fakeDirectory struct {
	byName map[string]*users.User
}

func newFakeDirectory(names map[int32]string) *fakeDirectory {
	d := &fakeDirectory{byName: make(map[string]*users.User)}
	for id, name := range names {
		d.byName[name] = &users.User{ID: id, Username: name}
	}
	return d
}

func (d *fakeDirectory) GetByUsername(_ context.Context, username string) (*users.User, error) {
	u, ok := d.byName[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (d *fakeDirectory) GetByID(_ context.Context, id int32) (*users.User, error) {
	for _, u := range d.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func newTestService(t *testing.T, names map[int32]string) (*Service, *memoryRepository, *memoryBlobs, *fakeInspector) {
	t.Helper()
	repo := newMemoryRepository()
	blobs := newMemoryBlobs()
	inspector := &fakeInspector{info: arbiter.ReplayInfo{ReplayVersion: 3, CheckpointCount: 12, TickCount: 5400}}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	svc := NewService(repo, blobs, inspector, newFakeDirectory(names), logger)
	return svc, repo, blobs, inspector
}

func seedRecord(t *testing.T, repo *memoryRepository, blobs *memoryBlobs, userID int32, ticks int32, data []byte) *Record {
	t.Helper()
	res, err := repo.UpsertIfNotSlower(context.Background(), &Record{
		UserID: userID, VehicleID: uuid.New(), CourseID: uuid.New(),
		ReplayVersion: 3, TotalTicks: ticks,
	})
	require.NoError(t, err)
	if data != nil {
		require.NoError(t, blobs.Write(context.Background(), res.ID, data))
	}
	rec, err := repo.Get(context.Background(), res.ID)
	require.NoError(t, err)
	return rec
}

func TestFetch_ReturnsRecordBlobAndMetadata(t *testing.T) {
	svc, repo, blobs, inspector := newTestService(t, map[int32]string{7: "driver"})

	seeded := seedRecord(t, repo, blobs, 7, 5400, []byte("replay-bytes"))

	rec, info, data, err := svc.Fetch(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, rec.ID)
	assert.Equal(t, []byte("replay-bytes"), data)
	assert.Equal(t, int32(3), info.ReplayVersion)
	assert.Equal(t, 1, inspector.calls)
}

func TestFetch_UnknownRecord(t *testing.T) {
	svc, _, _, inspector := newTestService(t, nil)

	_, _, _, err := svc.Fetch(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Zero(t, inspector.calls)
}

func TestFetch_MissingBlob(t *testing.T) {
	svc, repo, blobs, _ := newTestService(t, map[int32]string{7: "driver"})

	seeded := seedRecord(t, repo, blobs, 7, 5400, nil)

	_, _, _, err := svc.Fetch(context.Background(), seeded.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFetch_InspectorFailure(t *testing.T) {
	svc, repo, blobs, inspector := newTestService(t, map[int32]string{7: "driver"})
	inspector.err = errors.New("truncated header")

	seeded := seedRecord(t, repo, blobs, 7, 5400, []byte("replay-bytes"))

	_, _, _, err := svc.Fetch(context.Background(), seeded.ID)
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestSearch_RequiresAFilter(t *testing.T) {
	svc, _, _, _ := newTestService(t, nil)

	_, err := svc.Search(context.Background(), SearchFilter{})
	assert.ErrorIs(t, err, common.ErrorEmptySearch)
}

func TestSearch_UnknownUsername(t *testing.T) {
	svc, _, _, _ := newTestService(t, map[int32]string{7: "driver"})

	_, err := svc.Search(context.Background(), SearchFilter{Username: "ghost"})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSearch_ByUsernameSortedFastestFirst(t *testing.T) {
	svc, repo, blobs, _ := newTestService(t, map[int32]string{7: "driver"})

	seedRecord(t, repo, blobs, 7, 6000, []byte("slow"))
	seedRecord(t, repo, blobs, 7, 5000, []byte("fast"))

	entries, err := svc.Search(context.Background(), SearchFilter{Username: "driver"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int32(5000), entries[0].Record.TotalTicks)
	assert.Equal(t, int32(6000), entries[1].Record.TotalTicks)
	assert.Equal(t, "driver", entries[0].Username)
}

func TestSearch_VanishedOwnerListsAsUnknown(t *testing.T) {
	svc, repo, blobs, _ := newTestService(t, map[int32]string{7: "driver"})

	seedRecord(t, repo, blobs, 99, 5000, []byte("orphan"))
	course := repoAnyCourse(repo)

	entries, err := svc.Search(context.Background(), SearchFilter{CourseID: &course})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Unknown", entries[0].Username)
}

func repoAnyCourse(repo *memoryRepository) uuid.UUID {
	for _, rec := range repo.records {
		return rec.CourseID
	}
	return uuid.Nil
}
