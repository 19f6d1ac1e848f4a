package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/rbrowse/internal/log"
	"github.com/slok/rbrowse/internal/model"
	"github.com/slok/rbrowse/internal/storage/sqlite"
)

func recordFixture(id string, taskID model.TaskID, createdAt time.Time) model.TaskRecord {
	return model.TaskRecord{
		ID:        id,
		TaskID:    taskID,
		Kind:      model.TaskKindCommand,
		Target:    `ren "C:\dir\a.txt" "b.txt"`,
		Status:    model.TaskStateRunning,
		CreatedAt: createdAt,
	}
}

func newRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: log.Noop,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestNewRepositoryInvalidConfig(t *testing.T) {
	_, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{})
	assert.Error(t, err)
}

func TestRepositoryTaskRecords(t *testing.T) {
	t0 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := map[string]struct {
		actions    func(ctx context.Context, t *testing.T, repo *sqlite.Repository) error
		expRecords []model.TaskRecord
		expErr     error
	}{
		"Creating records should list them newest first.": {
			actions: func(ctx context.Context, t *testing.T, repo *sqlite.Repository) error {
				require.NoError(t, repo.CreateTaskRecord(ctx, recordFixture("r1", 1, t0)))
				return repo.CreateTaskRecord(ctx, recordFixture("r2", 2, t0.Add(time.Second)))
			},
			expRecords: []model.TaskRecord{
				recordFixture("r2", 2, t0.Add(time.Second)),
				recordFixture("r1", 1, t0),
			},
		},

		"Records created at the same time should be ordered by id.": {
			actions: func(ctx context.Context, t *testing.T, repo *sqlite.Repository) error {
				require.NoError(t, repo.CreateTaskRecord(ctx, recordFixture("r1", 1, t0)))
				return repo.CreateTaskRecord(ctx, recordFixture("r2", 2, t0))
			},
			expRecords: []model.TaskRecord{
				recordFixture("r2", 2, t0),
				recordFixture("r1", 1, t0),
			},
		},

		"Creating a duplicated record should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *sqlite.Repository) error {
				require.NoError(t, repo.CreateTaskRecord(ctx, recordFixture("r1", 1, t0)))
				return repo.CreateTaskRecord(ctx, recordFixture("r1", 2, t0))
			},
			expErr: model.ErrAlreadyExists,
		},

		"Creating a record without id should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *sqlite.Repository) error {
				return repo.CreateTaskRecord(ctx, recordFixture("", 1, t0))
			},
			expErr: model.ErrNotValid,
		},

		"Updating a record should set its final state.": {
			actions: func(ctx context.Context, t *testing.T, repo *sqlite.Repository) error {
				require.NoError(t, repo.CreateTaskRecord(ctx, recordFixture("r1", 1, t0)))

				rec := recordFixture("r1", 1, t0)
				finished := t0.Add(1500 * time.Millisecond)
				rec.Status = model.TaskStateFailed
				rec.Error = "access denied"
				rec.FinishedAt = &finished
				return repo.UpdateTaskRecord(ctx, rec)
			},
			expRecords: func() []model.TaskRecord {
				rec := recordFixture("r1", 1, t0)
				finished := t0.Add(1500 * time.Millisecond)
				rec.Status = model.TaskStateFailed
				rec.Error = "access denied"
				rec.FinishedAt = &finished
				return []model.TaskRecord{rec}
			}(),
		},

		"Updating a missing record should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *sqlite.Repository) error {
				return repo.UpdateTaskRecord(ctx, recordFixture("r1", 1, t0))
			},
			expErr: model.ErrNotFound,
		},

		"Deleting records should empty the journal.": {
			actions: func(ctx context.Context, t *testing.T, repo *sqlite.Repository) error {
				require.NoError(t, repo.CreateTaskRecord(ctx, recordFixture("r1", 1, t0)))
				require.NoError(t, repo.CreateTaskRecord(ctx, recordFixture("r2", 2, t0)))
				return repo.DeleteTaskRecords(ctx)
			},
			expRecords: []model.TaskRecord{},
		},

		"Deleting an empty journal should not fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *sqlite.Repository) error {
				return repo.DeleteTaskRecords(ctx)
			},
			expRecords: []model.TaskRecord{},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			ctx := context.Background()
			repo := newRepo(t)

			err := test.actions(ctx, t, repo)
			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				return
			}
			require.NoError(t, err)

			got, err := repo.ListTaskRecords(ctx, 0)
			require.NoError(t, err)
			assert.Equal(test.expRecords, got)
		})
	}
}

func TestRepositoryListLimit(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	t0 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, repo.CreateTaskRecord(ctx, recordFixture(id, model.TaskID(i+1), t0.Add(time.Duration(i)*time.Second))))
	}

	got, err := repo.ListTaskRecords(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r3", got[0].ID)
	assert.Equal(t, "r2", got[1].ID)
}

func TestRepositoryPersistence(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "rbrowse.db")
	t0 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: dbPath})
	require.NoError(t, err)
	require.NoError(t, repo.CreateTaskRecord(ctx, recordFixture("r1", 1, t0)))
	require.NoError(t, repo.Close())

	// Reopening runs the migrations again without changes.
	repo, err = sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: dbPath})
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.ListTaskRecords(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []model.TaskRecord{recordFixture("r1", 1, t0)}, got)
}

func TestRepositoryConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	t0 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers*2)
	for i := 0; i < writers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := recordFixture(fmt.Sprintf("r%d", i), model.TaskID(i+1), t0)
			if err := repo.CreateTaskRecord(ctx, rec); err != nil {
				errs <- err
				return
			}
			rec.Status = model.TaskStateCompleted
			errs <- repo.UpdateTaskRecord(ctx, rec)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	got, err := repo.ListTaskRecords(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, writers)
	for _, r := range got {
		assert.Equal(t, model.TaskStateCompleted, r.Status)
	}
}
