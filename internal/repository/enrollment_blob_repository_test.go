package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rsaf-qualification-api/internal/models"
	"github.com/noah-isme/rsaf-qualification-api/pkg/storage"
)

type flakyStore struct {
	*storage.MemoryStore
	failPut bool
}

func (f *flakyStore) Put(ctx context.Context, key string, value []byte) error {
	if f.failPut {
		return errors.New("disk full")
	}
	return f.MemoryStore.Put(ctx, key, value)
}

func pendingEnrollment(id string) *models.Enrollment {
	return &models.Enrollment{
		ID:                id,
		QualificationID:   1,
		QualificationCode: "RSAF-F16-001",
		QualificationName: "F-16 Fighter Pilot Qualification",
		Trainee:           "John Tan",
		EnrolledDate:      "2024-03-01",
		Status:            models.EnrollmentStatusPending,
	}
}

func TestBlobEnrollmentRepositoryEmptyStore(t *testing.T) {
	repo := NewBlobEnrollmentRepository(storage.NewMemoryStore(), "")

	require.NoError(t, repo.Load(context.Background()))
	items, err := repo.List(context.Background(), models.EnrollmentFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestBlobEnrollmentRepositoryCreatePersists(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	var saves int
	repo := NewBlobEnrollmentRepository(store, DefaultEnrollmentsKey, WithSaveObserver(func(time.Duration) { saves++ }))

	require.NoError(t, repo.Create(ctx, pendingEnrollment("e1")))
	assert.Equal(t, 1, saves)

	raw, err := store.Get(ctx, DefaultEnrollmentsKey)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"currentStage":"Awaiting Trainer Approval"`)

	reloaded := NewBlobEnrollmentRepository(store, DefaultEnrollmentsKey)
	found, err := reloaded.FindByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, *pendingEnrollment("e1"), *found)

	assert.Error(t, repo.Create(ctx, pendingEnrollment("e1")))
}

func TestBlobEnrollmentRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewBlobEnrollmentRepository(storage.NewMemoryStore(), "")
	e := pendingEnrollment("e1")
	e.Status = models.EnrollmentStatusTrainerApproved
	e.TrainerApproval = &models.Approval{Approver: "Sarah Lim", Date: "2024-03-02"}
	require.NoError(t, repo.Create(ctx, e))

	found, err := repo.FindByID(ctx, "e1")
	require.NoError(t, err)
	found.TrainerApproval.Approver = "tampered"
	found.Status = models.EnrollmentStatusRejected

	again, err := repo.FindByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Sarah Lim", again.TrainerApproval.Approver)
	assert.Equal(t, models.EnrollmentStatusTrainerApproved, again.Status)
}

func TestBlobEnrollmentRepositoryUpdateIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewBlobEnrollmentRepository(storage.NewMemoryStore(), "")
	require.NoError(t, repo.Create(ctx, pendingEnrollment("e1")))

	next := pendingEnrollment("e1")
	next.Status = models.EnrollmentStatusTrainerApproved
	next.TrainerApproval = &models.Approval{Approver: "Sarah Lim", Date: "2024-03-02"}
	require.NoError(t, repo.Update(ctx, next, models.EnrollmentStatusPending))

	err := repo.Update(ctx, next, models.EnrollmentStatusPending)
	assert.ErrorIs(t, err, ErrEnrollmentStale)

	err = repo.Update(ctx, pendingEnrollment("missing"), models.EnrollmentStatusPending)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestBlobEnrollmentRepositoryRollsBackOnSaveFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: storage.NewMemoryStore()}
	repo := NewBlobEnrollmentRepository(store, "")
	require.NoError(t, repo.Create(ctx, pendingEnrollment("e1")))
	before, err := store.Get(ctx, DefaultEnrollmentsKey)
	require.NoError(t, err)

	store.failPut = true
	assert.Error(t, repo.Create(ctx, pendingEnrollment("e2")))

	next := pendingEnrollment("e1")
	next.Status = models.EnrollmentStatusTrainerApproved
	next.TrainerApproval = &models.Approval{Approver: "Sarah Lim", Date: "2024-03-02"}
	assert.Error(t, repo.Update(ctx, next, models.EnrollmentStatusPending))

	items, err := repo.List(ctx, models.EnrollmentFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.EnrollmentStatusPending, items[0].Status)
	assert.Nil(t, items[0].TrainerApproval)

	after, err := store.Get(ctx, DefaultEnrollmentsKey)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestBlobEnrollmentRepositoryLoadsBrowserBlob(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	blob := `[{"id":1709280000000,"qualificationId":4,"qualificationCode":"RSAF-SAF-004","qualificationName":"Aviation Safety Officer",
        "trainee":"John Tan","enrolledDate":"2024-03-01","status":"Pending","currentStage":"Awaiting Trainer Approval",
        "trainerApproval":null,"examinerApproval":null,"commanderApproval":null}]`
	require.NoError(t, store.Put(ctx, DefaultEnrollmentsKey, []byte(blob)))

	repo := NewBlobEnrollmentRepository(store, "")
	require.NoError(t, repo.Load(ctx))

	items, err := repo.List(ctx, models.EnrollmentFilter{Trainee: "John Tan"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "1709280000000", items[0].ID)
	assert.Equal(t, 4, items[0].QualificationID)
}

func TestBlobEnrollmentRepositoryRejectsCorruptBlob(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Put(ctx, DefaultEnrollmentsKey, []byte("{not json")))

	repo := NewBlobEnrollmentRepository(store, "")
	assert.Error(t, repo.Load(ctx))
}

func TestBlobEnrollmentRepositoryCreateUnlessBlocked(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	repo := NewBlobEnrollmentRepository(store, "")
	other := pendingEnrollment("e0")
	other.QualificationID = 2
	require.NoError(t, repo.Create(ctx, other))

	var seen []models.Enrollment
	blockAny := func(existing []models.Enrollment) bool {
		seen = existing
		return len(existing) > 0
	}

	require.NoError(t, repo.CreateUnlessBlocked(ctx, pendingEnrollment("e1"), blockAny))
	assert.Empty(t, seen)

	err := repo.CreateUnlessBlocked(ctx, pendingEnrollment("e2"), blockAny)
	assert.ErrorIs(t, err, ErrEnrollmentBlocked)
	require.Len(t, seen, 1)
	assert.Equal(t, "e1", seen[0].ID)

	items, err := repo.List(ctx, models.EnrollmentFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestBlobEnrollmentRepositoryCreateUnlessBlockedSerialisesWriters(t *testing.T) {
	ctx := context.Background()
	repo := NewBlobEnrollmentRepository(storage.NewMemoryStore(), "")
	blockAny := func(existing []models.Enrollment) bool { return len(existing) > 0 }

	const writers = 10
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.CreateUnlessBlocked(ctx, pendingEnrollment(fmt.Sprintf("e%d", i)), blockAny)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ErrEnrollmentBlocked)
	}
	assert.Equal(t, 1, created)

	items, err := repo.List(ctx, models.EnrollmentFilter{Trainee: "John Tan", QualificationID: 1})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
