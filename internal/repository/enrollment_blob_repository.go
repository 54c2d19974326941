package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/rsaf-qualification-api/internal/models"
	"github.com/noah-isme/rsaf-qualification-api/pkg/storage"
)

// DefaultEnrollmentsKey is the storage key holding the serialized enrollment collection.
const DefaultEnrollmentsKey = "rsaf_enrollments"

// ErrEnrollmentStale is returned by Update when the stored status no longer matches the expected one.
var ErrEnrollmentStale = errors.New("enrollment status changed concurrently")

// ErrEnrollmentBlocked is returned by CreateUnlessBlocked when existing enrollments forbid a new one.
var ErrEnrollmentBlocked = errors.New("enrollment blocked by an existing enrollment")

// BlobEnrollmentRepository keeps the whole collection in memory and writes it back as one JSON array.
type BlobEnrollmentRepository struct {
	store  storage.KeyValueStore
	key    string
	onSave func(time.Duration)

	mu     sync.Mutex
	loaded bool
	items  []models.Enrollment
}

// BlobOption customises BlobEnrollmentRepository.
type BlobOption func(*BlobEnrollmentRepository)

// WithSaveObserver reports the duration of every collection write.
func WithSaveObserver(fn func(time.Duration)) BlobOption {
	return func(r *BlobEnrollmentRepository) {
		r.onSave = fn
	}
}

// NewBlobEnrollmentRepository constructs the repository. The collection is read on first use or by Load.
func NewBlobEnrollmentRepository(store storage.KeyValueStore, key string, opts ...BlobOption) *BlobEnrollmentRepository {
	if key == "" {
		key = DefaultEnrollmentsKey
	}
	r := &BlobEnrollmentRepository{store: store, key: key}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reads the persisted collection. An absent key yields an empty collection.
func (r *BlobEnrollmentRepository) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = false
	return r.ensureLoaded(ctx)
}

func (r *BlobEnrollmentRepository) ensureLoaded(ctx context.Context) error {
	if r.loaded {
		return nil
	}
	raw, err := r.store.Get(ctx, r.key)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			return fmt.Errorf("load enrollments: %w", err)
		}
		r.items = []models.Enrollment{}
		r.loaded = true
		return nil
	}
	var items []models.Enrollment
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("decode enrollments: %w", err)
	}
	if items == nil {
		items = []models.Enrollment{}
	}
	r.items = items
	r.loaded = true
	return nil
}

func (r *BlobEnrollmentRepository) save(ctx context.Context) error {
	payload, err := json.Marshal(r.items)
	if err != nil {
		return fmt.Errorf("encode enrollments: %w", err)
	}
	start := time.Now()
	err = r.store.Put(ctx, r.key, payload)
	if r.onSave != nil {
		r.onSave(time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("save enrollments: %w", err)
	}
	return nil
}

// List returns copies of the enrollments matching filter in insertion order.
func (r *BlobEnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	result := make([]models.Enrollment, 0, len(r.items))
	for _, e := range r.items {
		if filter.Matches(e) {
			result = append(result, e.Clone())
		}
	}
	return result, nil
}

// FindByID returns a copy of the enrollment or sql.ErrNoRows.
func (r *BlobEnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	idx := r.indexOf(id)
	if idx < 0 {
		return nil, sql.ErrNoRows
	}
	e := r.items[idx].Clone()
	return &e, nil
}

// Create appends the enrollment and persists the collection. Nothing changes if the write fails.
func (r *BlobEnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx); err != nil {
		return err
	}
	return r.appendLocked(ctx, enrollment)
}

// CreateUnlessBlocked appends the enrollment unless blocked rejects the trainee's existing
// enrollments for the same qualification. The check and the write share one lock.
func (r *BlobEnrollmentRepository) CreateUnlessBlocked(ctx context.Context, enrollment *models.Enrollment, blocked func(existing []models.Enrollment) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx); err != nil {
		return err
	}
	if blocked != nil {
		filter := models.EnrollmentFilter{Trainee: enrollment.Trainee, QualificationID: enrollment.QualificationID}
		existing := make([]models.Enrollment, 0)
		for _, e := range r.items {
			if filter.Matches(e) {
				existing = append(existing, e.Clone())
			}
		}
		if blocked(existing) {
			return ErrEnrollmentBlocked
		}
	}
	return r.appendLocked(ctx, enrollment)
}

func (r *BlobEnrollmentRepository) appendLocked(ctx context.Context, enrollment *models.Enrollment) error {
	if r.indexOf(enrollment.ID) >= 0 {
		return fmt.Errorf("create enrollment %s: duplicate id", enrollment.ID)
	}
	r.items = append(r.items, enrollment.Clone())
	if err := r.save(ctx); err != nil {
		r.items = r.items[:len(r.items)-1]
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Update replaces the stored enrollment when its status still equals expected, then persists.
func (r *BlobEnrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment, expected models.EnrollmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx); err != nil {
		return err
	}
	idx := r.indexOf(enrollment.ID)
	if idx < 0 {
		return sql.ErrNoRows
	}
	if r.items[idx].Status != expected {
		return ErrEnrollmentStale
	}
	previous := r.items[idx]
	r.items[idx] = enrollment.Clone()
	if err := r.save(ctx); err != nil {
		r.items[idx] = previous
		return fmt.Errorf("update enrollment: %w", err)
	}
	return nil
}

func (r *BlobEnrollmentRepository) indexOf(id string) int {
	for i := range r.items {
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}
