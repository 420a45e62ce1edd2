// internal/domain/repository_test.go
package domain

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// document is a minimal aggregate for exercising the repository contract.
type document struct {
	Root
	Title string `json:"title"`
	State string `json:"state"`
}

func (d *document) AggregateType() string { return "document" }

func newDocument(t *testing.T, title string) *document {
	t.Helper()
	d := &document{
		Root:  Root{ID: uuid.New()},
		Title: title,
		State: "draft",
	}
	require.NoError(t, d.Raise("DocumentCreated", map[string]string{"title": title, "state": "draft"}))
	return d
}

func (d *document) Publish() error {
	if err := Guard("publish", d.State, "draft"); err != nil {
		return err
	}
	if err := d.Raise("DocumentPublished", map[string]string{"state": "published"}); err != nil {
		return err
	}
	d.State = "published"
	return nil
}

func (d *document) Archive() error {
	if err := Guard("archive", d.State, "published"); err != nil {
		return err
	}
	if err := d.Raise("DocumentArchived", map[string]string{"state": "archived"}); err != nil {
		return err
	}
	d.State = "archived"
	return nil
}

type repoFixture struct {
	store *MemoryEventStore
	bus   *EventBus
	repo  *MemoryRepository[*document]
}

func newRepoFixture() *repoFixture {
	store := NewMemoryEventStore()
	bus := NewEventBus(zap.NewNop(), store, nil)
	repo := NewMemoryRepository(store, bus, func() *document { return &document{} })
	return &repoFixture{store: store, bus: bus, repo: repo}
}

func TestSavePersistsBufferedEventsInOrder(t *testing.T) {
	ctx := context.Background()
	f := newRepoFixture()

	d := newDocument(t, "Web Server")
	require.NoError(t, d.Publish())
	buffered := d.UncommittedEvents()
	require.Len(t, buffered, 2)

	require.NoError(t, f.repo.Save(ctx, d))

	assert.Equal(t, 2, d.AggregateVersion())
	assert.Empty(t, d.UncommittedEvents())

	stored, err := f.store.EventsFor(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for i, e := range stored {
		assert.Equal(t, buffered[i].EventID, e.EventID)
		assert.Equal(t, i+1, e.AggregateVersion)
	}
}

func TestCreateSaveLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newRepoFixture()

	d := newDocument(t, "Web Server")
	assert.Equal(t, "draft", d.State)
	require.Len(t, d.UncommittedEvents(), 1)
	assert.Equal(t, "DocumentCreated", d.UncommittedEvents()[0].EventType)

	require.NoError(t, f.repo.Save(ctx, d))
	assert.Equal(t, 1, d.AggregateVersion())

	stored, err := f.store.EventsFor(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 1, stored[0].AggregateVersion)
}

func TestTransitionThenSaveIncrementsVersion(t *testing.T) {
	ctx := context.Background()
	f := newRepoFixture()

	d := newDocument(t, "Web Server")
	require.NoError(t, f.repo.Save(ctx, d))

	loaded, err := f.repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.AggregateVersion())

	require.NoError(t, loaded.Publish())
	require.NoError(t, f.repo.Save(ctx, loaded))

	assert.Equal(t, 2, loaded.AggregateVersion())
	assert.Equal(t, "published", loaded.State)

	stored, err := f.store.EventsFor(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 2, stored[1].AggregateVersion)
}

func TestConcurrentSaveLosesWithConflict(t *testing.T) {
	ctx := context.Background()
	f := newRepoFixture()

	d := newDocument(t, "Web Server")
	require.NoError(t, d.Publish())
	require.NoError(t, f.repo.Save(ctx, d))

	// two independent copies loaded at version 2
	a1, err := f.repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	a2, err := f.repo.GetByID(ctx, d.ID)
	require.NoError(t, err)

	require.NoError(t, a1.Archive())
	require.NoError(t, f.repo.Save(ctx, a1))
	assert.Equal(t, 3, a1.AggregateVersion())

	require.NoError(t, a2.Archive())
	err = f.repo.Save(ctx, a2)
	var conflict *ConcurrencyConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 2, conflict.Expected)
	assert.Equal(t, 3, conflict.Actual)

	// the losing save appended nothing and its buffer survives for a retry
	stored, err := f.store.EventsFor(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
	assert.Len(t, a2.UncommittedEvents(), 1)
	assert.Equal(t, 2, a2.AggregateVersion())
}

func TestSaveUnsavedAggregateWithNonZeroVersionConflicts(t *testing.T) {
	ctx := context.Background()
	f := newRepoFixture()

	d := newDocument(t, "Ghost")
	d.SetVersion(7)

	err := f.repo.Save(ctx, d)
	var conflict *ConcurrencyConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestInvalidTransitionLeavesBufferUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newRepoFixture()

	d := newDocument(t, "Web Server")
	require.NoError(t, f.repo.Save(ctx, d))

	loaded, err := f.repo.GetByID(ctx, d.ID)
	require.NoError(t, err)

	// archive is only valid from published
	err = loaded.Archive()
	var transition *InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Empty(t, loaded.UncommittedEvents())
}

func TestSavePublishesEventsNonDurably(t *testing.T) {
	ctx := context.Background()
	f := newRepoFixture()

	handler := &recordingHandler{name: "projector"}
	f.bus.Subscribe("DocumentCreated", handler)

	d := newDocument(t, "Web Server")
	require.NoError(t, f.repo.Save(ctx, d))

	require.Len(t, handler.events, 1)
	assert.Equal(t, d.ID, handler.events[0].AggregateID)

	// exactly one copy in the store: the save appended, the publish did not
	stored, err := f.store.EventsFor(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestGetByIDUnknown(t *testing.T) {
	f := newRepoFixture()
	_, err := f.repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteExistsCount(t *testing.T) {
	ctx := context.Background()
	f := newRepoFixture()

	d1 := newDocument(t, "One")
	d2 := newDocument(t, "Two")
	require.NoError(t, f.repo.Save(ctx, d1))
	require.NoError(t, f.repo.Save(ctx, d2))

	count, err := f.repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	exists, err := f.repo.Exists(ctx, d1.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, f.repo.Delete(ctx, d1))

	exists, err = f.repo.Exists(ctx, d1.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	all, err := f.repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, d2.ID, all[0].ID)

	// history stays in the append-only log after state deletion
	stored, err := f.store.EventsFor(ctx, d1.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestSaveWithoutEventsIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newRepoFixture()

	d := newDocument(t, "Web Server")
	require.NoError(t, f.repo.Save(ctx, d))
	require.NoError(t, f.repo.Save(ctx, d))
	assert.Equal(t, 1, d.AggregateVersion())
}
