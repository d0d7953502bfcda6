package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	entries   map[Kind]map[int64]Entry
	nextID    int64
	deleteErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{entries: map[Kind]map[int64]Entry{
		KindCategory: {},
		KindBrand:    {},
		KindSupplier: {},
	}}
}

func (r *fakeRepo) Insert(ctx context.Context, kind Kind, e Entry) (Entry, error) {
	for _, stored := range r.entries[kind] {
		if stored.OwnerID == e.OwnerID && stored.Name == e.Name {
			return Entry{}, ErrDuplicate
		}
	}
	r.nextID++
	e.ID = r.nextID
	r.entries[kind][e.ID] = e
	return e, nil
}

func (r *fakeRepo) List(ctx context.Context, kind Kind, ownerID int64) ([]Entry, error) {
	var out []Entry
	for _, e := range r.entries[kind] {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeRepo) Get(ctx context.Context, kind Kind, ownerID, id int64) (Entry, error) {
	e, ok := r.entries[kind][id]
	if !ok || e.OwnerID != ownerID {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (r *fakeRepo) Rename(ctx context.Context, kind Kind, ownerID, id int64, name string) (Entry, error) {
	e, ok := r.entries[kind][id]
	if !ok || e.OwnerID != ownerID {
		return Entry{}, ErrNotFound
	}
	e.Name = name
	r.entries[kind][id] = e
	return e, nil
}

// DeleteCascade mirrors the repository's single-transaction cascade:
// detach runs first, the entry is removed only when both steps succeed.
func (r *fakeRepo) DeleteCascade(ctx context.Context, kind Kind, ownerID, id int64, detach func(context.Context, pgx.Tx) error) error {
	e, ok := r.entries[kind][id]
	if !ok || e.OwnerID != ownerID {
		return ErrNotFound
	}
	if err := detach(ctx, nil); err != nil {
		return err
	}
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.entries[kind], id)
	return nil
}

type fakeDetacher struct {
	columns []string
	refIDs  []int64
}

func (d *fakeDetacher) DetachReference(ctx context.Context, tx pgx.Tx, ownerID int64, column string, refID int64) error {
	d.columns = append(d.columns, column)
	d.refIDs = append(d.refIDs, refID)
	return nil
}

func TestCreateCategoryUppercasesName(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeDetacher{})

	entry, err := svc.Create(context.Background(), KindCategory, 7, UpsertRequest{Name: "  kitchen ware "})
	require.NoError(t, err)
	assert.Equal(t, "KITCHEN WARE", entry.Name)
}

func TestCreateBrandKeepsCase(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeDetacher{})

	entry, err := svc.Create(context.Background(), KindBrand, 7, UpsertRequest{Name: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "Acme", entry.Name)
}

func TestCreateDuplicateName(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeDetacher{})
	ctx := context.Background()

	_, err := svc.Create(ctx, KindCategory, 7, UpsertRequest{Name: "kitchen"})
	require.NoError(t, err)

	// uppercase collapses case variants onto the same stored name
	_, err = svc.Create(ctx, KindCategory, 7, UpsertRequest{Name: "KITCHEN"})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestDeleteDetachesProductReferences(t *testing.T) {
	repo := newFakeRepo()
	detacher := &fakeDetacher{}
	svc := NewService(repo, detacher)
	ctx := context.Background()

	entry, err := svc.Create(ctx, KindSupplier, 7, UpsertRequest{Name: "Acme"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, KindSupplier, 7, entry.ID))

	require.Len(t, detacher.columns, 1)
	assert.Equal(t, "supplier_id", detacher.columns[0])
	assert.Equal(t, entry.ID, detacher.refIDs[0])

	_, err = svc.Get(ctx, KindSupplier, 7, entry.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteFailureKeepsEntry(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeDetacher{})
	ctx := context.Background()

	entry, err := svc.Create(ctx, KindBrand, 7, UpsertRequest{Name: "Acme"})
	require.NoError(t, err)

	repo.deleteErr = errors.New("boom")
	require.Error(t, svc.Delete(ctx, KindBrand, 7, entry.ID))

	// the cascade is all-or-nothing: the entry survives a failed delete
	_, err = svc.Get(ctx, KindBrand, 7, entry.ID)
	require.NoError(t, err)
}

func TestDeleteMissingEntrySkipsDetach(t *testing.T) {
	detacher := &fakeDetacher{}
	svc := NewService(newFakeRepo(), detacher)

	err := svc.Delete(context.Background(), KindCategory, 7, 42)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, detacher.columns)
}

func TestUnknownKind(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeDetacher{})

	_, err := svc.Create(context.Background(), Kind("warehouse"), 7, UpsertRequest{Name: "x"})
	require.ErrorIs(t, err, ErrBadKind)
}
