package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestInsertAndGetEntry(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	inserted, err := store.InsertEntry(ctx, Entry{
		Title:           "Jaws",
		Year:            1975,
		CatalogueNumber: "PILF-1618",
		Actors:          []string{"Roy Scheider", "Richard Dreyfuss"},
	})
	require.NoError(t, err)
	require.NotZero(t, inserted.ID)

	got, err := store.GetEntry(ctx, inserted.ID)
	require.NoError(t, err)
	require.Equal(t, "Jaws", got.Title)
	require.Equal(t, 1975, got.Year)
	require.Equal(t, "PILF-1618", got.CatalogueNumber)
	require.Equal(t, []string{"Roy Scheider", "Richard Dreyfuss"}, got.Actors)
	require.Empty(t, got.PosterURL)
}

func TestGetEntryNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetEntry(context.Background(), 9999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListMissingSelectsAndOrders(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	complete, err := store.InsertEntry(ctx, Entry{
		Title:     "Alien",
		Year:      1979,
		PosterURL: "https://example.com/alien.jpg",
	})
	require.NoError(t, err)

	missingA, err := store.InsertEntry(ctx, Entry{Title: "Jaws", Year: 1975})
	require.NoError(t, err)
	missingB, err := store.InsertEntry(ctx, Entry{CatalogueNumber: "PILF-1618"})
	require.NoError(t, err)

	// Neither catalogue number nor title: never queryable, never selected.
	_, err = store.InsertEntry(ctx, Entry{Year: 1980})
	require.NoError(t, err)

	entries, err := store.ListMissing(ctx, []string{FieldPosterURL}, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, missingA.ID, entries[0].ID)
	require.Equal(t, missingB.ID, entries[1].ID)

	for _, e := range entries {
		require.NotEqual(t, complete.ID, e.ID)
	}
}

func TestListMissingHonorsLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.InsertEntry(ctx, Entry{Title: "Movie", Year: 1990 + i})
		require.NoError(t, err)
	}

	entries, err := store.ListMissing(ctx, []string{FieldPosterURL}, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
}

func TestListMissingRejectsUnknownField(t *testing.T) {
	store := openTestStore(t)

	_, err := store.ListMissing(context.Background(), []string{"rating"}, 10)
	require.ErrorIs(t, err, ErrUnknownField)
}

func TestApplyPatchFillsOnlyEmptyFields(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entry, err := store.InsertEntry(ctx, Entry{
		Title:       "Jaws",
		Year:        1975,
		Description: "User-written synopsis",
	})
	require.NoError(t, err)

	err = store.ApplyPatch(ctx, entry.ID, map[string]any{
		FieldPosterURL:   "https://image.tmdb.org/t/p/w500/abc.jpg",
		FieldDescription: "Provider synopsis that must not win",
		FieldActors:      []string{"Roy Scheider"},
	})
	require.NoError(t, err)

	got, err := store.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, "https://image.tmdb.org/t/p/w500/abc.jpg", got.PosterURL)
	require.Equal(t, "User-written synopsis", got.Description)
	require.Equal(t, []string{"Roy Scheider"}, got.Actors)
}

func TestApplyPatchAllFieldsPresentIsNoOp(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entry, err := store.InsertEntry(ctx, Entry{
		Title:     "Jaws",
		PosterURL: "https://example.com/user.jpg",
	})
	require.NoError(t, err)

	err = store.ApplyPatch(ctx, entry.ID, map[string]any{
		FieldPosterURL: "https://example.com/provider.jpg",
	})
	require.NoError(t, err)

	got, err := store.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, "https://example.com/user.jpg", got.PosterURL)
}

func TestApplyPatchNotFound(t *testing.T) {
	store := openTestStore(t)

	err := store.ApplyPatch(context.Background(), 424242, map[string]any{
		FieldPosterURL: "https://example.com/p.jpg",
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestApplyPatchRejectsUnknownField(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entry, err := store.InsertEntry(ctx, Entry{Title: "Jaws"})
	require.NoError(t, err)

	err = store.ApplyPatch(ctx, entry.ID, map[string]any{"loaned_to": "Quint"})
	require.ErrorIs(t, err, ErrUnknownField)
}

func TestApplyPatchEmptyValuesDropped(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entry, err := store.InsertEntry(ctx, Entry{Title: "Jaws"})
	require.NoError(t, err)

	err = store.ApplyPatch(ctx, entry.ID, map[string]any{
		FieldPosterURL: "",
		FieldActors:    []string{},
	})
	require.NoError(t, err)

	got, err := store.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.Empty(t, got.PosterURL)
	require.Empty(t, got.Actors)
}
