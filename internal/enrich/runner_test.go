package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yourflix/enrich/internal/catalog"
	"github.com/yourflix/enrich/internal/provider"
	"github.com/yourflix/enrich/internal/provider/tmdb"
	"github.com/yourflix/enrich/internal/ratelimit"
)

func openTestStore(t *testing.T) *catalog.SQLiteStore {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// TestRunBatchJawsScenario resolves a title-only entry against a fake TMDB
// and checks the persisted poster URL is the image base plus poster_path.
func TestRunBatchJawsScenario(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/movie", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"id":787,"title":"Jaws","poster_path":"/abc.jpg","release_date":"1975-06-20"}]}`))
	})
	mux.HandleFunc("/movie/787", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":787,"credits":{"crew":[],"cast":[]}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := tmdb.NewClient("key",
		tmdb.WithBaseURL(server.URL),
		tmdb.WithHTTPClient(server.Client()),
		tmdb.WithImageBaseURL("https://image.tmdb.org/t/p/w500"),
	)
	resolver := NewResolver(
		[]provider.Provider{tmdb.NewProvider(client)},
		ratelimit.NewRegistry(time.Millisecond, 2),
	)

	store := openTestStore(t)
	ctx := context.Background()
	entry, err := store.InsertEntry(ctx, catalog.Entry{Title: "Jaws", Year: 1975})
	require.NoError(t, err)

	runner := NewRunner(store, resolver, WithConcurrency(1))
	report, err := runner.RunBatch(ctx, 10,
		[]string{catalog.FieldPosterURL, catalog.FieldExternalID})
	require.NoError(t, err)

	require.Equal(t, 1, report.Total)
	require.Equal(t, 1, report.Matched)
	require.Zero(t, report.Failed)

	got, err := store.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, "https://image.tmdb.org/t/p/w500/abc.jpg", got.PosterURL)
	require.Equal(t, "787", got.ExternalID)
}

func TestRunBatchSecondRunIsIdempotent(t *testing.T) {
	p := &fakeProvider{
		name: "tmdb",
		candidates: []provider.Candidate{{
			Source:     "tmdb",
			Confidence: provider.MatchTitleYear,
			PosterURL:  "https://image.tmdb.org/t/p/w500/abc.jpg",
			ExternalID: "787",
		}},
	}
	resolver := newTestResolver(p)

	store := openTestStore(t)
	ctx := context.Background()
	_, err := store.InsertEntry(ctx, catalog.Entry{Title: "Jaws", Year: 1975})
	require.NoError(t, err)

	runner := NewRunner(store, resolver, WithConcurrency(1))
	fields := []string{catalog.FieldPosterURL, catalog.FieldExternalID}

	first, err := runner.RunBatch(ctx, 10, fields)
	require.NoError(t, err)
	require.Equal(t, 1, first.Matched)
	callsAfterFirst := p.calls.Load()

	// Fully populated target fields: the eligibility filter excludes the
	// entry and no provider call is made.
	second, err := runner.RunBatch(ctx, 10, fields)
	require.NoError(t, err)
	require.Zero(t, second.Total)
	require.Equal(t, callsAfterFirst, p.calls.Load())
}

func TestRunBatchEntryFailureDoesNotAbortBatch(t *testing.T) {
	failing := &fakeProvider{
		name: "tmdb",
		err:  provider.NewError("tmdb", provider.KindTransport, context.DeadlineExceeded),
	}
	resolver := newTestResolver(failing)

	store := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := store.InsertEntry(ctx, catalog.Entry{Title: "Movie", Year: 1990 + i})
		require.NoError(t, err)
	}

	runner := NewRunner(store, resolver, WithConcurrency(2))
	report, err := runner.RunBatch(ctx, 10, []string{catalog.FieldPosterURL})
	require.NoError(t, err)
	require.Equal(t, 3, report.Total)
	require.Equal(t, 3, report.Failed)
	require.Len(t, report.Failures, 3)
}

type panickyProvider struct{}

func (panickyProvider) Name() string { return "panicky" }

func (panickyProvider) Supports(provider.Query) bool { return true }

func (panickyProvider) Resolve(context.Context, provider.Query) ([]provider.Candidate, error) {
	panic("provider exploded")
}

func TestRunBatchRecoversFromPanic(t *testing.T) {
	resolver := newTestResolver(panickyProvider{})

	store := openTestStore(t)
	ctx := context.Background()
	_, err := store.InsertEntry(ctx, catalog.Entry{Title: "Jaws"})
	require.NoError(t, err)

	runner := NewRunner(store, resolver, WithConcurrency(1))
	report, err := runner.RunBatch(ctx, 10, []string{catalog.FieldPosterURL})
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed)
	require.Contains(t, report.Failures[0].Reason, "panic")
}

// vanishingStore wraps a real store but reports every patch target as gone,
// simulating an entry deleted mid-run.
type vanishingStore struct {
	catalog.Store
}

func (v *vanishingStore) ApplyPatch(ctx context.Context, id int64, patch map[string]any) error {
	return catalog.ErrNotFound
}

func TestRunBatchEntryVanishedBeforeWrite(t *testing.T) {
	p := &fakeProvider{
		name: "tmdb",
		candidates: []provider.Candidate{{
			Source:     "tmdb",
			Confidence: provider.MatchTitleYear,
			PosterURL:  "https://image.tmdb.org/t/p/w500/abc.jpg",
		}},
	}
	resolver := newTestResolver(p)

	store := openTestStore(t)
	ctx := context.Background()
	_, err := store.InsertEntry(ctx, catalog.Entry{Title: "Jaws"})
	require.NoError(t, err)

	runner := NewRunner(&vanishingStore{Store: store}, resolver, WithConcurrency(1))
	report, err := runner.RunBatch(ctx, 10, []string{catalog.FieldPosterURL})
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed)
	require.Contains(t, report.Failures[0].Reason, "vanished")
}

func TestRunBatchRejectsNonPositiveLimit(t *testing.T) {
	runner := NewRunner(openTestStore(t), newTestResolver(&fakeProvider{name: "tmdb"}))

	_, err := runner.RunBatch(context.Background(), 0, []string{catalog.FieldPosterURL})
	require.Error(t, err)
}

func TestRunReportFailureListIsBounded(t *testing.T) {
	report := &RunReport{}
	for i := 0; i < maxReportedFailures+5; i++ {
		report.record(Outcome{
			EntryID: int64(i),
			Status:  StatusFailed,
			Err:     context.DeadlineExceeded,
		})
	}
	require.Equal(t, maxReportedFailures+5, report.Failed)
	require.Len(t, report.Failures, maxReportedFailures)
}
