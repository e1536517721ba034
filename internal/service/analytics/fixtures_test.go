package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kbgraph/internal/domain"
	"kbgraph/internal/domain/services"
	"kbgraph/internal/repository"
	"kbgraph/internal/repository/memory"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeMetrics struct {
	mu      sync.Mutex
	ops     map[string]int
	failed  map[string]int
	pairs   int
	dropped int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{ops: map[string]int{}, failed: map[string]int{}}
}

func (m *fakeMetrics) RecordAnalytics(op string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[op]++
	if err != nil {
		m.failed[op]++
	}
}

func (m *fakeMetrics) AddSimilarityPairs(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairs += n
}

func (m *fakeMetrics) AddDroppedReferences(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped += n
}

func (m *fakeMetrics) RecordStoreCall(string, error) {}

// seedStore loads alice's knowledge base:
//
//	c1 Programming  <- c2 Go      <- c3 Concurrency
//	c4 Empty
//	d1 "Go basics"      c2  {go, intro}    day 0
//	d2 "Channels"       c3  {go, chan}     day 1
//	d3 "Cooking"        -   {food}         day 2
//	d4 "Go generics"    c2  {go}           day 3
//
// plus one document owned by bob.
func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.NewStore()

	cats := []domain.Category{
		{ID: "c1", UserID: "alice", Name: "Programming"},
		{ID: "c2", UserID: "alice", Name: "Go", ParentID: domain.CategoryRef("c1")},
		{ID: "c3", UserID: "alice", Name: "Concurrency", ParentID: domain.CategoryRef("c2")},
		{ID: "c4", UserID: "alice", Name: "Empty"},
	}
	for _, c := range cats {
		require.NoError(t, s.PutCategory(ctx, c))
	}

	for _, tg := range []string{"go", "intro", "chan", "food"} {
		require.NoError(t, s.PutTag(ctx, domain.Tag{ID: domain.TagID(tg), UserID: "alice", Name: tg}))
	}

	docs := []struct {
		id, title, category string
		day                 int
		tags                []string
	}{
		{"d1", "Go basics", "c2", 0, []string{"go", "intro"}},
		{"d2", "Channels", "c3", 1, []string{"go", "chan"}},
		{"d3", "Cooking", "", 2, []string{"food"}},
		{"d4", "Go generics", "c2", 3, []string{"go"}},
	}
	for _, d := range docs {
		doc := domain.Document{
			ID:        domain.DocumentID(d.id),
			UserID:    "alice",
			Title:     d.title,
			CreatedAt: baseTime.AddDate(0, 0, d.day),
			UpdatedAt: baseTime.AddDate(0, 0, d.day),
		}
		if d.category != "" {
			doc.CategoryID = domain.CategoryRef(domain.CategoryID(d.category))
		}
		require.NoError(t, s.PutDocument(ctx, doc))
		for _, tg := range d.tags {
			require.NoError(t, s.AttachTag(ctx, "alice", doc.ID, domain.TagID(tg)))
		}
	}

	require.NoError(t, s.PutDocument(ctx, domain.Document{ID: "b1", UserID: "bob", Title: "Bob's", CreatedAt: baseTime}))
	return s
}

func newTestService(store repository.Reader, metrics *fakeMetrics) *Service {
	loader := NewSnapshotLoader(store, 2, metrics, nil)
	svc := NewService(
		store,
		loader,
		services.NewGraphBuilder(nil),
		services.NewSimilarityEngine(nil, 0, nil),
		services.NewGapAnalyzer(services.NewStaticSuggester([]string{"overview"})),
		metrics,
		Config{SimilarityTimeout: time.Second},
		nil,
	)
	return svc.WithClock(func() time.Time { return baseTime.AddDate(0, 0, 4) })
}

func domainID(id string) domain.DocumentID { return domain.DocumentID(id) }
