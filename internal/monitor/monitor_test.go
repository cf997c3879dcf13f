package monitor

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/price-tracker/internal/models"
	"github.com/maltedev/price-tracker/internal/notify"
	"github.com/maltedev/price-tracker/internal/store"
)

type scriptedExtractor struct {
	mu      sync.Mutex
	results map[string]*models.ExtractionResult
	calls   int
	block   chan struct{}
}

func (s *scriptedExtractor) Extract(ctx context.Context, rawURL string) *models.ExtractionResult {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.block != nil {
		<-s.block
	}

	if result, ok := s.results[rawURL]; ok {
		return result
	}
	return models.NewFailedResult(rawURL, "no scripted result")
}

func (s *scriptedExtractor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type capturingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (c *capturingNotifier) Notify(ctx context.Context, event notify.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *capturingNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func newTestStore(t *testing.T) *store.JSONStore {
	t.Helper()
	s, err := store.NewJSONStore(filepath.Join(t.TempDir(), "items.json"))
	require.NoError(t, err)
	return s
}

func successResult(url string, price float64) *models.ExtractionResult {
	return &models.ExtractionResult{
		Title:     "Sony WH-1000XM5",
		Price:     price,
		InStock:   true,
		URL:       url,
		Success:   true,
		Method:    "direct",
		FetchedAt: time.Now(),
	}
}

func TestPriceDropped(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		target  float64
		want    bool
	}{
		{"below target", 27999, 28000, true},
		{"exactly at target", 28000, 28000, true},
		{"above target", 28001, 28000, false},
		{"unknown current price", 0, 28000, false},
		{"no target set", 27999, 0, false},
		{"both unknown", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PriceDropped(tt.current, tt.target))
		})
	}
}

func TestPassNotifiesOnDrop(t *testing.T) {
	ctx := context.Background()
	itemStore := newTestStore(t)

	item := models.NewTrackedItem("https://www.amazon.in/dp/B0ABCDE123", models.SiteAmazon, 28000, "")
	require.NoError(t, itemStore.Create(ctx, item))

	extractor := &scriptedExtractor{results: map[string]*models.ExtractionResult{
		item.URL: successResult(item.URL, 27999),
	}}
	notifier := &capturingNotifier{}

	m := New(itemStore, extractor, notifier, Config{ItemTimeout: time.Second})
	require.NoError(t, m.RunPass(ctx))

	require.Equal(t, 1, notifier.count())
	event := notifier.events[0]
	assert.Equal(t, item.ID, event.ItemID)
	assert.Equal(t, 27999.0, event.Price)
	assert.Equal(t, 28000.0, event.TargetPrice)

	stored, err := itemStore.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 27999.0, stored.Price)
	assert.Equal(t, "Sony WH-1000XM5", stored.Title)
}

func TestPassAboveTargetStaysQuiet(t *testing.T) {
	ctx := context.Background()
	itemStore := newTestStore(t)

	item := models.NewTrackedItem("https://www.amazon.in/dp/B0ABCDE123", models.SiteAmazon, 28000, "")
	require.NoError(t, itemStore.Create(ctx, item))

	extractor := &scriptedExtractor{results: map[string]*models.ExtractionResult{
		item.URL: successResult(item.URL, 31000),
	}}
	notifier := &capturingNotifier{}

	m := New(itemStore, extractor, notifier, Config{ItemTimeout: time.Second})
	require.NoError(t, m.RunPass(ctx))

	assert.Zero(t, notifier.count())

	stored, err := itemStore.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 31000.0, stored.Price)
}

func TestFailedCycleLeavesObservedStateUntouched(t *testing.T) {
	ctx := context.Background()
	itemStore := newTestStore(t)

	item := models.NewTrackedItem("https://www.amazon.in/dp/B0ABCDE123", models.SiteAmazon, 20000, "")
	require.NoError(t, itemStore.Create(ctx, item))

	price := 25000.0
	title := "Known Title"
	require.NoError(t, itemStore.UpdateObserved(ctx, item.ID, models.ObservedUpdate{
		Price: &price,
		Title: &title,
	}))

	extractor := &scriptedExtractor{} // every extraction fails
	notifier := &capturingNotifier{}

	m := New(itemStore, extractor, notifier, Config{ItemTimeout: time.Second})
	require.NoError(t, m.RunPass(ctx))

	assert.Zero(t, notifier.count())

	stored, err := itemStore.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 25000.0, stored.Price)
	assert.Equal(t, "Known Title", stored.Title)
}

func TestPassContinuesPastFailingItem(t *testing.T) {
	ctx := context.Background()
	itemStore := newTestStore(t)

	bad := models.NewTrackedItem("https://www.amazon.in/dp/B0BADBAD123", models.SiteAmazon, 0, "")
	good := models.NewTrackedItem("https://www.amazon.in/dp/B0GOODGOOD1", models.SiteAmazon, 5000, "")
	require.NoError(t, itemStore.Create(ctx, bad))
	require.NoError(t, itemStore.Create(ctx, good))

	extractor := &scriptedExtractor{results: map[string]*models.ExtractionResult{
		good.URL: successResult(good.URL, 4500),
	}}
	notifier := &capturingNotifier{}

	m := New(itemStore, extractor, notifier, Config{ItemTimeout: time.Second})
	require.NoError(t, m.RunPass(ctx))

	assert.Equal(t, 2, extractor.callCount())
	assert.Equal(t, 1, notifier.count())
}

func TestOverlappingPassSkipped(t *testing.T) {
	ctx := context.Background()
	itemStore := newTestStore(t)

	item := models.NewTrackedItem("https://www.amazon.in/dp/B0ABCDE123", models.SiteAmazon, 0, "")
	require.NoError(t, itemStore.Create(ctx, item))

	block := make(chan struct{})
	extractor := &scriptedExtractor{
		results: map[string]*models.ExtractionResult{item.URL: successResult(item.URL, 100)},
		block:   block,
	}
	notifier := &capturingNotifier{}

	m := New(itemStore, extractor, notifier, Config{ItemTimeout: 5 * time.Second})

	done := make(chan struct{})
	go func() {
		_ = m.RunPass(ctx)
		close(done)
	}()

	// Wait for the first pass to reach the extractor, then try to overlap.
	require.Eventually(t, func() bool {
		return extractor.callCount() == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.RunPass(ctx))
	assert.Equal(t, 1, extractor.callCount())

	close(block)
	<-done
}

func TestCheckNow(t *testing.T) {
	ctx := context.Background()
	itemStore := newTestStore(t)

	item := models.NewTrackedItem("https://www.amazon.in/dp/B0ABCDE123", models.SiteAmazon, 28000, "")
	require.NoError(t, itemStore.Create(ctx, item))

	extractor := &scriptedExtractor{results: map[string]*models.ExtractionResult{
		item.URL: successResult(item.URL, 27500),
	}}
	notifier := &capturingNotifier{}

	m := New(itemStore, extractor, notifier, Config{ItemTimeout: time.Second})

	result, err := m.CheckNow(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 27500.0, result.Price)
	assert.Equal(t, 1, notifier.count())

	_, err = m.CheckNow(ctx, "no-such-id")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
