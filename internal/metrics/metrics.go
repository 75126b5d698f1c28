package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ItemsFetched       int64
	DuplicatesSkipped  int64
	ItemsFiltered      int64
	ItemsSelected      int64
	EnrichmentsOK      int64
	EnrichmentsFailed  int64
	TranslationsOK     int64
	TranslationsFailed int64
	BatchesSent        int64
	BatchesFailed      int64

	// Timings
	LastRunDuration time.Duration

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) AddItemsFetched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsFetched += int64(n)
}

func (m *Metrics) IncrementDuplicatesSkipped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesSkipped++
}

func (m *Metrics) IncrementItemsFiltered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsFiltered++
}

func (m *Metrics) AddItemsSelected(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsSelected += int64(n)
}

func (m *Metrics) IncrementEnrichmentsOK() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnrichmentsOK++
}

func (m *Metrics) IncrementEnrichmentsFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnrichmentsFailed++
}

func (m *Metrics) IncrementTranslationsOK() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TranslationsOK++
}

func (m *Metrics) IncrementTranslationsFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TranslationsFailed++
}

func (m *Metrics) IncrementBatchesSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchesSent++
}

func (m *Metrics) IncrementBatchesFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchesFailed++
}

func (m *Metrics) RecordRun(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunDuration = duration
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"items_fetched":        m.ItemsFetched,
		"duplicates_skipped":   m.DuplicatesSkipped,
		"items_filtered":       m.ItemsFiltered,
		"items_selected":       m.ItemsSelected,
		"enrichments_ok":       m.EnrichmentsOK,
		"enrichments_failed":   m.EnrichmentsFailed,
		"translations_ok":      m.TranslationsOK,
		"translations_failed":  m.TranslationsFailed,
		"batches_sent":         m.BatchesSent,
		"batches_failed":       m.BatchesFailed,
		"last_run_duration_ms": m.LastRunDuration.Milliseconds(),
		"last_run_time":        m.LastRunTime.Format(time.RFC3339),
		"last_error_time":      m.LastErrorTime.Format(time.RFC3339),
		"last_error":           m.LastError,
		"is_healthy":           m.IsHealthy,
	}
}
