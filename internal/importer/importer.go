// Package importer drives an end-to-end import run: window resolution,
// paginated retrieval, per-conversation enrichment and transformation,
// delivery, and conditional state advancement.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sayamjn/enterpret-gladly/internal/enterpret"
	"github.com/sayamjn/enterpret-gladly/internal/gladly"
	"github.com/sayamjn/enterpret-gladly/internal/metrics"
	"github.com/sayamjn/enterpret-gladly/internal/models"
	"github.com/sayamjn/enterpret-gladly/internal/state"
	"github.com/sayamjn/enterpret-gladly/internal/transform"
)

// fullImportEpoch is the window start for --full runs: far enough back to
// cover all retrievable history.
var fullImportEpoch = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)

// defaultLookback is the window used when no state exists and no explicit
// start was given.
const defaultLookback = 30 * 24 * time.Hour

// pageThrottle is the pause between listing pages, keeping well inside the
// source's informal rate limits even without a 429.
const pageThrottle = 300 * time.Millisecond

// SourceReader is the slice of the Gladly client the importer needs.
type SourceReader interface {
	ValidateConnection(ctx context.Context) error
	FetchConversations(ctx context.Context, start, end time.Time, page, pageSize int) (gladly.ConversationPage, error)
	FetchConversationItems(ctx context.Context, conversationID string) []models.ConversationItem
	FetchCustomer(ctx context.Context, customerID string) *models.Customer
}

// DestinationWriter is the slice of the Enterpret client the importer needs.
type DestinationWriter interface {
	ValidateConnection(ctx context.Context) error
	ImportFeedback(ctx context.Context, rec models.FeedbackRecord) (*enterpret.ImportResponse, error)
}

// Options selects what a run imports.
type Options struct {
	// FullImport starts the window at a fixed far-past epoch.
	FullImport bool
	// StartDate / EndDate override the window bounds when non-nil.
	StartDate *time.Time
	EndDate   *time.Time
	// Limit truncates the conversation list to at most this many; 0 means
	// unlimited.
	Limit int
}

// RunMetrics summarizes one run. It is reported and then discarded; nothing
// here persists.
type RunMetrics struct {
	RunID                  string
	ConversationsProcessed int
	ItemsProcessed         int
	CustomersProcessed     int
	Errors                 int
	StartedAt              time.Time
	CompletedAt            time.Time
	WindowStart            time.Time
	WindowEnd              time.Time
	StateAdvanced          bool
}

// Importer orchestrates a run. Construct with New; all collaborators are
// injected, including the logger.
type Importer struct {
	source    SourceReader
	dest      DestinationWriter
	store     *state.Store
	log       *slog.Logger
	collector *metrics.Collector

	pageSize   int
	maxRetries int
	retryDelay time.Duration

	// Injectable for tests.
	sleep func(time.Duration)
	now   func() time.Time
}

// New creates an importer. pageSize governs the listing page size,
// maxRetries/retryDelay the re-fetch policy for failed listing calls
// (rate-limit replays are handled below this layer).
func New(source SourceReader, dest DestinationWriter, store *state.Store, log *slog.Logger, pageSize, maxRetries int, retryDelay time.Duration) *Importer {
	return &Importer{
		source:     source,
		dest:       dest,
		store:      store,
		log:        log,
		collector:  metrics.NewCollector(),
		pageSize:   pageSize,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		sleep:      time.Sleep,
		now:        time.Now,
	}
}

// SetSleep overrides the throttle/retry sleep function, for tests.
func (im *Importer) SetSleep(sleep func(time.Duration)) { im.sleep = sleep }

// SetNow overrides the clock, for tests.
func (im *Importer) SetNow(now func() time.Time) { im.now = now }

// MetricsSnapshot exposes per-operation timing stats for the current run.
func (im *Importer) MetricsSnapshot() metrics.Snapshot { return im.collector.Snapshot() }

// Run executes one import. Configuration and connection failures abort the
// run with an error; per-conversation failures are counted in the returned
// metrics and never abort the loop.
func (im *Importer) Run(ctx context.Context, opts Options) (RunMetrics, error) {
	m := RunMetrics{
		RunID:     uuid.New().String(),
		StartedAt: im.now(),
	}
	log := im.log.With("run", m.RunID)

	// Both connections must be good before any data moves.
	if err := im.source.ValidateConnection(ctx); err != nil {
		return m, fmt.Errorf("validate gladly connection: %w", err)
	}
	if err := im.dest.ValidateConnection(ctx); err != nil {
		return m, fmt.Errorf("validate enterpret connection: %w", err)
	}

	start, end := im.resolveWindow(opts, log)
	m.WindowStart, m.WindowEnd = start, end
	log.Info("import window resolved",
		"start", start.Format(time.RFC3339), "end", end.Format(time.RFC3339),
		"full", opts.FullImport)

	conversations, err := im.collectConversations(ctx, start, end, opts.Limit, log)
	if err != nil {
		return m, fmt.Errorf("fetch conversations: %w", err)
	}
	log.Info("conversations to import", "count", len(conversations))

	for _, conv := range conversations {
		if err := im.processConversation(ctx, conv, &m, log); err != nil {
			m.Errors++
			log.Error("conversation failed", "conversation", conv.ID, "error", err)
			continue
		}
		m.ConversationsProcessed++
	}

	// State only moves on a clean run so a partially failed window is
	// retried in full next time.
	if m.Errors == 0 {
		if im.store.Save(end) {
			m.StateAdvanced = true
		} else {
			log.Warn("state not advanced, next run will repeat this window")
		}
	} else {
		log.Warn("run had errors, leaving state untouched", "errors", m.Errors)
	}

	m.CompletedAt = im.now()
	return m, nil
}

// resolveWindow applies the precedence chain: explicit dates, full-import
// epoch, stored timestamp, default lookback. End defaults to now.
func (im *Importer) resolveWindow(opts Options, log *slog.Logger) (time.Time, time.Time) {
	end := im.now().UTC()
	if opts.EndDate != nil {
		end = opts.EndDate.UTC()
	}

	var start time.Time
	switch {
	case opts.StartDate != nil:
		start = opts.StartDate.UTC()
	case opts.FullImport:
		start = fullImportEpoch
	default:
		if st, ok := im.store.Load(); ok {
			start = st.LastImportTime.UTC()
		} else {
			start = end.Add(-defaultLookback)
			log.Info("no import state found, using default lookback",
				"lookback", defaultLookback, "start", start.Format(time.RFC3339))
		}
	}
	return start, end
}

// collectConversations pages through the listing until a short page or the
// limit is reached, throttling between pages.
func (im *Importer) collectConversations(ctx context.Context, start, end time.Time, limit int, log *slog.Logger) ([]models.Conversation, error) {
	var all []models.Conversation
	for page := 0; ; page++ {
		result, err := im.fetchPage(ctx, start, end, page)
		if err != nil {
			return nil, err
		}
		all = append(all, result.Conversations...)
		log.Debug("fetched page", "page", page, "count", len(result.Conversations))

		if limit > 0 && len(all) >= limit {
			all = all[:limit]
			log.Info("result limit reached", "limit", limit)
			break
		}
		if !result.HasMore {
			break
		}
		im.sleep(pageThrottle)
	}
	return all, nil
}

// fetchPage retrieves one listing page, retrying failed calls per the
// configured policy. 429s never reach here; the HTTP layer replays them.
func (im *Importer) fetchPage(ctx context.Context, start, end time.Time, page int) (gladly.ConversationPage, error) {
	var lastErr error
	for attempt := 0; attempt <= im.maxRetries; attempt++ {
		if attempt > 0 {
			im.log.Warn("retrying conversation listing",
				"page", page, "attempt", attempt, "error", lastErr)
			im.sleep(im.retryDelay)
		}

		fetchStart := time.Now()
		result, err := im.source.FetchConversations(ctx, start, end, page, im.pageSize)
		im.collector.RecordTiming(metrics.OpListConversations, time.Since(fetchStart))
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return gladly.ConversationPage{}, lastErr
}

// processConversation runs the fetch-enrich-transform-deliver body for one
// conversation. Enrichment failures degrade inside the source client; only
// transform and delivery failures surface as errors here.
func (im *Importer) processConversation(ctx context.Context, conv models.Conversation, m *RunMetrics, log *slog.Logger) error {
	var items []models.ConversationItem
	im.collector.Time(metrics.OpFetchItems, func() {
		items = im.source.FetchConversationItems(ctx, conv.ID)
	})
	m.ItemsProcessed += len(items)

	var customer *models.Customer
	if conv.CustomerID != "" {
		im.collector.Time(metrics.OpFetchCustomer, func() {
			customer = im.source.FetchCustomer(ctx, conv.CustomerID)
		})
		if customer != nil {
			m.CustomersProcessed++
		} else {
			log.Warn("customer unavailable, importing without enrichment",
				"conversation", conv.ID, "customer", conv.CustomerID)
		}
	}

	var rec models.FeedbackRecord
	var convertErr error
	im.collector.Time(metrics.OpTransform, func() {
		rec, convertErr = transform.Convert(conv, items, customer)
	})
	if convertErr != nil {
		return convertErr
	}

	var deliverErr error
	im.collector.Time(metrics.OpDeliver, func() {
		_, deliverErr = im.dest.ImportFeedback(ctx, rec)
	})
	if deliverErr != nil {
		return fmt.Errorf("deliver %s: %w", rec.ID, deliverErr)
	}

	log.Debug("conversation imported", "conversation", conv.ID, "record", rec.ID)
	return nil
}
