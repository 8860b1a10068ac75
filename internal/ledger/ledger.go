// Package ledger persists the engine's own record of purchase attempts.
//
// One document per calendar date, append-only: records are added, never
// mutated or deleted. The ledger answers "what have we tried and with what
// local outcome"; the remote terminal's bet inquiry remains the authority
// for "what has actually been charged".
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/kyohei-t/akatsuki/internal/model"
	"github.com/kyohei-t/akatsuki/internal/objstore"
)

const keyPrefix = "purchase-history"

// appendRetries bounds reload-and-retry on a conditional write conflict.
const appendRetries = 3

// Ledger is the stored per-date document.
type Ledger struct {
	TargetDate  string               `json:"target_date"`
	Tickets     []model.LedgerRecord `json:"tickets"`
	LastUpdated *time.Time           `json:"last_updated"`
}

// Counts summarizes the records stored for one date.
type Counts struct {
	Purchased  int `json:"purchased"`
	Failed     int `json:"failed"`
	Unverified int `json:"unverified"`
	Total      int `json:"total"`
}

// Store reads and appends per-date ledgers over an object store.
type Store struct {
	objects objstore.Store
	cache   *gocache.Cache
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a ledger store. cacheTTL bounds how long a loaded
// ledger may be served without re-reading the object store.
func NewStore(objects objstore.Store, cacheTTL time.Duration, opts ...Option) *Store {
	s := &Store{
		objects: objects,
		cache:   gocache.New(cacheTTL, 2*cacheTTL),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the logical object key for a date's ledger.
func Key(date string) string {
	return keyPrefix + "/" + date + "/tickets.json"
}

type cached struct {
	ledger Ledger
	etag   string
}

// Load returns the stored ledger for date, or an empty ledger when none
// exists yet. A missing document is the normal first run of the day, not
// an error.
func (s *Store) Load(ctx context.Context, date string) (Ledger, error) {
	led, _, err := s.load(ctx, date, true)
	return led, err
}

func (s *Store) load(ctx context.Context, date string, useCache bool) (Ledger, string, error) {
	if useCache {
		if v, ok := s.cache.Get(date); ok {
			c := v.(cached)
			return c.ledger, c.etag, nil
		}
	}

	data, etag, err := s.objects.Get(ctx, Key(date))
	if err != nil {
		if errors.Is(err, objstore.ErrNotExist) {
			led := Ledger{TargetDate: date, Tickets: []model.LedgerRecord{}}
			s.logger.Info("no purchase ledger yet, starting fresh", "date", date)
			return led, "", nil
		}
		return Ledger{}, "", fmt.Errorf("load ledger %s: %w", date, err)
	}

	var led Ledger
	if err := json.Unmarshal(data, &led); err != nil {
		return Ledger{}, "", fmt.Errorf("decode ledger %s: %w", date, err)
	}

	s.cache.Set(date, cached{ledger: led, etag: etag}, gocache.DefaultExpiration)
	return led, etag, nil
}

// Append adds one record to the date's ledger and rewrites the whole
// document conditionally. On a version conflict it reloads and retries a
// bounded number of times, so a concurrent same-date run cannot silently
// drop records. The write is durable before Append returns.
func (s *Store) Append(ctx context.Context, date string, rec model.LedgerRecord) error {
	var lastErr error

	for attempt := 0; attempt <= appendRetries; attempt++ {
		// Always re-read on retry; the cache holds the conflicting copy.
		led, etag, err := s.load(ctx, date, attempt == 0)
		if err != nil {
			return err
		}

		led.Tickets = append(led.Tickets, rec)
		now := s.now().UTC()
		led.LastUpdated = &now

		data, err := json.MarshalIndent(led, "", "  ")
		if err != nil {
			return fmt.Errorf("encode ledger %s: %w", date, err)
		}

		err = s.objects.Put(ctx, Key(date), data, etag)
		if err == nil {
			s.cache.Delete(date)
			s.logger.Info("ledger record appended",
				"date", date,
				"status", rec.Status,
				"race_course", rec.RaceCourse,
				"race_number", rec.RaceNumber,
				"horse_number", rec.HorseNumber,
			)
			return nil
		}
		if !errors.Is(err, objstore.ErrETagMismatch) {
			return fmt.Errorf("write ledger %s: %w", date, err)
		}

		lastErr = err
		s.cache.Delete(date)
		s.logger.Warn("ledger write conflict, reloading", "date", date, "attempt", attempt+1)
	}

	return fmt.Errorf("append to ledger %s: retries exhausted: %w", date, lastErr)
}

// IsAlreadyPurchased reports whether a PURCHASED record for date matches
// the ticket on the match key. FAILED and UNVERIFIED records never satisfy
// this check: a failed or unverified attempt must not block a future
// retry; the terminal's own bet inquiry guards against double-charging in
// that case.
func (s *Store) IsAlreadyPurchased(ctx context.Context, ticket model.Ticket, date string) (bool, error) {
	led, err := s.Load(ctx, date)
	if err != nil {
		return false, err
	}

	for _, rec := range led.Tickets {
		if rec.Status != model.StatusPurchased {
			continue
		}
		if ticket.MatchesRecord(rec) {
			return true, nil
		}
	}
	return false, nil
}

// Summary counts the records stored for date.
func (s *Store) Summary(ctx context.Context, date string) (Counts, error) {
	led, err := s.Load(ctx, date)
	if err != nil {
		return Counts{}, err
	}

	var c Counts
	for _, rec := range led.Tickets {
		switch rec.Status {
		case model.StatusPurchased:
			c.Purchased++
		case model.StatusFailed:
			c.Failed++
		case model.StatusUnverified:
			c.Unverified++
		}
	}
	c.Total = len(led.Tickets)
	return c, nil
}
