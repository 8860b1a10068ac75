package model

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// DefaultBetType is the win-bet code applied when a ticket does not name one.
const DefaultBetType = "単勝"

// BetUnit is the smallest stake the terminal accepts. All amounts are
// positive multiples of it.
const BetUnit = 100

// Ticket is a purchase intent supplied by the ticket loader. Tickets are
// created fresh each run and never persisted by the engine.
type Ticket struct {
	RaceCourse  string // Course name (e.g., "東京")
	RaceNumber  int    // Race number within the day, 1-based
	BetType     string // Bet type code (e.g., "単勝")
	HorseNumber int    // Horse number within the race, 1-based
	HorseName   string // Display name, not part of the match key
	Amount      int    // Stake in yen, positive multiple of 100
}

// Validate checks the field domains the terminal enforces.
func (t Ticket) Validate() error {
	if t.RaceCourse == "" {
		return fmt.Errorf("ticket: race course is required")
	}
	if t.RaceNumber < 1 {
		return fmt.Errorf("ticket: race number must be >= 1, got %d", t.RaceNumber)
	}
	if t.BetType == "" {
		return fmt.Errorf("ticket: bet type is required")
	}
	if t.HorseNumber < 1 {
		return fmt.Errorf("ticket: horse number must be >= 1, got %d", t.HorseNumber)
	}
	if t.Amount < BetUnit || t.Amount%BetUnit != 0 {
		return fmt.Errorf("ticket: amount must be a positive multiple of %d yen, got %d", BetUnit, t.Amount)
	}
	return nil
}

// MatchesBet reports whether the bet matches this ticket on the match key:
// exact equality on (race_course, race_number, bet_type, horse_number,
// amount). The horse name and receipt ID are deliberately excluded.
func (t Ticket) MatchesBet(b ExistingBet) bool {
	return t.RaceCourse == b.RaceCourse &&
		t.RaceNumber == b.RaceNumber &&
		t.BetType == b.BetType &&
		t.HorseNumber == b.HorseNumber &&
		t.Amount == b.Amount
}

// MatchesRecord reports whether a ledger record matches this ticket on the
// match key.
func (t Ticket) MatchesRecord(r LedgerRecord) bool {
	return t.RaceCourse == r.RaceCourse &&
		t.RaceNumber == r.RaceNumber &&
		t.BetType == r.BetType &&
		t.HorseNumber == r.HorseNumber &&
		t.Amount == r.Amount
}

// String renders the ticket the way run logs and notifications show it.
func (t Ticket) String() string {
	return fmt.Sprintf("%s %dR #%d %s %d円", t.RaceCourse, t.RaceNumber, t.HorseNumber, t.BetType, t.Amount)
}

// ExistingBet is a bet the remote terminal confirms it has recorded. It is
// the engine's ground truth for "this ticket has already been charged".
type ExistingBet struct {
	ReceiptID   string // Terminal-assigned receipt number
	RaceCourse  string
	RaceNumber  int
	BetType     string
	HorseNumber int
	Amount      int
}

// RecordStatus classifies the locally observed outcome of one purchase
// attempt.
type RecordStatus string

const (
	// StatusPurchased means the terminal confirmed both the submission and
	// the independent inquiry.
	StatusPurchased RecordStatus = "PURCHASED"

	// StatusFailed means the terminal explicitly rejected the purchase.
	StatusFailed RecordStatus = "FAILED"

	// StatusUnverified means the submission reported success but the
	// inquiry could not corroborate it. Never conflated with the other two.
	StatusUnverified RecordStatus = "UNVERIFIED"
)

// LedgerRecord is the persisted outcome of one purchase attempt. Records
// are append-only: once written they are never mutated or deleted.
type LedgerRecord struct {
	ID           uuid.UUID    `json:"id"`
	RaceCourse   string       `json:"race_course"`
	RaceNumber   int          `json:"race_number"`
	BetType      string       `json:"bet_type"`
	HorseNumber  int          `json:"horse_number"`
	Amount       int          `json:"amount"`
	Status       RecordStatus `json:"status"`
	AttemptedAt  time.Time    `json:"attempted_at"`
	ReceiptID    string       `json:"receipt_id,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

// NewRecord builds a ledger record for a classified attempt on ticket t.
func NewRecord(t Ticket, status RecordStatus, attemptedAt time.Time) LedgerRecord {
	return LedgerRecord{
		ID:          uuid.New(),
		RaceCourse:  t.RaceCourse,
		RaceNumber:  t.RaceNumber,
		BetType:     t.BetType,
		HorseNumber: t.HorseNumber,
		Amount:      t.Amount,
		Status:      status,
		AttemptedAt: attemptedAt,
	}
}

var datePattern = regexp.MustCompile(`^\d{8}$`)

// ValidateDate checks a YYYYMMDD target date string.
func ValidateDate(date string) error {
	if !datePattern.MatchString(date) {
		return fmt.Errorf("invalid target date %q, want YYYYMMDD", date)
	}
	if _, err := time.Parse("20060102", date); err != nil {
		return fmt.Errorf("invalid target date %q: %w", date, err)
	}
	return nil
}
