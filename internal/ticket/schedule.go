package ticket

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kyohei-t/akatsuki/internal/model"
)

// Schedule maps target dates to bet amounts. Tickets whose CSV row left
// the amount blank get the scheduled amount for the run date.
type Schedule struct {
	DefaultAmount int              `yaml:"default_amount"`
	Periods       []SchedulePeriod `yaml:"periods"`
}

// SchedulePeriod assigns an amount to an inclusive date range.
type SchedulePeriod struct {
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`
	Amount    int    `yaml:"amount"`
}

// LoadSchedule reads a schedule from a YAML file.
func LoadSchedule(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schedule: %w", err)
	}
	var s Schedule
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing schedule: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks dates and amounts.
func (s *Schedule) Validate() error {
	if s.DefaultAmount < 0 {
		return fmt.Errorf("schedule: default_amount must not be negative")
	}
	for i, p := range s.Periods {
		if err := model.ValidateDate(p.StartDate); err != nil {
			return fmt.Errorf("schedule period %d: start_date: %w", i, err)
		}
		if err := model.ValidateDate(p.EndDate); err != nil {
			return fmt.Errorf("schedule period %d: end_date: %w", i, err)
		}
		if p.EndDate < p.StartDate {
			return fmt.Errorf("schedule period %d: end_date precedes start_date", i)
		}
		if p.Amount <= 0 || p.Amount%model.BetUnit != 0 {
			return fmt.Errorf("schedule period %d: amount must be a positive multiple of %d", i, model.BetUnit)
		}
	}
	return nil
}

// AmountFor returns the amount for date. The first matching period wins,
// then the default. Zero means no scheduled amount.
func (s *Schedule) AmountFor(date string) int {
	for _, p := range s.Periods {
		if p.StartDate <= date && date <= p.EndDate {
			return p.Amount
		}
	}
	return s.DefaultAmount
}

// Apply fills the amount of every ticket that has none. A ticket with an
// explicit CSV amount keeps it.
func (s *Schedule) Apply(tickets []model.Ticket, date string) error {
	amount := s.AmountFor(date)
	for i := range tickets {
		if tickets[i].Amount != 0 {
			continue
		}
		if amount == 0 {
			return fmt.Errorf("ticket %s has no amount and the schedule has none for %s",
				tickets[i], date)
		}
		tickets[i].Amount = amount
	}
	return nil
}
