// Package ticket loads purchase requests from CSV files and resolves
// bet amounts from a date schedule. Ticket files come from a spreadsheet
// export that is usually Shift-JIS encoded, so the loader sniffs the
// encoding before parsing.
package ticket

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/kyohei-t/akatsuki/internal/model"
)

// Column headers accepted in ticket CSV files. horse_name and amount are
// optional, bet_type falls back to the default win bet.
const (
	colRaceCourse  = "race_course"
	colRaceNumber  = "race_number"
	colBetType     = "bet_type"
	colHorseNumber = "horse_number"
	colHorseName   = "horse_name"
	colAmount      = "amount"
)

// LoadFile reads a ticket CSV from path.
func LoadFile(path string) ([]model.Ticket, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ticket file: %w", err)
	}
	defer f.Close()
	tickets, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return tickets, nil
}

// Load parses a ticket CSV. Rows keep their file order, which is also
// the submission order.
func Load(r io.Reader) ([]model.Ticket, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading ticket data: %w", err)
	}
	if !utf8.Valid(data) {
		data, err = io.ReadAll(transform.NewReader(bytes.NewReader(data), japanese.ShiftJIS.NewDecoder()))
		if err != nil {
			return nil, fmt.Errorf("decoding shift-jis: %w", err)
		}
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("ticket file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{colRaceCourse, colRaceNumber, colHorseNumber} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("ticket file is missing the %q column", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var tickets []model.Ticket
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		t := model.Ticket{
			RaceCourse: field(row, colRaceCourse),
			BetType:    field(row, colBetType),
			HorseName:  field(row, colHorseName),
		}
		if t.BetType == "" {
			t.BetType = model.DefaultBetType
		}
		if t.RaceNumber, err = strconv.Atoi(field(row, colRaceNumber)); err != nil {
			return nil, fmt.Errorf("line %d: race_number: %w", line, err)
		}
		if t.HorseNumber, err = strconv.Atoi(field(row, colHorseNumber)); err != nil {
			return nil, fmt.Errorf("line %d: horse_number: %w", line, err)
		}
		if raw := field(row, colAmount); raw != "" {
			if t.Amount, err = strconv.Atoi(raw); err != nil {
				return nil, fmt.Errorf("line %d: amount: %w", line, err)
			}
		}
		tickets = append(tickets, t)
	}
	if len(tickets) == 0 {
		return nil, fmt.Errorf("ticket file has no rows")
	}
	return tickets, nil
}
