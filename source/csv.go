/*
Copyright 2022 by Milo Christiansen

This software is provided 'as-is', without any express or implied warranty. In
no event will the authors be held liable for any damages arising from the use of
this software.

Permission is granted to anyone to use this software for any purpose, including
commercial applications, and to alter it and redistribute it freely, subject to
the following restrictions:

1. The origin of this software must not be misrepresented; you must not claim
that you wrote the original software. If you use this software in a product, an
acknowledgment in the product documentation would be appreciated but is not
required.

2. Altered source versions must be plainly marked as such, and must not be
misrepresented as being the original software.

3. This notice may not be removed or altered from any source distribution.
*/

package source

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samuellwn/ledgersync"
	"github.com/shopspring/decimal"
)

// CSVFormat describes the columns of a CSV statement. Columns are found by header name, or by index
// if NoHeader is set.
type CSVFormat struct {
	Account    string   `yaml:"account"`     // Ledger account the statement is for.
	Counter    string   `yaml:"counter"`     // Default DefaultCounter.
	DateFormat string   `yaml:"date_format"` // Example date for Mon Jan 2, 2006. Default 01/02/2006.
	Date       string   `yaml:"date"`        // Default "date".
	Amount     string   `yaml:"amount"`      // Default "amount".
	Balance    string   `yaml:"balance"`     // Optional running balance column.
	ID         string   `yaml:"id"`          // Optional unique transaction ID column.
	Desc       []string `yaml:"desc"`        // Joined with spaces. Default "desc".
	NoHeader   bool     `yaml:"no_header"`
}

func (f CSVFormat) withDefaults() CSVFormat {
	if f.Account == "" {
		f.Account = "assets:Unknown:CSV"
	}
	if f.Counter == "" {
		f.Counter = DefaultCounter
	}
	if f.DateFormat == "" {
		f.DateFormat = "01/02/2006"
	}
	if f.Date == "" {
		f.Date = "date"
	}
	if f.Amount == "" {
		f.Amount = "amount"
	}
	if len(f.Desc) == 0 {
		f.Desc = []string{"desc"}
	}
	return f
}

type csvStream struct {
	name   string
	format CSVFormat
	open   func() (io.ReadCloser, error)

	rc io.ReadCloser
	r  *csv.Reader

	date, amount, balance, id int
	desc                      []int
	minLen                    int
}

// NewCSV returns a stream reading one record at a time from r.
func NewCSV(name string, r io.Reader, format CSVFormat) ledger.Stream {
	return &csvStream{
		name:   name,
		format: format.withDefaults(),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(r), nil
		},
	}
}

// OpenCSVFile is like NewCSV, but the file is not opened until the stream is first read. The file is
// closed once the stream is exhausted or fails.
func OpenCSVFile(path string, format CSVFormat) ledger.Stream {
	return &csvStream{
		name:   path,
		format: format.withDefaults(),
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

func (s *csvStream) Name() string {
	return s.name
}

func (s *csvStream) Next() (ledger.Transaction, error) {
	if s.r == nil {
		if err := s.start(); err != nil {
			return s.fail(err)
		}
	}

	record, err := s.r.Read()
	if err == io.EOF {
		s.close()
		return ledger.Transaction{}, io.EOF
	}
	if err != nil {
		return s.fail(err)
	}

	tr, err := s.record(record)
	if err != nil {
		line, _ := s.r.FieldPos(0)
		return s.fail(errors.Wrapf(err, "line %d", line))
	}
	return tr, nil
}

func (s *csvStream) fail(err error) (ledger.Transaction, error) {
	s.close()
	return ledger.Transaction{}, err
}

func (s *csvStream) close() {
	if s.rc != nil {
		s.rc.Close()
		s.rc = nil
	}
}

func (s *csvStream) start() error {
	rc, err := s.open()
	if err != nil {
		return err
	}
	s.rc = rc
	s.r = csv.NewReader(rc)
	s.r.FieldsPerRecord = -1

	f := s.format
	s.date, s.amount, s.balance, s.id = -1, -1, -1, -1

	if f.NoHeader {
		index := func(field string) (int, error) {
			if field == "" {
				return -1, nil
			}
			i, err := strconv.Atoi(field)
			if err != nil {
				return -1, errors.Errorf("column %q is not a number", field)
			}
			return i, nil
		}

		for _, c := range []struct {
			field string
			ix    *int
		}{{f.Date, &s.date}, {f.Amount, &s.amount}, {f.Balance, &s.balance}, {f.ID, &s.id}} {
			if *c.ix, err = index(c.field); err != nil {
				return err
			}
		}
		for _, d := range f.Desc {
			i, err := index(d)
			if err != nil {
				return err
			}
			s.desc = append(s.desc, i)
		}
	} else {
		header, err := s.r.Read()
		if err != nil {
			return errors.Wrap(err, "failed to read header")
		}

		for i, field := range header {
			field = strings.TrimSpace(field)
			switch field {
			case f.Date:
				s.date = i
			case f.Amount:
				s.amount = i
			}
			if f.Balance != "" && field == f.Balance {
				s.balance = i
			}
			if f.ID != "" && field == f.ID {
				s.id = i
			}
		}
		for _, d := range f.Desc {
			for i, field := range header {
				if strings.TrimSpace(field) == d {
					s.desc = append(s.desc, i)
				}
			}
		}
	}

	if s.date == -1 {
		return errors.New("date field not found or specified")
	}
	if s.amount == -1 {
		return errors.New("amount field not found or specified")
	}
	if f.Balance != "" && s.balance == -1 {
		return errors.New("balance field not found")
	}
	if f.ID != "" && s.id == -1 {
		return errors.New("id field not found")
	}
	if len(s.desc) == 0 {
		return errors.New("desc field not found or specified")
	}

	for _, i := range append([]int{s.date, s.amount, s.balance, s.id}, s.desc...) {
		if i+1 > s.minLen {
			s.minLen = i + 1
		}
	}
	return nil
}

func (s *csvStream) record(record []string) (ledger.Transaction, error) {
	if len(record) < s.minLen {
		return ledger.Transaction{}, errors.New("found input record with too few fields")
	}

	date, err := time.Parse(s.format.DateFormat, strings.TrimSpace(record[s.date]))
	if err != nil {
		return ledger.Transaction{}, errors.Errorf("failed to parse date: %s", record[s.date])
	}

	amount, err := cleanAmount(record[s.amount])
	if err != nil {
		return ledger.Transaction{}, errors.Wrapf(err, "failed to parse amount: %s", record[s.amount])
	}

	desc := make([]string, 0, len(s.desc))
	for _, i := range s.desc {
		if d := strings.TrimSpace(record[i]); d != "" {
			desc = append(desc, d)
		}
	}

	anchor := ledger.Posting{
		Account: s.format.Account,
		Value:   amount,
	}
	if s.balance != -1 {
		anchor.Balance, err = cleanAmount(record[s.balance])
		if err != nil {
			return ledger.Transaction{}, errors.Wrapf(err, "failed to parse balance: %s", record[s.balance])
		}
		anchor.HasBalance = true
	}
	if s.id != -1 {
		anchor.ID = strings.TrimSpace(record[s.id])
	}

	tr := ledger.Transaction{
		Description: strings.Join(desc, " "),
		Date:        date,
		Status:      ledger.StatusClear,
		Postings: []ledger.Posting{
			anchor,
			{
				Account: s.format.Counter,
				Null:    true,
			},
		},
	}
	tr.Stamp()
	return tr, nil
}

// cleanAmount strips currency symbols and thousands separators. Parentheses mean a negative amount.
func cleanAmount(s string) (decimal.Decimal, error) {
	clean := strings.Builder{}
	negate := false
	for _, chr := range strings.TrimSpace(s) {
		switch chr {
		case '$', ')', ',', ' ':
			// eat
		case '(':
			negate = true
		default:
			clean.WriteRune(chr)
		}
	}

	v, err := ledger.ParseValueNumber(clean.String())
	if err != nil {
		return decimal.Zero, err
	}
	if negate {
		v = v.Neg()
	}
	return v, nil
}
