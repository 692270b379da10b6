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

package reconcile_test

import (
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/samuellwn/ledgersync"
	"github.com/samuellwn/ledgersync/reconcile"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tx(date, desc, account, id, amount, balance string) ledger.Transaction {
	anchor := ledger.Posting{Account: account, ID: id, Value: dec(amount)}
	if balance != "" {
		anchor.Balance = dec(balance)
		anchor.HasBalance = true
	}
	return ledger.Transaction{
		Date:        day(date),
		Status:      ledger.StatusClear,
		Description: desc,
		Postings: []ledger.Posting{
			anchor,
			{Account: "expenses:Unknown", Null: true},
		},
	}
}

var identity = reconcile.TransformFunc(func(tr ledger.Transaction) (ledger.Transaction, error) {
	return tr, nil
})

type fakeStore map[string]bool

func (s fakeStore) Contains(id string) bool { return s[id] }

// countingStream counts reads and can fail after a number of transactions.
type countingStream struct {
	ledger.Stream
	reads  int
	failAt int
}

func count(name string, trs ...ledger.Transaction) *countingStream {
	return &countingStream{Stream: ledger.NewSliceStream(name, trs), failAt: -1}
}

func (s *countingStream) Next() (ledger.Transaction, error) {
	if s.reads == s.failAt {
		s.reads++
		return ledger.Transaction{}, errors.New("connection reset")
	}
	s.reads++
	return s.Stream.Next()
}

func drain(t *testing.T, s ledger.Stream) []ledger.Transaction {
	t.Helper()
	trs, err := ledger.ReadAll(s)
	require.NoError(t, err)
	return trs
}

func ids(trs []ledger.Transaction) []string {
	out := []string{}
	for _, tr := range trs {
		out = append(out, tr.Anchor().ID)
	}
	return out
}

func TestRunRequiresRules(t *testing.T) {
	a := count("A", tx("2024-01-05", "x", "assets:A", "a1", "10", "100"))
	_, err := reconcile.Run(reconcile.Config{Streams: []ledger.Stream{a}})
	assert.Equal(t, reconcile.ErrNoRules, err)
	assert.Zero(t, a.reads)
}

func TestOpeningBalance(t *testing.T) {
	a := count("A",
		tx("2024-01-05", "Deposit", "assets:A", "A-1", "10", "100"),
		tx("2024-01-10", "Deposit", "assets:A", "A-2", "10", "110"),
	)
	b := count("B", tx("2024-01-03", "Transfer", "assets:B", "B-1", "50", "50"))

	res, err := reconcile.Run(reconcile.Config{
		Streams: []ledger.Stream{a, b},
		Rules:   identity,
		Opening: true,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Opening)

	o := res.Opening
	assert.Equal(t, reconcile.OpeningDescription, o.Description)
	assert.Equal(t, ledger.StatusClear, o.Status)
	assert.Equal(t, day("2024-01-03"), o.Date)
	require.Len(t, o.Postings, 3)
	assert.Equal(t, "assets:A", o.Postings[0].Account)
	assert.True(t, o.Postings[0].Value.Equal(dec("90")), o.Postings[0].Value.String())
	assert.Equal(t, "assets:B", o.Postings[1].Account)
	assert.True(t, o.Postings[1].Value.IsZero(), o.Postings[1].Value.String())
	assert.Equal(t, reconcile.OpeningAccount, o.Postings[2].Account)
	assert.True(t, o.Postings[2].Null)
	assert.Equal(t, reconcile.OpeningID, o.Postings[2].ID)

	ok, sums := o.Balance()
	assert.True(t, ok)
	assert.True(t, sums[reconcile.OpeningAccount].Equal(dec("-90")))
	assert.True(t, o.Postings[2].Value.Equal(dec("-90")), "equity amount is filled in: %v", o.Postings[2].Value)
	assert.NotContains(t, o.String(), "$-90.00", "equity posting is still written without an amount")

	// The peeked transactions are not lost.
	assert.Equal(t, []string{"A-1", "A-2", "B-1"}, ids(drain(t, res.Transactions)))
}

func TestOpeningNegative(t *testing.T) {
	cc := count("Card", tx("2024-03-01", "Groceries", "liabilities:Card", "C-1", "-25.10", "-300.00"))
	opening, rest, err := reconcile.Opening([]ledger.Stream{cc}, nil)
	require.NoError(t, err)
	assert.True(t, opening.Postings[0].Value.Equal(dec("-274.90")), opening.Postings[0].Value.String())
	assert.Equal(t, "$-274.90", ledger.FormatValue(opening.Postings[0].Value))
	assert.Len(t, rest, 1)
}

func TestOpeningDuplicateFailsFast(t *testing.T) {
	a := count("A", tx("2024-01-05", "x", "assets:A", "A-1", "10", "100"))
	_, err := reconcile.Run(reconcile.Config{
		Streams: []ledger.Stream{a},
		Rules:   identity,
		Store:   fakeStore{reconcile.OpeningID: true},
		Opening: true,
	})
	assert.True(t, errors.Is(err, reconcile.ErrDuplicateOpening))
	assert.Zero(t, a.reads)
}

func TestOpeningNoTransactions(t *testing.T) {
	_, err := reconcile.Run(reconcile.Config{
		Streams: []ledger.Stream{count("A"), count("B")},
		Rules:   identity,
		Opening: true,
	})
	assert.Equal(t, reconcile.ErrNoTransactions, err)

	_, err = reconcile.Run(reconcile.Config{Rules: identity, Opening: true})
	assert.Equal(t, reconcile.ErrNoTransactions, err)
}

func TestOpeningSkipsEmptyStreams(t *testing.T) {
	opening, rest, err := reconcile.Opening([]ledger.Stream{
		count("A"),
		count("B", tx("2024-01-03", "x", "assets:B", "B-1", "5", "20")),
	}, fakeStore{})
	require.NoError(t, err)
	require.Len(t, opening.Postings, 2)
	assert.Equal(t, "assets:B", opening.Postings[0].Account)
	require.Len(t, rest, 1)
	assert.Equal(t, "B", rest[0].Name())
}

func TestOpeningMissingBalance(t *testing.T) {
	_, _, err := reconcile.Opening([]ledger.Stream{
		count("A", tx("2024-01-03", "x", "assets:A", "A-1", "5", "")),
	}, nil)
	var mbe *reconcile.MissingBalanceError
	require.True(t, errors.As(err, &mbe))
	assert.Equal(t, "A", mbe.Stream)
}

func TestDedup(t *testing.T) {
	noID := tx("2024-01-04", "Cash", "assets:A", "", "1", "")
	in := []ledger.Transaction{
		tx("2024-01-01", "one", "assets:A", "A-1", "1", ""),
		tx("2024-01-02", "two", "assets:A", "A-2", "1", ""),
		tx("2024-01-03", "three", "assets:A", "A-3", "1", ""),
		noID,
	}
	store := fakeStore{"A-2": true, "": true}

	out := drain(t, reconcile.Dedup(ledger.NewSliceStream("A", in), store))
	assert.Equal(t, []string{"A-1", "A-3", ""}, ids(out))

	// Deduplicating against a store that already has the output drops nothing new.
	for _, tr := range out {
		store[tr.Anchor().ID] = true
	}
	again := drain(t, reconcile.Dedup(ledger.NewSliceStream("A", in), store))
	assert.Equal(t, []string{""}, ids(again), "transactions without an ID are always kept")

	all := drain(t, reconcile.Dedup(ledger.NewSliceStream("A", in), nil))
	assert.Len(t, all, 4)
}

func TestRunDedupLogsSkips(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a := count("A",
		tx("2024-01-01", "one", "assets:A", "A-1", "1", ""),
		tx("2024-01-02", "two", "assets:A", "A-2", "1", ""),
		tx("2024-01-03", "three", "assets:A", "A-3", "1", ""),
	)

	res, err := reconcile.Run(reconcile.Config{
		Streams: []ledger.Stream{a},
		Rules:   identity,
		Store:   fakeStore{"A-2": true},
		Log:     zap.New(core),
	})
	require.NoError(t, err)
	assert.Nil(t, res.Opening)

	out := drain(t, res.Transactions)
	assert.Equal(t, []string{"A-1", "A-3"}, ids(out))

	skipped := logs.FilterMessage("Skipping transaction already in ledger").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, "A-2", skipped[0].ContextMap()["id"])
}

func TestMergeKeepsOrder(t *testing.T) {
	a := ledger.NewSliceStream("A", []ledger.Transaction{
		tx("2024-01-05", "a1", "assets:A", "A-1", "1", ""),
		tx("2024-01-01", "a2", "assets:A", "A-2", "1", ""),
	})
	b := ledger.NewSliceStream("B", []ledger.Transaction{
		tx("2024-01-03", "b1", "assets:B", "B-1", "1", ""),
	})
	empty := ledger.NewSliceStream("C", nil)

	out := drain(t, reconcile.Merge([]ledger.Stream{a, empty, b}))
	assert.Equal(t, []string{"A-1", "A-2", "B-1"}, ids(out))

	_, err := reconcile.Merge(nil).Next()
	assert.Equal(t, io.EOF, err)
}

func TestSortOrder(t *testing.T) {
	streams := func() []ledger.Stream {
		return []ledger.Stream{
			ledger.NewSliceStream("A", []ledger.Transaction{
				tx("2024-01-05", "a1", "assets:A", "A-1", "1", ""),
				tx("2024-01-03", "a2", "assets:A", "A-2", "1", ""),
			}),
			ledger.NewSliceStream("B", []ledger.Transaction{
				tx("2024-01-03", "b1", "assets:B", "B-1", "1", ""),
				tx("2024-01-01", "b2", "assets:B", "B-2", "1", ""),
			}),
		}
	}

	res, err := reconcile.Run(reconcile.Config{Streams: streams(), Rules: identity, Sort: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"B-2", "A-2", "B-1", "A-1"}, ids(drain(t, res.Transactions)))

	res, err = reconcile.Run(reconcile.Config{Streams: streams(), Rules: identity})
	require.NoError(t, err)
	assert.Equal(t, []string{"A-1", "A-2", "B-1", "B-2"}, ids(drain(t, res.Transactions)))
}

func TestSortWithOpening(t *testing.T) {
	res, err := reconcile.Run(reconcile.Config{
		Streams: []ledger.Stream{
			count("A", tx("2024-01-05", "a1", "assets:A", "A-1", "10", "10")),
			count("B", tx("2024-01-02", "b1", "assets:B", "B-1", "10", "15")),
		},
		Rules:   identity,
		Opening: true,
		Sort:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-02"), res.Opening.Date)
	assert.Equal(t, []string{"B-1", "A-1"}, ids(drain(t, res.Transactions)))
}

func TestRulesApplied(t *testing.T) {
	rules := &ledger.Rules{Matchers: []ledger.Matcher{
		{R: regexp.MustCompile("^COFFEE"), Account: "expenses:Coffee", Payee: "Coffee"},
	}}
	in := tx("2024-01-05", "COFFEE #12", "assets:A", "A-1", "-4.50", "")

	res, err := reconcile.Run(reconcile.Config{
		Streams: []ledger.Stream{ledger.NewSliceStream("A", []ledger.Transaction{in})},
		Rules:   rules,
	})
	require.NoError(t, err)
	out := drain(t, res.Transactions)
	require.Len(t, out, 1)
	assert.Equal(t, "Coffee", out[0].Description)
	assert.Equal(t, "assets:A", out[0].Postings[0].Account)
	assert.Equal(t, "expenses:Coffee", out[0].Postings[1].Account)
}

func TestSourceError(t *testing.T) {
	a := count("A",
		tx("2024-01-01", "one", "assets:A", "A-1", "1", ""),
		tx("2024-01-02", "two", "assets:A", "A-2", "1", ""),
	)
	a.failAt = 1

	res, err := reconcile.Run(reconcile.Config{Streams: []ledger.Stream{a}, Rules: identity})
	require.NoError(t, err)

	_, err = res.Transactions.Next()
	require.NoError(t, err)
	_, err = res.Transactions.Next()
	var se *reconcile.SourceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "A", se.Stream)
	assert.EqualError(t, pkgerrors.Cause(err), "connection reset")

	// Sort mode reads everything up front, so the failure comes from Run.
	a = count("A", tx("2024-01-01", "one", "assets:A", "A-1", "1", ""))
	a.failAt = 1
	_, err = reconcile.Run(reconcile.Config{Streams: []ledger.Stream{a}, Rules: identity, Sort: true})
	assert.True(t, errors.As(err, &se))
}

func TestTransformError(t *testing.T) {
	bad := errors.New("no rule for this")
	rules := reconcile.TransformFunc(func(tr ledger.Transaction) (ledger.Transaction, error) {
		if tr.Description == "two" {
			return ledger.Transaction{}, bad
		}
		return tr, nil
	})
	a := count("A",
		tx("2024-01-01", "one", "assets:A", "A-1", "1", ""),
		tx("2024-01-02", "two", "assets:A", "A-2", "1", ""),
	)

	res, err := reconcile.Run(reconcile.Config{Streams: []ledger.Stream{a}, Rules: rules})
	require.NoError(t, err)

	_, err = ledger.ReadAll(res.Transactions)
	var te *reconcile.TransformError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "two", te.Transaction.Description)
	assert.True(t, errors.Is(err, bad))

	_, err = (&ledger.Rules{}).Transform(ledger.Transaction{})
	assert.Equal(t, ledger.ErrNoPostings, err)
}

func TestPrepend(t *testing.T) {
	head := tx("2024-01-01", "head", "assets:A", "H", "1", "")
	s := reconcile.Prepend(head, ledger.NewSliceStream("A", []ledger.Transaction{
		tx("2024-01-02", "tail", "assets:A", "T", "1", ""),
	}))
	assert.Equal(t, "A", s.Name())
	assert.Equal(t, []string{"H", "T"}, ids(drain(t, s)))
}
