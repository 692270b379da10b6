/*
Copyright 2021 by Milo Christiansen

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

/*
Package ledger contains the data model for Ledger CLI transactions used by the
statement sync tools.

Transactions can be rendered back out with String so the results can be appended
to a ledger file and read by Ledger again. Amounts are exact decimals, and each
posting may carry a balance assertion and an identifier (written as an "id:" tag
in the posting comment) that the sync tools use to recognize entries they have
already written.
*/
package ledger

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type status int

// Status constants for Transaction.Status
const (
	StatusUndefined = status(iota)
	StatusPending
	StatusClear
)

// Transaction is a single transaction from a ledger file.
type Transaction struct {
	Date        time.Time // 2020/10/10
	ClearDate   time.Time // =2020/10/10 (optional)
	Status      status    //   | ! | * (optional)
	Code        string    // ( Stuff ) (optional)
	Description string    // Spent monie on stuf

	Postings []Posting

	Comments []string // ; Stuff...

	Tags    map[string]bool   // ; :tag:tag:tag:
	KVPairs map[string]string // ; Key: Value

	Line int // The line number where the transaction starts.
}

// Posting is a single line item in a Transaction.
type Posting struct {
	Status     status          //   | ! | *  (optional)
	Account    string          // Account:Name
	Value      decimal.Decimal // $20.00 (currently only supporting USD)
	Null       bool            // True if the Value is implied. Value may or may not contain a valid amount.
	Balance    decimal.Decimal // = $120.00 (optional balance assertion, the account balance after this posting)
	HasBalance bool            // True if Balance is set.
	ID         string          // ; id:XYZ (optional, unique)
	Note       string          // ; Stuff
}

// Anchor returns the posting that identifies the transaction, by convention the first one.
// Returns nil if the transaction has no postings.
func (t *Transaction) Anchor() *Posting {
	if len(t.Postings) == 0 {
		return nil
	}
	return &t.Postings[0]
}

// CleanCopy takes a perfect copy of the transaction object, safe for editing without making any changes to the parent.
func (t *Transaction) CleanCopy() *Transaction {
	nt := *t
	nt.Postings = slices.Clone(t.Postings)
	nt.Comments = slices.Clone(t.Comments)
	nt.Tags = maps.Clone(t.Tags)
	nt.KVPairs = maps.Clone(t.KVPairs)
	return &nt
}

// Balance ensures that all postings in the transaction add up to 0 or there is a single null posting.
// Returns false, nil if there is more than one null posting, otherwise returns the ending balances of
// all accounts with postings and true if the transaction balances to 0 or there was a null posting.
func (t *Transaction) Balance() (bool, map[string]decimal.Decimal) {
	bal := decimal.Zero
	null := -1
	accounts := map[string]decimal.Decimal{}

	for i, p := range t.Postings {
		if p.Null && null != -1 {
			return false, nil // Multiple null postings
		}
		if p.Null {
			null = i
			continue
		}
		bal = bal.Add(p.Value)
		accounts[p.Account] = accounts[p.Account].Add(p.Value)
	}
	if null != -1 {
		acct := t.Postings[null].Account
		accounts[acct] = accounts[acct].Sub(bal)
		return true, accounts
	}
	return bal.IsZero(), accounts
}

// Canonicalize takes a transaction and sets the value of any null postings that may exist to
// the required value to make it balance. Returns an error if there are multiple null postings or
// if there are no null postings and the transaction does not balance.
func (t *Transaction) Canonicalize() error {
	bal := decimal.Zero
	null := -1

	for i, p := range t.Postings {
		if p.Null && null != -1 {
			return &MultipleNullError{Description: t.Description, Line: t.Line}
		}
		if p.Null {
			null = i
			continue
		}
		bal = bal.Add(p.Value)
	}
	if null != -1 {
		t.Postings[null].Value = bal.Neg()
		return nil
	}
	if !bal.IsZero() {
		return &BalanceError{Description: t.Description, Line: t.Line, Off: bal}
	}
	return nil
}

func (t *Transaction) String() string {
	buf := new(bytes.Buffer)

	buf.WriteString(t.Date.Format("2006/01/02"))
	if !t.ClearDate.IsZero() {
		fmt.Fprintf(buf, "=%v", t.ClearDate.Format("2006/01/02"))
	}

	switch t.Status {
	case StatusClear:
		buf.WriteString(" * ")
	case StatusPending:
		buf.WriteString(" ! ")
	default:
		buf.WriteString("   ")
	}

	if t.Code != "" {
		fmt.Fprintf(buf, "(%v) ", t.Code)
	}

	fmt.Fprintf(buf, "%v\n", t.Description)

	// We don't know if the comments and postings were interleaved in any way,
	// so canonically we will just do the comments and metadata first.
	// Map keys are sorted so the same transaction always renders the same way.
	for _, line := range t.Comments {
		fmt.Fprintf(buf, "\t; %v\n", line)
	}
	if len(t.Tags) != 0 {
		tags := maps.Keys(t.Tags)
		slices.Sort(tags)
		fmt.Fprint(buf, "\t; ")
		for _, tag := range tags {
			fmt.Fprintf(buf, ":%v", tag)
		}
		fmt.Fprint(buf, ":\n")
	}
	keys := maps.Keys(t.KVPairs)
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "\t; %v: %v\n", k, t.KVPairs[k])
	}

	for i := range t.Postings {
		fmt.Fprintf(buf, "\t%v\n", &t.Postings[i])
	}

	return buf.String()
}

func (p *Posting) String() string {
	buf := new(bytes.Buffer)

	switch p.Status {
	case StatusClear:
		buf.WriteString("* ")
	case StatusPending:
		buf.WriteString("! ")
	default:
		// This would pad all lines to the same length, but since these clear indicators are not common
		// adding them would just look like a bug (ask me how I know...)
		//buf.WriteString("  ")
	}

	// TODO: It would be nice to align on the decimal point instead of the first
	// digit, although that would be a lot harder.
	note := p.Note
	if p.ID != "" {
		note = strings.TrimSpace("id:" + p.ID + " " + note)
	}

	if p.Null && !p.HasBalance && note == "" {
		buf.WriteString(p.Account)
		return buf.String()
	}

	// Two spaces or more end an account name, so make sure there are always at least two.
	buf.WriteString(p.Account)
	if pad := 50 - len(p.Account); pad > 2 {
		buf.WriteString(strings.Repeat(" ", pad))
	} else {
		buf.WriteString("  ")
	}

	if !p.Null {
		if !p.Value.IsNegative() {
			buf.WriteString(" ")
		}
		buf.WriteString(FormatValue(p.Value))
		if p.HasBalance || note != "" {
			buf.WriteString(" ")
		}
	}

	if p.HasBalance {
		fmt.Fprintf(buf, "= %v", FormatValue(p.Balance))
		if note != "" {
			buf.WriteString(" ")
		}
	}

	if note != "" {
		fmt.Fprintf(buf, "; %v", note)
	}

	return buf.String()
}

// ParseValueNumber takes a decimal number and converts it to an exact decimal value.
func ParseValueNumber(v string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(v))
}

// FormatValue takes a amount of money and formats it for display.
// Rounding is done via the round to even method.
func FormatValue(v decimal.Decimal) string {
	return "$" + v.StringFixedBank(2)
}

// TransactionDateSorter is a helper for sorting a list of transactions by date.
// Use it with sort.Stable to keep the original order of same-day transactions.
type TransactionDateSorter []Transaction

func (tds TransactionDateSorter) Len() int {
	return len(tds)
}

func (tds TransactionDateSorter) Less(i, j int) bool {
	return tds[i].Date.Before(tds[j].Date)
}

func (tds TransactionDateSorter) Swap(i, j int) {
	tds[i], tds[j] = tds[j], tds[i]
}

// Error types

// BalanceError is returned by Canonicalize when a transaction without a null posting doesn't add up to 0.
type BalanceError struct {
	Description string
	Line        int
	Off         decimal.Decimal // What the postings add up to.
}

func (err *BalanceError) Error() string {
	return fmt.Sprintf("Transaction %q (line %v) is off by %v.", err.Description, err.Line, FormatValue(err.Off))
}

// MultipleNullError is returned by Canonicalize when a transaction has more than one null posting.
type MultipleNullError struct {
	Description string
	Line        int
}

func (err *MultipleNullError) Error() string {
	return fmt.Sprintf("Transaction %q (line %v) has multiple null postings.", err.Description, err.Line)
}
