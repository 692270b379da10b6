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

/*
Package source reads bank statements and turns them into one transaction stream per account.

Statements can come from OFX/QFX files, straight from an institution's OFX server, or from CSV
exports. Every imported transaction has the bank account as its first (anchor) posting, with the
running balance after the transaction and a stable posting ID, and a null posting to a counter
account that the rule set is expected to fix up.
*/
package source

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/pkg/errors"
	"github.com/samuellwn/ledgersync"
)

// DefaultCounter is the counter account used when Options doesn't name one.
const DefaultCounter = "expenses:Unknown"

// DescSource picks which OFX fields make up a transaction description.
type DescSource int

const (
	DescName DescSource = iota
	DescMemo
	DescNameMemo
)

// ParseDescSource parses "name", "memo", or "name+memo".
func ParseDescSource(s string) (DescSource, error) {
	switch s {
	case "", "name":
		return DescName, nil
	case "memo":
		return DescMemo, nil
	case "name+memo":
		return DescNameMemo, nil
	}
	return DescName, fmt.Errorf("Unknown description source: %q", s)
}

// UnmarshalText lets a DescSource be read straight from a config file.
func (d *DescSource) UnmarshalText(b []byte) error {
	v, err := ParseDescSource(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Options control how statements are turned into transactions.
type Options struct {
	Accounts map[string]string // OFX account ID to ledger account name.
	Counter  string            // Account for the other side of every transaction. Default DefaultCounter.
	Desc     DescSource
}

func (o Options) counter() string {
	if o.Counter == "" {
		return DefaultCounter
	}
	return o.Counter
}

func (o Options) account(acctID, fallback string) string {
	if a, ok := o.Accounts[acctID]; ok && a != "" {
		return a
	}
	return fallback + ":" + acctID
}

// Statement is every transaction an OFX statement had for one account, in posted order.
type Statement struct {
	AcctID       string
	Account      string
	Transactions []ledger.Transaction
}

// Statements converts the bank and credit card statements in an OFX response.
//
// OFX only gives the balance at the end of the statement, so the balance after each transaction is
// worked out backwards from there.
func Statements(resp *ofxgo.Response, opts Options) ([]Statement, error) {
	if len(resp.Bank) == 0 && len(resp.CreditCard) == 0 {
		return nil, errors.New("No banks or credit cards.")
	}

	msgs := append(append([]ofxgo.Message{}, resp.Bank...), resp.CreditCard...)

	stmts := []Statement{}
	for _, msg := range msgs {
		var list *ofxgo.TransactionList
		var bal ofxgo.Amount
		var acctID, account string
		switch m := msg.(type) {
		case *ofxgo.StatementResponse:
			list = m.BankTranList
			bal = m.BalAmt
			acctID = string(m.BankAcctFrom.AcctID)
			account = opts.account(acctID, "assets:Unknown")
		case *ofxgo.CCStatementResponse:
			list = m.BankTranList
			bal = m.BalAmt
			acctID = string(m.CCAcctFrom.AcctID)
			account = opts.account(acctID, "liabilities:Unknown")
		default:
			return nil, errors.Errorf("Unexpected response type: %T", msg)
		}

		stmt := Statement{AcctID: acctID, Account: account}
		if list != nil {
			trs, err := convert(list.Transactions, bal, acctID, account, opts)
			if err != nil {
				return nil, errors.Wrapf(err, "account %s", acctID)
			}
			stmt.Transactions = trs
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func convert(strs []ofxgo.Transaction, bal ofxgo.Amount, acctID, account string, opts Options) ([]ledger.Transaction, error) {
	strs = append([]ofxgo.Transaction(nil), strs...)
	sort.SliceStable(strs, func(i, j int) bool {
		return strs[i].DtPosted.Before(strs[j].DtPosted.Time)
	})

	running, err := ledger.ParseValueNumber(bal.String())
	if err != nil {
		return nil, err
	}

	trs := make([]ledger.Transaction, len(strs))
	for i := len(strs) - 1; i >= 0; i-- {
		str := strs[i]

		v, err := ledger.ParseValueNumber(str.TrnAmt.String())
		if err != nil {
			return nil, err
		}

		tr := ledger.Transaction{
			Description: description(str, opts.Desc),
			Date:        str.DtPosted.Time,
			Status:      ledger.StatusClear,
			KVPairs: map[string]string{
				"FITID":  string(str.FiTID),
				"TrnTyp": str.TrnType.String(),
			},
			Postings: []ledger.Posting{
				{
					Account:    account,
					Value:      v,
					Balance:    running,
					HasBalance: true,
					ID:         acctID + "-" + string(str.FiTID),
				},
				{
					Account: opts.counter(),
					Null:    true,
				},
			},
		}
		if str.Memo != "" {
			tr.KVPairs["Memo"] = string(str.Memo)
		}
		if str.Name != "" {
			tr.KVPairs["Name"] = string(str.Name)
		}
		tr.Stamp()

		trs[i] = tr
		running = running.Sub(v)
	}
	return trs, nil
}

func description(str ofxgo.Transaction, src DescSource) string {
	switch src {
	case DescMemo:
		return strings.TrimSpace(string(str.Memo))
	case DescNameMemo: // because some banks output braindead OFX files
		return strings.TrimSpace(string(str.Name + str.Memo))
	default:
		return strings.TrimSpace(string(str.Name))
	}
}

// Streams splits statements into one stream per account, in the order each account first shows up.
// Several statements for the same account are joined in the order given.
func Streams(stmts []Statement) []ledger.Stream {
	order := []string{}
	byAcct := map[string]*Statement{}
	for _, stmt := range stmts {
		if acc, ok := byAcct[stmt.AcctID]; ok {
			acc.Transactions = append(acc.Transactions, stmt.Transactions...)
			continue
		}
		stmt := stmt
		stmt.Transactions = append([]ledger.Transaction(nil), stmt.Transactions...)
		byAcct[stmt.AcctID] = &stmt
		order = append(order, stmt.AcctID)
	}

	streams := make([]ledger.Stream, 0, len(order))
	for _, id := range order {
		stmt := byAcct[id]
		streams = append(streams, ledger.NewSliceStream(stmt.Account, stmt.Transactions))
	}
	return streams
}

// accountStream fetches the transactions for one account the first time it is read.
type accountStream struct {
	name string
	load func() ([]ledger.Transaction, error)
	trs  ledger.Stream
}

func (s *accountStream) Name() string {
	return s.name
}

func (s *accountStream) Next() (ledger.Transaction, error) {
	if s.trs == nil {
		trs, err := s.load()
		if err != nil {
			return ledger.Transaction{}, err
		}
		s.trs = ledger.NewSliceStream(s.name, trs)
	}
	return s.trs.Next()
}

// ReadOFX parses an OFX/QFX document from r.
func ReadOFX(r io.Reader, opts Options) ([]Statement, error) {
	resp, err := ofxgo.ParseResponse(r)
	if err != nil {
		return nil, err
	}
	return Statements(resp, opts)
}

// OpenOFXFile reads an OFX/QFX file and returns one stream per account in it.
func OpenOFXFile(path string, opts Options) ([]ledger.Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stmts, err := ReadOFX(f, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return Streams(stmts), nil
}
