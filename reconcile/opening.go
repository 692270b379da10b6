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

package reconcile

import (
	"io"

	"github.com/samuellwn/ledgersync"
)

const (
	// OpeningID is the posting ID of the opening balance entry. There may only ever be one in a ledger.
	OpeningID = "Opening-Balance"

	// OpeningAccount takes the other side of every opening balance.
	OpeningAccount = "equity:Opening Balances"

	// OpeningDescription is the description of the opening balance entry.
	OpeningDescription = "Opening Balance"
)

// Opening builds an opening balance transaction from the first transaction of each stream. The
// opening amount for an account is the balance on its first anchor posting minus that posting's
// amount, i.e. the balance right before the first transaction.
//
// The first transaction of each stream is put back, so the returned streams still yield everything.
// Empty streams are dropped. If store already contains OpeningID nothing is read at all.
func Opening(streams []ledger.Stream, store Store) (*ledger.Transaction, []ledger.Stream, error) {
	if store != nil && store.Contains(OpeningID) {
		return nil, nil, ErrDuplicateOpening
	}

	out := make([]ledger.Stream, 0, len(streams))
	firsts := []ledger.Transaction{}
	for _, s := range streams {
		tr, err := s.Next()
		if err == io.EOF {
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		a := tr.Anchor()
		if a == nil || a.Null || !a.HasBalance {
			return nil, nil, &MissingBalanceError{Stream: s.Name(), Transaction: tr}
		}

		firsts = append(firsts, tr)
		out = append(out, Prepend(tr, s))
	}

	if len(firsts) == 0 {
		return nil, nil, ErrNoTransactions
	}

	opening := &ledger.Transaction{
		Date:        firsts[0].Date,
		Status:      ledger.StatusClear,
		Description: OpeningDescription,
		KVPairs:     map[string]string{},
	}
	for _, tr := range firsts {
		a := tr.Anchor()
		opening.Postings = append(opening.Postings, ledger.Posting{
			Account: a.Account,
			Value:   a.Balance.Sub(a.Value),
		})
		if tr.Date.Before(opening.Date) {
			opening.Date = tr.Date
		}
	}
	opening.Postings = append(opening.Postings, ledger.Posting{
		Account: OpeningAccount,
		Null:    true,
		ID:      OpeningID,
	})
	// Fills in the equity amount. The posting stays null when written.
	if err := opening.Canonicalize(); err != nil {
		return nil, nil, err
	}

	return opening, out, nil
}
