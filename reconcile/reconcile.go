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
Package reconcile turns statement streams into new ledger entries.

Run applies the rule set to every stream, optionally builds an opening balance from the first
transaction of each stream, joins the streams, drops anything the ledger already has, and
optionally sorts the result. Everything is pulled lazily one transaction at a time unless sorting
was asked for.
*/
package reconcile

import (
	"go.uber.org/zap"

	"github.com/samuellwn/ledgersync"
)

// Config is everything a run needs.
type Config struct {
	Streams []ledger.Stream // One per account, in the order they should be output.
	Rules   Transformer     // Required.
	Store   Store           // The existing ledger, nil if there isn't one.

	Opening bool // Build an opening balance entry.
	Sort    bool // Sort the output by date instead of keeping stream order.

	Log *zap.Logger // Optional.
}

// Result of a run. Transactions must be read to the end to finish the run, any error it returns
// means the whole run failed.
type Result struct {
	// The opening balance entry, if one was requested. It is not part of Transactions and should be
	// written out before them.
	Opening *ledger.Transaction

	Transactions ledger.Stream
}

// Run sets up the pipeline described by cfg. Errors found before any transaction is output (missing
// rules, duplicate or impossible opening balance, and in sort mode any read failure) are returned here.
func Run(cfg Config) (*Result, error) {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	if cfg.Rules == nil {
		return nil, ErrNoRules
	}

	streams := ApplyRules(cfg.Streams, cfg.Rules)

	res := &Result{}
	if cfg.Opening {
		opening, rest, err := Opening(streams, cfg.Store)
		if err != nil {
			return nil, err
		}
		log.Debug("Built opening balance",
			zap.Time("date", opening.Date),
			zap.Int("accounts", len(opening.Postings)-1))
		res.Opening = opening
		streams = rest
	}

	merged := dedup(Merge(streams), cfg.Store, func(tr ledger.Transaction) {
		log.Debug("Skipping transaction already in ledger",
			zap.String("id", tr.Anchor().ID),
			zap.String("description", tr.Description))
	})

	var orderer Orderer = StreamOrder{}
	if cfg.Sort {
		orderer = SortOrder{}
	}

	out, err := orderer.Order(merged)
	if err != nil {
		return nil, err
	}
	res.Transactions = out
	return res, nil
}
