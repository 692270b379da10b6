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
	"sort"

	"github.com/samuellwn/ledgersync"
)

// Orderer decides the order the reconciled transactions come out in.
type Orderer interface {
	Order(ledger.Stream) (ledger.Stream, error)
}

// StreamOrder passes the stream through untouched, keeping merge order. Only one transaction is
// ever held in memory.
type StreamOrder struct{}

// Order returns s.
func (StreamOrder) Order(s ledger.Stream) (ledger.Stream, error) {
	return s, nil
}

// SortOrder reads the whole stream and sorts it by date. Transactions on the same date keep the order
// they arrived in.
type SortOrder struct{}

// Order drains s and returns the sorted result as a new stream.
func (SortOrder) Order(s ledger.Stream) (ledger.Stream, error) {
	trs, err := ledger.ReadAll(s)
	if err != nil {
		return nil, err
	}
	sort.Stable(ledger.TransactionDateSorter(trs))
	return ledger.NewSliceStream(s.Name(), trs), nil
}
