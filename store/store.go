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
Package store provides a read only view of an existing ledger file, indexed by posting ID, so the sync
tools can tell which imported transactions have already been written.
*/
package store

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/samuellwn/ledgersync"
	"github.com/samuellwn/ledgersync/parse"
)

// Store holds every transaction in a ledger file, exactly as they appear and in source order, along
// with an index of every posting ID. A Store is never modified after loading.
type Store struct {
	path string

	raw []ledger.Transaction
	ids map[string]int // Posting ID to transaction index.

	lock sync.RWMutex
}

// Open loads the ledger file at path.
func Open(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "loading ledger %s", path)
	}
	s.path = path
	return s, nil
}

// OpenIfExists is like Open, but a missing file is not an error. In that case the returned Store is nil.
func OpenIfExists(path string) (*Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return Open(path)
}

// Load parses a ledger file from r.
func Load(r io.Reader) (*Store, error) {
	lf, err := parse.ParseLedger(parse.NewRawCharReader(bufio.NewReader(r), 1))
	if err != nil {
		return nil, err
	}

	s := &Store{
		raw: lf.T,
		ids: map[string]int{},
	}
	for i, tr := range s.raw {
		for _, p := range tr.Postings {
			// Edits are appended as new versions of a transaction, so the last one with an ID wins.
			if p.ID != "" {
				s.ids[p.ID] = i
			}
		}
	}
	return s, nil
}

// Path returns the file the store was opened from, or "" if it was loaded from a reader.
func (s *Store) Path() string {
	return s.path
}

// Contains returns true if any posting in the ledger has the given ID. A nil Store contains nothing.
func (s *Store) Contains(id string) bool {
	if s == nil {
		return false
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	_, ok := s.ids[id]
	return ok
}

// Len returns the number of transactions in the ledger.
func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.raw)
}

// Get returns a clean copy of the transaction containing the posting with the given ID.
func (s *Store) Get(id string) (ledger.Transaction, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	i, ok := s.ids[id]
	if !ok {
		return ledger.Transaction{}, false
	}
	return *s.raw[i].CleanCopy(), true
}

// Transactions returns clean copies of all transactions in source order.
func (s *Store) Transactions() []ledger.Transaction {
	s.lock.RLock()
	defer s.lock.RUnlock()

	trs := make([]ledger.Transaction, 0, len(s.raw))
	for _, tr := range s.raw {
		trs = append(trs, *tr.CleanCopy())
	}
	return trs
}
