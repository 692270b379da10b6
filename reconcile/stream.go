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

// Store is the read only view of the existing ledger the pipeline checks imported transactions against.
// *store.Store implements it.
type Store interface {
	Contains(id string) bool
}

// prependStream yields head once, then everything left in tail.
type prependStream struct {
	head    ledger.Transaction
	hasHead bool
	tail    ledger.Stream
}

// Prepend returns a stream that yields tr followed by the rest of s. Used to put back a transaction
// that was already read from s.
func Prepend(tr ledger.Transaction, s ledger.Stream) ledger.Stream {
	return &prependStream{head: tr, hasHead: true, tail: s}
}

func (s *prependStream) Name() string {
	return s.tail.Name()
}

func (s *prependStream) Next() (ledger.Transaction, error) {
	if s.hasHead {
		s.hasHead = false
		tr := s.head
		s.head = ledger.Transaction{}
		return tr, nil
	}
	return s.tail.Next()
}

type mergeStream struct {
	streams []ledger.Stream
}

// Merge joins streams end to end in the order given. Every stream is read to the end before the
// next one is touched, so each stream keeps its own order and nothing is dropped or repeated.
func Merge(streams []ledger.Stream) ledger.Stream {
	return &mergeStream{streams: streams}
}

func (s *mergeStream) Name() string {
	if len(s.streams) == 0 {
		return "merged statements"
	}
	return s.streams[0].Name()
}

func (s *mergeStream) Next() (ledger.Transaction, error) {
	for len(s.streams) > 0 {
		tr, err := s.streams[0].Next()
		if err == io.EOF {
			s.streams = s.streams[1:]
			continue
		}
		return tr, err
	}
	return ledger.Transaction{}, io.EOF
}

type dedupStream struct {
	src   ledger.Stream
	store Store
	skip  func(ledger.Transaction)
}

// Dedup drops transactions whose anchor posting ID is already in the store. Transactions without an
// anchor ID are always kept. A nil store keeps everything.
func Dedup(s ledger.Stream, store Store) ledger.Stream {
	return dedup(s, store, nil)
}

func dedup(s ledger.Stream, store Store, skip func(ledger.Transaction)) ledger.Stream {
	if store == nil {
		return s
	}
	return &dedupStream{src: s, store: store, skip: skip}
}

func (s *dedupStream) Name() string {
	return s.src.Name()
}

func (s *dedupStream) Next() (ledger.Transaction, error) {
	for {
		tr, err := s.src.Next()
		if err != nil {
			return tr, err
		}

		if a := tr.Anchor(); a != nil && a.ID != "" && s.store.Contains(a.ID) {
			if s.skip != nil {
				s.skip(tr)
			}
			continue
		}
		return tr, nil
	}
}
