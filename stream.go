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

package ledger

import "io"

// Stream is a one-shot, ordered sequence of transactions, usually everything a statement had for one account.
// Next returns io.EOF once the stream is exhausted. A Stream must not be read again after that.
type Stream interface {
	// Name identifies the stream in error messages, usually the account or file it came from.
	Name() string
	Next() (Transaction, error)
}

type sliceStream struct {
	name string
	trs  []Transaction
}

// NewSliceStream returns a Stream over an in memory list of transactions.
func NewSliceStream(name string, trs []Transaction) Stream {
	return &sliceStream{name: name, trs: trs}
}

func (s *sliceStream) Name() string {
	return s.name
}

func (s *sliceStream) Next() (Transaction, error) {
	if len(s.trs) == 0 {
		return Transaction{}, io.EOF
	}
	tr := s.trs[0]
	s.trs = s.trs[1:]
	return tr, nil
}

// ReadAll drains a stream into a slice.
func ReadAll(s Stream) ([]Transaction, error) {
	trs := []Transaction{}
	for {
		tr, err := s.Next()
		if err == io.EOF {
			return trs, nil
		}
		if err != nil {
			return nil, err
		}
		trs = append(trs, tr)
	}
}
