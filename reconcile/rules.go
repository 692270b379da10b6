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

// Transformer maps one imported transaction to its categorized form. Transform must not keep state
// between calls, otherwise the output of a run depends on the order streams are read in.
type Transformer interface {
	Transform(ledger.Transaction) (ledger.Transaction, error)
}

// TransformFunc adapts a plain function to a Transformer.
type TransformFunc func(ledger.Transaction) (ledger.Transaction, error)

// Transform calls f(tr).
func (f TransformFunc) Transform(tr ledger.Transaction) (ledger.Transaction, error) {
	return f(tr)
}

type ruleStream struct {
	src   ledger.Stream
	rules Transformer
}

// ApplyRules wraps each stream so every transaction read from it has the rules applied. Nothing is read
// ahead. Read failures come back as *SourceError and rule failures as *TransformError.
func ApplyRules(streams []ledger.Stream, rules Transformer) []ledger.Stream {
	out := make([]ledger.Stream, 0, len(streams))
	for _, s := range streams {
		out = append(out, &ruleStream{src: s, rules: rules})
	}
	return out
}

func (s *ruleStream) Name() string {
	return s.src.Name()
}

func (s *ruleStream) Next() (ledger.Transaction, error) {
	tr, err := s.src.Next()
	if err == io.EOF {
		return ledger.Transaction{}, io.EOF
	}
	if err != nil {
		return ledger.Transaction{}, &SourceError{Stream: s.src.Name(), Err: err}
	}

	ntr, err := s.rules.Transform(tr)
	if err != nil {
		return ledger.Transaction{}, &TransformError{Stream: s.src.Name(), Transaction: tr, Err: err}
	}
	return ntr, nil
}
