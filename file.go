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

package ledger

import (
	"errors"
	"fmt"
	"io"
	"sort"
)

// File is a parsed ledger file: every transaction in order, plus the directives found between them.
type File struct {
	T []Transaction
	D []Directive
}

// ErrImproperInterleave is returned by File.Format if a directive claims to come after the last transaction.
var ErrImproperInterleave = errors.New("Ledger file transaction and directive lists do not interleave properly.")

// Format writes the file back out in the same layout WriteTransactions uses, with each directive put back
// in front of the transaction it was found before. D is sorted on FoundBefore as a side effect.
func (f *File) Format(w io.Writer) error {
	sort.SliceStable(f.D, func(i, j int) bool {
		return f.D[i].FoundBefore < f.D[j].FoundBefore
	})

	d := 0
	for i := 0; i <= len(f.T); i++ {
		for ; d < len(f.D) && f.D[d].FoundBefore <= i; d++ {
			if _, err := fmt.Fprintf(w, "\n%v", f.D[d].String()); err != nil {
				return err
			}
		}
		if i < len(f.T) {
			if err := WriteTransaction(w, &f.T[i]); err != nil {
				return err
			}
		}
	}
	if d < len(f.D) {
		return ErrImproperInterleave
	}
	return nil
}

// Matched runs the rule set over every transaction with a posting to account, and returns the ones a
// rule applied to. Each gets a new revision ID, since it is an edit of a transaction already in the file.
func (f *File) Matched(account string, rules *Rules) []Transaction {
	edits := []Transaction{}
	for _, ftr := range f.T {
		tr := ftr.CleanCopy()
		if !tr.Match(account, rules.Matchers) {
			continue
		}
		if tr.KVPairs == nil {
			tr.KVPairs = map[string]string{}
		}
		tr.KVPairs["RID"] = <-IDService
		edits = append(edits, *tr)
	}
	return edits
}
