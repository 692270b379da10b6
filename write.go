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
	"fmt"
	"io"
)

// WriteTransactions writes every transaction from s to w as it is read, without buffering the stream.
// Returns the number of transactions written.
func WriteTransactions(w io.Writer, s Stream) (int, error) {
	n := 0
	for {
		tr, err := s.Next()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}

		if err := WriteTransaction(w, &tr); err != nil {
			return n, err
		}
		n++
	}
}

// WriteTransaction writes a single transaction in the same layout File.Format uses.
func WriteTransaction(w io.Writer, tr *Transaction) error {
	_, err := fmt.Fprintf(w, "\n%v", tr.String())
	return err
}
