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

import (
	"time"

	"github.com/teris-io/shortid"
)

// IDService hands out unique IDs for the "ID" and "RID" K/V pairs of new transactions and revisions.
var IDService <-chan string

func init() {
	c := make(chan string)
	IDService = c

	go func() {
		idsource := shortid.MustNew(16, shortid.DefaultABC, uint64(time.Now().UnixNano()))

		for {
			c <- idsource.MustGenerate()
		}
	}()
}

// Stamp gives the transaction fresh "ID" and "RID" K/V pairs, unless it already has an ID.
func (t *Transaction) Stamp() {
	if t.KVPairs == nil {
		t.KVPairs = map[string]string{}
	}
	if _, ok := t.KVPairs["ID"]; ok {
		return
	}
	t.KVPairs["ID"] = <-IDService
	t.KVPairs["RID"] = <-IDService
}
