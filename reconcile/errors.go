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
	"errors"
	"fmt"

	"github.com/samuellwn/ledgersync"
)

var (
	// ErrNoRules is returned by Run when no rule set was supplied. Nothing is read in that case.
	ErrNoRules = errors.New("No rule set supplied.")

	// ErrDuplicateOpening is returned when an opening balance was requested, but the ledger already has one.
	ErrDuplicateOpening = errors.New("Requested opening balance, but ledger already contains an opening balance entry.")

	// ErrNoTransactions is returned when an opening balance was requested, but every stream was empty.
	ErrNoTransactions = errors.New("Could not find any transactions.")
)

// SourceError wraps a failure reading from a statement stream.
type SourceError struct {
	Stream string
	Err    error
}

func (err *SourceError) Error() string {
	return fmt.Sprintf("Reading %s: %v", err.Stream, err.Err)
}

func (err *SourceError) Unwrap() error { return err.Err }

// Cause makes the error work with github.com/pkg/errors.Cause.
func (err *SourceError) Cause() error { return err.Err }

// TransformError wraps a failure of the rule set on a single transaction.
type TransformError struct {
	Stream      string
	Transaction ledger.Transaction
	Err         error
}

func (err *TransformError) Error() string {
	return fmt.Sprintf("Applying rules to %q (%s) from %s: %v",
		err.Transaction.Description, err.Transaction.Date.Format("2006/01/02"), err.Stream, err.Err)
}

func (err *TransformError) Unwrap() error { return err.Err }

// Cause makes the error work with github.com/pkg/errors.Cause.
func (err *TransformError) Cause() error { return err.Err }

// MissingBalanceError is returned when the first transaction of a stream can't be used for an opening
// balance because its anchor posting is missing an amount or a balance.
type MissingBalanceError struct {
	Stream      string
	Transaction ledger.Transaction
}

func (err *MissingBalanceError) Error() string {
	return fmt.Sprintf("First transaction from %s (%q on %s) needs both an amount and a balance for an opening balance.",
		err.Stream, err.Transaction.Description, err.Transaction.Date.Format("2006/01/02"))
}
