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

package tools

import (
	"errors"
	"fmt"
	"os"

	"github.com/samuellwn/ledgersync/reconcile"
)

// Exit codes, so scripts can tell the failures apart.
const (
	ExitFailure          = 1 // Reading a statement, applying rules, or writing output failed.
	ExitUsage            = 2 // Bad arguments or configuration.
	ExitDuplicateOpening = 3
	ExitNoTransactions   = 4
)

// UsageError marks an error as a problem with the arguments or configuration.
type UsageError struct {
	Err error
}

func (err UsageError) Error() string { return err.Err.Error() }

func (err UsageError) Unwrap() error { return err.Err }

// ExitCode picks the exit code for an error.
func ExitCode(err error) int {
	var uerr UsageError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, reconcile.ErrNoRules), errors.As(err, &uerr):
		return ExitUsage
	case errors.Is(err, reconcile.ErrDuplicateOpening):
		return ExitDuplicateOpening
	case errors.Is(err, reconcile.ErrNoTransactions):
		return ExitNoTransactions
	}
	return ExitFailure
}

// Why did I do this? Just because I could?

// HandleErrV takes a value+err and returns the value if and only if the error is nil. If the error is not nil,
// it is handled by HandleErr.
func HandleErrV[T any](t T, err error) T {
	HandleErr(err)
	return t
}

// HandleErr takes an error and if the error is not nil, it is written to standard error as a single line and
// os.Exit is called with the code from ExitCode.
func HandleErr(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitCode(err))
	}
}
