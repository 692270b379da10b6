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

package parse

import (
	"fmt"

	"github.com/samuellwn/ledgersync/parse/lex"
)

// ErrBadDate is returned by the parser when it attempts to consume a invalid date.
type ErrBadDate lex.Location

func (err ErrBadDate) Error() string {
	return fmt.Sprintf("Malformed transaction date at: %v", lex.Location(err))
}

// ErrBadAmount is returned by the parser when it attempts to consume an amount that is malformed or out of the valid range.
type ErrBadAmount lex.Location

func (err ErrBadAmount) Error() string {
	return fmt.Sprintf("Malformed amount at: %v", lex.Location(err))
}

// ErrUnexpectedEnd is returned by the parser when the end of input is found unexpectedly.
type ErrUnexpectedEnd lex.Location

func (err ErrUnexpectedEnd) Error() string {
	return fmt.Sprintf("Unexpected end of input at: %v", lex.Location(err))
}

// ErrMalformed is returned by the parser when it finds a malformed transaction.
type ErrMalformed lex.Location

func (err ErrMalformed) Error() string {
	return fmt.Sprintf("Malformed transaction at: %v", lex.Location(err))
}

// ErrMalformedTagLine is returned by the parser when it attempts to consume a tag line that is malformed.
type ErrMalformedTagLine lex.Location

func (err ErrMalformedTagLine) Error() string {
	return fmt.Sprintf("Malformed tags in transaction at: %v", lex.Location(err))
}

// ErrMalformedDirective is returned by the parser when a directive has no keyword.
type ErrMalformedDirective lex.Location

func (err ErrMalformedDirective) Error() string {
	return fmt.Sprintf("Malformed directive at: %v", lex.Location(err))
}
