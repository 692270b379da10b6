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
Package lex reads ledger text one character at a time, with one character of lookahead and the line
and column of both. Carriage returns never show up, so files with either line ending read the same.
*/
package lex

import (
	"fmt"
	"io"
	"strings"
	"unicode"
)

// Location is a line and column in the input. Lines start at whatever the reader was created with,
// columns start at 0.
type Location struct {
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%v:%v", l.Line, l.Column)
}

// CharReader is a character reader with one character of lookahead.
type CharReader struct {
	source io.RuneReader

	// The current character. C and L are not valid once EOF is set.
	L   Location
	C   rune
	EOF bool

	// The next character. NC and NL are not valid if NEOF is set.
	NL   Location
	NC   rune
	NEOF bool
}

// NewCharReader returns a CharReader over a string, positioned on its first character.
func NewCharReader(source string, line uint) *CharReader {
	return NewRawCharReader(strings.NewReader(source), line)
}

// NewRawCharReader returns a CharReader over any rune source, positioned on its first character.
func NewRawCharReader(source io.RuneReader, line uint) *CharReader {
	cr := &CharReader{source: source}

	// The lookahead starts one column before the first character so reading it lands on column 0.
	cr.NL = Location{Line: int(line), Column: -1}
	cr.readAhead()
	cr.Next()
	return cr
}

// readAhead loads the next character from the source into NC.
func (cr *CharReader) readAhead() {
	for {
		r, _, err := cr.source.ReadRune()
		if err != nil {
			cr.NEOF = true
			return
		}
		if r == '\r' {
			continue
		}

		if cr.NC == '\n' {
			cr.NL = Location{Line: cr.NL.Line + 1}
		} else {
			cr.NL.Column++
		}
		cr.NC = r
		return
	}
}

// Next moves the lookahead into the current character and reads a new lookahead.
func (cr *CharReader) Next() {
	if cr.EOF {
		return
	}
	if cr.NEOF {
		cr.EOF = true
		return
	}

	cr.C, cr.L = cr.NC, cr.NL
	cr.readAhead()
}

func in(c rune, chars string) bool {
	return strings.ContainsRune(chars, c)
}

// Match returns true if C is one of chars.
func (cr *CharReader) Match(chars string) bool {
	return !cr.EOF && in(cr.C, chars)
}

// NMatch returns true if NC is one of chars.
func (cr *CharReader) NMatch(chars string) bool {
	return !cr.NEOF && in(cr.NC, chars)
}

// MatchAlpha returns true if C is a letter or underscore.
func (cr *CharReader) MatchAlpha() bool {
	return !cr.EOF && (cr.C == '_' || unicode.IsLetter(cr.C))
}

// MatchNumeric returns true if C is an ASCII digit.
func (cr *CharReader) MatchNumeric() bool {
	return !cr.EOF && cr.C >= '0' && cr.C <= '9'
}

// Eat skips characters while they are in chars.
func (cr *CharReader) Eat(chars string) {
	for cr.Match(chars) {
		cr.Next()
	}
}

// EatUntil skips characters until one in chars is found.
func (cr *CharReader) EatUntil(chars string) {
	for !cr.EOF && !in(cr.C, chars) {
		cr.Next()
	}
}

// ReadUntil appends characters to buf until one in chars is found or the input ends.
func (cr *CharReader) ReadUntil(chars string, buf []rune) []rune {
	for !cr.EOF && !in(cr.C, chars) {
		buf = append(buf, cr.C)
		cr.Next()
	}
	return buf
}

// ReadMatchLimit appends up to limit characters from chars to buf. The bool is true only if exactly
// limit characters were read and the input did not end.
func (cr *CharReader) ReadMatchLimit(chars string, buf []rune, limit int) (bool, []rune) {
	n := 0
	for n < limit && cr.Match(chars) {
		buf = append(buf, cr.C)
		cr.Next()
		n++
	}
	return n == limit && !cr.EOF, buf
}
