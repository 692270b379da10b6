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
	"io"
	"strings"
	"time"

	"github.com/samuellwn/ledgersync"
	"github.com/samuellwn/ledgersync/parse/lex"
	"github.com/shopspring/decimal"
)

/*

Each element is either an xact or a directive.

Each xact is either plain, periodic, or automated. Only plain xacts are supported.

Directives are kept mostly unparsed, see ledger.Directive.

*/

// NewCharReader returns a CharReader over a string, see lex.NewCharReader.
func NewCharReader(source string, line uint) *lex.CharReader {
	return lex.NewCharReader(source, line)
}

// NewRawCharReader returns a CharReader over a rune reader, see lex.NewRawCharReader.
func NewRawCharReader(source io.RuneReader, line uint) *lex.CharReader {
	return lex.NewRawCharReader(source, line)
}

// ParseLedgerString parses a ledger file from a string.
func ParseLedgerString(input string) (*ledger.File, error) {
	return ParseLedger(NewCharReader(input, 1))
}

// ParseLedger parses a ledger file from a CharReader into lists of Transactions and Directives.
func ParseLedger(cr *lex.CharReader) (*ledger.File, error) {
	rtn := &ledger.File{T: []ledger.Transaction{}, D: []ledger.Directive{}}
	for !cr.EOF {
		// Eat any leading white space, also lines that are blank.
		cr.Eat(" \t")
		if cr.EOF {
			break
		}
		if cr.C == '\n' {
			cr.Next()
			continue
		}

		// Consume comments that are not part of the body of a transaction.
		if cr.C == ';' || cr.C == '#' {
			cr.EatUntil("\n")
			cr.Next()
			continue
		}

		// Directives all start with a keyword.
		if cr.MatchAlpha() {
			d, err := parseDirective(cr)
			if err != nil {
				return nil, err
			}
			d.FoundBefore = len(rtn.T)
			rtn.D = append(rtn.D, d)
			continue
		}

		// Anything that is left must be a transaction. We will treat transactions we don't
		// support (yet) as an error.
		current, err := parseTransaction(cr)
		if err != nil {
			return nil, err
		}
		rtn.T = append(rtn.T, current)
	}

	return rtn, nil
}

func parseDirective(cr *lex.CharReader) (ledger.Directive, error) {
	d := ledger.Directive{Location: cr.L}

	kw := []rune{}
	for !cr.EOF && !cr.Match(" \t\n") {
		kw = append(kw, cr.C)
		cr.Next()
	}
	d.Type = string(kw)

	cr.Eat(" \t")
	arg := []rune{}
	arg = cr.ReadUntil("\n", arg)
	d.Argument = strings.TrimSpace(string(arg))
	if d.Argument == "" && d.Type != "comment" && d.Type != "end" {
		return d, ErrMalformedDirective(d.Location)
	}
	cr.Next()

	// Indented lines belong to the directive.
	for cr.Match(" \t") {
		cr.Eat(" \t")
		if cr.EOF {
			break
		}
		if cr.C == '\n' {
			cr.Next()
			break
		}
		if cr.C == ';' {
			cr.EatUntil("\n")
			cr.Next()
			continue
		}

		ln := []rune{}
		ln = cr.ReadUntil("\n", ln)
		d.Lines = append(d.Lines, strings.TrimSpace(string(ln)))
		cr.Next()
	}
	return d, nil
}

func parseTransaction(cr *lex.CharReader) (ledger.Transaction, error) {
	current := ledger.Transaction{
		Tags:    map[string]bool{},
		KVPairs: map[string]string{},
		Line:    cr.L.Line,
	}
	fail := ledger.Transaction{}

	// Parse the leading dates(s)
	date, err := ParseDate(cr)
	if err != nil {
		return fail, err
	}
	current.Date = date
	if cr.C == '=' {
		cr.Next()
		date, err := ParseDate(cr)
		if err != nil {
			return fail, err
		}
		current.ClearDate = date
	}

	// Whitespace
	cr.Eat(" \t")
	if cr.EOF {
		return fail, ErrUnexpectedEnd(cr.L)
	}

	// The optional cleared indicator
	if cr.C == '*' {
		current.Status = ledger.StatusClear
		cr.Next()
	} else if cr.C == '!' {
		current.Status = ledger.StatusPending
		cr.Next()
	} else {
		current.Status = ledger.StatusUndefined
	}

	// Maybe more whitespace (only if there was a cleared indicator)
	cr.Eat(" \t")
	if cr.EOF {
		return fail, ErrUnexpectedEnd(cr.L)
	}

	// An optional "code"
	if cr.C == '(' {
		cr.Next()
		cr.Eat(" \t")
		desc, err := ReadUntilTrimmed(cr, ")\n")
		if err != nil {
			return fail, err
		}
		if cr.C == '\n' {
			return fail, ErrMalformed(cr.L)
		}
		current.Code = desc
		cr.Next()
	}

	// Even more ws
	cr.Eat(" \t")
	if cr.EOF {
		return fail, ErrUnexpectedEnd(cr.L)
	}

	// And, to cap the first line off, the description.
	desc, err := ReadUntilTrimmed(cr, "\n")
	if err != nil {
		return fail, err
	}
	current.Description = desc
	cr.Next()

	// Now parse the individual postings or comment lines.
	for cr.Match(" \t") {
		cr.Eat(" \t")
		if cr.EOF {
			return fail, ErrUnexpectedEnd(cr.L)
		}

		// A blank line ends the transaction.
		if cr.C == '\n' {
			cr.Next()
			break
		}

		// Is a comment that is attached to the transaction
		if cr.C == ';' {
			if err := parseComment(cr, &current); err != nil {
				return fail, err
			}
			continue
		}

		// Otherwise must be a actual posting
		post, err := parsePosting(cr)
		if err != nil {
			return fail, err
		}
		current.Postings = append(current.Postings, post)
	}

	if len(current.Postings) == 0 {
		return fail, ErrMalformed(cr.L)
	}
	return current, nil
}

func parseComment(cr *lex.CharReader, current *ledger.Transaction) error {
	cr.Next()

	cr.Eat(" \t")
	if cr.EOF {
		return ErrUnexpectedEnd(cr.L)
	}

	// OK, we are going to read the line into a buffer, trying to look for patterns as we go.
	ln := []rune{}
	key := ""

	// 0: Starting.
	// 1: Found a colon first, read tags.
	// 2: Read at least one character, possible k/v
	// 3: Found a colon+space after state 2, finish reading k/v
	// 4: Not consistent with other states, just read as comment.
	state := 0
	for !cr.Match("\n") {
		if cr.EOF {
			return ErrUnexpectedEnd(cr.L)
		}

		switch {
		case state == 0 && cr.C == ':':
			// The first character is a colon, read tags.
			state = 1
		case state == 0:
			ln = append(ln, cr.C)
			state = 2
		case state == 1 && cr.C == ':':
			tag := strings.TrimSpace(string(ln))
			if tag != "" {
				current.Tags[tag] = true
				ln = ln[:0]
			}
		case state == 1:
			ln = append(ln, cr.C)
		case state == 2 && cr.C == ':' && cr.NMatch(" \t"):
			// Dump ln and save aside as the key.
			key = string(ln)
			ln = ln[:0]
			cr.Next()
			cr.Eat(" \t")
			state = 3
			continue
		case state == 2 && cr.Match(" \t:"):
			// Key cannot have white space or a colon that isn't followed by a space.
			ln = append(ln, cr.C)
			state = 4
		default:
			// Still reading a possible key, a value, or a plain comment.
			ln = append(ln, cr.C)
		}
		cr.Next()
	}
	cr.Next()

	switch state {
	case 1:
		for _, c := range ln {
			if c != ' ' && c != '\t' {
				// Error. Character on a tag line that is not part of tags.
				return ErrMalformedTagLine(cr.L)
			}
		}
	case 3:
		current.KVPairs[key] = strings.TrimSpace(string(ln))
	case 2, 4:
		current.Comments = append(current.Comments, strings.TrimSpace(string(ln)))
	}
	return nil
}

func parsePosting(cr *lex.CharReader) (ledger.Posting, error) {
	post := ledger.Posting{}
	fail := ledger.Posting{}

	// The optional cleared indicator, TBH I didn't even know this was a thing until I read the ledger docs.
	if cr.C == '*' {
		post.Status = ledger.StatusClear
		cr.Next()
	} else if cr.C == '!' {
		post.Status = ledger.StatusPending
		cr.Next()
	} else {
		post.Status = ledger.StatusUndefined
	}

	cr.Eat(" \t")
	if cr.EOF {
		return fail, ErrUnexpectedEnd(cr.L)
	}

	// OK, now for the actual hard part.
	// Parsing the account name.
	// The ledger docs don't seem to tell you the rules for account names, but they *can* include spaces.
	// I am going to allow spaces in account names, but only one in a row. Two or more spaces or a tab
	// ends the name.
	buf := []rune{}
	for {
		if cr.C == '\t' || cr.C == '\n' || (cr.C == ' ' && cr.NC == ' ') {
			break
		}

		buf = append(buf, cr.C)
		cr.Next()
		if cr.EOF {
			return fail, ErrUnexpectedEnd(cr.L)
		}
	}
	if len(buf) == 0 {
		return fail, ErrMalformed(cr.L)
	}
	post.Account = string(buf)

	cr.Eat(" \t")
	if cr.EOF {
		return fail, ErrUnexpectedEnd(cr.L)
	}

	v, ok, err := ParseAmount(cr)
	if err != nil {
		return fail, err
	}
	post.Value = v
	post.Null = !ok

	cr.Eat(" \t")
	if cr.EOF {
		return fail, ErrUnexpectedEnd(cr.L)
	}

	// Optional balance assertion
	if cr.C == '=' {
		cr.Next()
		cr.Eat(" \t")
		v, ok, err := ParseAmount(cr)
		if err != nil {
			return fail, err
		}
		if !ok {
			return fail, ErrBadAmount(cr.L)
		}
		post.Balance = v
		post.HasBalance = true

		cr.Eat(" \t")
		if cr.EOF {
			return fail, ErrUnexpectedEnd(cr.L)
		}
	}

	// Optional note
	if cr.C == ';' {
		cr.Next()
		line, err := ReadUntilTrimmed(cr, "\n")
		if err != nil {
			return fail, err
		}
		cr.Next()
		post.ID, post.Note = SplitNote(line)
		return post, nil
	}

	if cr.C != '\n' {
		return fail, ErrMalformed(cr.L)
	}
	cr.Next()

	return post, nil
}

// ParseAmount reads an amount, with or without a leading $. Returns false if there was no amount at all.
func ParseAmount(cr *lex.CharReader) (decimal.Decimal, bool, error) {
	if cr.C == '$' {
		cr.Next()

		// Just in case...
		cr.Eat(" \t")
		if cr.EOF {
			return decimal.Zero, false, ErrUnexpectedEnd(cr.L)
		}
	}

	num := []rune{}
	if cr.C == '-' {
		cr.Next()
		num = append(num, '-')
	}

	start := cr.L
	digits := false
	point := false
	for cr.MatchNumeric() || cr.C == '.' || cr.C == ',' {
		switch {
		case cr.C == '.':
			if point || !digits {
				return decimal.Zero, false, ErrBadAmount(cr.L)
			}
			point = true
			num = append(num, '.')
		case cr.C == ',':
			// Thousands separator
		default:
			digits = true
			num = append(num, cr.C)
		}

		cr.Next()
		if cr.EOF {
			return decimal.Zero, false, ErrUnexpectedEnd(cr.L)
		}
	}
	if !digits {
		if len(num) != 0 {
			return decimal.Zero, false, ErrBadAmount(start)
		}
		return decimal.Zero, false, nil
	}

	v, err := decimal.NewFromString(string(num))
	if err != nil {
		return decimal.Zero, false, ErrBadAmount(start)
	}
	return v, true, nil
}

// SplitNote pulls an "id:" tag out of a posting note. The rest of the note is returned with
// the tag removed.
func SplitNote(note string) (id, rest string) {
	fields := strings.Fields(note)
	for i, f := range fields {
		if strings.HasPrefix(f, "id:") && len(f) > 3 {
			id = f[3:]
			fields = append(fields[:i], fields[i+1:]...)
			return id, strings.Join(fields, " ")
		}
	}
	return "", note
}

// ReadUntilTrimmed reads characters from the CharReader until one of the characters in `chars` is found.
// The result then has all the whitespace trimmed from the ends.
func ReadUntilTrimmed(cr *lex.CharReader, chars string) (string, error) {
	ln := []rune{}
	ln = cr.ReadUntil(chars, ln)
	if cr.EOF {
		return "", ErrUnexpectedEnd(cr.L)
	}
	return strings.TrimSpace(string(ln)), nil
}

// ParseDate reads a date (in yyyy/mm/dd format) from the CharReader.
func ParseDate(cr *lex.CharReader) (time.Time, error) {
	date := []rune{}
	ok := false
	var t time.Time

	ok, date = cr.ReadMatchLimit("0123456789", date, 4)
	if !ok {
		return t, ErrBadDate(cr.L)
	}
	if cr.EOF {
		return t, ErrUnexpectedEnd(cr.L)
	}

	if !cr.Match("/-.") {
		return t, ErrBadDate(cr.L)
	}
	date = append(date, '/')
	cr.Next()

	ok, date = cr.ReadMatchLimit("0123456789", date, 2)
	if !ok {
		return t, ErrBadDate(cr.L)
	}
	if cr.EOF {
		return t, ErrUnexpectedEnd(cr.L)
	}

	if !cr.Match("/-.") {
		return t, ErrBadDate(cr.L)
	}
	date = append(date, '/')
	cr.Next()

	ok, date = cr.ReadMatchLimit("0123456789", date, 2)
	if !ok {
		return t, ErrBadDate(cr.L)
	}
	if cr.EOF {
		return t, ErrUnexpectedEnd(cr.L)
	}

	return time.Parse("2006/01/02", string(date))
}
