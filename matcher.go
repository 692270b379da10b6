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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/samuellwn/ledgersync/parse/lex"
)

// Matcher assigns an account (and optionally a payee) to transactions with a description matching R.
type Matcher struct {
	R       *regexp.Regexp
	Account string
	Payee   string // Replaces the description if not empty.
}

// ErrNoPostings is returned by Rules.Transform for a transaction without any postings.
var ErrNoPostings = errors.New("Transaction has no postings.")

// Match applies the first matcher with a regexp matching the description. Every posting that is not
// for the given account is moved to the matcher's account. Returns false if no matcher applied or the
// transaction has no posting for the account.
func (t *Transaction) Match(account string, matchers []Matcher) bool {
	found := false
	for _, p := range t.Postings {
		if p.Account == account {
			found = true
			break
		}
	}
	if !found {
		return false
	}

	for _, m := range matchers {
		if !m.R.MatchString(t.Description) {
			continue
		}

		for i := range t.Postings {
			if t.Postings[i].Account != account {
				t.Postings[i].Account = m.Account
			}
		}
		if m.Payee != "" {
			t.Description = m.Payee
		}
		return true
	}
	return false
}

// Rules is a rule set applied to imported transactions.
type Rules struct {
	Matchers []Matcher
}

// Transform returns a copy of tr with the rules applied against its anchor posting account. tr itself is
// never modified, so Transform is safe to call any number of times on the same input.
func (r *Rules) Transform(tr Transaction) (Transaction, error) {
	if len(tr.Postings) == 0 {
		return Transaction{}, ErrNoPostings
	}

	nt := tr.CleanCopy()
	nt.Match(nt.Anchor().Account, r.Matchers)
	return *nt, nil
}

// ReadMatchers reads a csv match file with "regexp,account,payee" records. Lines starting with # are comments.
func ReadMatchers(r io.Reader) ([]Matcher, error) {
	mrdr := csv.NewReader(r)
	mrdr.FieldsPerRecord = 3
	mrdr.Comment = '#'

	matchers := []Matcher{}
	for {
		line, err := mrdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		reg, err := regexp.Compile(line[0])
		if err != nil {
			return nil, err
		}

		matchers = append(matchers, Matcher{
			R:       reg,
			Account: line[1],
			Payee:   line[2],
		})
	}
	return matchers, nil
}

// ErrMalformedAccountName is returned by File.Rules for an account name that could not be written back out
// as a posting.
type ErrMalformedAccountName struct {
	Name     string
	Location lex.Location
}

func (err ErrMalformedAccountName) Error() string {
	return fmt.Sprintf("Malformed account name (%s) at %s", err.Name, err.Location)
}

// ErrBadRule is returned by File.Rules for a payee or alias that is not a valid regexp.
type ErrBadRule struct {
	Expr     string
	Location lex.Location
	Err      error
}

func (err ErrBadRule) Error() string {
	return fmt.Sprintf("Bad rule %q in directive at %s: %v", err.Expr, err.Location, err.Err)
}

func (err ErrBadRule) Unwrap() error { return err.Err }

// Rules builds a rule set from the directives of a ledger file.
//
// Each "payee" line under an account directive is a regexp sending matching transactions to that account.
// A payee directive whose name matches one of those regexps adds its "alias" regexps as well, and those
// also replace the description with the payee name. Alias rules for an account come before its plain
// payee rules, so the more specific match wins.
func (f *File) Rules() (*Rules, error) {
	type payee struct {
		name    string
		aliases []string
		loc     lex.Location
	}
	payees := []payee{}
	for _, d := range f.D {
		if d.Type == "payee" {
			payees = append(payees, payee{d.Argument, d.Sub("alias"), d.Location})
		}
	}

	compile := func(expr string, loc lex.Location) (*regexp.Regexp, error) {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, ErrBadRule{Expr: expr, Location: loc, Err: err}
		}
		return re, nil
	}

	rules := &Rules{Matchers: []Matcher{}}
	for _, d := range f.D {
		if d.Type != "account" {
			continue
		}

		// Two spaces or a tab would end the account name when the posting is read back.
		if strings.Contains(d.Argument, "  ") || strings.ContainsAny(d.Argument, ";\t") {
			return nil, ErrMalformedAccountName{d.Argument, d.Location}
		}

		own := []Matcher{}
		for _, expr := range d.Sub("payee") {
			re, err := compile(expr, d.Location)
			if err != nil {
				return nil, err
			}
			own = append(own, Matcher{R: re, Account: d.Argument})
		}

		for _, p := range payees {
			for _, m := range own {
				if !m.R.MatchString(p.name) {
					continue
				}
				for _, alias := range p.aliases {
					re, err := compile(alias, p.loc)
					if err != nil {
						return nil, err
					}
					rules.Matchers = append(rules.Matchers, Matcher{R: re, Account: d.Argument, Payee: p.name})
				}
				break
			}
		}
		rules.Matchers = append(rules.Matchers, own...)
	}
	return rules, nil
}
