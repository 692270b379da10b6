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
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/samuellwn/ledgersync"
	"github.com/samuellwn/ledgersync/parse"
)

// LoadLedgerFile loads a ledger file from the given path, "-" is standard input. On any error the message is
// logged to standard error and the program exits.
func LoadLedgerFile(path string) *ledger.File {
	f := os.Stdin
	if path != "-" {
		f = HandleErrV(os.Open(path))
		defer f.Close()
	}

	lf, err := parse.ParseLedger(parse.NewRawCharReader(bufio.NewReader(f), 1))
	HandleErr(errors.Wrapf(err, "loading %s", path))
	return lf
}

// WriteLedgerFile writes out a ledger file to the given path, "-" is standard output. On any error the message
// is logged to standard error and the program exits.
func WriteLedgerFile(path string, d *ledger.File) {
	out := HandleErrV(OpenOutput(path, false))
	if err := d.Format(out); err != nil {
		out.Abort()
		HandleErr(err)
	}
	HandleErr(out.Commit())
}

// LoadRules loads a rule set. Files ending in .csv are match files (see ledger.ReadMatchers), anything else
// is parsed as a ledger file and the matchers are built from its account and payee directives.
func LoadRules(path string) (*ledger.Rules, error) {
	if path == "" {
		return nil, UsageError{errors.New("the following arguments are required: -rules")}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, UsageError{err}
	}
	defer f.Close()

	rules := &ledger.Rules{}
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		rules.Matchers, err = ledger.ReadMatchers(f)
	} else {
		var lf *ledger.File
		lf, err = parse.ParseLedger(parse.NewRawCharReader(bufio.NewReader(f), 1))
		if err == nil {
			rules, err = lf.Rules()
		}
	}
	if err != nil {
		return nil, UsageError{errors.Wrapf(err, "loading rules %s", path)}
	}
	return rules, nil
}

// OutputPath picks where new transactions go: dest, or the ledger file itself when appending.
func OutputPath(dest, ledgerFile string, appendTo bool) (string, error) {
	if !appendTo {
		return dest, nil
	}
	if ledgerFile == "" || ledgerFile == "-" {
		return "", UsageError{errors.New("-append needs a -ledger file")}
	}
	return ledgerFile, nil
}

// Output is a destination that only receives data if the whole run succeeds. Everything is written to a
// temporary file first, and Commit moves it into place (or appends it to the destination).
type Output struct {
	tmp    *os.File
	dest   string
	append bool
	stdout bool
}

// OpenOutput prepares an Output for path. "-" writes straight to standard output, which can't be undone.
// If appendTo is set the result is appended to the file instead of replacing it.
func OpenOutput(path string, appendTo bool) (*Output, error) {
	if path == "-" {
		return &Output{stdout: true}, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, err
	}
	return &Output{tmp: tmp, dest: path, append: appendTo}, nil
}

func (o *Output) Write(p []byte) (int, error) {
	if o.stdout {
		return os.Stdout.Write(p)
	}
	return o.tmp.Write(p)
}

// Commit puts the written data in place.
func (o *Output) Commit() error {
	if o.stdout {
		return nil
	}
	defer os.Remove(o.tmp.Name())

	if !o.append {
		if err := o.tmp.Close(); err != nil {
			return err
		}
		return os.Rename(o.tmp.Name(), o.dest)
	}

	defer o.tmp.Close()
	if _, err := o.tmp.Seek(0, io.SeekStart); err != nil {
		return err
	}
	f, err := os.OpenFile(o.dest, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, o.tmp); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Abort throws away everything written.
func (o *Output) Abort() {
	if o.stdout {
		return
	}
	o.tmp.Close()
	os.Remove(o.tmp.Name())
}
