/*
Copyright 2022 by Samuel Loewen

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

package main

import (
	"fmt"
	"os"

	"github.com/samuellwn/ledgersync"
	"github.com/samuellwn/ledgersync/reconcile"
	"github.com/samuellwn/ledgersync/source"
	"github.com/samuellwn/ledgersync/tools"
)

var usage string = `Usage: fromcsv [-dest <file>] options... <src>

Converts a CSV statement to a ledger file. If a rules file is given the
transactions are categorized with it.

	-datefmt <date> (default 01/02/2006)
		Use an example date for Mon Jan 2, 2006 3:04:05 PM to specify the
		date format to parse from.
	-date <name> (default date)
		This argument specifies which field contains the date. The header
		will be used to find the field. If -noheader is specified, then
		the value must be the index of the field.
	-amount <name> (default amount)
		Which field contains the amount, same rules as -date.
	-balance <name>
		Which field contains the running balance, if any.
	-id <name>
		Which field contains a unique transaction ID, if any.
	-desc <name> (default desc)
		Which field contains the description. This argument may be
		provided multiple times to concatenate the values of several fields.
	-from <account> (default expenses:Unknown)
		The other side of every transaction, before rules are applied.
	-to <account> (default assets:Unknown:CSV)
		The account the statement is for.
`

func main() {
	fs := tools.CommonFlagSet(tools.FlagDestFile|tools.FlagRulesFile, usage)
	format := source.CSVFormat{}
	fs.Flags.BoolVar(&format.NoHeader, "noheader", false, "the csv doesn't contain any header")
	fs.Flags.StringVar(&format.DateFormat, "datefmt", "01/02/2006", "Jan 2, 2006 at 3:04:05 PM in expected date format")
	fs.Flags.StringVar(&format.Date, "date", "date", "name of date field")
	fs.Flags.StringVar(&format.Amount, "amount", "amount", "name of amount field")
	fs.Flags.StringVar(&format.Balance, "balance", "", "name of balance field")
	fs.Flags.StringVar(&format.ID, "id", "", "name of id field")
	fs.Flags.StringVar(&format.Counter, "from", source.DefaultCounter, "the other side of every transaction")
	fs.Flags.StringVar(&format.Account, "to", "assets:Unknown:CSV", "the account the statement is for")
	fs.Flags.Func("desc", "name of description field", func(arg string) error {
		format.Desc = append(format.Desc, arg)
		return nil
	})
	fs.Parse()

	input := fs.Flags.Arg(0)
	var stream ledger.Stream
	if input == "" || input == "-" {
		stream = source.NewCSV("stdin", os.Stdin, format)
	} else {
		stream = source.OpenCSVFile(input, format)
	}

	var rules reconcile.Transformer = reconcile.TransformFunc(func(tr ledger.Transaction) (ledger.Transaction, error) {
		return tr, nil
	})
	if fs.RulesFile != "" {
		rules = tools.HandleErrV(tools.LoadRules(fs.RulesFile))
	}

	res := tools.HandleErrV(reconcile.Run(reconcile.Config{
		Streams: []ledger.Stream{stream},
		Rules:   rules,
	}))

	out, err := tools.OpenOutput(fs.DestFile, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open output file: %v\n", err)
		os.Exit(tools.ExitFailure)
	}
	if _, err := ledger.WriteTransactions(out, res.Transactions); err != nil {
		out.Abort()
		fmt.Fprintf(os.Stderr, "failed to convert %s: %v\n", stream.Name(), err)
		os.Exit(tools.ExitCode(err))
	}
	tools.HandleErr(out.Commit())
}
