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

package main

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/samuellwn/ledgersync"
	"github.com/samuellwn/ledgersync/reconcile"
	"github.com/samuellwn/ledgersync/source"
	"github.com/samuellwn/ledgersync/store"
	"github.com/samuellwn/ledgersync/tools"
)

func main() {
	fs := tools.CommonFlagSet(tools.FlagDestFile|tools.FlagLedgerFile|tools.FlagRulesFile|tools.FlagConfigFile|tools.FlagVerbose, usage)
	days := 3
	fs.Flags.IntVar(&days, "days", days, "Number of `days` to download from OFX connected institutions.")
	open := false
	fs.Flags.BoolVar(&open, "open", open, "Add an opening balance transaction, calculated from the given statements or downloads.")
	sorted := false
	fs.Flags.BoolVar(&sorted, "sort", sorted, "Sort transactions by date. Default is statement order.")
	appendTo := false
	fs.Flags.BoolVar(&appendTo, "append", appendTo, "Append the new transactions to the -ledger file instead of writing them to -dest.")
	desc := ""
	fs.Flags.StringVar(&desc, "desc", desc, "Where to get the `description` from. \"name\", \"memo\", or \"name+memo\". Overrides the config file.")
	fs.Parse()

	log := tools.NewLogger(fs.Verbose)
	defer log.Sync()

	// Nothing is read before the rules are known to be there.
	rules := tools.HandleErrV(tools.LoadRules(fs.RulesFile))

	cfg := &source.Config{}
	if _, err := os.Stat(fs.ConfigFile); err == nil {
		cfg = tools.HandleErrV(source.LoadConfig(fs.ConfigFile))
	} else if fs.Flags.NArg() == 0 {
		tools.HandleErr(tools.UsageError{Err: err})
	}
	opts := cfg.Options()
	if desc != "" {
		opts.Desc = tools.HandleErrV(source.ParseDescSource(desc))
	}

	var ldg reconcile.Store
	if fs.LedgerFile != "" {
		if s := tools.HandleErrV(store.OpenIfExists(fs.LedgerFile)); s != nil {
			log.Debug("Loaded ledger", zap.String("path", fs.LedgerFile), zap.Int("transactions", s.Len()))
			ldg = s
		}
	}
	dest := tools.HandleErrV(tools.OutputPath(fs.DestFile, fs.LedgerFile, appendTo))

	var streams []ledger.Stream
	if fs.Flags.NArg() == 0 {
		for _, inst := range cfg.Institutions {
			log.Debug("Downloading statements", zap.String("institution", inst.Name), zap.Int("days", days))
			streams = append(streams, tools.HandleErrV(source.Download(inst, days, opts))...)
		}
	} else {
		for _, path := range fs.Flags.Args() {
			switch strings.ToLower(filepath.Ext(path)) {
			case ".csv":
				streams = append(streams, source.OpenCSVFile(path, cfg.CSV))
			default:
				streams = append(streams, tools.HandleErrV(source.OpenOFXFile(path, opts))...)
			}
		}
	}

	res, err := reconcile.Run(reconcile.Config{
		Streams: streams,
		Rules:   rules,
		Store:   ldg,
		Opening: open,
		Sort:    sorted,
		Log:     log,
	})
	tools.HandleErr(err)

	out := tools.HandleErrV(tools.OpenOutput(dest, appendTo))
	if res.Opening != nil {
		res.Opening.Stamp()
		if err := ledger.WriteTransaction(out, res.Opening); err != nil {
			out.Abort()
			tools.HandleErr(err)
		}
	}
	n, err := ledger.WriteTransactions(out, res.Transactions)
	if err != nil {
		out.Abort()
		tools.HandleErr(err)
	}
	tools.HandleErr(out.Commit())
	log.Info("Done", zap.Int("transactions", n), zap.Bool("opening", res.Opening != nil))
}

var usage = `Usage:

  sync [options] [statement files...]

This program reads bank statements, categorizes every transaction with a rule
set, and writes out the ones that are not already in the ledger file.

Statements are read from the given OFX/QFX or CSV files. If no files are given
they are downloaded from every OFX institution in the config file.

Every imported transaction gets an "id:" tag on its first posting. Running the
same statements against a ledger that already has them produces nothing new.

With -open an "Opening Balance" transaction is written first, giving each
account the balance it had right before the first transaction seen for it.
This is refused if the ledger already has one.

Exit status is 1 for read or write failures, 2 for bad arguments, 3 if the
ledger already has an opening balance, and 4 if no transactions were found
for an opening balance. Nothing is written when the run fails, except what
already went to standard output.
`
