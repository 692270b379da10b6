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
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	FlagDestFile    = 1 << iota // The output ledger file
	FlagLedgerFile              // The existing ledger file
	FlagSourceFile              // The source data file, both for merging and import
	FlagRulesFile               // Rules file (csv account match data, or a ledger file with account directives)
	FlagConfigFile              // Statement source config
	FlagAccountName             // Account name
	FlagVerbose                 // Debug logging
)

// FlagSet is used to store the results from the common flags. Not all of these values will be valid, even if
// their flag is in the set. Paths are not opened, "-" means standard input or output.
type FlagSet struct {
	DestFile    string
	LedgerFile  string
	SourceFile  string
	RulesFile   string
	ConfigFile  string
	AccountName string
	Verbose     bool

	Flags *flag.FlagSet
}

// CommonFlagSet returns a flagset filled out with your choice of several common flags. A .env file in the
// working directory is loaded first, so it can supply the environment variable defaults.
func CommonFlagSet(flags int, usage string) *FlagSet {
	// A missing .env is fine.
	_ = godotenv.Load()

	fs := &FlagSet{
		DestFile:   "-",
		SourceFile: "-",
		LedgerFile: os.Getenv("LEDGER_FILE"),
		RulesFile:  os.Getenv("LEDGER_RULES_FILE"),
		ConfigFile: os.Getenv("LEDGER_SYNC_CONFIG"),
		Flags:      flag.NewFlagSet(os.Args[0], flag.ExitOnError),
	}
	if fs.ConfigFile == "" {
		fs.ConfigFile = "~/.ledgersync.yaml"
	}

	if flags&FlagDestFile != 0 {
		fs.Flags.StringVar(&fs.DestFile, "dest", fs.DestFile, "The output file `path`.")
	}

	if flags&FlagLedgerFile != 0 {
		fs.Flags.StringVar(&fs.LedgerFile, "ledger", fs.LedgerFile, "The existing ledger file `path`. Defaults to $LEDGER_FILE.")
	}

	if flags&FlagSourceFile != 0 {
		fs.Flags.StringVar(&fs.SourceFile, "source", fs.SourceFile, "The data source file `path`.")
	}

	if flags&FlagRulesFile != 0 {
		fs.Flags.StringVar(&fs.RulesFile, "rules", fs.RulesFile, "Path to the rules `file`, a csv match file or a ledger file with account directives. Defaults to $LEDGER_RULES_FILE.")
	}

	if flags&FlagConfigFile != 0 {
		fs.Flags.StringVar(&fs.ConfigFile, "config", fs.ConfigFile, "Path to the statement source config `file`. Defaults to $LEDGER_SYNC_CONFIG.")
	}

	if flags&FlagAccountName != 0 {
		fs.Flags.StringVar(&fs.AccountName, "account", "Example:Account", "The `account` name.")
	}

	if flags&FlagVerbose != 0 {
		fs.Flags.BoolVar(&fs.Verbose, "v", false, "Log what is going on to standard error.")
	}

	fs.Flags.Usage = func() {
		fmt.Fprintln(os.Stderr, usage)
		fs.Flags.PrintDefaults()
	}

	return fs
}

// Parse parses the command line and expands a leading ~ in every path.
func (fs *FlagSet) Parse() {
	fs.Flags.Parse(os.Args[1:])

	for _, p := range []*string{&fs.DestFile, &fs.LedgerFile, &fs.SourceFile, &fs.RulesFile, &fs.ConfigFile} {
		*p = ExpandHome(*p)
	}
}

// ExpandHome replaces a leading ~/ with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
