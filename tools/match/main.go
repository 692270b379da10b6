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
	"github.com/samuellwn/ledgersync"
	"github.com/samuellwn/ledgersync/tools"
)

var usage string = `Usage:

Replace accounts in postings using rules from a rules file. Only matched transactions will
be output, each with a new revision ID so they can be appended as edits.
`

func main() {
	fs := tools.CommonFlagSet(tools.FlagSourceFile|tools.FlagDestFile|tools.FlagRulesFile|tools.FlagAccountName, usage)
	fs.Parse()

	src := tools.LoadLedgerFile(fs.SourceFile)

	rules := tools.HandleErrV(tools.LoadRules(fs.RulesFile))

	dst := &ledger.File{D: nil, T: src.Matched(fs.AccountName, rules)}

	tools.WriteLedgerFile(fs.DestFile, dst)
}
