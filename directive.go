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

package ledger

import (
	"strings"

	"github.com/samuellwn/ledgersync/parse/lex"
)

// Directive is a ledger command directive, split into lines but otherwise left as found.
type Directive struct {
	Type        string       // account, payee, include, ...
	Argument    string       // The rest of the first line.
	Lines       []string     // Indented lines that follow, trimmed.
	FoundBefore int          // Index of the transaction this directive came before.
	Location    lex.Location // Where the directive starts.
}

func (d *Directive) String() string {
	buf := new(strings.Builder)
	buf.WriteString(d.Type)
	buf.WriteString(" ")
	buf.WriteString(d.Argument)
	buf.WriteString("\n")
	for _, line := range d.Lines {
		buf.WriteString("\t")
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	return buf.String()
}

// Sub returns the arguments of every subdirective with the given keyword, in order. For "payee ^FOO"
// with keyword "payee" that is "^FOO".
func (d *Directive) Sub(keyword string) []string {
	args := []string{}
	for _, line := range d.Lines {
		kw, arg := line, ""
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			kw, arg = line[:i], line[i+1:]
		}
		if kw == keyword {
			args = append(args, strings.TrimSpace(arg))
		}
	}
	return args
}
