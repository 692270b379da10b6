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

package source

import (
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/pkg/errors"
	"github.com/samuellwn/ledgersync"
)

const ofxAuthFailed = 15500

// ErrAuthFailed is returned whenever a signon request fails with an authentication problem.
var ErrAuthFailed = errors.New("Username or password is incorrect.")

// Requester sends an OFX request and returns the parsed response. ofxgo.Client implements it.
type Requester interface {
	Request(*ofxgo.Request) (*ofxgo.Response, error)
}

// NewClient returns an OFX client for the institution.
func NewClient(inst Institution) (Requester, error) {
	ver, err := ofxgo.NewOfxVersion(inst.ofxVersion())
	if err != nil {
		return nil, err
	}
	return ofxgo.GetClient(inst.URL, &ofxgo.BasicClient{
		AppID:       inst.appID(),
		AppVer:      inst.appVersion(),
		SpecVersion: ver,
	}), nil
}

// Download returns one stream per account configured for the institution, each covering the last
// days days. Nothing is requested until a stream is first read, and each stream makes its own
// request, one account at a time.
func Download(inst Institution, days int, opts Options) ([]ledger.Stream, error) {
	client, err := NewClient(inst)
	if err != nil {
		return nil, errors.Wrapf(err, "institution %s", inst.Name)
	}

	end := time.Now()
	start := end.AddDate(0, 0, -days)
	return DownloadWith(client, inst, start, end, opts), nil
}

// DownloadWith is Download with an explicit client and time period.
func DownloadWith(client Requester, inst Institution, start, end time.Time, opts Options) []ledger.Stream {
	accounts := map[string]string{}
	for _, acct := range inst.Accounts {
		accounts[acct.ID] = acct.Ledger
	}
	for id, name := range opts.Accounts {
		accounts[id] = name
	}
	opts.Accounts = accounts

	streams := make([]ledger.Stream, 0, len(inst.Accounts))
	for _, acct := range inst.Accounts {
		acct := acct
		name := acct.Ledger
		if name == "" {
			name = inst.Name + " " + acct.ID
		}
		streams = append(streams, &accountStream{
			name: name,
			load: func() ([]ledger.Transaction, error) {
				return fetch(client, inst, acct, start, end, opts)
			},
		})
	}
	return streams
}

// fetch requests the statement for a single account. Anything else the server sends back is ignored.
func fetch(client Requester, inst Institution, acct Account, start, end time.Time, opts Options) ([]ledger.Transaction, error) {
	var query ofxgo.Request
	if err := statementRequest(&query, acct, start, end); err != nil {
		return nil, err
	}

	query.URL = inst.URL
	query.Signon = ofxgo.SignonRequest{
		ClientUID: ofxgo.UID(inst.ClientUID),
		Org:       ofxgo.String(inst.Org),
		Fid:       ofxgo.String(inst.FID),
		UserID:    ofxgo.String(inst.Username),
		UserPass:  ofxgo.String(inst.password()),
		Language:  "ENG",
	}

	resp, err := client.Request(&query)
	if err != nil {
		return nil, err
	}

	if resp.Signon.Status.Code != 0 {
		if resp.Signon.Status.Code == ofxAuthFailed {
			return nil, ErrAuthFailed
		}
		meaning, err := resp.Signon.Status.CodeMeaning()
		if err != nil {
			return nil, errors.Wrap(err, "Failed to parse OFX response code")
		}
		return nil, errors.Errorf("Nonzero signon status (%d: %s) with message: %s",
			resp.Signon.Status.Code, meaning, resp.Signon.Status.Message)
	}

	stmts, err := Statements(resp, opts)
	if err != nil {
		return nil, err
	}

	trs := []ledger.Transaction{}
	for _, stmt := range stmts {
		if stmt.AcctID == acct.ID {
			trs = append(trs, stmt.Transactions...)
		}
	}
	return trs, nil
}

func statementRequest(req *ofxgo.Request, acct Account, start, end time.Time) error {
	uid, err := ofxgo.RandomUID()
	if err != nil {
		return err
	}

	typ := strings.ToUpper(acct.Type)
	if typ == "CREDITCARD" {
		req.CreditCard = append(req.CreditCard, &ofxgo.CCStatementRequest{
			TrnUID:     *uid,
			CCAcctFrom: ofxgo.CCAcct{AcctID: ofxgo.String(acct.ID)},
			DtStart:    &ofxgo.Date{Time: start},
			DtEnd:      &ofxgo.Date{Time: end},
			Include:    true, // Include transactions (instead of only balance information)
		})
		return nil
	}

	acctType, err := ofxgo.NewAcctType(typ)
	if err != nil {
		return err
	}
	req.Bank = append(req.Bank, &ofxgo.StatementRequest{
		TrnUID: *uid,
		BankAcctFrom: ofxgo.BankAcct{
			BankID:   ofxgo.String(acct.BankID),
			AcctID:   ofxgo.String(acct.ID),
			AcctType: acctType,
		},
		DtStart: &ofxgo.Date{Time: start},
		DtEnd:   &ofxgo.Date{Time: end},
		Include: true,
	})
	return nil
}
