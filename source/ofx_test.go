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

package source_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuellwn/ledgersync"
	"github.com/samuellwn/ledgersync/reconcile"
	"github.com/samuellwn/ledgersync/source"
)

func amount(s string) ofxgo.Amount {
	var a ofxgo.Amount
	if _, ok := a.SetString(s); !ok {
		panic("bad amount " + s)
	}
	return a
}

func posted(s string) ofxgo.Date {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return ofxgo.Date{Time: d}
}

func bankResponse() *ofxgo.Response {
	return &ofxgo.Response{
		Bank: []ofxgo.Message{
			&ofxgo.StatementResponse{
				BankAcctFrom: ofxgo.BankAcct{AcctID: "000123"},
				BalAmt:       amount("110.00"),
				BankTranList: &ofxgo.TransactionList{
					Transactions: []ofxgo.Transaction{
						{TrnType: ofxgo.TrnTypeCredit, DtPosted: posted("2024-01-10"), TrnAmt: amount("10"), FiTID: "T2", Name: "DEPOSIT"},
						{TrnType: ofxgo.TrnTypeCredit, DtPosted: posted("2024-01-05"), TrnAmt: amount("10"), FiTID: "T1", Name: "DEPOSIT", Memo: "ATM"},
						{TrnType: ofxgo.TrnTypeDebit, DtPosted: posted("2024-01-10"), TrnAmt: amount("-2.50"), FiTID: "T3", Name: "FEE "},
					},
				},
			},
		},
		CreditCard: []ofxgo.Message{
			&ofxgo.CCStatementResponse{
				CCAcctFrom: ofxgo.CCAcct{AcctID: "9999"},
				BalAmt:     amount("-20"),
				BankTranList: &ofxgo.TransactionList{
					Transactions: []ofxgo.Transaction{
						{TrnType: ofxgo.TrnTypeDebit, DtPosted: posted("2024-01-07"), TrnAmt: amount("-20"), FiTID: "C1", Name: "STORE"},
					},
				},
			},
			&ofxgo.CCStatementResponse{CCAcctFrom: ofxgo.CCAcct{AcctID: "8888"}},
		},
	}
}

func TestStatements(t *testing.T) {
	stmts, err := source.Statements(bankResponse(), source.Options{
		Accounts: map[string]string{"000123": "assets:Bank:Checking"},
	})
	require.NoError(t, err)
	require.Len(t, stmts, 3)

	bank := stmts[0]
	assert.Equal(t, "000123", bank.AcctID)
	assert.Equal(t, "assets:Bank:Checking", bank.Account)
	require.Len(t, bank.Transactions, 3)

	// Sorted by posted date, same day kept in statement order, balances counted back from the end.
	want := []struct {
		id, value, balance string
	}{
		{"000123-T1", "10", "102.5"},
		{"000123-T2", "10", "112.5"},
		{"000123-T3", "-2.5", "110"},
	}
	for i, w := range want {
		a := bank.Transactions[i].Anchor()
		assert.Equal(t, w.id, a.ID)
		assert.Equal(t, "assets:Bank:Checking", a.Account)
		assert.True(t, a.Value.Equal(decimal.RequireFromString(w.value)), "value %d: %v", i, a.Value)
		assert.True(t, a.HasBalance)
		assert.True(t, a.Balance.Equal(decimal.RequireFromString(w.balance)), "balance %d: %v", i, a.Balance)

		counter := bank.Transactions[i].Postings[1]
		assert.True(t, counter.Null)
		assert.Equal(t, source.DefaultCounter, counter.Account)
	}

	first := bank.Transactions[0]
	assert.Equal(t, "DEPOSIT", first.Description)
	assert.Equal(t, ledger.StatusClear, first.Status)
	assert.Equal(t, "T1", first.KVPairs["FITID"])
	assert.Equal(t, "CREDIT", first.KVPairs["TrnTyp"])
	assert.Equal(t, "ATM", first.KVPairs["Memo"])
	assert.NotEmpty(t, first.KVPairs["ID"])
	assert.NotEmpty(t, first.KVPairs["RID"])
	assert.Equal(t, "FEE", bank.Transactions[2].Description)

	ok, _ := first.Balance()
	assert.True(t, ok)

	card := stmts[1]
	assert.Equal(t, "liabilities:Unknown:9999", card.Account)
	require.Len(t, card.Transactions, 1)
	assert.Equal(t, "9999-C1", card.Transactions[0].Anchor().ID)
	assert.True(t, card.Transactions[0].Anchor().Balance.Equal(decimal.RequireFromString("-20")))

	assert.Empty(t, stmts[2].Transactions)
}

func TestStatementsDescSource(t *testing.T) {
	stmts, err := source.Statements(bankResponse(), source.Options{Desc: source.DescNameMemo, Counter: "expenses:Todo"})
	require.NoError(t, err)
	tr := stmts[0].Transactions[0]
	assert.Equal(t, "DEPOSITATM", tr.Description)
	assert.Equal(t, "expenses:Todo", tr.Postings[1].Account)
	assert.Equal(t, "assets:Unknown:000123", tr.Postings[0].Account)

	stmts, err = source.Statements(bankResponse(), source.Options{Desc: source.DescMemo})
	require.NoError(t, err)
	assert.Equal(t, "ATM", stmts[0].Transactions[0].Description)

	_, err = source.Statements(&ofxgo.Response{}, source.Options{})
	assert.Error(t, err)
}

func TestParseDescSource(t *testing.T) {
	for in, want := range map[string]source.DescSource{
		"":          source.DescName,
		"name":      source.DescName,
		"memo":      source.DescMemo,
		"name+memo": source.DescNameMemo,
	} {
		got, err := source.ParseDescSource(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := source.ParseDescSource("payee")
	assert.Error(t, err)
}

func TestStreamsPerAccount(t *testing.T) {
	stmts, err := source.Statements(bankResponse(), source.Options{})
	require.NoError(t, err)

	// A second statement for the checking account joins the first.
	extra := source.Statement{AcctID: "000123", Account: "assets:Unknown:000123", Transactions: stmts[1].Transactions}
	streams := source.Streams(append(stmts, extra))
	require.Len(t, streams, 3)
	assert.Equal(t, "assets:Unknown:000123", streams[0].Name())
	assert.Equal(t, "liabilities:Unknown:9999", streams[1].Name())
	assert.Equal(t, "liabilities:Unknown:8888", streams[2].Name())

	trs, err := ledger.ReadAll(streams[0])
	require.NoError(t, err)
	assert.Len(t, trs, 4)
	assert.Len(t, stmts[0].Transactions, 3, "statements are not modified")

	trs, err = ledger.ReadAll(streams[2])
	require.NoError(t, err)
	assert.Empty(t, trs)
}

const twoAccountOFX = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<?OFX OFXHEADER="200" VERSION="203" SECURITY="NONE" OLDFILEUID="NONE" NEWFILEUID="NONE"?>
<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS><CODE>0</CODE><SEVERITY>INFO</SEVERITY></STATUS>
<DTSERVER>20240115120000.000</DTSERVER>
<LANGUAGE>ENG</LANGUAGE>
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1</TRNUID>
<STATUS><CODE>0</CODE><SEVERITY>INFO</SEVERITY></STATUS>
<STMTRS>
<CURDEF>USD</CURDEF>
<BANKACCTFROM><BANKID>011000015</BANKID><ACCTID>111</ACCTID><ACCTTYPE>CHECKING</ACCTTYPE></BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000.000</DTSTART>
<DTEND>20240115120000.000</DTEND>
<STMTTRN><TRNTYPE>CREDIT</TRNTYPE><DTPOSTED>20240105120000.000</DTPOSTED><TRNAMT>10.00</TRNAMT><FITID>A1</FITID><NAME>DEPOSIT</NAME></STMTTRN>
</BANKTRANLIST>
<LEDGERBAL><BALAMT>100.00</BALAMT><DTASOF>20240115120000.000</DTASOF></LEDGERBAL>
</STMTRS>
</STMTTRNRS>
<STMTTRNRS>
<TRNUID>2</TRNUID>
<STATUS><CODE>0</CODE><SEVERITY>INFO</SEVERITY></STATUS>
<STMTRS>
<CURDEF>USD</CURDEF>
<BANKACCTFROM><BANKID>011000015</BANKID><ACCTID>222</ACCTID><ACCTTYPE>SAVINGS</ACCTTYPE></BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000.000</DTSTART>
<DTEND>20240115120000.000</DTEND>
<STMTTRN><TRNTYPE>CREDIT</TRNTYPE><DTPOSTED>20240103120000.000</DTPOSTED><TRNAMT>50.00</TRNAMT><FITID>B1</FITID><NAME>TRANSFER</NAME></STMTTRN>
</BANKTRANLIST>
<LEDGERBAL><BALAMT>50.00</BALAMT><DTASOF>20240115120000.000</DTASOF></LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>
`

func TestOpenOFXFileOpening(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.ofx")
	require.NoError(t, os.WriteFile(path, []byte(twoAccountOFX), 0o644))

	streams, err := source.OpenOFXFile(path, source.Options{
		Accounts: map[string]string{"111": "assets:A", "222": "assets:B"},
	})
	require.NoError(t, err)
	require.Len(t, streams, 2)
	assert.Equal(t, "assets:A", streams[0].Name())
	assert.Equal(t, "assets:B", streams[1].Name())

	res, err := reconcile.Run(reconcile.Config{
		Streams: streams,
		Rules:   &ledger.Rules{},
		Opening: true,
	})
	require.NoError(t, err)

	o := res.Opening
	assert.Equal(t, "2024/01/03", o.Date.Format("2006/01/02"))
	require.Len(t, o.Postings, 3)
	assert.Equal(t, "assets:A", o.Postings[0].Account)
	assert.True(t, o.Postings[0].Value.Equal(decimal.RequireFromString("90")), o.Postings[0].Value.String())
	assert.Equal(t, "assets:B", o.Postings[1].Account)
	assert.True(t, o.Postings[1].Value.IsZero(), o.Postings[1].Value.String())
	assert.Equal(t, reconcile.OpeningID, o.Postings[2].ID)

	trs, err := ledger.ReadAll(res.Transactions)
	require.NoError(t, err)
	require.Len(t, trs, 2)
	assert.Equal(t, "111-A1", trs[0].Anchor().ID)
	assert.Equal(t, "222-B1", trs[1].Anchor().ID)
}

func TestOpenOFXFileErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := source.OpenOFXFile(filepath.Join(dir, "missing.qfx"), source.Options{})
	assert.Error(t, err)

	path := filepath.Join(dir, "junk.qfx")
	require.NoError(t, os.WriteFile(path, []byte("not an ofx file"), 0o644))
	_, err = source.OpenOFXFile(path, source.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

type fakeClient struct {
	resp     *ofxgo.Response
	err      error
	requests []*ofxgo.Request
}

func (c *fakeClient) Request(req *ofxgo.Request) (*ofxgo.Response, error) {
	c.requests = append(c.requests, req)
	return c.resp, c.err
}

func testInstitution() source.Institution {
	return source.Institution{
		Name:     "Example Bank",
		URL:      "https://ofx.example.com/",
		Org:      "EXAMPLE",
		FID:      "1234",
		Username: "me",
		Password: "${EXAMPLE_BANK_PASSWORD}",
		Accounts: []source.Account{
			{ID: "000123", BankID: "011000015", Type: "checking", Ledger: "assets:Bank:Checking"},
			{ID: "9999", Type: "creditcard"},
		},
	}
}

func TestDownloadWith(t *testing.T) {
	t.Setenv("EXAMPLE_BANK_PASSWORD", "hunter2")

	client := &fakeClient{resp: bankResponse()}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	opts := source.Options{Accounts: map[string]string{}}

	streams := source.DownloadWith(client, testInstitution(), start, end, opts)
	require.Len(t, streams, 2)
	assert.Empty(t, client.requests, "nothing is requested before the first read")
	assert.Empty(t, opts.Accounts, "caller options are not modified")
	assert.Equal(t, "assets:Bank:Checking", streams[0].Name())
	assert.Equal(t, "Example Bank 9999", streams[1].Name())

	trs, err := ledger.ReadAll(streams[0])
	require.NoError(t, err)
	require.Len(t, client.requests, 1)

	req := client.requests[0]
	assert.Equal(t, "https://ofx.example.com/", req.URL)
	assert.Equal(t, ofxgo.String("hunter2"), req.Signon.UserPass)
	assert.Equal(t, ofxgo.String("me"), req.Signon.UserID)
	require.Len(t, req.Bank, 1)
	stmtReq, ok := req.Bank[0].(*ofxgo.StatementRequest)
	require.True(t, ok)
	assert.Equal(t, ofxgo.String("000123"), stmtReq.BankAcctFrom.AcctID)
	assert.Equal(t, ofxgo.AcctTypeChecking, stmtReq.BankAcctFrom.AcctType)
	assert.True(t, stmtReq.DtStart.Time.Equal(start))

	// The fake server answers with every statement, only the requested account is kept.
	require.Len(t, trs, 3)
	for _, tr := range trs {
		assert.Equal(t, "assets:Bank:Checking", tr.Anchor().Account)
	}

	trs, err = ledger.ReadAll(streams[1])
	require.NoError(t, err)
	require.Len(t, trs, 1)
	assert.Equal(t, "9999-C1", trs[0].Anchor().ID)
	require.Len(t, client.requests, 2)
	require.Len(t, client.requests[1].CreditCard, 1)
	ccReq, ok := client.requests[1].CreditCard[0].(*ofxgo.CCStatementRequest)
	require.True(t, ok)
	assert.Equal(t, ofxgo.String("9999"), ccReq.CCAcctFrom.AcctID)
}

func TestDownloadErrors(t *testing.T) {
	resp := bankResponse()
	resp.Signon.Status.Code = 15500
	streams := source.DownloadWith(&fakeClient{resp: resp}, testInstitution(), time.Now(), time.Now(), source.Options{})
	_, err := streams[0].Next()
	assert.Equal(t, source.ErrAuthFailed, err)

	boom := errors.New("timeout")
	streams = source.DownloadWith(&fakeClient{err: boom}, testInstitution(), time.Now(), time.Now(), source.Options{})
	_, err = streams[0].Next()
	assert.Equal(t, boom, err)

	streams = source.DownloadWith(&fakeClient{resp: &ofxgo.Response{Bank: []ofxgo.Message{}}}, testInstitution(), time.Now(), time.Now(), source.Options{})
	_, err = streams[0].Next()
	assert.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
}
