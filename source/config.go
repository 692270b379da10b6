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
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config describes where statements come from. It is normally read from a YAML file:
//
//	counter: expenses:Unknown
//	description: name
//	institutions:
//	  - name: Example Bank
//	    url: https://ofx.example.com/
//	    org: EXAMPLE
//	    fid: "1234"
//	    username: me
//	    password: ${EXAMPLE_BANK_PASSWORD}
//	    accounts:
//	      - id: "000123"
//	        bank_id: "011000015"
//	        type: checking
//	        ledger: assets:Example:Checking
//	csv:
//	  account: assets:Other:Checking
//	  date: Date
//	  amount: Amount
//	  balance: Balance
//	  desc: [Description]
type Config struct {
	Counter      string        `yaml:"counter"`
	Description  DescSource    `yaml:"description"`
	Institutions []Institution `yaml:"institutions"`
	CSV          CSVFormat     `yaml:"csv"`
}

// Institution is an OFX direct connect server and the accounts to download from it.
type Institution struct {
	Name       string    `yaml:"name"`
	URL        string    `yaml:"url"`
	Org        string    `yaml:"org"`
	FID        string    `yaml:"fid"`
	Username   string    `yaml:"username"`
	Password   string    `yaml:"password"` // ${VAR} is expanded from the environment.
	ClientUID  string    `yaml:"client_uid"`
	AppID      string    `yaml:"app_id"`      // Default QWIN
	AppVersion string    `yaml:"app_version"` // Default 2700
	OFXVersion string    `yaml:"ofx_version"` // Default 102
	Accounts   []Account `yaml:"accounts"`
}

// Account is a single account at an institution.
type Account struct {
	ID     string `yaml:"id"`
	BankID string `yaml:"bank_id"` // Routing number, not needed for credit cards.
	Type   string `yaml:"type"`    // checking, savings, moneymrkt, creditline, or creditcard
	Ledger string `yaml:"ledger"`  // Ledger account name.
}

func (i Institution) appID() string {
	if i.AppID == "" {
		return "QWIN"
	}
	return i.AppID
}

func (i Institution) appVersion() string {
	if i.AppVersion == "" {
		return "2700"
	}
	return i.AppVersion
}

func (i Institution) ofxVersion() string {
	if i.OFXVersion == "" {
		return "102"
	}
	return i.OFXVersion
}

func (i Institution) password() string {
	return os.ExpandEnv(i.Password)
}

// Validate checks the institution for missing or malformed fields.
func (i Institution) Validate() error {
	errs := []string{}
	errIf := func(cond bool, format string, args ...interface{}) {
		if cond {
			errs = append(errs, fmt.Sprintf(format, args...))
		}
	}

	errIf(i.URL == "", "url must not be empty")
	if u, err := url.Parse(i.URL); err != nil {
		errIf(true, "url is malformed: %v", err)
	} else {
		errIf(i.URL != "" && u.Scheme != "https" && u.Hostname() != "localhost", "url must use HTTPS")
	}
	errIf(i.Username == "", "username must not be empty")
	errIf(len(i.Accounts) == 0, "no accounts")
	for n, a := range i.Accounts {
		errIf(a.ID == "", "account %d: id must not be empty", n)
		typ := strings.ToUpper(a.Type)
		errIf(typ != "CREDITCARD" && a.BankID == "", "account %d: bank_id must not be empty", n)
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Errorf("Institution %q: %s", i.Name, strings.Join(errs, "; "))
}

// Options builds statement Options with every configured account mapped to its ledger account.
func (c *Config) Options() Options {
	opts := Options{
		Accounts: map[string]string{},
		Counter:  c.Counter,
		Desc:     c.Description,
	}
	for _, inst := range c.Institutions {
		for _, a := range inst.Accounts {
			if a.Ledger != "" {
				opts.Accounts[a.ID] = a.Ledger
			}
		}
	}
	return opts
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML config document and validates every institution in it.
func ParseConfig(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	for _, inst := range c.Institutions {
		if err := inst.Validate(); err != nil {
			return nil, err
		}
	}
	return c, nil
}
