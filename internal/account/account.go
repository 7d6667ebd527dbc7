// Package account owns the exchange credential sets the engine fetches
// on behalf of: loading them, validating them, and keeping one live
// exchange client per valid account.
package account

import (
	"tracker/internal/exchange"
	"tracker/internal/trade"
)

// Invalidity reason codes written back to the user record.
const (
	ReasonUnknownExchange = "unknown exchange"
	ReasonDuplicateAPIKey = "duplicate api key"
	ReasonAuthFailed      = "authentication failed"
)

// UserInfo is one row of the external credential sheet.
type UserInfo struct {
	EmailAddress  string `yaml:"email_address"`
	PayoutAddress string `yaml:"payout_address"`
	AccountName   string `yaml:"account_name"`
	DisplayName   string `yaml:"display_name"`
	ExchangeName  string `yaml:"exchange_name"`
	APIKey        string `yaml:"api_key"`
	Secret        string `yaml:"secret"`
	Passphrase    string `yaml:"passphrase"`
	// Type selects the market type, e.g. "spot" (default) or "linear".
	Type string `yaml:"type"`

	Valid  bool   `yaml:"-"`
	Reason string `yaml:"-"`
}

// Credentials maps the user record onto the exchange client options.
func (u *UserInfo) Credentials(testNet bool) exchange.Credentials {
	return exchange.Credentials{
		Exchange:    u.ExchangeName,
		APIKey:      u.APIKey,
		APISecret:   u.Secret,
		Passphrase:  u.Passphrase,
		AccountType: u.Type,
		TestNet:     testNet,
	}
}

// Account pairs a validated user record with its live exchange client.
type Account struct {
	User   UserInfo
	Client exchange.Client
}

// Identity returns the fields stamped onto every canonical trade of this
// account.
func (a *Account) Identity() trade.Identity {
	return trade.Identity{
		ExchangeName:  a.User.ExchangeName,
		DisplayName:   a.User.DisplayName,
		EmailAddress:  a.User.EmailAddress,
		PayoutAddress: a.User.PayoutAddress,
		APIKey:        a.User.APIKey,
	}
}
