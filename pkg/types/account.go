package types

import "github.com/shopspring/decimal"

// CashBalance is one currency's balance, as returned by get_cash_balance().
type CashBalance struct {
	Currency  string
	Available decimal.Decimal
	Total     decimal.Decimal
}

// AccountHolding is one instrument's position, as returned by
// get_account_holdings(). Side is Sell for a short position and Buy
// otherwise; spot balances are not reported as holdings.
type AccountHolding struct {
	InstID        string
	Side          Side
	Quantity      decimal.Decimal
	AvgPrice      decimal.Decimal
	UnrealizedPnL decimal.Decimal
}
