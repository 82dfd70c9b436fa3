package funding

import (
	"github.com/shopspring/decimal"

	"github.com/coinvault/coinvault/internal/ledger"
)

// AdjustRequest is the body of /api/admin/credit and /api/admin/deduct.
type AdjustRequest struct {
	UserID      string               `json:"userId"`
	AssetSymbol string               `json:"assetSymbol"`
	Amount      ledger.RequestAmount `json:"amount"`
}

// AdjustInput captures the data for one admin adjustment.
type AdjustInput struct {
	UserID string
	Asset  string
	Amount decimal.Decimal
}
