package ledger

import "github.com/shopspring/decimal"

// RequestAmount is an amount as sent by a client: a JSON number or a numeric
// string. Anything that does not parse decodes to zero so ValidateAmount
// reports it as ErrInvalidAmount at the point where amounts are checked,
// instead of the whole body being rejected as malformed.
type RequestAmount struct {
	decimal.Decimal
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *RequestAmount) UnmarshalJSON(raw []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		d = decimal.Zero
	}
	a.Decimal = d
	return nil
}
