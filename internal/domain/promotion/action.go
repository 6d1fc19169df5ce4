package promotion

import "github.com/shopspring/decimal"

// ActionKind discriminates the Action variants.
type ActionKind string

const (
	// ActionPercentOff discounts the covered subtotal by a percentage,
	// optionally capped at MaxDiscount.
	ActionPercentOff ActionKind = "percent_off"
	// ActionAmountOff discounts the covered subtotal by a fixed amount.
	ActionAmountOff ActionKind = "amount_off"
	// ActionFreeItem makes one unit of the given product free.
	ActionFreeItem ActionKind = "free_item"
	// ActionFreeShipping waives the shipping fee. It contributes no monetary
	// discount; the flag is surfaced separately so the shipping calculator
	// cannot double-count it.
	ActionFreeShipping ActionKind = "free_shipping"
	// ActionBOGO discounts the cheapest "get" units of each complete
	// buy+get group.
	ActionBOGO ActionKind = "bogo"
)

// Action is a tagged variant: Kind selects which of the value fields is
// meaningful. Unknown kinds are rejected when the action is applied.
type Action struct {
	Kind        ActionKind      `json:"kind"`
	Percent     decimal.Decimal `json:"percent,omitempty"`
	MaxDiscount decimal.Decimal `json:"max_discount,omitempty"`
	Amount      decimal.Decimal `json:"amount,omitempty"`
	ProductID   string          `json:"product_id,omitempty"`
	BuyQuantity int             `json:"buy_quantity,omitempty"`
	GetQuantity int             `json:"get_quantity,omitempty"`
	GetDiscount decimal.Decimal `json:"get_discount,omitempty"`
}
