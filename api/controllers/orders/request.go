package orders

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderflow/api/validators"
	checkoutsvc "github.com/angelmondragon/orderflow/internal/checkout"
)

const (
	maxShippingAddressLen = 500
	maxPaymentMethodLen   = 32
)

type createOrderRequest struct {
	ShippingAddress string          `json:"shippingAddress" validate:"required,max=500"`
	PaymentMethod   string          `json:"paymentMethod" validate:"required"`
	Total           decimal.Decimal `json:"total"`
}

func (r createOrderRequest) toInput() checkoutsvc.Input {
	return checkoutsvc.Input{
		ShippingAddress: validators.SanitizeString(r.ShippingAddress, maxShippingAddressLen),
		PaymentMethod:   validators.SanitizeString(r.PaymentMethod, maxPaymentMethodLen),
		Total:           r.Total,
	}
}
