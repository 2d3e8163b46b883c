package enums

// PaymentMethod is how the buyer said they would pay at checkout.
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodPayPal     PaymentMethod = "paypal"
	// PaymentMethodGateway is set once a hosted checkout session exists.
	PaymentMethodGateway PaymentMethod = "gateway"
)

var paymentMethods = []PaymentMethod{
	PaymentMethodCreditCard,
	PaymentMethodPayPal,
	PaymentMethodGateway,
}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return oneOf(p, paymentMethods) }

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	return parse("payment method", raw, paymentMethods)
}
