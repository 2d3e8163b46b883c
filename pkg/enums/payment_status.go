package enums

// PaymentStatus mirrors what the payment gateway reports for an order.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

var paymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool { return oneOf(p, paymentStatuses) }

// IsTerminalSuccess is true for PAID, which no later event may undo.
func (p PaymentStatus) IsTerminalSuccess() bool {
	return p == PaymentStatusPaid
}

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	return parse("payment status", raw, paymentStatuses)
}
