package domain

// PaymentMethod identifies a checkout method.
type PaymentMethod string

const (
	PaymentAlipay    PaymentMethod = "alipay"
	PaymentPayPal    PaymentMethod = "paypal"
	PaymentCard      PaymentMethod = "card"
	PaymentApplePay  PaymentMethod = "applepay"
	PaymentGooglePay PaymentMethod = "googlepay"
)

// PaymentStatus is the terminal outcome of a confirmed payment.
type PaymentStatus string

const (
	PaymentPaid   PaymentStatus = "paid"
	PaymentFailed PaymentStatus = "failed"
)

// PaymentOrder is the subset of an order the checkout flow needs.
type PaymentOrder struct {
	ID       string
	Amount   float64
	Currency string
}
