package payment

import (
	"github.com/razorpay/razorpay-go/utils"
	"github.com/shopspring/decimal"
)

// VerifySignature checks the checkout signature the gateway hands the client
// after a successful payment.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" || signature == "" || orderID == "" || paymentID == "" {
		return false
	}
	return utils.VerifyPaymentSignature(map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}, signature, secret)
}

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts an amount in major currency units to the smallest unit.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
