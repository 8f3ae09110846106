// Package checkout holds the three-step checkout wizard and its cookie-backed state.
package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/resale_shop/internal/validation"
)

type Step int

const (
	StepCart Step = iota
	StepReview
	StepPayment
)

var stepNames = [...]string{"cart", "review", "payment"}

func (s Step) String() string {
	if s < StepCart || s > StepPayment {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

func (s Step) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Step) UnmarshalText(b []byte) error {
	for i, n := range stepNames {
		if n == string(b) {
			*s = Step(i)
			return nil
		}
	}
	return fmt.Errorf("unknown checkout step %q", b)
}

// Next and Prev move one step and stay inside the wizard.
func Next(s Step) Step {
	if s >= StepPayment {
		return StepPayment
	}
	return s + 1
}

func Prev(s Step) Step {
	if s <= StepCart {
		return StepCart
	}
	return s - 1
}

var ErrInvalidAddress = errors.New("invalid shipping address")

type Address struct {
	Name       string `json:"name"             validate:"required,max=128"`
	Line1      string `json:"line1"            validate:"required,max=256"`
	Line2      string `json:"line2,omitempty"  validate:"max=256"`
	City       string `json:"city"             validate:"required,max=128"`
	State      string `json:"state"            validate:"max=128"`
	PostalCode string `json:"postal_code"      validate:"required,max=16"`
	Country    string `json:"country"          validate:"required,len=2"`
	Phone      string `json:"phone"            validate:"required,phone"`
}

func (a *Address) Normalize() {
	for _, f := range []*string{&a.Name, &a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode, &a.Country, &a.Phone} {
		*f = strings.TrimSpace(*f)
	}
}

func (a Address) Validate() error {
	if err := validation.Struct(a); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return nil
}

type State struct {
	Step            Step             `json:"step"`
	ShippingAddress *Address         `json:"shipping_address,omitempty"`
	GatewayOrderID  string           `json:"gateway_order_id,omitempty"`
	Total           *decimal.Decimal `json:"total,omitempty"`
}

// Resume returns the furthest step the stored fields allow. The cached total
// is not re-checked against the live cart.
func Resume(s State) Step {
	switch {
	case s.GatewayOrderID != "":
		return StepPayment
	case s.ShippingAddress != nil:
		return StepReview
	default:
		return StepCart
	}
}
