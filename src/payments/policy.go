package payments

import "hbs/src/types"

// Policy decides per payment method whether a verified payment also confirms
// the booking. Methods left out only mark the booking paid.
type Policy struct {
	AutoConfirm map[types.PaymentMethod]bool
}

func NewPolicy(methods []string) Policy {
	p := Policy{AutoConfirm: map[types.PaymentMethod]bool{}}
	for _, m := range methods {
		method := types.PaymentMethod(m)
		if method.Valid() {
			p.AutoConfirm[method] = true
		}
	}
	return p
}

func (p Policy) ConfirmsOnPayment(method types.PaymentMethod) bool {
	return p.AutoConfirm[method]
}
