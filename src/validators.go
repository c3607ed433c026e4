package main

import (
	"hbs/src/types"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var paymentMethodValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case types.PaymentMethod:
		return v.Valid()
	case string:
		return types.PaymentMethod(v).Valid()
	}
	return false
}

var bookingStatusValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case types.BookingStatus:
		return v.Valid()
	case string:
		return types.BookingStatus(v).Valid()
	}
	return false
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("paymentmethod", paymentMethodValidatorFunc)
		v.RegisterValidation("bookingstatus", bookingStatusValidatorFunc)
	}
}
