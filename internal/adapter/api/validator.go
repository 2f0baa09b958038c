package api

import (
	"github.com/go-playground/validator/v10"

	"splitchain/internal/domain/entity"
)

type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	v := validator.New()

	// "eth_addr" ships with the validator library but accepts mixed-case
	// EIP-55 only for checksummed input; our API normalizes to lowercase,
	// so register our own address rule instead.
	v.RegisterValidation("wallet_addr", func(fl validator.FieldLevel) bool {
		return entity.IsValidAddress(fl.Field().String())
	})

	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
