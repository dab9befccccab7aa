package admindelivery

import (
	"github.com/go-playground/validator/v10"

	"github.com/go-petr/pet-casino/internal/domain"
)

// ValidStatus validates whether the account status is supported.
var ValidStatus validator.Func = func(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return domain.AccountStatus(s).Valid()
	}
	return false
}
