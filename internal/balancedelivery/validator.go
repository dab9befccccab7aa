package balancedelivery

import (
	"github.com/go-playground/validator/v10"

	"github.com/go-petr/pet-casino/internal/domain"
)

// ValidEntryType validates whether the ledger entry type is supported.
var ValidEntryType validator.Func = func(fl validator.FieldLevel) bool {
	if t, ok := fl.Field().Interface().(string); ok {
		return domain.EntryType(t).Valid()
	}
	return false
}
