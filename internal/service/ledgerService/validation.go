package ledgerService

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/whizrock/ledger/internal/model"
	"github.com/whizrock/ledger/internal/service"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if label := field.Tag.Get("label"); label != "" {
			return label
		}
		return field.Name
	})
	return v
}

// validateInput reports every invalid field of input in one ErrValidation.
func (s *LedgerService) validateInput(input model.TransactionInput) error {
	var problems []string

	if err := s.validate.Struct(input); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return fmt.Errorf("%w: %s", service.ErrValidation, err.Error())
		}
		for _, fe := range validationErrs {
			problems = append(problems, describe(fe))
		}
	}

	if input.TransactionDate.IsZero() {
		problems = append(problems, "Transaction Date is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", service.ErrValidation, strings.Join(problems, "; "))
	}

	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	case "gte":
		return fe.Field() + " must not be negative"
	case "oneof":
		return fe.Field() + " must be one of " + fe.Param()
	case "email":
		return fe.Field() + " must be an email"
	default:
		return fe.Field() + " is invalid"
	}
}

func validPrice(price float64) bool {
	return price >= 0 && !math.IsInf(price, 0)
}
