package checkout

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateAddress(prefix string, a Address) []FieldError {
	err := validate.Struct(a)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: prefix, Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: prefix + "." + fe.Field(), Message: "is required"})
	}
	return out
}

func validateEmail(email string) []FieldError {
	if email == "" {
		return []FieldError{{Field: "email", Message: "is required"}}
	}
	if err := validate.Var(email, "email"); err != nil {
		return []FieldError{{Field: "email", Message: "is not a valid email address"}}
	}
	return nil
}

func validatePaymentMethod(m PaymentMethod) []FieldError {
	switch {
	case m == "":
		return []FieldError{{Field: "paymentMethod", Message: "is required"}}
	case !m.Valid():
		return []FieldError{{Field: "paymentMethod", Message: "must be card or paypal"}}
	}
	return nil
}
