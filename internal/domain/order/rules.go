package order

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{9,19}$`)

// rules mirrors Details with validation tags. The "field" tag is reported as
// the field name in validation errors.
type rules struct {
	Payment string `field:"payment" validate:"required,oneof=card cash"`
	Address string `field:"address" validate:"required,min=3"`
	Email   string `field:"email"   validate:"required,email"`
	Phone   string `field:"phone"   validate:"required,phone"`
}

// Messages shown for each field, keyed by validation tag. The "required"
// message doubles as the fallback.
var messages = map[Field]map[string]string{
	FieldPayment: {
		"required": "Необходимо выбрать способ оплаты",
		"oneof":    "Неизвестный способ оплаты",
	},
	FieldAddress: {
		"required": "Необходимо указать адрес",
		"min":      "Адрес слишком короткий",
	},
	FieldEmail: {
		"required": "Необходимо указать email",
		"email":    "Некорректный email",
	},
	FieldPhone: {
		"required": "Необходимо указать телефон",
		"phone":    "Некорректный номер телефона",
	},
}

// RuleValidator is the default Validator, backed by go-playground/validator
// struct rules.
type RuleValidator struct {
	v *validator.Validate
}

var _ Validator = (*RuleValidator)(nil)

// NewRuleValidator creates a RuleValidator.
func NewRuleValidator() *RuleValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("field")
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return &RuleValidator{v: v}
}

// Validate checks every field and returns one message per failing field.
func (r *RuleValidator) Validate(d Details) FormErrors {
	out := FormErrors{}
	err := r.v.Struct(rules{
		Payment: string(d.Payment),
		Address: strings.TrimSpace(d.Address),
		Email:   strings.TrimSpace(d.Email),
		Phone:   strings.TrimSpace(d.Phone),
	})
	if err == nil {
		return out
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: the rules struct itself is unusable.
		for f := range messages {
			out[f] = messages[f]["required"]
		}
		return out
	}
	for _, fe := range verrs {
		f := Field(fe.Field())
		if _, seen := out[f]; seen {
			continue
		}
		msg, ok := messages[f][fe.Tag()]
		if !ok {
			msg = messages[f]["required"]
		}
		out[f] = msg
	}
	return out
}
