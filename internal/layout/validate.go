package layout

import (
	"errors"
	"fmt"
	"strings"

	"challan-backend/internal/apperr"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks that every field a panel cannot do without is present.
// It runs before any drawing so a partial document is never produced.
func Validate(d Data, logo []byte) error {
	const op = "layout.validate"

	bank := d.Bank
	bank.Account = normalizeAccount(bank.Account)

	var problems []string
	for _, target := range []interface{}{bank, d.School} {
		if err := validate.Struct(target); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return apperr.Wrap(apperr.LayoutData, op, err)
			}
			for _, fe := range verrs {
				problems = append(problems, describe(fe))
			}
		}
	}
	if len(logo) == 0 {
		problems = append(problems, "school logo is missing")
	}

	if len(problems) > 0 {
		return apperr.New(apperr.LayoutData, op, strings.Join(problems, "; "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	name := strings.ToLower(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "number", "numeric":
		return fmt.Sprintf("%s must contain digits only", name)
	}
	return fmt.Sprintf("%s failed %s", name, fe.Tag())
}
