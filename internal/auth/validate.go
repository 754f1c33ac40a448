// ABOUTME: Bridges ozzo-validation results into the error taxonomy
// ABOUTME: Field errors become a BadRequest carrying one message per json field name

package auth

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
)

// MsgInvalidInput is the message of every field validation failure.
const MsgInvalidInput = "Received data is not valid"

// Validate runs v.Validate and converts field errors into an Invalid *Error.
func Validate(v validation.Validatable) error {
	err := v.Validate()
	if err == nil {
		return nil
	}

	var errs validation.Errors
	if errors.As(err, &errs) {
		fields := make(map[string]string, len(errs))
		for name, fe := range errs {
			fields[name] = fe.Error()
		}
		return Invalid(MsgInvalidInput, fields)
	}
	return Internal(err)
}
