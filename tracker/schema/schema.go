// Package schema validates values crossing a trust boundary: procedure inputs arriving from a client and records
// about to be written to workspace state.  Rules are expressed as go-playground/validator struct tags, and field names
// in failures use the JSON name of the field.
//
// In addition to the stock validator tags, this package registers:
//
//	rfc3339  the string is an RFC 3339 timestamp, like "2024-05-01T09:30:00Z"
//	isodate  the string is a calendar date, like "2024-05-01"
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid is wrapped by every *Error.
var ErrInvalid = errors.New(`validation failed`)

// Error describes every rule a value failed.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	if len(e.Problems) == 0 {
		return ErrInvalid.Error()
	}
	return ErrInvalid.Error() + `: ` + strings.Join(e.Problems, `; `)
}

func (e *Error) Unwrap() error { return ErrInvalid }

// Invalid returns an *Error with the given problem.
func Invalid(format string, args ...any) *Error {
	return &Error{Problems: []string{fmt.Sprintf(format, args...)}}
}

// Check validates a struct (or pointer to struct) against its `validate` tags.
func Check(v any) error {
	return explain(validate.Struct(v))
}

// CheckVar validates a single value against a tag expression, like "required,uuid".
func CheckVar(v any, tag string) error {
	return explain(validate.Var(v, tag))
}

func explain(err error) error {
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return &Error{Problems: []string{err.Error()}}
	}
	problems := make([]string, 0, len(fields))
	for _, fe := range fields {
		problems = append(problems, describe(fe))
	}
	return &Error{Problems: problems}
}

func describe(fe validator.FieldError) string {
	name := fieldName(fe)
	switch fe.Tag() {
	case `required`:
		return name + ` is required`
	case `min`:
		return fmt.Sprintf(`%s must have a length of at least %s`, name, fe.Param())
	case `max`:
		return fmt.Sprintf(`%s must have a length of at most %s`, name, fe.Param())
	case `oneof`:
		return fmt.Sprintf(`%s must be one of %s`, name, strings.Join(strings.Fields(fe.Param()), `, `))
	case `uuid`, `uuid4`:
		return name + ` must be a UUID`
	case `rfc3339`:
		return name + ` must be an RFC 3339 timestamp`
	case `isodate`:
		return name + ` must be a date like 2006-01-02`
	}
	if fe.Param() != `` {
		return fmt.Sprintf(`%s failed %s=%s`, name, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf(`%s failed %s`, name, fe.Tag())
}

// fieldName drops the root struct name from the namespace, so "Todo.title" becomes "title".  Bare values validated
// with CheckVar are called "input".
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	if ns == `` {
		return `input`
	}
	return ns
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get(`json`), `,`)
		if name == `-` {
			return ``
		}
		if name == `` {
			return field.Name
		}
		return name
	})
	must(v.RegisterValidation(`rfc3339`, layout(time.RFC3339)))
	must(v.RegisterValidation(`isodate`, layout(time.DateOnly)))
	return v
}

func layout(format string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return false
		}
		_, err := time.Parse(format, field.String())
		return err == nil
	}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
