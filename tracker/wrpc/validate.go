package wrpc

import (
	"bytes"
	"encoding/json"

	"github.com/swdunlop/tracker-go/tracker/schema"
)

// A Validator accepts raw, untrusted input and returns a typed value or an error wrapping ErrValidation.
type Validator[I any] func(raw json.RawMessage) (I, error)

// Void is the input and output type of procedures that take or return nothing.
type Void struct{}

// Decode returns a validator that only decodes JSON input.  Absent input decodes to the zero value.
func Decode[I any]() Validator[I] {
	return func(raw json.RawMessage) (I, error) {
		var in I
		if absent(raw) {
			return in, nil
		}
		err := json.Unmarshal(raw, &in)
		if err != nil {
			return in, schema.Invalid(`%v`, err)
		}
		return in, nil
	}
}

// Struct returns a validator that decodes a JSON object into I and checks its `validate` tags.  I must be a struct.
func Struct[I any]() Validator[I] {
	decode := Decode[I]()
	return func(raw json.RawMessage) (I, error) {
		in, err := decode(raw)
		if err != nil {
			return in, err
		}
		return in, schema.Check(&in)
	}
}

// Var returns a validator that decodes JSON input into I and checks it against a validator tag expression, like
// "required,uuid".  This is used for inputs that are not objects.
func Var[I any](tag string) Validator[I] {
	decode := Decode[I]()
	return func(raw json.RawMessage) (I, error) {
		in, err := decode(raw)
		if err != nil {
			return in, err
		}
		return in, schema.CheckVar(in, tag)
	}
}

// None returns a validator for procedures that take no input.  Absent input, null and an empty object are accepted.
func None() Validator[Void] {
	return func(raw json.RawMessage) (Void, error) {
		if absent(raw) || bytes.Equal(bytes.TrimSpace(raw), []byte(`{}`)) {
			return Void{}, nil
		}
		return Void{}, schema.Invalid(`input must be empty`)
	}
}

func absent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte(`null`))
}
