package models

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(useJSONTagNames)
}

// Validate checks a request body against its struct tags before it is sent,
// so obviously malformed input never reaches the wire.
func Validate(v any) error {
	return validate.Struct(v)
}

// useJSONTagNames reports field errors on the wire name instead of the Go
// struct name.
func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}
