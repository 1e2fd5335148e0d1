package ups

import (
	"bytes"
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// jsonobject accepts a raw JSON object or null, matching a typeof "object" check.
	_ = v.RegisterValidation("jsonobject", func(fl validator.FieldLevel) bool {
		raw, ok := fl.Field().Interface().(json.RawMessage)
		if !ok {
			return false
		}
		raw = bytes.TrimSpace(raw)
		return bytes.HasPrefix(raw, []byte("{")) || bytes.Equal(raw, []byte("null"))
	})
	return v
}
