// Package request decodes and validates JSON request bodies
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Shakha99/backend-repo/internal/apperr"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode reads a JSON body into dst and validates its `validate` tags.
// Failures are returned as BAD_REQUEST errors
func Decode(r *http.Request, dst any) error {
	return decode(r, dst, false)
}

// DecodeOptional is Decode for endpoints whose body may be omitted. An empty
// body, chunked or not, leaves dst at its zero value
func DecodeOptional(r *http.Request, dst any) error {
	return decode(r, dst, true)
}

func decode(r *http.Request, dst any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return Validate(dst)
			}
			return apperr.New(apperr.KindBadRequest, "request body is empty")
		}
		return apperr.Wrap(apperr.KindBadRequest, "invalid request body", err)
	}

	return Validate(dst)
}

// Validate checks the `validate` tags of a decoded request
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Wrap(apperr.KindBadRequest, "invalid request", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return apperr.New(apperr.KindBadRequest, strings.Join(msgs, "; "))
}
