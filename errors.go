package shire

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	ErrNotFound     = errors.New("shire: not found")
	ErrValidation   = errors.New("shire: validation failed")
	ErrUnauthorized = errors.New("shire: unauthorized")
	ErrSlugConflict = errors.New("shire: slug conflict")
)

// ValidationError reports the first invalid field of a create or update request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ErrValidation.Error()
	}
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Message)
	}
	return fmt.Sprintf("%s: %s %s", ErrValidation.Error(), e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFoundError names the record that a lookup or update could not find.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	if e == nil || e.Key == "" {
		return ErrNotFound.Error()
	}
	return fmt.Sprintf("%s: %s=%s", ErrNotFound.Error(), e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AsValidationError extracts a *ValidationError from err, if there is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// validationError converts ozzo-validation output into a *ValidationError
// for the alphabetically first failing field.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var ie validation.InternalError
	if errors.As(err, &ie) {
		return ie
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		if len(errs) == 0 {
			return nil
		}
		fields := make([]string, 0, len(errs))
		for field, fe := range errs {
			if fe != nil {
				fields = append(fields, field)
			}
		}
		if len(fields) == 0 {
			return nil
		}
		sort.Strings(fields)
		return &ValidationError{Field: fields[0], Message: errs[fields[0]].Error()}
	}
	return &ValidationError{Message: err.Error()}
}

// notBlank rejects strings that are empty after trimming whitespace.
// Nil pointers pass so the rule can be combined with partial updates.
var notBlank = validation.By(func(value any) error {
	v, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}
	s, _ := v.(string)
	if strings.TrimSpace(s) == "" {
		return validation.NewError("validation_not_blank", "cannot be blank")
	}
	return nil
})

// imageRef accepts an empty value, a rooted path or an absolute http(s) URL.
var imageRef = validation.By(func(value any) error {
	v, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}
	s, _ := v.(string)
	s = strings.TrimSpace(s)
	if s == "" || IsImageRef(s) {
		return nil
	}
	return validation.NewError("validation_image_ref", "must be an http(s) URL or a path starting with /")
})
