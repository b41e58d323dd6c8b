/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/suparena/mfgstore/errors"
)

var (
	baseValidate *validator.Validate
	baseOnce     sync.Once
)

// base returns the shared validator with all custom validations registered.
func base() *validator.Validate {
	baseOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// Report field names by json tag so validation errors line up with
		// the wire format.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})

		_ = v.RegisterValidation("sku_id", validateSkuID)
		_ = v.RegisterValidation("raw_material_id", validateRawMaterialID)
		_ = v.RegisterValidation("batch_number", validateBatchNumber)
		_ = v.RegisterValidation("measure_unit", validateMeasureUnit)

		baseValidate = v
	})
	return baseValidate
}

// Validator validates records of type T against their declared shape.
type Validator[T any] struct {
	entity string
	v      *validator.Validate
}

// New creates a Validator for type T. The entity name appears in error
// messages and metrics.
func New[T any](entity string) *Validator[T] {
	return &Validator[T]{
		entity: entity,
		v:      base(),
	}
}

// Entity returns the entity name the validator was created with.
func (s *Validator[T]) Entity() string {
	return s.entity
}

// Validate checks a single record. It returns nil for a valid record and an
// errors.ValidationError identifying the offending field otherwise.
func (s *Validator[T]) Validate(rec T) error {
	err := s.v.Struct(rec)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(fieldErrs) == 0 {
		return errors.NewValidationError("", err.Error())
	}

	first := fieldErrs[0]
	msg := messageForTag(first)
	if extra := len(fieldErrs) - 1; extra > 0 {
		msg = fmt.Sprintf("%s (and %d more violation(s))", msg, extra)
	}
	return errors.NewValidationError(first.Field(), msg)
}

// ValidateSlice checks a full response array. Any invalid record rejects the
// whole slice; the error names the failing position.
func (s *Validator[T]) ValidateSlice(recs []T) error {
	for i, rec := range recs {
		if err := s.Validate(rec); err != nil {
			return fmt.Errorf("%s record %d: %w", s.entity, i, err)
		}
	}
	return nil
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "sku_id":
		return "must match the SKU pattern (SKU followed by at least 4 digits)"
	case "raw_material_id":
		return "must match the raw material pattern (RM followed by at least 4 digits)"
	case "batch_number":
		return "must match the batch pattern (BATCH followed by at least 4 digits)"
	case "measure_unit":
		return fmt.Sprintf("must be one of %s", strings.Join(measureUnits, ", "))
	case "oneof":
		return fmt.Sprintf("must be one of %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("must have at least length/value %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed the %q constraint", fe.Tag())
	}
}
