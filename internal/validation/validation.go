// Package validation checks decoded records against their struct tags.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rickhohler/biographical/internal/core/domain"
)

// recordValidate is shared by every caller; validator caches struct metadata.
var recordValidate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// personid: the id doubles as a file name prefix.
	if err := v.RegisterValidation("personid", func(fl validator.FieldLevel) bool {
		return domain.ValidatePersonID(fl.Field().String()) == nil
	}); err != nil {
		panic(err)
	}
	return v
}

// Struct validates v and reports failures as domain.ErrMalformedRecord.
// The message lists each failing field with the tag it failed.
func Struct(v any) error {
	err := recordValidate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrMalformedRecord, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrMalformedRecord, strings.Join(fields, ", "))
}

// Records validates every element of records, naming the first failure by id.
func Records[T domain.Record[T]](records []T) error {
	for i, r := range records {
		if err := Struct(r); err != nil {
			return fmt.Errorf("record %d (%q): %w", i, r.RecordID(), err)
		}
	}
	return nil
}
