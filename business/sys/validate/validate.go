// Package validate contains the support for validating models.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/blocksim/blocksim/foundation/blockchain/database"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/google/uuid"
)

// ErrInvalidID occurs when an ID is not in a valid form.
var ErrInvalidID = errors.New("ID is not in its proper form")

// validate holds the settings and caches for validating request struct values.
var validate *validator.Validate

// translator is a cache of locale and translation information.
var translator ut.Translator

func init() {

	// Instantiate a validator.
	validate = validator.New()

	// Create a translator for english so the error messages are
	// more human-readable than technical.
	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")

	// Register the english error messages for use.
	en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Account names must survive being written into an entry.
	registerName("sender", database.CheckSender, "{0} must be a single word without '|'")
	registerName("recipient", database.CheckRecipient, "{0} must be words separated by single spaces without '|'")
}

// registerName adds a validation tag backed by one of the account name checks.
func registerName(tag string, check func(string) error, msg string) {
	validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return check(fl.Field().String()) == nil
	})

	validate.RegisterTranslation(tag, translator,
		func(trans ut.Translator) error {
			return trans.Add(tag, msg, true)
		},
		func(trans ut.Translator, fe validator.FieldError) string {
			t, _ := trans.T(tag, fe.Field())
			return t
		},
	)
}

// Check validates the provided model against it's declared tags.
func Check(val any) error {
	if err := validate.Struct(val); err != nil {

		// Use a type assertion to get the real error value.
		var verrors validator.ValidationErrors
		if !errors.As(err, &verrors) {
			return err
		}

		var fields FieldErrors
		for _, verror := range verrors {
			field := FieldError{
				Field: verror.Field(),
				Error: verror.Translate(translator),
			}
			fields = append(fields, field)
		}

		return fields
	}

	return nil
}

// GenerateID generate a unique id for entities.
func GenerateID() string {
	return uuid.NewString()
}

// CheckID validates that an id can be used as a single path segment. Ids
// are either generated or chosen by the caller.
func CheckID(id string) error {
	switch {
	case id == "", len(id) > 64:
		return ErrInvalidID
	case strings.ContainsAny(id, "/?#%"), strings.TrimSpace(id) != id:
		return ErrInvalidID
	}
	return nil
}
