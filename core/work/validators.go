package work

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classboard/core"
)

var (
	subjectTag  = "subject"
	subjectText = "{0} must be one of the class subjects"

	workTypeTag  = "worktype"
	workTypeText = "{0} must be Homework or Classwork"
)

// InitValidators registers the work item validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(subjectTag, func(fl validator.FieldLevel) bool {
		return Subject(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, subjectTag, subjectText)

	_ = validate.RegisterValidation(workTypeTag, func(fl validator.FieldLevel) bool {
		return Type(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, workTypeTag, workTypeText)
}
