package form

import (
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

const notBlankTag = "notblank"

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && strings.TrimSpace(s) != ""
	})
	_ = validate.RegisterTranslation(notBlankTag, translator,
		func(ut.Translator) error { return nil },
		func(ut.Translator, validator.FieldError) string { return "cannot be blank" })
}

// RequiredMessage is shown for an empty required field.
const RequiredMessage = "This field is required."

// checkRule runs validator rules against one value and returns a
// sentence-cased message, or "" when the value passes.
func checkRule(value any, rules string) string {
	if strings.TrimSpace(rules) == "" {
		return ""
	}
	err := validate.Var(value, rules)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid value."
	}
	return sentence(verrs[0].Translate(translator))
}

// stripRequired splits "required" out of a rule list: emptiness is
// checked on the raw input before the value is typed.
func stripRequired(rules string) (string, bool) {
	var kept []string
	required := false
	for _, r := range strings.Split(rules, ",") {
		switch r = strings.TrimSpace(r); r {
		case "":
		case "required":
			required = true
		default:
			kept = append(kept, r)
		}
	}
	return strings.Join(kept, ","), required
}

func sentence(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "Invalid value."
	}
	rs := []rune(msg)
	rs[0] = unicode.ToUpper(rs[0])
	out := string(rs)
	if !strings.HasSuffix(out, ".") {
		out += "."
	}
	return out
}
