package dto

import (
	"html"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	providerCodeRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-]{0,49}$`)
	countryRe      = regexp.MustCompile(`^[A-Z]{2}$`)
	currencyRe     = regexp.MustCompile(`^[A-Z]{3}$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("provider_code", validateProviderCode)
		_ = v.RegisterValidation("safe_url", validateSafeURL)
		_ = v.RegisterValidation("iso_country", validateISOCountry)
		_ = v.RegisterValidation("iso_currency", validateISOCurrency)
	}
}

// validateProviderCode allows alphanumerics, underscore and dash, up to 50 chars.
func validateProviderCode(fl validator.FieldLevel) bool {
	return providerCodeRe.MatchString(fl.Field().String())
}

// validateSafeURL accepts only http/https URLs with a host.
func validateSafeURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true // optional field; use "required" tag to enforce presence
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// validateISOCountry accepts ISO 3166-1 alpha-2 codes in upper case.
func validateISOCountry(fl validator.FieldLevel) bool {
	return countryRe.MatchString(fl.Field().String())
}

// validateISOCurrency accepts ISO 4217 codes in upper case.
func validateISOCurrency(fl validator.FieldLevel) bool {
	return currencyRe.MatchString(fl.Field().String())
}

// SanitizeStruct trims whitespace and HTML-escapes every exported string
// field (including *string) of a struct pointer. Fields tagged
// `sanitize:"-"` are left untouched.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() || rt.Field(i).Tag.Get("sanitize") == "-" {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String()))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			elem := f.Elem()
			if elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String()))
			}
		case reflect.Slice:
			if f.Type().Elem().Kind() != reflect.String {
				continue
			}
			for j := 0; j < f.Len(); j++ {
				f.Index(j).SetString(sanitize(f.Index(j).String()))
			}
		}
	}
}

func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
