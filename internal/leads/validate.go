package leads

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks raw submissions against the lead schemas. It is safe for
// concurrent use.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a validator that reports fields by their JSON keys.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("companysize", func(fl validator.FieldLevel) bool {
		size := fl.Field().String()
		return size == "" || slices.Contains(CompanySizes, size)
	})
	return &Validator{validate: v}
}

// Check validates any struct tagged with the same conventions and reports
// failures as a *ValidationError with generic messages.
func (v *Validator) Check(s any) error {
	return v.check(s, nil, nil)
}

// Defaulter is implemented by request structs that fill defaults after
// binding and before validation.
type Defaulter interface {
	ApplyDefaults()
}

// ValidateInto copies the members of raw named by dst's json tags into dst,
// which must point to a struct, and validates the result. Values already on
// dst act as defaults for absent members. JSON type mismatches are reported
// next to constraint failures. messages maps "field.tag" to a message.
func (v *Validator) ValidateInto(raw map[string]any, dst any, messages map[string]string) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("leads: validate: %T is not a struct pointer", dst)
	}
	typeErrs := bindFields(raw, rv.Elem())
	if d, ok := dst.(Defaulter); ok {
		d.ApplyDefaults()
	}
	return v.check(rv.Elem().Interface(), typeErrs, messageTable(messages))
}

// messageTable maps "field.tag" to a user facing message.
type messageTable map[string]string

var contactMessages = messageTable{
	"name.required":           "Name is required",
	"name.max":                "Name too long",
	"email.required":          "Invalid email address",
	"email.email":             "Invalid email address",
	"phone.max":               "Phone number too long",
	"companySize.companysize": "Invalid company size",
	"message.required":        "Message is required",
	"message.max":             "Message too long",
}

var voiceMessages = messageTable{
	"name.required":  "Name is required",
	"name.max":       "Name must be less than 100 characters",
	"email.required": "Invalid email address",
	"email.email":    "Invalid email address",
	"intent.oneof":   "Invalid intent",
	"source.oneof":   "Invalid source",
}

// ValidateContact checks a decoded contact form body. Every violated field
// is reported, not only the first.
func (v *Validator) ValidateContact(raw map[string]any) (Submission, error) {
	var sub Submission
	typeErrs := bindStrings(raw, map[string]*string{
		"name":        &sub.Name,
		"email":       &sub.Email,
		"phone":       &sub.Phone,
		"companySize": &sub.CompanySize,
		"message":     &sub.Message,
	})
	if err := v.check(sub, typeErrs, contactMessages); err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// ValidateVoiceLead checks a decoded voice agent capture. Intent defaults to
// consultation and source to website when absent.
func (v *Validator) ValidateVoiceLead(raw map[string]any) (VoiceLead, error) {
	var lead VoiceLead
	typeErrs := bindStrings(raw, map[string]*string{
		"name":         &lead.Name,
		"email":        &lead.Email,
		"company":      &lead.Company,
		"phone":        &lead.Phone,
		"intent":       &lead.Intent,
		"message":      &lead.Message,
		"source":       &lead.Source,
		"utm_source":   &lead.UTMSource,
		"utm_campaign": &lead.UTMCampaign,
		"utm_medium":   &lead.UTMMedium,
	})
	if lead.Intent == "" {
		lead.Intent = defaultIntent
	}
	if lead.Source == "" {
		lead.Source = "website"
	}
	if err := v.check(lead, typeErrs, voiceMessages); err != nil {
		return VoiceLead{}, err
	}
	return lead, nil
}

func (v *Validator) check(s any, typeErrs []FieldError, messages messageTable) error {
	fieldErrs := typeErrs
	seen := make(map[string]bool, len(typeErrs))
	for _, fe := range typeErrs {
		seen[fe.Field] = true
	}

	err := v.validate.Struct(s)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			field := fe.Field()
			if seen[field] {
				continue
			}
			seen[field] = true
			fieldErrs = append(fieldErrs, FieldError{Field: field, Message: messages.lookup(field, fe)})
		}
	} else if err != nil {
		return fmt.Errorf("leads: validate: %w", err)
	}

	if len(fieldErrs) == 0 {
		return nil
	}
	return &ValidationError{Errors: orderFields(s, fieldErrs)}
}

func (m messageTable) lookup(field string, fe validator.FieldError) string {
	if msg, ok := m[field+"."+fe.Tag()]; ok {
		return msg
	}
	numeric := false
	switch fe.Kind() {
	case reflect.Int, reflect.Int64, reflect.Float32, reflect.Float64:
		numeric = true
	}
	switch fe.Tag() {
	case "required":
		return "Required"
	case "email":
		return "Invalid email address"
	case "min":
		if numeric {
			return "Must be at least " + fe.Param()
		}
		if fe.Kind() == reflect.Slice {
			return "Select at least " + fe.Param()
		}
		return "Too short"
	case "max":
		if numeric {
			return "Must be at most " + fe.Param()
		}
		return "Too long"
	default:
		return "Invalid " + field
	}
}

// bindStrings copies string values from raw into the targets and reports
// fields whose JSON type is not a string.
func bindStrings(raw map[string]any, targets map[string]*string) []FieldError {
	var errs []FieldError
	for field, dst := range targets {
		val, ok := raw[field]
		if !ok {
			continue
		}
		s, ok := val.(string)
		if !ok {
			errs = append(errs, FieldError{Field: field, Message: "Expected string, received " + jsonTypeName(val)})
			continue
		}
		*dst = s
	}
	return errs
}

// bindFields is bindStrings for arbitrary tagged structs. It handles
// strings, booleans, numbers, string slices and pointers to those.
func bindFields(raw map[string]any, s reflect.Value) []FieldError {
	var errs []FieldError
	t := s.Type()
	for i := 0; i < t.NumField(); i++ {
		name := strings.SplitN(t.Field(i).Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		val, ok := raw[name]
		if !ok {
			continue
		}
		if want, ok := assign(s.Field(i), val); !ok {
			errs = append(errs, FieldError{Field: name, Message: "Expected " + want + ", received " + jsonTypeName(val)})
		}
	}
	return errs
}

// assign stores val in f when the JSON type fits. On mismatch it returns the
// expected type name.
func assign(f reflect.Value, val any) (string, bool) {
	if f.Kind() == reflect.Pointer {
		elem := reflect.New(f.Type().Elem())
		if want, ok := assign(elem.Elem(), val); !ok {
			return want, false
		}
		f.Set(elem)
		return "", true
	}

	switch f.Kind() {
	case reflect.String:
		s, ok := val.(string)
		if ok {
			f.SetString(s)
		}
		return "string", ok
	case reflect.Bool:
		b, ok := val.(bool)
		if ok {
			f.SetBool(b)
		}
		return "boolean", ok
	case reflect.Float32, reflect.Float64:
		n, ok := val.(float64)
		if ok {
			f.SetFloat(n)
		}
		return "number", ok
	case reflect.Int, reflect.Int64:
		n, ok := val.(float64)
		if !ok {
			return "number", false
		}
		if n != math.Trunc(n) {
			return "integer", false
		}
		f.SetInt(int64(n))
		return "", true
	case reflect.Slice:
		items, ok := val.([]any)
		if !ok || f.Type().Elem().Kind() != reflect.String {
			return "array", false
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return "array of strings", false
			}
			out = append(out, s)
		}
		f.Set(reflect.ValueOf(out))
		return "", true
	default:
		return f.Kind().String(), false
	}
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// orderFields sorts errors by struct declaration order so responses are
// stable regardless of map iteration.
func orderFields(s any, errs []FieldError) []FieldError {
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return errs
	}
	rank := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name := strings.SplitN(t.Field(i).Tag.Get("json"), ",", 2)[0]
		rank[name] = i
	}
	fieldRank := func(field string) int {
		if i := strings.IndexByte(field, '['); i >= 0 {
			field = field[:i]
		}
		return rank[field]
	}
	slices.SortStableFunc(errs, func(a, b FieldError) int {
		return fieldRank(a.Field) - fieldRank(b.Field)
	})
	return errs
}
