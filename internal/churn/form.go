package churn

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// formSchema mirrors the submitted form. Pointer fields keep "absent"
// distinct from "empty"; validation runs over the raw strings.
type formSchema struct {
	Gender           *string `form:"gender" validate:"required"`
	SeniorCitizen    *string `form:"SeniorCitizen" validate:"required,coerce_int"`
	Partner          *string `form:"Partner" validate:"required"`
	Dependents       *string `form:"Dependents" validate:"required"`
	Tenure           *string `form:"tenure" validate:"required,coerce_float"`
	PhoneService     *string `form:"PhoneService" validate:"required"`
	MultipleLines    *string `form:"MultipleLines" validate:"required"`
	InternetService  *string `form:"InternetService" validate:"required"`
	OnlineSecurity   *string `form:"OnlineSecurity" validate:"required"`
	OnlineBackup     *string `form:"OnlineBackup" validate:"required"`
	DeviceProtection *string `form:"DeviceProtection" validate:"required"`
	TechSupport      *string `form:"TechSupport" validate:"required"`
	StreamingTV      *string `form:"StreamingTV" validate:"required"`
	StreamingMovies  *string `form:"StreamingMovies" validate:"required"`
	Contract         *string `form:"Contract" validate:"required"`
	PaperlessBilling *string `form:"PaperlessBilling" validate:"required"`
	PaymentMethod    *string `form:"PaymentMethod" validate:"required"`
	MonthlyCharges   *string `form:"MonthlyCharges" validate:"required,coerce_float"`
	TotalCharges     *string `form:"TotalCharges" validate:"required,coerce_float"`
}

// FieldProblem names one invalid form field.
type FieldProblem struct {
	Field  string
	Reason string
}

// ValidationError aggregates every problem found in a submitted form.
type ValidationError struct {
	Problems []FieldProblem
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.Field + ": " + p.Reason
	}
	return "invalid form input: " + strings.Join(parts, "; ")
}

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	if err := v.RegisterValidation("coerce_int", func(fl validator.FieldLevel) bool {
		_, err := parseInt(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("coerce_float", func(fl validator.FieldLevel) bool {
		_, err := parseFloat(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
	return v
}

// ParseForm builds an InputRecord from form values. It fails closed: any
// missing or non-coercible field yields a *ValidationError listing all of
// them, and no partial record.
func ParseForm(form url.Values) (InputRecord, error) {
	var schema formSchema
	bindForm(form, &schema)

	if err := formValidator.Struct(&schema); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return InputRecord{}, fmt.Errorf("validate form: %w", err)
		}
		problems := make([]FieldProblem, 0, len(verrs))
		for _, fe := range verrs {
			problems = append(problems, FieldProblem{Field: fe.Field(), Reason: describeTag(fe.Tag())})
		}
		return InputRecord{}, &ValidationError{Problems: problems}
	}

	return schema.record()
}

// bindForm copies the first value of every present form key into the
// matching schema field.
func bindForm(form url.Values, schema *formSchema) {
	v := reflect.ValueOf(schema).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		values, ok := form[t.Field(i).Tag.Get("form")]
		if !ok || len(values) == 0 {
			continue
		}
		s := values[0]
		v.Field(i).Set(reflect.ValueOf(&s))
	}
}

func (s *formSchema) record() (InputRecord, error) {
	senior, err := parseInt(*s.SeniorCitizen)
	if err != nil {
		return InputRecord{}, &ValidationError{Problems: []FieldProblem{{FieldSeniorCitizen, describeTag("coerce_int")}}}
	}

	var problems []FieldProblem
	float := func(name string, raw *string) float64 {
		f, err := parseFloat(*raw)
		if err != nil {
			problems = append(problems, FieldProblem{name, describeTag("coerce_float")})
		}
		return f
	}

	rec := InputRecord{
		Gender:           *s.Gender,
		SeniorCitizen:    senior,
		Partner:          *s.Partner,
		Dependents:       *s.Dependents,
		Tenure:           float(FieldTenure, s.Tenure),
		PhoneService:     *s.PhoneService,
		MultipleLines:    *s.MultipleLines,
		InternetService:  *s.InternetService,
		OnlineSecurity:   *s.OnlineSecurity,
		OnlineBackup:     *s.OnlineBackup,
		DeviceProtection: *s.DeviceProtection,
		TechSupport:      *s.TechSupport,
		StreamingTV:      *s.StreamingTV,
		StreamingMovies:  *s.StreamingMovies,
		Contract:         *s.Contract,
		PaperlessBilling: *s.PaperlessBilling,
		PaymentMethod:    *s.PaymentMethod,
		MonthlyCharges:   float(FieldMonthlyCharges, s.MonthlyCharges),
		TotalCharges:     float(FieldTotalCharges, s.TotalCharges),
	}
	if len(problems) > 0 {
		return InputRecord{}, &ValidationError{Problems: problems}
	}
	return rec, nil
}

func describeTag(tag string) string {
	switch tag {
	case "required":
		return "missing"
	case "coerce_int":
		return "not an integer"
	case "coerce_float":
		return "not a number"
	default:
		return "invalid (" + tag + ")"
	}
}

// Numeric inputs tolerate surrounding whitespace, nothing else.
func parseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
