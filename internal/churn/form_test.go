package churn

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validForm is the reference customer used across the package tests.
func validForm() url.Values {
	return url.Values{
		"gender":           {"Female"},
		"SeniorCitizen":    {"0"},
		"Partner":          {"Yes"},
		"Dependents":       {"No"},
		"tenure":           {"12"},
		"PhoneService":     {"Yes"},
		"MultipleLines":    {"No"},
		"InternetService":  {"DSL"},
		"OnlineSecurity":   {"Yes"},
		"OnlineBackup":     {"No"},
		"DeviceProtection": {"No"},
		"TechSupport":      {"No"},
		"StreamingTV":      {"No"},
		"StreamingMovies":  {"No"},
		"Contract":         {"Month-to-month"},
		"PaperlessBilling": {"Yes"},
		"PaymentMethod":    {"Electronic check"},
		"MonthlyCharges":   {"70.35"},
		"TotalCharges":     {"845.50"},
	}
}

func TestParseForm_Valid(t *testing.T) {
	rec, err := ParseForm(validForm())
	require.NoError(t, err)

	assert.Equal(t, "Female", rec.Gender)
	assert.Equal(t, 0, rec.SeniorCitizen)
	assert.Equal(t, 12.0, rec.Tenure)
	assert.Equal(t, 70.35, rec.MonthlyCharges)
	assert.Equal(t, 845.5, rec.TotalCharges)
	assert.Equal(t, "Electronic check", rec.PaymentMethod)
	assert.Equal(t, "Month-to-month", rec.Contract)
}

func TestParseForm_TrimsNumericWhitespaceOnly(t *testing.T) {
	form := validForm()
	form.Set("tenure", " 24 ")
	form.Set("SeniorCitizen", "1\n")
	form.Set("Partner", " Yes ")

	rec, err := ParseForm(form)
	require.NoError(t, err)
	assert.Equal(t, 24.0, rec.Tenure)
	assert.Equal(t, 1, rec.SeniorCitizen)
	assert.Equal(t, " Yes ", rec.Partner, "categorical values pass through unmodified")
}

func TestParseForm_EmptyCategoricalIsPresent(t *testing.T) {
	form := validForm()
	form.Set("MultipleLines", "")

	rec, err := ParseForm(form)
	require.NoError(t, err)
	assert.Equal(t, "", rec.MultipleLines)
}

func TestParseForm_FirstValueWins(t *testing.T) {
	form := validForm()
	form["gender"] = []string{"Male", "Female"}

	rec, err := ParseForm(form)
	require.NoError(t, err)
	assert.Equal(t, "Male", rec.Gender)
}

func TestParseForm_Invalid(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(url.Values)
		problems []FieldProblem
	}{
		{
			name:     "missing categorical",
			mutate:   func(f url.Values) { f.Del("gender") },
			problems: []FieldProblem{{Field: "gender", Reason: "missing"}},
		},
		{
			name:     "missing numeric",
			mutate:   func(f url.Values) { f.Del("TotalCharges") },
			problems: []FieldProblem{{Field: "TotalCharges", Reason: "missing"}},
		},
		{
			name:     "non-numeric tenure",
			mutate:   func(f url.Values) { f.Set("tenure", "twelve") },
			problems: []FieldProblem{{Field: "tenure", Reason: "not a number"}},
		},
		{
			name:     "non-numeric monthly charges",
			mutate:   func(f url.Values) { f.Set("MonthlyCharges", "$70") },
			problems: []FieldProblem{{Field: "MonthlyCharges", Reason: "not a number"}},
		},
		{
			name:     "empty total charges",
			mutate:   func(f url.Values) { f.Set("TotalCharges", " ") },
			problems: []FieldProblem{{Field: "TotalCharges", Reason: "not a number"}},
		},
		{
			name:     "fractional senior citizen",
			mutate:   func(f url.Values) { f.Set("SeniorCitizen", "1.0") },
			problems: []FieldProblem{{Field: "SeniorCitizen", Reason: "not an integer"}},
		},
		{
			name: "several problems aggregated",
			mutate: func(f url.Values) {
				f.Del("Contract")
				f.Set("tenure", "abc")
				f.Set("TotalCharges", "")
			},
			problems: []FieldProblem{
				{Field: "tenure", Reason: "not a number"},
				{Field: "Contract", Reason: "missing"},
				{Field: "TotalCharges", Reason: "not a number"},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			form := validForm()
			tc.mutate(form)

			rec, err := ParseForm(form)
			require.Error(t, err)
			assert.Equal(t, InputRecord{}, rec, "no partial record on failure")

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.problems, verr.Problems)
		})
	}
}

func TestParseForm_EmptyForm(t *testing.T) {
	_, err := ParseForm(url.Values{})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, len(Columns))
	assert.Contains(t, verr.Error(), "gender: missing")
}

func TestInputRecord_Frame(t *testing.T) {
	rec, err := ParseForm(validForm())
	require.NoError(t, err)

	frame := rec.Frame()
	assert.Equal(t, Columns, frame.Columns)
	require.Len(t, frame.Rows, 1)
	require.Len(t, frame.Rows[0], 19)
	assert.Equal(t, 0, frame.Rows[0][frame.ColumnIndex("SeniorCitizen")])
	assert.Equal(t, 12.0, frame.Rows[0][frame.ColumnIndex("tenure")])
	assert.Equal(t, "DSL", frame.Rows[0][frame.ColumnIndex("InternetService")])

	fields := rec.Fields()
	require.Len(t, fields, 19)
	assert.Equal(t, Field{Name: "gender", Value: "Female"}, fields[0])
	assert.Equal(t, Field{Name: "TotalCharges", Value: 845.5}, fields[18])
}
