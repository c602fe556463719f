// Package churn turns submitted customer attributes into a churn verdict.
//
// A request flows through three steps: ParseForm builds a validated
// InputRecord, Service.Predict runs it through the loaded model triple, and
// the resulting Outcome tells the web layer what to render.
package churn

import "churn-web/internal/ml"

// Form field names, in the column order the preprocessor was fitted on.
const (
	FieldGender           = "gender"
	FieldSeniorCitizen    = "SeniorCitizen"
	FieldPartner          = "Partner"
	FieldDependents       = "Dependents"
	FieldTenure           = "tenure"
	FieldPhoneService     = "PhoneService"
	FieldMultipleLines    = "MultipleLines"
	FieldInternetService  = "InternetService"
	FieldOnlineSecurity   = "OnlineSecurity"
	FieldOnlineBackup     = "OnlineBackup"
	FieldDeviceProtection = "DeviceProtection"
	FieldTechSupport      = "TechSupport"
	FieldStreamingTV      = "StreamingTV"
	FieldStreamingMovies  = "StreamingMovies"
	FieldContract         = "Contract"
	FieldPaperlessBilling = "PaperlessBilling"
	FieldPaymentMethod    = "PaymentMethod"
	FieldMonthlyCharges   = "MonthlyCharges"
	FieldTotalCharges     = "TotalCharges"
)

// Columns lists all 19 input columns in order.
var Columns = []string{
	FieldGender, FieldSeniorCitizen, FieldPartner, FieldDependents, FieldTenure,
	FieldPhoneService, FieldMultipleLines, FieldInternetService, FieldOnlineSecurity,
	FieldOnlineBackup, FieldDeviceProtection, FieldTechSupport, FieldStreamingTV,
	FieldStreamingMovies, FieldContract, FieldPaperlessBilling, FieldPaymentMethod,
	FieldMonthlyCharges, FieldTotalCharges,
}

// InputRecord is one customer's attributes after type coercion.
type InputRecord struct {
	Gender           string  `json:"gender"`
	SeniorCitizen    int     `json:"SeniorCitizen"`
	Partner          string  `json:"Partner"`
	Dependents       string  `json:"Dependents"`
	Tenure           float64 `json:"tenure"`
	PhoneService     string  `json:"PhoneService"`
	MultipleLines    string  `json:"MultipleLines"`
	InternetService  string  `json:"InternetService"`
	OnlineSecurity   string  `json:"OnlineSecurity"`
	OnlineBackup     string  `json:"OnlineBackup"`
	DeviceProtection string  `json:"DeviceProtection"`
	TechSupport      string  `json:"TechSupport"`
	StreamingTV      string  `json:"StreamingTV"`
	StreamingMovies  string  `json:"StreamingMovies"`
	Contract         string  `json:"Contract"`
	PaperlessBilling string  `json:"PaperlessBilling"`
	PaymentMethod    string  `json:"PaymentMethod"`
	MonthlyCharges   float64 `json:"MonthlyCharges"`
	TotalCharges     float64 `json:"TotalCharges"`
}

// Field is a named value, used to echo the input back in column order.
type Field struct {
	Name  string
	Value any
}

// Values returns the cell values aligned with Columns.
func (r InputRecord) Values() []any {
	return []any{
		r.Gender, r.SeniorCitizen, r.Partner, r.Dependents, r.Tenure,
		r.PhoneService, r.MultipleLines, r.InternetService, r.OnlineSecurity,
		r.OnlineBackup, r.DeviceProtection, r.TechSupport, r.StreamingTV,
		r.StreamingMovies, r.Contract, r.PaperlessBilling, r.PaymentMethod,
		r.MonthlyCharges, r.TotalCharges,
	}
}

// Fields pairs every column name with its value.
func (r InputRecord) Fields() []Field {
	values := r.Values()
	out := make([]Field, len(Columns))
	for i, name := range Columns {
		out[i] = Field{Name: name, Value: values[i]}
	}
	return out
}

// Frame wraps the record as a one-row table with 19 named columns.
func (r InputRecord) Frame() ml.Frame {
	cols := make([]string, len(Columns))
	copy(cols, Columns)
	return ml.Frame{Columns: cols, Rows: [][]any{r.Values()}}
}
