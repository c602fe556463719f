package web

import "churn-web/internal/churn"

// inputField describes how one form input is rendered.
type inputField struct {
	Name    string
	Label   string
	Options []string // nil renders a numeric input
	Step    string
	Min     string
}

var (
	yesNo         = []string{"Yes", "No"}
	phoneOptions  = []string{"Yes", "No", "No phone service"}
	netAddOptions = []string{"Yes", "No", "No internet service"}
)

// formFields lists the inputs in column order.
var formFields = []inputField{
	{Name: churn.FieldGender, Label: "Gender", Options: []string{"Female", "Male"}},
	{Name: churn.FieldSeniorCitizen, Label: "Senior citizen", Options: []string{"0", "1"}},
	{Name: churn.FieldPartner, Label: "Partner", Options: yesNo},
	{Name: churn.FieldDependents, Label: "Dependents", Options: yesNo},
	{Name: churn.FieldTenure, Label: "Tenure (months)", Step: "1", Min: "0"},
	{Name: churn.FieldPhoneService, Label: "Phone service", Options: yesNo},
	{Name: churn.FieldMultipleLines, Label: "Multiple lines", Options: phoneOptions},
	{Name: churn.FieldInternetService, Label: "Internet service", Options: []string{"DSL", "Fiber optic", "No"}},
	{Name: churn.FieldOnlineSecurity, Label: "Online security", Options: netAddOptions},
	{Name: churn.FieldOnlineBackup, Label: "Online backup", Options: netAddOptions},
	{Name: churn.FieldDeviceProtection, Label: "Device protection", Options: netAddOptions},
	{Name: churn.FieldTechSupport, Label: "Tech support", Options: netAddOptions},
	{Name: churn.FieldStreamingTV, Label: "Streaming TV", Options: netAddOptions},
	{Name: churn.FieldStreamingMovies, Label: "Streaming movies", Options: netAddOptions},
	{Name: churn.FieldContract, Label: "Contract", Options: []string{"Month-to-month", "One year", "Two year"}},
	{Name: churn.FieldPaperlessBilling, Label: "Paperless billing", Options: yesNo},
	{Name: churn.FieldPaymentMethod, Label: "Payment method", Options: []string{
		"Electronic check", "Mailed check", "Bank transfer (automatic)", "Credit card (automatic)",
	}},
	{Name: churn.FieldMonthlyCharges, Label: "Monthly charges", Step: "0.01", Min: "0"},
	{Name: churn.FieldTotalCharges, Label: "Total charges", Step: "0.01", Min: "0"},
}
