package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"

	"churn-web/internal/cfg"
	"churn-web/internal/churn"
	"churn-web/internal/ml"
)

// Smoke-tests the configured model artifacts end to end with a few
// reference customers.
func main() {
	fmt.Println("🧪 Testing churn model artifacts")
	fmt.Println("================================")

	c, err := cfg.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	fmt.Printf("📁 Preprocessor: %s\n", c.PreprocessorPath)
	fmt.Printf("📁 Encoder:      %s\n", c.EncoderPath)
	fmt.Printf("📁 Classifier:   %s\n", c.ClassifierPath)

	fmt.Println("\n🔧 Test 1: Loading models...")
	models, err := ml.LoadModels(ml.LoaderConfig{
		Backend:             c.Backend,
		PreprocessorPath:    c.PreprocessorPath,
		EncoderPath:         c.EncoderPath,
		ClassifierPath:      c.ClassifierPath,
		OrtLibPath:          c.OrtLibPath,
		ClassifierOutput:    c.ClassifierOutput,
		RemoteEncoderURL:    c.RemoteEncoderURL,
		RemoteClassifierURL: c.RemoteClassifierURL,
		RemoteTimeout:       c.RemoteTimeout,
	})
	if err != nil {
		log.Fatalf("❌ Failed to load models: %v", err)
	}
	defer models.Close()
	defer ml.ShutdownONNXRuntime()
	fmt.Println("✅ Models loaded")

	svc := churn.NewService(models, nil, nil)

	fmt.Println("\n🔧 Test 2: Reference customers...")
	testCases := []struct {
		name     string
		form     url.Values
		expected string
	}{
		{"New month-to-month fiber customer", customer("1", "Fiber optic", "Month-to-month", "Electronic check", "95.70", "95.70"), "likely Yes"},
		{"Long-tenure two-year DSL customer", customer("68", "DSL", "Two year", "Bank transfer (automatic)", "55.20", "3750.40"), "likely No"},
		{"Mid-tenure one-year customer", customer("24", "DSL", "One year", "Mailed check", "60.10", "1442.40"), "probably No"},
	}

	for i, tc := range testCases {
		out := svc.Predict(context.Background(), tc.form)
		fmt.Printf("\n  Test 2.%d: %s\n", i+1, tc.name)
		if out.Kind != churn.OutcomeSuccess {
			fmt.Printf("    ❌ %s: %v\n", out.Kind, out.Err)
			continue
		}
		fmt.Printf("    📊 Churn: %s (%.2f%%)\n", out.Result.Prediction, out.Result.Probability)
		fmt.Printf("    💡 Expected: %s\n", tc.expected)
	}

	fmt.Println("\n🔧 Test 3: Invalid input...")
	bad := customer("twelve", "DSL", "One year", "Mailed check", "60.10", "")
	out := svc.Predict(context.Background(), bad)
	if out.Kind == churn.OutcomePredictionError {
		fmt.Printf("  ✅ Rejected as expected: %v\n", out.Err)
	} else {
		fmt.Printf("  ❌ Expected a prediction error, got %s\n", out.Kind)
		os.Exit(1)
	}

	fmt.Println("\n🎉 All checks completed!")
}

func customer(tenure, internet, contract, payment, monthly, total string) url.Values {
	addOn := "No"
	if internet == "No" {
		addOn = "No internet service"
	}
	return url.Values{
		churn.FieldGender:           {"Female"},
		churn.FieldSeniorCitizen:    {"0"},
		churn.FieldPartner:          {"No"},
		churn.FieldDependents:       {"No"},
		churn.FieldTenure:           {tenure},
		churn.FieldPhoneService:     {"Yes"},
		churn.FieldMultipleLines:    {"No"},
		churn.FieldInternetService:  {internet},
		churn.FieldOnlineSecurity:   {addOn},
		churn.FieldOnlineBackup:     {addOn},
		churn.FieldDeviceProtection: {addOn},
		churn.FieldTechSupport:      {addOn},
		churn.FieldStreamingTV:      {addOn},
		churn.FieldStreamingMovies:  {addOn},
		churn.FieldContract:         {contract},
		churn.FieldPaperlessBilling: {"Yes"},
		churn.FieldPaymentMethod:    {payment},
		churn.FieldMonthlyCharges:   {monthly},
		churn.FieldTotalCharges:     {total},
	}
}
