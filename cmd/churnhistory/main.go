package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"churn-web/internal/churn"
	"churn-web/internal/common"
	"churn-web/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	var (
		dataPath = flag.String("data", os.Getenv(common.EnvDataPath), "Data directory holding "+storage.DBFile)
		limit    = flag.Int("n", 20, "Number of most recent predictions to show")
		since    = flag.Duration("since", 0, "Only show predictions newer than this (e.g. 24h); overrides -n")
		asJSON   = flag.Bool("json", false, "Print one JSON record per line")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *dataPath == "" {
		log.Fatal().Msg("no data path: pass -data or set " + common.EnvDataPath)
	}

	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer store.Close()

	var records []storage.PredictionRecord
	if *since > 0 {
		now := time.Now()
		records, err = store.Range(now.Add(-*since), now)
	} else {
		records, err = store.Recent(*limit)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read predictions")
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				log.Fatal().Err(err).Msg("failed to encode record")
			}
		}
		return
	}

	total, _ := store.Count()
	fmt.Printf("Predictions in %s: %d stored, showing %d\n\n", *dataPath, total, len(records))
	printSummary(records)
}

func printSummary(records []storage.PredictionRecord) {
	var churned int
	for _, r := range records {
		if r.Prediction == churn.LabelYes {
			churned++
		}
		fmt.Printf("%s  %-3s  %6.2f%%  tenure=%-4.0f contract=%-15s monthly=%.2f\n",
			r.Timestamp.Format(time.RFC3339), r.Prediction, r.Probability,
			r.Details.Tenure, r.Details.Contract, r.Details.MonthlyCharges)
	}
	if len(records) > 0 {
		fmt.Printf("\n%d of %d predicted to churn (%.1f%%)\n",
			churned, len(records), 100*float64(churned)/float64(len(records)))
	}
}
