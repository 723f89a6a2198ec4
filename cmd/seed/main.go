package main

import (
	"context"
	"log"
	"time"

	"dva-dashboard-be/internal/bootstrap"
	"dva-dashboard-be/internal/config"
	"dva-dashboard-be/internal/dto"
	"dva-dashboard-be/internal/pkg/logger"
	"dva-dashboard-be/internal/service"
)

// sampleUseCases is a starter set for a healthcare data monetization matrix.
var sampleUseCases = []dto.CreateUseCaseRequest{
	{ID: "readmission-risk", Name: "30-Day Readmission Risk Scoring", Type: "Predictive", CategoryName: "Clinical", TotalScore: 9.1},
	{ID: "claims-leakage", Name: "Claims Revenue Leakage Detection", Type: "Diagnostic", CategoryName: "Revenue Cycle", TotalScore: 8.7},
	{ID: "supply-benchmark", Name: "Supply Cost Benchmarking Service", Type: "Descriptive", CategoryName: "Operations", TotalScore: 7.4},
	{ID: "payer-insights", Name: "De-identified Payer Insights Feed", Type: "Data Product", CategoryName: "Revenue Cycle", TotalScore: 7.9},
	{ID: "staffing-forecast", Name: "Nurse Staffing Demand Forecast", Type: "Predictive", CategoryName: "Operations", TotalScore: 6.8},
	{ID: "trial-matching", Name: "Clinical Trial Patient Matching", Type: "Prescriptive", CategoryName: "Research", TotalScore: 8.2},
}

func main() {
	cfg := config.Load()
	if cfg.App.StoreDriver != "redis" {
		log.Fatal("Error: STORE_DRIVER must be redis to seed a store that outlives this process")
	}

	store, closeStore := bootstrap.NewStore(cfg)
	defer closeStore()

	svc := service.NewUseCaseService(store, nil, nil, logger.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Println("Seeding prioritized use cases...")
	for _, uc := range sampleUseCases {
		uc := uc
		if _, err := svc.Submit(ctx, &uc); err != nil {
			log.Printf("Error seeding '%s': %v", uc.ID, err)
			continue
		}
		log.Printf("Seeded use case: %s (%s)", uc.Name, uc.ID)
	}
	log.Println("Use case seeding completed!")
}
