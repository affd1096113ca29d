package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"spotvibe-backend/internal/config"
	"spotvibe-backend/internal/domain/model"
	pg "spotvibe-backend/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	planRepo := pg.NewSubscriptionPlanRepo(pool)
	eventRepo := pg.NewEventRepo(pool)

	plans, err := planRepo.ListAll(ctx, nil)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		return
	}

	// Sample organizer plans for exercising the payment flow
	seedPlans := []*model.SubscriptionPlan{
		{ID: uuid.NewString(), Name: "Basique", Price: 5_000, DurationDays: 30, ReducedCommission: false, MonthlyEventQuota: 3, CreatedAt: time.Now()},
		{ID: uuid.NewString(), Name: "Pro", Price: 15_000, DurationDays: 30, ReducedCommission: true, MonthlyEventQuota: 10, CreatedAt: time.Now()},
		{ID: uuid.NewString(), Name: "Premium", Price: 40_000, DurationDays: 90, ReducedCommission: true, MonthlyEventQuota: 0, CreatedAt: time.Now()},
	}
	for _, p := range seedPlans {
		if err := planRepo.Save(ctx, nil, p); err != nil {
			log.Fatalf("seed plan %q: %v", p.Name, err)
		}
		fmt.Printf("seeded plan: %s (id=%s, price=%d FCFA, days=%d)\n", p.Name, p.ID, p.Price, p.DurationDays)
	}

	event := &model.Event{
		ID:               uuid.NewString(),
		OrganizerID:      uuid.NewString(),
		Title:            "Concert de lancement",
		TicketPrice:      10_000,
		TicketingEnabled: true,
		Capacity:         500,
		StartAt:          time.Now().Add(30 * 24 * time.Hour),
	}
	if err := eventRepo.Save(ctx, nil, event); err != nil {
		log.Fatalf("seed event: %v", err)
	}
	fmt.Printf("seeded event: %s (id=%s, price=%d FCFA)\n", event.Title, event.ID, event.TicketPrice)

	fmt.Println("Seeding complete.")
}
