package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shinyyama/loops-backend/internal/config"
	"github.com/shinyyama/loops-backend/internal/db"
	"github.com/shinyyama/loops-backend/internal/model"
	"github.com/shinyyama/loops-backend/internal/repository"
	"github.com/shinyyama/loops-backend/internal/service"
	"gorm.io/gorm"
)

const (
	seedSellerUID = "seed-seller"
	seedBuyerUID  = "seed-buyer"
)

type seedListing struct {
	Title       string
	Description string
	Price       int64
	Type        model.ListingType
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadDB()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	force := strings.EqualFold(os.Getenv("FORCE_SEED"), "true")
	n, err := seed(ctx, gdb, force)
	if err != nil {
		return err
	}
	if n == 0 {
		log.Printf("listings already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}
	log.Printf("seeded %d listings", n)
	return nil
}

// seed writes the demo listings and one negotiated thread through the same
// services the API uses. It returns how many listings it created.
func seed(ctx context.Context, gdb *gorm.DB, force bool) (int, error) {
	var cnt int64
	if err := gdb.WithContext(ctx).Model(&model.Listing{}).Count(&cnt).Error; err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	if cnt > 0 && !force {
		return 0, nil
	}

	repos := repository.NewRepositories(gdb)
	listings := service.NewListingService(repos.Listings)
	messages := service.NewMessageService(repos.Messages, repos.Listings, nil, nil)
	status := service.NewStatusService(repos, repos, service.NewTransactionRecorder(nil), service.NewNotificationRelay(messages, nil), nil)

	var created []*model.Listing
	for _, s := range buildSeedListings() {
		l, err := listings.Create(ctx, seedSellerUID, s.Title, s.Description, s.Price, s.Type)
		if err != nil {
			return 0, fmt.Errorf("create listing %q: %w", s.Title, err)
		}
		created = append(created, l)
	}

	// a negotiation that reached an accepted offer
	first := created[0]
	for _, line := range []struct{ from, to, body string }{
		{seedBuyerUID, seedSellerUID, "Hi! Is the " + first.Title + " still available?"},
		{seedSellerUID, seedBuyerUID, "Yes, it is. Want to meet at the library?"},
		{seedBuyerUID, seedSellerUID, "Works for me. Tomorrow at noon?"},
	} {
		if _, err := messages.Append(ctx, first.ID, line.from, line.to, line.body, ""); err != nil {
			return 0, fmt.Errorf("seed message: %w", err)
		}
	}
	if _, err := status.Fire(ctx, service.TransitionRequest{
		ListingID: first.ID,
		ActorUID:  seedSellerUID,
		Kind:      service.TransitionAcceptOffer,
		BuyerUID:  seedBuyerUID,
	}); err != nil {
		return 0, fmt.Errorf("accept seeded offer: %w", err)
	}
	return len(created), nil
}

func buildSeedListings() []seedListing {
	return []seedListing{
		{Title: "Desk lamp", Description: "Warm LED lamp, barely used.", Price: 1500, Type: model.ListingTypeGood},
		{Title: "Calculus textbook", Description: "Stewart, 8th edition. Some highlighting.", Price: 3000, Type: model.ListingTypeGood},
		{Title: "Mini fridge", Description: "Fits under a dorm desk.", Price: 6000, Type: model.ListingTypeGood},
		{Title: "Bike tune-up", Description: "Brakes, gears and chain. I come to your dorm.", Price: 2000, Type: model.ListingTypeService},
		{Title: "Essay proofreading", Description: "Up to 3000 words, 48h turnaround.", Price: 1200, Type: model.ListingTypeService},
		{Title: "Looking for a graphing calculator", Description: "TI-84 or similar.", Price: 4000, Type: model.ListingTypeRequest},
	}
}
