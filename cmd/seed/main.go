// Command seed populates a development database with demo chat data.
package main

import (
	"context"
	"flag"
	"log"

	"murmur/internal/config"
	"murmur/internal/database"
	"murmur/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.Users, "Number of profiles to create")
	numGroups := flag.Int("groups", defaults.Groups, "Number of groups to create")
	messages := flag.Int("messages", defaults.MessagesPerConversation, "Messages per conversation")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	preset := flag.String("preset", "", "Apply a named preset from -presets")
	presetsPath := flag.String("presets", "seed_presets.yml", "YAML file with seeder presets")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	opts := defaults
	opts.Users = *numUsers
	opts.Groups = *numGroups
	opts.MessagesPerConversation = *messages
	if *preset != "" {
		presets, err := seed.LoadPresets(*presetsPath)
		if err != nil {
			log.Fatalf("❌ Loading presets failed: %v", err)
		}
		p, ok := presets[*preset]
		if !ok {
			log.Fatalf("❌ Unknown preset %q in %s", *preset, *presetsPath)
		}
		opts = p
		log.Printf("Applying preset: %s (ignoring size flags)\n", *preset)
	} else {
		log.Printf("Target: %d users, %d groups, clean=%v\n", opts.Users, opts.Groups, *shouldClean)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("❌ Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, opts)
	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	summary, err := s.Run(context.Background())
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! profiles=%d friendships=%d pending=%d groups=%d messages=%d",
		summary.Profiles, summary.Friendships, summary.Pending, summary.Groups, summary.Messages)
	log.Println("🔑 Mint a token for any seeded user with: go run ./cmd/devtoken -user <id>")
}
