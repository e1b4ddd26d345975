package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/oggyb/galatea/internal/app"
	"github.com/oggyb/galatea/internal/completion"
	"github.com/oggyb/galatea/internal/config"
	"github.com/oggyb/galatea/internal/db"
	"github.com/oggyb/galatea/internal/logger"
	"github.com/oggyb/galatea/internal/repository"
	"github.com/oggyb/galatea/internal/service/companion"
)

func main() {
	extra := flag.Int("extra", 20, "number of generated companions on top of the defaults")
	generate := flag.Int("generate", 0, "number of companions to draft with the completion service")
	admin := flag.String("admin", "", "email of an existing account to promote to admin")
	flag.Parse()

	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.With("cmd", "seed")

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	if err := db.SeedTestData(database, *extra); err != nil {
		log.Error("failed to seed", "err", err)
		os.Exit(1)
	}
	log.Info("seeding completed", "demo_email", db.DemoEmail)

	ctx := context.Background()

	if *admin != "" {
		if err := repository.NewUserRepository(database).SetRole(ctx, *admin, db.RoleAdmin); err != nil {
			log.Error("failed to promote admin", "email", *admin, "err", err)
			os.Exit(1)
		}
		log.Info("admin promoted", "email", *admin)
	}

	if *generate > 0 {
		gen, err := completion.New(completion.OptionsFromConfig(cfg))
		if err != nil {
			log.Error("completion service not configured", "err", err)
			os.Exit(1)
		}
		svc := companion.NewService(app.New(cfg, database, nil, log).WithProfileGenerator(gen))
		for i := 0; i < *generate; i++ {
			genCtx, cancel := context.WithTimeout(ctx, cfg.Completion.Timeout+5*time.Second)
			_, err := svc.GenerateCompanion(genCtx, "")
			cancel()
			if err != nil {
				log.Error("failed to generate companion", "n", i+1, "err", err)
				os.Exit(1)
			}
		}
	}
}
