package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/performance-reporting/internal/config"
	"github.com/iliyamo/performance-reporting/internal/database"
	"github.com/iliyamo/performance-reporting/internal/handler"
	"github.com/iliyamo/performance-reporting/internal/hierarchy"
	"github.com/iliyamo/performance-reporting/internal/lifecycle"
	"github.com/iliyamo/performance-reporting/internal/queue"
	"github.com/iliyamo/performance-reporting/internal/report"
	"github.com/iliyamo/performance-reporting/internal/repository"
	"github.com/iliyamo/performance-reporting/internal/router"
	"github.com/iliyamo/performance-reporting/internal/scope"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	structures := repository.NewStructureRepo(db)
	situations := repository.NewSituationRepo(db)
	declarations := repository.NewDeclarationRepo(db)
	rejections := repository.NewRejectionRepo(db)
	catalog := repository.NewCatalogRepo(db)

	// Domain services.
	resolver := hierarchy.NewResolver(structures)
	gate := scope.NewGate(resolver, users)
	machine := lifecycle.NewMachine(situations, catalog)

	// Background consumer writing the approval-chain audit log.
	go func() {
		if err := queue.StartSituationConsumer(cfg.EventLogDir); err != nil {
			log.Printf("situation consumer stopped: %v", err)
		}
	}()

	// Redis is optional: nil disables caching and rate limiting.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, cache and rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	h := router.Handlers{
		Auth:       handler.NewAuthHandler(cfg, users, tokens, resolver, situations),
		Situations: handler.NewSituationHandler(machine, situations, declarations, rejections, catalog, resolver, gate),
		Validation: handler.NewValidationHandler(machine, situations, declarations, rejections, structures, users, resolver, gate),
		Dashboard:  handler.NewDashboardHandler(situations, declarations, structures, catalog, gate),
		Reports:    handler.NewReportHandler(situations, declarations, structures, catalog, gate, report.CSVGenerator{}),
		Admin:      handler.NewAdminHandler(cfg, users, structures, catalog),
	}
	router.Register(e, h, cfg, users, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
