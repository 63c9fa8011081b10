package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"travelhub/internal/auth"
	"travelhub/internal/config"
	"travelhub/internal/db"
	"travelhub/internal/logger"
	"travelhub/internal/model"
	"travelhub/internal/repository"
)

// defaultModules is the catalogue a fresh install shows on the storefront.
var defaultModules = []model.Module{
	{Name: "hotels", Label: "Hotéis", Icon: "bed", Active: true, Order: 1, Config: model.ModuleConfig{
		Layout:  model.LayoutGrid,
		Filters: []string{"price", "stars", "city"},
		SEO:     model.ModuleSEO{Title: "Hotéis", Description: "Reserve hotéis com os melhores preços."},
	}},
	{Name: "flights", Label: "Voos", Icon: "plane", Active: true, Order: 2, Config: model.ModuleConfig{
		Layout:  model.LayoutList,
		Filters: []string{"price", "stops", "airline"},
		SEO:     model.ModuleSEO{Title: "Voos", Description: "Passagens aéreas nacionais e internacionais."},
	}},
	{Name: "cars", Label: "Carros", Icon: "car", Active: true, Order: 3, Config: model.ModuleConfig{
		Layout:  model.LayoutGrid,
		Filters: []string{"price", "category"},
	}},
	{Name: "tours", Label: "Passeios", Icon: "map", Active: false, Order: 4, Config: model.ModuleConfig{
		Layout: model.LayoutMap,
	}},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	gormDB, err := db.NewMySQL(ctx, cfg.MySQLDSN)
	if err != nil {
		log.Fatal("connect to database", zap.Error(err))
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal("run migrations", zap.Error(err))
	}
	log.Info("database migrations completed")

	email := strings.ToLower(strings.TrimSpace(os.Getenv("SEED_ADMIN_EMAIL")))
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email != "" && password != "" {
		created, err := seedAdmin(ctx, repository.NewUserRepository(gormDB), auth.NewPasswordHasher(auth.DefaultBcryptCost), email, password)
		if err != nil {
			log.Fatal("seed admin", zap.Error(err))
		}
		log.Info("admin user", zap.String("email", email), zap.Bool("created", created))
	} else {
		log.Info("SEED_ADMIN_EMAIL or SEED_ADMIN_PASSWORD unset, skipping admin user")
	}

	created, err := seedModules(ctx, repository.NewModuleRepository(gormDB), defaultModules)
	if err != nil {
		log.Fatal("seed modules", zap.Error(err))
	}
	log.Info("seed completed", zap.Int("modules_created", created), zap.Int("modules_total", len(defaultModules)))
}

// seedAdmin creates the admin account unless the email is already registered.
func seedAdmin(ctx context.Context, users repository.UserRepository, hasher *auth.PasswordHasher, email, password string) (bool, error) {
	_, err := users.FindByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("check admin %s: %w", email, err)
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return false, err
	}
	admin := &model.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Active:       true,
	}
	if err := users.Create(ctx, admin); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}

// seedModules inserts each module whose name is not taken yet. Existing rows are left alone.
func seedModules(ctx context.Context, repo repository.ModuleRepository, modules []model.Module) (int, error) {
	created := 0
	for i := range modules {
		m := modules[i]
		_, err := repo.FindByName(ctx, m.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, fmt.Errorf("check module %s: %w", m.Name, err)
		}
		if err := repo.Create(ctx, &m); err != nil {
			return created, fmt.Errorf("create module %s: %w", m.Name, err)
		}
		created++
	}
	return created, nil
}
