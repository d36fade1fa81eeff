// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/the-line/internal/config"
	"github.com/the-line/internal/database"
)

var (
	configPath = flag.String("config", "./config/line.yaml", "Path to the YAML config file")
	orgs       = flag.String("orgs", "", "Comma separated organization names to create")
	admins     = flag.String("admins", "", "Comma separated administrators as id:name:phone")
)

type adminSeed struct {
	id    int64
	name  string
	phone string
}

func parseAdmins(raw string) ([]adminSeed, error) {
	var out []adminSeed
	for _, item := range splitList(raw) {
		parts := strings.SplitN(item, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("admin %q: expected id:name:phone", item)
		}
		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("admin %q: invalid id: %w", item, err)
		}
		out = append(out, adminSeed{id: id, name: parts[1], phone: parts[2]})
	}
	return out, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func main() {
	flag.Parse()

	adminSeeds, err := parseAdmins(*admins)
	if err != nil {
		log.Fatalf("Invalid -admins: %v", err)
	}

	cfg, _, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.MaxOpenConns)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	store, err := database.NewStore(ctx, db, cfg.Database.Driver)
	if err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	fmt.Printf("🌱 Seeding %s database\n", cfg.Database.Driver)

	for _, name := range splitList(*orgs) {
		id, err := store.EnsureOrganization(ctx, name)
		if err != nil {
			log.Fatalf("Failed to create organization %q: %v", name, err)
		}
		fmt.Printf("✓ organization %d: %s\n", id, name)
	}

	for _, a := range adminSeeds {
		if err := store.UpsertUser(ctx, a.id, a.name, a.phone); err != nil {
			log.Fatalf("Failed to create user %d: %v", a.id, err)
		}
		if err := store.SetAdmin(ctx, a.id, true); err != nil {
			log.Fatalf("Failed to promote user %d: %v", a.id, err)
		}
		fmt.Printf("✓ administrator %d: %s\n", a.id, a.name)
	}

	fmt.Println("✅ Seeding complete")
}
