// cmd/tools/grant-issuer/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"resume-tailor/internal/access"
	"resume-tailor/internal/common/config"
	"resume-tailor/internal/common/database"
	"resume-tailor/internal/common/logger"
	"resume-tailor/internal/web"
)

var configPath string

func main() {
	issueCmd := flag.NewFlagSet("issue", flag.ExitOnError)
	pruneCmd := flag.NewFlagSet("prune", flag.ExitOnError)

	// Issue command flags
	hours := issueCmd.Int("hours", 0, "Grant duration in hours (default: access.grant_hours)")
	baseURL := issueCmd.String("base", "", "Base URL for the access link (default: app.public_url)")
	issueCmd.StringVar(&configPath, "config", "", "Path to config file (default: configs/config.yaml lookup)")

	// Prune command flags
	pruneCmd.StringVar(&configPath, "config", "", "Path to config file (default: configs/config.yaml lookup)")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "issue":
		issueCmd.Parse(os.Args[2:])
		if *hours < 0 {
			fmt.Println("Error: hours must be positive.")
			issueCmd.Usage()
			os.Exit(1)
		}
		link, grant, err := issue(*hours, *baseURL)
		if err != nil {
			fmt.Printf("Error issuing grant: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Token:   %s\n", grant.Token)
		fmt.Printf("Expires: %s\n", grant.ExpiresAt.Format(time.RFC3339))
		fmt.Printf("Link:    %s\n", link)

	case "prune":
		pruneCmd.Parse(os.Args[2:])
		n, err := prune()
		if err != nil {
			fmt.Printf("Error pruning grants: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Pruned %d expired grants.\n", n)

	case "help":
		fallthrough
	default:
		help()
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// openStore connects the backend the server is configured with. The memory
// backend is process-local, so grants minted here would never reach the
// server.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (access.Store, func(), error) {
	if cfg.Access.Backend == config.BackendMemory {
		return nil, nil, fmt.Errorf("the memory backend cannot be shared with a running server")
	}

	var backends access.Backends
	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	if cfg.Access.Backend == config.BackendPostgres {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, pg.Close)
		if err := pg.Ping(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
		backends.DB = pg.DB
	}
	if cfg.Access.Backend == config.BackendRedis {
		rdb, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, rdb.Close)
		backends.Redis = rdb.Client
	}

	store, err := access.NewStore(ctx, cfg.Access, backends, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return store, cleanup, nil
}

func issue(hours int, baseURL string) (string, *access.AccessGrant, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.NewStructured("warn", "console", "stderr")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, cleanup, err := openStore(ctx, cfg, log)
	if err != nil {
		return "", nil, err
	}
	defer cleanup()

	d := cfg.Access.GrantDuration()
	if hours > 0 {
		d = time.Duration(hours) * time.Hour
	}
	grant, err := access.Issue(ctx, store, cfg.Access.Backend, "cli", d)
	if err != nil {
		return "", nil, err
	}

	if baseURL == "" {
		baseURL = cfg.App.PublicURL
	}
	if baseURL == "" {
		baseURL = "http://localhost" + cfg.Server.Address
	}
	return web.AccessLink(baseURL, grant.Token), grant, nil
}

func prune() (int64, error) {
	cfg, err := loadConfig()
	if err != nil {
		return 0, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Access.Backend != config.BackendPostgres {
		return 0, fmt.Errorf("prune only applies to the postgres backend, %s expires grants itself", cfg.Access.Backend)
	}
	log := logger.NewStructured("warn", "console", "stderr")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, cleanup, err := openStore(ctx, cfg, log)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	return store.(*access.PostgresStore).Prune(ctx)
}

func help() {
	fmt.Println("Usage: grant-issuer <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  issue    Mint an access grant and print its link")
	fmt.Println("           -hours <n> -base <url> -config <path>")
	fmt.Println("  prune    Delete expired grants (postgres backend)")
	fmt.Println("           -config <path>")
	fmt.Println("  help     Show this help message")
}
