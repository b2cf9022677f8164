package admin

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/Voralis/grantly/internal/config"
	"github.com/Voralis/grantly/internal/database"
	"github.com/Voralis/grantly/internal/domain/client"
	"github.com/Voralis/grantly/internal/domain/user"
	"github.com/Voralis/grantly/internal/migrations"
)

// Command implements the admin management command
type Command struct{}

func (c *Command) Name() string {
	return "admin"
}

func (c *Command) Description() string {
	return "Administration tasks (init-root)"
}

func (c *Command) Run(args []string) error {
	if len(args) < 1 {
		c.printUsage()
		return fmt.Errorf("subcommand required")
	}

	subcmd := args[0]
	switch subcmd {
	case "init-root":
		return c.runInitRoot(args[1:])
	default:
		c.printUsage()
		return fmt.Errorf("unknown subcommand: %s", subcmd)
	}
}

func (c *Command) printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: grantly-cli admin <subcommand> [args]\n\n")
	fmt.Fprintf(os.Stderr, "Subcommands:\n")
	fmt.Fprintf(os.Stderr, "  init-root   Initialize the root user and the dashboard client\n")
}

func (c *Command) runInitRoot(args []string) error {
	fs := flag.NewFlagSet("init-root", flag.ExitOnError)
	email := fs.String("email", "", "Root user email")
	password := fs.String("password", "", "Root user password")
	username := fs.String("username", "admin", "Root user username")
	redirectURIs := fs.String("redirect-uris", "", "Comma-separated redirect URIs for the dashboard client")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated browser origins for the dashboard client")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" || *password == "" {
		return fmt.Errorf("email and password are required")
	}

	// Load config
	envConfig := config.LoadEnv()
	cfg, err := config.Load(envConfig.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Connect to database
	if err := database.ConnectDB(cfg); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run migrations
	if err := migrations.RunMigrations(cfg); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	userRepo := user.NewRepository(database.DB)

	rootUser, err := userRepo.FindByUsername(*username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		slog.Info("Creating root user...", "username", *username)

		hash, err := user.HashPassword(*password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		rootUser = &user.User{
			Username: *username,
			Email:    *email,
			Password: hash,
			IsActive: true,
		}
		if err := userRepo.Create(rootUser); err != nil {
			return fmt.Errorf("failed to create root user: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to look up root user: %w", err)
	} else {
		slog.Info("Root user already exists, skipping", "username", *username)
	}

	clientRepo := client.NewRepository(database.DB)

	dashboard, err := clientRepo.FindByClientID(client.DashboardClientID)
	if errors.Is(err, client.ErrClientNotFound) {
		slog.Info("Creating dashboard client...")

		dashboard = &client.Client{
			ClientID:      client.DashboardClientID,
			ClientName:    "Grantly Dashboard",
			ClientSecret:  uuid.New().String(), // Generate random secret
			ClientType:    client.TypeClient,
			Official:      true,
			Active:        true,
			OwnerID:       rootUser.ID,
			RedirectURIs:  splitList(*redirectURIs),
			AllowedScopes: pq.StringArray{"openid", "profile", "email"},
			CORSOrigins:   splitList(*corsOrigins),
		}
		if err := clientRepo.Create(dashboard); err != nil {
			return fmt.Errorf("failed to create dashboard client: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to look up dashboard client: %w", err)
	} else {
		slog.Info("Dashboard client already exists, updating configuration if provided...")

		updates := map[string]any{}
		if uris := splitList(*redirectURIs); len(uris) > 0 {
			updates["redirect_uris"] = uris
		}
		if origins := splitList(*corsOrigins); len(origins) > 0 {
			updates["cors_origins"] = origins
		}

		if len(updates) > 0 {
			if err := database.DB.Model(dashboard).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update dashboard client: %w", err)
			}
			slog.Info("Dashboard client updated")
		}
	}

	slog.Info("Initialization complete", "user", rootUser.Username, "client_id", dashboard.ClientID)
	return nil
}

func splitList(raw string) pq.StringArray {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
