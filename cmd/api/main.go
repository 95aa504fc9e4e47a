// @title           Group Buy API
// @version         1.0
// @description     Referral-driven three-member group purchases for a Telegram Mini App
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Shakha99/backend-repo/internal/catalog"
	"github.com/Shakha99/backend-repo/internal/config"
	"github.com/Shakha99/backend-repo/internal/database"
	"github.com/Shakha99/backend-repo/internal/server"
	"github.com/Shakha99/backend-repo/pkg/logging"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "groupbuy",
		Short:         "Group buy backend for the Telegram Mini App",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration, configures logging and opens the store
func setup() (*config.Config, *database.DB, error) {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logging.Setup(cfg.LogLevel)

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("Connected to database", "driver", cfg.DatabaseDriver)

	return cfg, db, nil
}

// prepare applies the schema and seeds the catalog product
func prepare(ctx context.Context, cfg *config.Config, db *database.DB, catalogService *catalog.Service) error {
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	price, err := decimal.NewFromString(cfg.Product.Price)
	if err != nil {
		return fmt.Errorf("invalid PRODUCT_PRICE: %w", err)
	}
	discounted, err := decimal.NewFromString(cfg.Product.DiscountedPrice)
	if err != nil {
		return fmt.Errorf("invalid PRODUCT_DISCOUNTED_PRICE: %w", err)
	}

	seeded, err := catalogService.SeedIfEmpty(ctx, db, &catalog.Product{
		Name:            cfg.Product.Name,
		Price:           price,
		DiscountedPrice: discounted,
	})
	if err != nil {
		return err
	}
	if seeded {
		slog.Info("Seeded catalog", "product", cfg.Product.Name, "price", discounted)
	}
	return nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the expiry sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app := server.NewApp(cfg, db, nil)
			if err := prepare(ctx, cfg, db, app.Catalog); err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return server.New(":"+cfg.Port, app.Handler).ListenAndServe(ctx)
			})
			g.Go(func() error {
				return app.Groups.RunSweeper(ctx, cfg.SweepInterval)
			})
			return g.Wait()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema and seed the catalog product",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup()
			if err != nil {
				return err
			}
			defer db.Close()

			app := server.NewApp(cfg, db, nil)
			if err := prepare(cmd.Context(), cfg, db, app.Catalog); err != nil {
				return err
			}
			fmt.Println("Migration complete")
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Close every forming group past its deadline once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup()
			if err != nil {
				return err
			}
			defer db.Close()

			app := server.NewApp(cfg, db, nil)
			closed, err := app.Groups.SweepExpired(cmd.Context())
			fmt.Printf("Closed %d expired groups\n", closed)
			return err
		},
	}
}
