package main

import (
	"fmt"

	"github.com/devlog-app/backend/internal/database"
	"github.com/devlog-app/backend/internal/logger"
	"github.com/devlog-app/backend/internal/seed"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed [dev|test|clean]",
	Short: "Seed the database with development or test data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize("info", ""); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer logger.Close()

		if err := database.Initialize(); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()

		if err := database.Migrate(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		seeder := seed.NewSeeder(database.DB)

		switch args[0] {
		case "dev":
			fmt.Println("🌱 Seeding development database...")
			if err := seeder.SeedDev(); err != nil {
				return err
			}
		case "test":
			fmt.Println("🌱 Seeding test database...")
			if err := seeder.SeedTest(); err != nil {
				return err
			}
		case "clean":
			fmt.Println("🧹 Removing all seed data...")
			if err := seeder.Clean(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown seed target %q (want dev, test or clean)", args[0])
		}

		fmt.Println("✅ Done")
		return nil
	},
}
