package main

import (
	"fmt"
	"log"
	"os"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/johnquangdev/focus-group-analyzer/internal/infrastructure/database"
	"github.com/johnquangdev/focus-group-analyzer/pkg/config"
)

var migrationsDir string

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the analysis report schema",
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			return database.AutoMigrate(db, migrationsDir)
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		return withDB(func(db *gorm.DB) error {
			log.Printf("🔄 Rolling back %d migration(s) from %s/ ...", steps, migrationsDir)
			n, err := database.Migrate(db, migrationsDir, migrate.Down, steps)
			if err != nil {
				return err
			}
			log.Printf("✅ Rolled back %d migration(s)", n)
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List applied migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			records, err := database.MigrationRecords(db)
			if err != nil {
				return fmt.Errorf("failed to read migration records: %w", err)
			}
			for _, r := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.AppliedAt.Format("2006-01-02 15:04:05"), r.Id)
			}
			return nil
		})
	},
}

func withDB(fn func(db *gorm.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		return err
	}
	defer database.CloseDB(db)
	return fn(db)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "dir", database.MigrationsDir, "directory holding the SQL migrations")
	downCmd.Flags().Int("steps", 1, "number of migrations to roll back")
	rootCmd.AddCommand(upCmd, downCmd, statusCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
