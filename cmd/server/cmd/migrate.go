package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"replikeep/internal/infrastructure/migration"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Управление схемой базы данных",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Применить новые миграции",
	RunE: func(cmd *cobra.Command, _ []string) error {
		mg, err := newMigration()
		if err != nil {
			return err
		}
		if err := mg.Up(); err != nil {
			return err
		}
		log.Info("migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Откатить все миграции",
	RunE: func(cmd *cobra.Command, _ []string) error {
		mg, err := newMigration()
		if err != nil {
			return err
		}
		if err := mg.Down(); err != nil {
			return err
		}
		log.Info("migrations rolled back")
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Показать версию схемы",
	RunE: func(cmd *cobra.Command, _ []string) error {
		mg, err := newMigration()
		if err != nil {
			return err
		}
		version, dirty, err := mg.Version()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %v)\n", version, dirty)
		return nil
	},
}

func newMigration() (*migration.Migration, error) {
	if cfg.DB.DatabaseURI == "" {
		return nil, errors.New("DATABASE_URI is required")
	}
	return migration.NewMigration(cfg.DB.Migrations, cfg.DB.DatabaseURI, nil), nil
}
