package main

import (
	"fmt"

	"pcbuilder/internal/infra/db"
	infraRepo "pcbuilder/internal/infra/repository"
	"pcbuilder/internal/seed"
	"pcbuilder/internal/usecase"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the Postgres tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		gdb, err := db.Connect(cfg)
		if err != nil {
			return err
		}
		if err := db.Migrate(gdb); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		log.Info("migrate done")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed <catalog.yaml>",
	Short: "Load products and users from a YAML catalog",
	Long: `Load products and users from a YAML catalog.

Products whose name already exists and users whose email already exists
are skipped, so the command can be run repeatedly.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		catalog, err := seed.LoadFile(args[0])
		if err != nil {
			return err
		}

		gdb, err := db.Connect(cfg)
		if err != nil {
			return err
		}
		if err := db.Migrate(gdb); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		res, err := seed.Apply(
			cmd.Context(),
			catalog,
			infraRepo.NewProductGormRepository(gdb),
			infraRepo.NewUserGormRepository(gdb),
			usecase.NewBcryptPasswordHasher(bcrypt.DefaultCost),
		)
		if err != nil {
			return err
		}

		log.Info("seed done",
			zap.Int("products_created", res.ProductsCreated),
			zap.Int("products_skipped", res.ProductsSkipped),
			zap.Int("users_created", res.UsersCreated),
			zap.Int("users_skipped", res.UsersSkipped),
		)
		return nil
	},
}
