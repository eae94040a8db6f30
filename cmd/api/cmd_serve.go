package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"pcbuilder/internal/advisor"
	"pcbuilder/internal/cart"
	"pcbuilder/internal/config"
	"pcbuilder/internal/events"
	"pcbuilder/internal/handler"
	"pcbuilder/internal/infra/db"
	infraRepo "pcbuilder/internal/infra/repository"
	"pcbuilder/internal/server"
	"pcbuilder/internal/usecase"
	"pcbuilder/internal/validator"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not run AutoMigrate on startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//DB接続
	gdb, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if !skipMigrate {
		if err := db.Migrate(gdb); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gdb)
	productRepo := infraRepo.NewProductGormRepository(gdb)
	buildRepo := infraRepo.NewSavedBuildGormRepository(gdb)
	auditRepo := infraRepo.NewAuditLogGormRepository(gdb)
	cartStorage := infraRepo.NewStorageGormRepository(gdb)

	adv, err := newAdvisor(ctx, cfg, log)
	if err != nil {
		return err
	}

	//チェックアウト通知（RABBITMQ_URLがある時だけ）
	var notifier usecase.CheckoutNotifier
	if cfg.RabbitMQURL != "" {
		conn, err := events.Dial(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer func() { _ = conn.Close() }()

		pub, err := events.NewPublisher(conn)
		if err != nil {
			return err
		}
		defer func() { _ = pub.Close() }()
		notifier = pub
		log.Info("checkout events enabled", zap.String("exchange", events.EventsExchange))
	}

	//Usecase生成
	carts := cart.NewRegistry(cartStorage, log.Named("cart"),
		cart.WithMaxSessions(cfg.CartMaxSessions),
		cart.WithIdleTimeout(cfg.CartIdleTimeout),
	)
	// 放置されたカートをメモリから外す（保存データは残る）
	go carts.RunJanitor(ctx, time.Minute)
	cartUC := usecase.NewCartUsecase(carts, productRepo, notifier, log)
	productUC := usecase.NewProductUsecase(productRepo, auditRepo, adv, log)
	authUC := usecase.NewAuthUsecase(
		cfg,
		userRepo,
		auditRepo,
		validator.NewAuthValidator(userRepo),
		usecase.NewBcryptPasswordHasher(bcrypt.DefaultCost),
		log,
	)
	builderUC := usecase.NewBuilderUsecase(productRepo, buildRepo, cartUC, adv, log)

	//Handler生成
	e := server.New(cfg, log, userRepo, server.Handlers{
		Product:      handler.NewProductHandler(productUC),
		Cart:         handler.NewCartHandler(cartUC),
		Auth:         handler.NewAuthHandler(authUC),
		Builder:      handler.NewBuilderHandler(builderUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		AdminUser:    handler.NewAdminUserHandler(cfg, userRepo, authUC),
	})

	return server.Start(ctx, e, cfg.Addr(), log)
}

// GEMINI_API_KEY > CHAT_URL > オフラインの相談ルール の順で使う
func newAdvisor(ctx context.Context, cfg config.Config, log *zap.Logger) (advisor.Advisor, error) {
	switch {
	case cfg.GeminiAPIKey != "":
		g, err := advisor.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		log.Info("advisor: gemini", zap.String("model", cfg.GeminiModel))
		return g, nil
	case cfg.ChatURL != "":
		log.Info("advisor: local chat", zap.String("url", cfg.ChatURL))
		return advisor.NewLocalChat(cfg.ChatURL, nil), nil
	default:
		log.Info("advisor: offline rules")
		return advisor.NewRules(), nil
	}
}
