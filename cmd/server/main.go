package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/foxxcyber/pantry-assist/internal/config"
	"github.com/foxxcyber/pantry-assist/internal/database"
	"github.com/foxxcyber/pantry-assist/internal/handlers"
	"github.com/foxxcyber/pantry-assist/internal/logger"
	"github.com/foxxcyber/pantry-assist/internal/matching"
	"github.com/foxxcyber/pantry-assist/internal/metrics"
	"github.com/foxxcyber/pantry-assist/internal/middleware"
	"github.com/foxxcyber/pantry-assist/internal/services"
	"github.com/foxxcyber/pantry-assist/internal/usage"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := config.Load()

	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: cfg.IsDevelopment(),
	})
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	if err := database.EnsureAdminUser(ctx, db, cfg); err != nil {
		log.Warn("could not ensure admin user", zap.Error(err))
	}

	m := metrics.New()

	store, closeStore, err := openUsageStore(ctx, cfg, db, log)
	if err != nil {
		log.Fatal("failed to open usage store", zap.Error(err))
	}
	defer closeStore()

	ledger := usage.NewLedger(store,
		usage.WithLocation(cfg.UsageLocation()),
		usage.WithLogger(log),
	)

	if cfg.UsageStore == config.UsageStorePostgres {
		go pruneUsage(ctx, db, ledger, cfg.UsageRetention, log)
	}

	encryptionKey := services.DeriveEncryptionKey(cfg.JWTSecret)
	llm := newLLMClient(ctx, cfg, db, encryptionKey, log)

	// Substitutions come from the model when one is configured, the
	// built-in rules answer otherwise and whenever the model fails
	var suggester matching.Suggester = matching.NewStaticSuggester()
	var extractor services.IngredientExtractor = services.NewIngredientListParser()
	if llm != nil {
		suggester = services.NewLLMSuggester(llm, suggester)
		extractor = services.NewRecipeExtractor(llm)
	}

	analyzer := matching.NewAnalyzer(matching.NewResolver(
		matching.NewFuzzyMatcher(cfg.MatchThreshold),
		suggester,
	))
	catalog := matching.NewCatalogResolver(db, log)

	analysis := services.NewAnalysisService(services.AnalysisServiceConfig{
		Store:     db,
		Limits:    db,
		Ledger:    ledger,
		Analyzer:  analyzer,
		Extractor: extractor,
		Metrics:   m,
		Logger:    log,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    12 * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(requestLogger(log))
	app.Use(m.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.AllowedOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + middleware.RequestIDHeader,
		AllowMethods:  "GET, POST, PUT, DELETE, OPTIONS",
		ExposeHeaders: middleware.RequestIDHeader,
	}))

	h := handlers.New(db, cfg, log, catalog, analysis, ledger)
	settingsHandler := handlers.NewSettingsHandler(db, cfg, log)
	receiptHandler := newReceiptHandler(ctx, cfg, db, catalog, ledger, m, h, log)

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := db.Pool.Ping(c.Context()); err != nil {
			return handlers.Error(c, fiber.StatusServiceUnavailable, "database unavailable")
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", m.Handler())

	api := app.Group("/api")
	auth := middleware.AuthRequired(cfg)

	// Auth routes (public)
	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", h.Register)
	authRoutes.Post("/login", h.Login)
	authRoutes.Get("/me", auth, h.GetCurrentUser)
	authRoutes.Post("/refresh", auth, h.RefreshToken)

	// Dietary profile
	profile := api.Group("/profile", auth)
	profile.Get("/", h.GetProfile)
	profile.Put("/", h.UpdateProfile)
	profile.Put("/password", h.ChangePassword)
	api.Get("/restrictions", h.GetRestrictionOptions)

	// Catalog (public read)
	api.Get("/units", h.ListUnits)
	products := api.Group("/products")
	products.Get("/", h.ListProducts)
	products.Get("/search", h.SearchProducts)
	products.Get("/match", h.MatchProduct)
	products.Get("/suggest-unit", h.SuggestUnit)
	products.Get("/:id", h.GetProduct)

	// Pantry
	inventory := api.Group("/inventory", auth)
	inventory.Get("/", h.ListInventoryItems)
	inventory.Post("/", h.CreateInventoryItem)
	inventory.Get("/locations", h.GetInventoryLocations)
	inventory.Get("/:id", h.GetInventoryItem)
	inventory.Put("/:id", h.UpdateInventoryItem)
	inventory.Delete("/:id", h.DeleteInventoryItem)
	inventory.Post("/:id/adjust", h.AdjustInventoryQuantity)

	// Metered operations
	api.Post("/substitutions/analyze", auth, h.AnalyzeSubstitutions)
	api.Get("/usage", auth, h.GetUsage)
	api.Post("/recipes/parse", h.ParseRecipe)

	if receiptHandler != nil {
		receipts := api.Group("/receipts", auth)
		receipts.Post("/upload", receiptHandler.UploadReceipt)
		receipts.Get("/", receiptHandler.ListReceipts)
		receipts.Get("/:id", receiptHandler.GetReceipt)
		receipts.Post("/:id/confirm", receiptHandler.ConfirmReceipt)
		receipts.Delete("/:id", receiptHandler.DeleteReceipt)
		receipts.Get("/:id/image", receiptHandler.GetReceiptImage)
	}

	// Admin routes (admin only)
	admin := api.Group("/admin", auth, middleware.AdminRequired())
	admin.Get("/users", h.AdminListUsers)
	admin.Get("/users/:id", h.AdminGetUser)
	admin.Put("/users/:id", h.AdminUpdateUser)
	admin.Delete("/users/:id", h.AdminDeleteUser)
	admin.Get("/stats", h.AdminGetStats)

	admin.Post("/products", h.CreateProduct)
	admin.Delete("/products/:id", h.DeleteProduct)

	admin.Get("/settings", settingsHandler.GetAllSettings)
	admin.Get("/settings/:category", settingsHandler.GetSettingsByCategory)
	admin.Put("/settings/:category", settingsHandler.UpdateSettings)
	admin.Delete("/settings/keys/:key", settingsHandler.ResetSetting)
	admin.Get("/limits", settingsHandler.GetUsageLimits)
	admin.Put("/limits", settingsHandler.UpdateUsageLimits)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	}()

	log.Info("server starting",
		zap.String("port", cfg.Port),
		zap.String("usage_store", cfg.UsageStore),
		zap.Bool("llm", llm != nil),
		zap.Bool("receipts", receiptHandler != nil),
	)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

// openUsageStore picks the daily usage backend. The returned func releases it.
func openUsageStore(ctx context.Context, cfg *config.Config, db *database.DB, log *zap.Logger) (usage.Store, func(), error) {
	switch cfg.UsageStore {
	case config.UsageStoreRedis:
		client, err := usage.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		return usage.NewRedisStore(client, cfg.UsageRetention, log), func() { client.Close() }, nil

	case config.UsageStoreBadger:
		store, err := usage.OpenBadgerStore(cfg.BadgerDir, cfg.UsageRetention, log)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil

	case config.UsageStorePostgres, "":
		return db, func() {}, nil
	}
	return nil, nil, errors.New("unknown USAGE_STORE " + cfg.UsageStore)
}

// pruneUsage drops postgres usage rows older than the retention window, once
// at startup and then daily.
func pruneUsage(ctx context.Context, db *database.DB, ledger *usage.Ledger, retention time.Duration, log *zap.Logger) {
	if retention <= 0 {
		return
	}

	prune := func() {
		cutoff := ledger.RetentionCutoff(retention)
		n, err := db.PruneDailyUsage(ctx, cutoff)
		if err != nil {
			log.Warn("failed to prune daily usage", zap.Error(err))
			return
		}
		if n > 0 {
			log.Info("pruned daily usage", zap.Int64("rows", n), zap.String("before", cutoff), zap.String("today", ledger.Today()))
		}
	}

	prune()
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}

// newLLMClient returns nil when no API key is configured. A key stored in
// the admin settings overrides the environment.
func newLLMClient(ctx context.Context, cfg *config.Config, db *database.DB, encryptionKey []byte, log *zap.Logger) *services.LLMClient {
	apiKey, model := cfg.OpenAIAPIKey, cfg.OpenAIModel
	ai := db.GetAIConfig(ctx, encryptionKey)
	if ai.APIKey != "" {
		apiKey = ai.APIKey
	}
	if ai.Model != "" {
		model = ai.Model
	}
	if apiKey == "" {
		log.Info("no LLM configured, using built-in substitutions and ingredient parsing")
		return nil
	}
	return services.NewLLMClient(apiKey, cfg.OpenAIBaseURL, model, cfg.LLMTimeout, log)
}

// newReceiptHandler wires the scan pipeline. Receipts are disabled, not
// fatal, when storage or OCR cannot be set up.
func newReceiptHandler(ctx context.Context, cfg *config.Config, db *database.DB, catalog *matching.CatalogResolver, ledger *usage.Ledger, m *metrics.Metrics, h *handlers.Handler, log *zap.Logger) *handlers.ReceiptHandler {
	if cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
		log.Info("S3 credentials not configured, receipt scanning disabled")
		return nil
	}

	storage, err := services.NewStorageService(services.StorageConfig{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
	}, log)
	if err != nil {
		log.Warn("failed to initialize storage service", zap.Error(err))
		return nil
	}
	if err := storage.EnsureBucket(ctx); err != nil {
		log.Warn("failed to ensure S3 bucket exists", zap.String("bucket", storage.BucketName()), zap.Error(err))
	}

	ocr, err := services.NewOCRService(cfg.OCRLanguage)
	if err != nil {
		log.Warn("failed to initialize OCR service", zap.Error(err))
		return nil
	}

	scanner := services.NewReceiptService(services.ReceiptServiceConfig{
		Store:   db,
		Storage: storage,
		OCR:     ocr,
		Matcher: services.NewReceiptLineMatcher(catalog, log),
		Limits:  db,
		Ledger:  ledger,
		Metrics: m,
		Logger:  log,
	})
	h.PurgeImagesWith(storage)

	log.Info("receipt scanning initialized", zap.String("bucket", storage.BucketName()))
	return handlers.NewReceiptHandler(db, storage, scanner, log)
}

// requestLogger logs one line per request with the request id
func requestLogger(log *zap.Logger) fiber.Handler {
	log = log.Named("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		fields := []zap.Field{
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
		return err
	}
}
