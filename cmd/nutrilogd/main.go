package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"nutrilog/internal/auth"
	"nutrilog/internal/config"
	"nutrilog/internal/cooldown"
	"nutrilog/internal/db"
	"nutrilog/internal/food"
	"nutrilog/internal/history"
	httpx "nutrilog/internal/http"
	"nutrilog/internal/jobs"
	"nutrilog/internal/logger"
	"nutrilog/internal/nutrition"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.Env)
	defer func() { _ = log.Sync() }()

	gdb, err := db.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("connect database", zap.Error(err))
	}
	if err := db.AutoMigrateAndIndexes(gdb, cfg.StoreBackend == config.BackendPostgres); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var docs nutrition.Store = &nutrition.GormStore{DB: gdb}
	if cfg.StoreBackend == config.BackendFirestore {
		fs, err := firestore.NewClient(ctx, cfg.FirestoreProject)
		if err != nil {
			log.Fatal("firestore client", zap.Error(err))
		}
		defer fs.Close()
		docs = nutrition.NewFirestoreStore(fs)
	}
	log.Info("nutrition store", zap.String("backend", cfg.StoreBackend))

	validate := validator.New()
	jobsRepo := &jobs.Repo{DB: gdb}
	svc := nutrition.NewService(docs, cooldown.New(cfg.SyncCooldown), jobsRepo, validate, log.Named("nutrition"))

	catalog, err := food.LoadCatalog()
	if err != nil {
		log.Fatal("load food catalog", zap.Error(err))
	}
	usda := food.NewUSDA(food.USDAConfig{
		APIKey:   cfg.USDAAPIKey,
		BaseURL:  cfg.USDABaseURL,
		CacheTTL: cfg.CatalogCacheTTL,
	}, log.Named("usda"))
	barcodes := food.NewBarcodes(food.BarcodeConfig{BaseURL: cfg.OpenFoodFactsURL}, log.Named("barcode"))

	historyRepo := &history.Repo{DB: gdb}
	refresher := &history.Refresher{Docs: docs, Summaries: historyRepo, Now: time.Now}

	worker := &jobs.Worker{
		ID:    "worker-1",
		Queue: jobsRepo,
		Handlers: map[string]jobs.Handler{
			jobs.TypeSummaryRefresh: refresher.Handle,
		},
		Interval: cfg.WorkerPollInterval,
		Log:      log.Named("worker"),
	}
	go worker.Run(ctx)

	r := httpx.NewRouter(httpx.Deps{
		Config:    cfg,
		JWT:       auth.NewJWT(cfg.JWTSecret),
		Users:     &auth.GormUsers{DB: gdb},
		Nutrition: svc,
		Catalog:   catalog,
		USDA:      usda,
		Barcodes:  barcodes,
		History:   historyRepo,
		Validate:  validate,
		Log:       log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
}
