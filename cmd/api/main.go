package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpadp "p2p-credit-origination/internal/adapter/http"
	ledgeradp "p2p-credit-origination/internal/adapter/ledger"
	marketadp "p2p-credit-origination/internal/adapter/marketplace"
	appmw "p2p-credit-origination/internal/adapter/middleware"
	"p2p-credit-origination/internal/adapter/repository/memory"
	"p2p-credit-origination/internal/adapter/repository/mysql"
	"p2p-credit-origination/internal/config"
	"p2p-credit-origination/internal/domain/marketplace"
	"p2p-credit-origination/internal/domain/pool"
	"p2p-credit-origination/internal/domain/pricing"
	"p2p-credit-origination/internal/infrastructure/cache"
	"p2p-credit-origination/internal/infrastructure/db"
	"p2p-credit-origination/internal/infrastructure/logger"
	"p2p-credit-origination/internal/infrastructure/metrics"
	"p2p-credit-origination/internal/infrastructure/scheduler"
	fundinguc "p2p-credit-origination/internal/usecase/funding"
	loanuc "p2p-credit-origination/internal/usecase/loan"
	pooluc "p2p-credit-origination/internal/usecase/pool"
	"p2p-credit-origination/internal/usecase/origination"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.AppEnv)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.OpenGorm(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return err
	}
	if cfg.AutoMigrate {
		if err := mysql.Migrate(gdb); err != nil {
			return err
		}
	}
	rdb, err := cache.OpenRedis(ctx, cache.RedisOptions{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	defer rdb.Close()

	table := pricing.DefaultTable()
	if cfg.PricingTablePath != "" {
		if table, err = pricing.LoadTable(cfg.PricingTablePath); err != nil {
			return err
		}
	}
	calc, err := pricing.NewCalculator(table)
	if err != nil {
		return err
	}

	pools := mysql.NewPoolRepository(gdb)
	if cfg.PoolSeedPath != "" {
		seed, err := pool.LoadSeed(cfg.PoolSeedPath)
		if err != nil {
			return err
		}
		n, err := pool.Seed(ctx, pools, seed)
		if err != nil {
			return err
		}
		log.Info("pools seeded", zap.Int("created", n), zap.Int("in_file", len(seed)))
	}

	var claimer marketplace.Claimer = marketadp.NewMemoryClaimer()
	if cfg.ClaimerBackend == config.ClaimerRedis {
		claimer = marketadp.NewRedisClaimer(rdb, cfg.ListingRetention+cfg.MarketplaceTimeout)
	}
	board := marketadp.NewBoard(claimer, cfg.ListingRetention, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	loans := mysql.NewLoanRepository(gdb)
	fundings := mysql.NewFundingRepository(gdb)

	engCfg := origination.DefaultConfig()
	engCfg.Rules = calc.Rules()
	engCfg.MarketplaceTimeout = cfg.MarketplaceTimeout
	engCfg.Relist = cfg.MarketplaceRelist
	engCfg.MaxRelists = cfg.MaxRelists
	engCfg.MaxMatchRounds = cfg.MaxMatchRounds
	engine := origination.NewEngine(engCfg, origination.Deps{
		Pricer:  calc,
		Pools:   pools,
		Market:  board,
		Store:   memory.NewAttemptStore(),
		UoW:     mysql.NewGormUoW(gdb),
		Ledger:  ledgeradp.NewLogLedger(log),
		Logger:  log,
		Metrics: metrics.NewPrometheus(reg),
	})
	if n, err := engine.ResumeActive(ctx); err != nil {
		return err
	} else if n > 0 {
		log.Info("resumed attempts", zap.Int("count", n))
	}

	janitor, err := scheduler.NewJanitor(cfg.JanitorSpec, board, log)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.Logger(), middleware.Recover())
	httpadp.Register(e, httpadp.Handlers{
		Credit:   httpadp.NewCreditHandler(engine),
		Market:   httpadp.NewMarketplaceHandler(board),
		Pools:    httpadp.NewPoolHandler(pooluc.NewUsecase(pools)),
		Loans:    httpadp.NewLoanHandler(loanuc.NewUsecase(loans, fundings)),
		Fundings: httpadp.NewFundingHandler(fundinguc.NewUsecase(fundings)),
	}, metrics.Handler(reg), appmw.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second, log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.AppPort
		log.Info("listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return janitor.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := e.Shutdown(shutdownCtx)
		engine.Close()
		return err
	})
	return g.Wait()
}
