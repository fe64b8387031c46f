package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/auragrid/auragrid-server-go/internal/auth"
	"github.com/auragrid/auragrid-server-go/internal/config"
	"github.com/auragrid/auragrid-server-go/internal/match"
	"github.com/auragrid/auragrid-server-go/internal/match/ability"
	"github.com/auragrid/auragrid-server-go/internal/match/queue"
	"github.com/auragrid/auragrid-server-go/internal/match/rules"
	"github.com/auragrid/auragrid-server-go/internal/repository"
	"github.com/auragrid/auragrid-server-go/internal/server"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting auragrid server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Persistence is optional; without a database URL the server runs
	// matches in memory only.
	var matchRepo *repository.MatchRepository
	if cfg.Database.URL != "" {
		db, dbErr := repository.NewDB(ctx, cfg.Database, logger)
		if dbErr != nil {
			logger.Fatal("failed to connect to database", zap.Error(dbErr))
		}
		defer db.Close()
		if schemaErr := db.EnsureSchema(ctx); schemaErr != nil {
			logger.Fatal("failed to ensure schema", zap.Error(schemaErr))
		}
		matchRepo = repository.NewMatchRepository(db)
		logger.Info("persistence enabled")
	} else {
		logger.Warn("no database configured; match results will not be persisted")
	}

	catalog := ability.DefaultCatalog()
	if cfg.Match.CatalogPath != "" {
		catalog, err = ability.LoadCatalog(cfg.Match.CatalogPath)
		if err != nil {
			logger.Fatal("failed to load ability catalog",
				zap.String("path", cfg.Match.CatalogPath),
				zap.Error(err),
			)
		}
		logger.Info("ability catalog loaded",
			zap.String("path", cfg.Match.CatalogPath),
			zap.Int("abilities", catalog.Len()),
		)
	}

	manager := match.NewManager(tuningFromConfig(cfg.Match), catalog, logger)
	tokens := auth.NewTokenStore(cfg.Auth.BcryptCost)

	var recorder *match.Recorder
	if cfg.Replay.Enabled {
		recorder = match.NewRecorder(cfg.Replay.Dir, logger)
		logger.Info("replay recording enabled", zap.String("dir", cfg.Replay.Dir))
	}

	go runTickLoop(ctx, cfg.Server.TickRate, manager, matchRepo, recorder, tokens, logger)

	gateway := server.NewGateway(cfg.Server, manager, tokens, logger)
	go func() {
		if gwErr := gateway.Run(ctx); gwErr != nil {
			logger.Error("gateway error", zap.Error(gwErr))
		}
	}()

	logger.Info("auragrid server initialized",
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
		zap.Int("max_sessions", cfg.Server.MaxSessions),
		zap.Duration("tick_rate", cfg.Server.TickRate),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	cancel()

	logger.Info("auragrid server stopped")
}

// runTickLoop drives every session at the configured rate and handles
// finished matches: persist the outcome, flush the replay, drop the
// session.
func runTickLoop(
	ctx context.Context,
	rate time.Duration,
	manager *match.Manager,
	repo *repository.MatchRepository,
	recorder *match.Recorder,
	tokens *auth.TokenStore,
	logger *zap.Logger,
) {
	if rate <= 0 {
		rate = 100 * time.Millisecond
	}
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			delta := now.Sub(last).Seconds()
			last = now

			for _, s := range manager.TickAll(delta) {
				_, winner := s.Finished()
				if repo != nil {
					result := repository.MatchResult{
						MatchID: s.ID,
						Winner:  winner,
						Turns:   s.Machine().TurnNumber(),
					}
					if err := repo.SaveResult(ctx, result); err != nil {
						logger.Error("failed to persist match result",
							zap.String("match_id", s.ID),
							zap.Error(err),
						)
					}
				}
				if recorder != nil {
					recorder.Record(s)
					if err := recorder.Save(s.ID); err != nil {
						logger.Error("failed to save replay",
							zap.String("match_id", s.ID),
							zap.Error(err),
						)
					}
				}
				tokens.Revoke(s.ID)
				manager.Remove(s.ID)
			}
		}
	}
}

func tuningFromConfig(mc config.MatchConfig) match.Tuning {
	return match.Tuning{
		BoardWidth:             mc.BoardWidth,
		BoardHeight:            mc.BoardHeight,
		PlayerAuraMax:          mc.PlayerAuraMax,
		PlayerAuraRegen:        mc.PlayerAuraRegen,
		UnitAuraMax:            mc.UnitAuraMax,
		MaxActivationsPerPhase: mc.MaxActivationsPerPhase,
		Quotas: queue.Quotas{
			GlobalMoves: mc.GlobalMoveQuota,
			PlayerMoves: mc.PlayerMoveQuota,
		},
		Budgets: rules.PhaseBudgets{
			Opening:  mc.OpeningBudgetSeconds,
			Movement: mc.MovementBudgetSeconds,
			Aura:     mc.AuraBudgetSeconds,
		},
	}
}

// initLogger builds the zap logger from configuration.
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
