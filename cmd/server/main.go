// Command server runs the Farcaster agent: it receives Neynar cast webhooks,
// generates replies and serves the operator read API.
//
// @title           go-cast-agent API
// @version         1.0
// @description     Farcaster mention/reply agent: webhook ingestion and operator read API.
// @BasePath        /
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-cast-agent/internal/actions"
	"github.com/tbourn/go-cast-agent/internal/cache"
	"github.com/tbourn/go-cast-agent/internal/config"
	"github.com/tbourn/go-cast-agent/internal/conversation"
	"github.com/tbourn/go-cast-agent/internal/farcaster"
	"github.com/tbourn/go-cast-agent/internal/generation"
	httpapi "github.com/tbourn/go-cast-agent/internal/http"
	"github.com/tbourn/go-cast-agent/internal/knowledge"
	"github.com/tbourn/go-cast-agent/internal/llm"
	"github.com/tbourn/go-cast-agent/internal/observability"
	"github.com/tbourn/go-cast-agent/internal/repo"
	"github.com/tbourn/go-cast-agent/internal/services"
	"github.com/tbourn/go-cast-agent/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, os.Stdout)
	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, ver); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg config.Config, ver string) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	p := cfg.Pipeline
	character, err := services.LoadCharacterFile(cfg.CharacterPath, p.AgentHandle)
	if err != nil {
		return err
	}
	characters := services.NewCharacterStore(character)

	kb, err := knowledge.Load(cfg.KnowledgePath)
	if err != nil {
		return err
	}

	model, err := llm.New(cfg.LLM)
	if err != nil {
		return err
	}
	fc := farcaster.New(cfg.Farcaster)

	dedup, err := cache.NewDedupCache(p.CacheTimeout, p.DedupMaxEntries)
	if err != nil {
		return err
	}
	claims, err := cache.NewClaimCache(p.ActionClaimTimeout)
	if err != nil {
		return err
	}

	registry := actions.NewRegistry()
	registry.Register("IGNORE", actions.Ignore)
	registry.Register("REPLY", actions.ReplyNow)

	store := services.NewGormStore(db)
	webhook := &services.WebhookService{
		Dedup:     dedup,
		Store:     store,
		History:   conversation.NewAggregator(fc),
		Generator: generation.NewOrchestrator(model, p.MaxGenerationAttempts, p.MaxReplyLength),
		Resolver: &actions.Coordinator{
			Publisher: fc,
			Claims:    claims,
			Durable:   store,
			Memory:    store,
			Stage:     registry,
		},
		Characters:         characters,
		Knowledge:          kb,
		ActionNames:        registry.Names,
		AgentFID:           p.AgentFID,
		ConversationBudget: p.ConversationBudget,
		MaxReplyLength:     p.MaxReplyLength,
	}
	interactions := services.NewInteractionService(db, services.GormInteractionRepo{})

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, cfg, webhook, interactions)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", ver).
			Str("agent_fid", strconv.FormatInt(p.AgentFID, 10)).
			Str("character", character.Name).
			Int("knowledge_paragraphs", kb.Len()).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		reloadCharacter(gctx, cfg.CharacterPath, p.AgentHandle, characters)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// reloadCharacter swaps in a freshly read character file on SIGHUP until ctx
// is done. Requests in flight keep the character they started with.
func reloadCharacter(ctx context.Context, path, handle string, store *services.CharacterStore) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			c, err := services.LoadCharacterFile(path, handle)
			if err != nil {
				log.Error().Err(err).Str("path", path).Msg("character reload failed")
				continue
			}
			store.Swap(c)
			log.Info().Str("character", c.Name).Msg("character reloaded")
		}
	}
}
