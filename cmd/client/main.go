// Command client is a headless player. It joins a session server (or plays
// alone) and takes its turns by walking to random places and doing things
// there until the day runs out.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nsulife/internal/client"
	"nsulife/internal/config"
	"nsulife/internal/game/turn"
	"nsulife/internal/logger"
	"nsulife/internal/services/cluster"

	"github.com/rs/zerolog"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.LoadClient(*envFile)
	if err != nil {
		boot := logger.New("info", true)
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SinglePlay {
		playAlone(ctx, cfg, log)
		return
	}
	playOnline(ctx, cfg, log)
}

func playAlone(ctx context.Context, cfg *config.Client, log zerolog.Logger) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b := newBot(cfg, nil, cancel, logger.Component(log, "bot"))
	orch := turn.New(cfg.Rules, nil, b, logger.Component(log, "turn"), turn.WithLocalAdvance())
	b.orch = orch

	orch.SetLocalPlayer(1)
	go orch.Run(ctx)
	go b.play(ctx)
	orch.SetTurn(1, 1, turn.KindTurn)

	<-ctx.Done()
}

func playOnline(ctx context.Context, cfg *config.Client, log zerolog.Logger) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resolve := staticAddr(cfg)
	if cfg.Host == "" && cfg.ConsulAddr != "" {
		cache := cluster.NewServiceCache(30*time.Second, func(service string) (string, error) {
			host, port, err := client.Discover(cfg.ConsulAddr, service, cfg.ServerID, logger.Component(log, "cluster"))
			if err != nil {
				return "", err
			}
			return joinHostPort(host, port), nil
		})
		defer cache.Stop()
		resolve = func() (string, int, error) {
			addr, err := cache.Discover(cfg.ServiceName)
			if err != nil {
				return "", 0, err
			}
			return cluster.SplitHostPort(addr)
		}
	}

	b := newBot(cfg, nil, cancel, logger.Component(log, "bot"))
	sess := client.New(b, logger.Component(log, "client"), client.WithMoveRate(cfg.MoveRate))
	b.sess = sess
	b.resolve = resolve

	orch := turn.New(cfg.Rules, sess, b, logger.Component(log, "turn"))
	b.orch = orch
	sess.SetTurnHandler(orch)

	if err := b.connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("cannot reach session server")
	}
	defer sess.Disconnect()

	go orch.Run(ctx)
	go b.play(ctx)

	<-ctx.Done()
	log.Info().Msg("bot stopped")
}

func staticAddr(cfg *config.Client) func() (string, int, error) {
	return func() (string, int, error) {
		host := cfg.Host
		if host == "" {
			host = "localhost"
		}
		return host, cfg.Port, nil
	}
}
