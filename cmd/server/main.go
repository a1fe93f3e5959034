// Command server runs the nsulife session server.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"nsulife/internal/config"
	"nsulife/internal/logger"
	"nsulife/internal/network"
	"nsulife/internal/services/cluster"
	"nsulife/internal/services/events"
	"nsulife/internal/session"

	"github.com/rs/zerolog"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.LoadServer(*envFile)
	if err != nil {
		boot := logger.New("info", true)
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := cluster.NewHealthAggregator()

	var pub events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		np, err := events.ConnectNATS(cfg.NATSURL, cfg.ServiceName, logger.Component(log, "events"))
		if err != nil {
			log.Warn().Err(err).Msg("running without event publishing")
		} else {
			defer np.Close()
			pub = np
			health.AddCheck("nats", np.Healthy)
		}
	}

	registry := session.NewRegistry(cfg.Rules.MaxPlayers)
	handler := session.NewGameHandler(cfg.Rules, registry, pub, logger.Component(log, "session"))
	defer handler.Close()
	server := network.NewServer(handler, logger.Component(log, "server"))

	serveDone := make(chan error, 1)
	go func() { serveDone <- server.Listen(ctx, cfg.Addr) }()
	select {
	case err := <-serveDone:
		log.Fatal().Err(err).Str("addr", cfg.Addr).Msg("bind failed")
	case <-server.Ready():
	}

	var httpSrv *http.Server
	if cfg.HTTPAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", health.Handler())
		mux.HandleFunc("/livez", cluster.LivenessHandler(cfg.ServiceName))
		mux.HandleFunc("/lobby", handler.LobbyHandler())
		mux.HandleFunc("/ws", server.ServeWS)
		httpSrv = &http.Server{Addr: cfg.HTTPAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("addr", cfg.HTTPAddr).Msg("http server")
			}
		}()
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http endpoints up")
	}

	if cfg.ConsulAddr != "" {
		if deregister := register(cfg, log); deregister != nil {
			defer func() {
				if err := deregister(); err != nil {
					log.Warn().Err(err).Msg("consul deregistration")
				}
			}()
		}
	}

	log.Info().
		Int("max_players", cfg.Rules.MaxPlayers).
		Int("min_to_start", cfg.Rules.MinPlayersToStart).
		Int("max_turns", cfg.Rules.MaxTurns).
		Msg("session server ready")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}
	if err := <-serveDone; err != nil {
		log.Error().Err(err).Msg("serve")
	}
}

// register announces the server in Consul. Failures are not fatal.
func register(cfg *config.Server, log zerolog.Logger) func() error {
	clog := logger.Component(log, "cluster")
	client, err := cluster.NewConsulClient(cfg.ConsulAddr, clog)
	if err != nil {
		clog.Warn().Err(err).Msg("running without consul")
		return nil
	}
	port, err := portOf(cfg.Addr)
	if err != nil {
		clog.Warn().Err(err).Msg("cannot register")
		return nil
	}
	healthPort, err := portOf(cfg.HTTPAddr)
	if err != nil {
		clog.Warn().Err(err).Msg("cannot register without http endpoint")
		return nil
	}
	deregister, err := cluster.RegisterService(client, cluster.Registration{
		ServiceName: cfg.ServiceName,
		Port:        port,
		HealthPort:  healthPort,
		Tags:        []string{"tcp", "ws"},
	}, clog)
	if err != nil {
		clog.Warn().Err(err).Msg("consul registration")
		return nil
	}
	return deregister
}

func portOf(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(p)
}
