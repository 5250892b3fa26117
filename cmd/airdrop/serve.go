package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/config"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/metrics"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/server"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/whitelist"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve a proofs file over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "proofs",
				Usage: "Proofs file written by 'tree build --out'",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "HTTP server port",
				EnvVars: []string{config.EnvAirdropPort},
			},
			&cli.StringSliceFlag{
				Name:    "trusted-proxy",
				Usage:   "IP or CIDR of a reverse proxy whose X-Forwarded-For is honoured (repeatable)",
				EnvVars: []string{config.EnvAirdropTrustedProxies},
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}
	if c.IsSet("trusted-proxy") {
		cfg.Server.TrustedProxies = c.StringSlice("trusted-proxy")
	}
	if c.IsSet("proofs") {
		cfg.Server.ProofsFile = c.String("proofs")
	}
	if cfg.Server.ProofsFile == "" {
		return fmt.Errorf("a proofs file is required (--proofs or server.proofsFile)")
	}

	proofs, err := whitelist.LoadProofsFile(cfg.Server.ProofsFile)
	if err != nil {
		return err
	}
	if err := proofs.Verify(); err != nil {
		return fmt.Errorf("refusing to serve inconsistent proofs file: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv, err := server.NewServer(&server.Config{
		Port:            cfg.Server.Port,
		Proofs:          proofs,
		Metrics:         metrics.New(reg),
		Gatherer:        reg,
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		TrustedProxies:  cfg.Server.TrustedProxies,
	}, l)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	l.Sugar().Infow("Proof server running", "port", cfg.Server.Port, "chain", cfg.ChainName)
	l.Sugar().Infow("Available endpoints",
		"root", "GET /root",
		"proof", "GET /proof/{account}",
		"health", "GET /healthz",
		"metrics", "GET /metrics")

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	l.Sugar().Info("Shutting down proof server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
