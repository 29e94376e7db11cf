package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fractalmind-ai/tokenizerd/internal/config"
	"github.com/fractalmind-ai/tokenizerd/internal/hub"
	"github.com/fractalmind-ai/tokenizerd/internal/logging"
	"github.com/fractalmind-ai/tokenizerd/internal/server"
	"github.com/fractalmind-ai/tokenizerd/internal/tokenizer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(runWithContext(ctx, os.Args[1:], os.Stderr))
}

func runWithContext(ctx context.Context, args []string, out io.Writer) int {
	flags := flag.NewFlagSet("tokenizerd", flag.ContinueOnError)
	flags.SetOutput(out)
	configPath := flags.String("config", "./config.yaml", "path to config file")
	portOverride := flags.Int("port", 0, "override server port")
	verbose := flags.Bool("verbose", false, "enable verbose logging")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	logger := logging.NewWithWriter(out, *verbose)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(out, "failed to load config: %v\n", err)
		return 1
	}
	if *portOverride > 0 {
		cfg.Server.Port = *portOverride
	}

	cacheDir := cfg.Tokenizer.CacheDir
	if cacheDir == "" {
		cacheDir = hub.DefaultCacheDir()
	}
	client := hub.NewClient(cacheDir, logger)
	if cfg.Tokenizer.Endpoint != "" {
		client = client.WithEndpoint(cfg.Tokenizer.Endpoint)
	}
	if cfg.Tokenizer.AuthToken != "" {
		client = client.WithAuth(cfg.Tokenizer.AuthToken)
	}

	resolver := tokenizer.Resolver{
		LocalDir:       cfg.Tokenizer.LocalDir,
		DefaultRepo:    cfg.Tokenizer.DefaultRepo,
		ForceLocalOnly: cfg.Tokenizer.LocalOnly,
	}
	cache := tokenizer.NewCache(resolver, tokenizer.NewHubLoader(client), logger)

	srv, err := server.NewServer(cfg.Server, cache, resolver, logger)
	if err != nil {
		fmt.Fprintf(out, "failed to initialize server: %v\n", err)
		return 1
	}

	if err := srv.Start(ctx); err != nil {
		fmt.Fprintf(out, "server error: %v\n", err)
		if err := srv.Stop(); err != nil {
			fmt.Fprintf(out, "server shutdown error: %v\n", err)
		}
		return 1
	}

	if err := srv.Stop(); err != nil {
		fmt.Fprintf(out, "server shutdown error: %v\n", err)
		return 1
	}

	return 0
}
