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
	"github.com/fractalmind-ai/tokenizerd/internal/logging"
	"github.com/fractalmind-ai/tokenizerd/internal/pinproxy"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(runWithContext(ctx, os.Args[1:], os.Stderr))
}

func runWithContext(ctx context.Context, args []string, out io.Writer) int {
	flags := flag.NewFlagSet("pinproxyd", flag.ContinueOnError)
	flags.SetOutput(out)
	configPath := flags.String("config", "./config.yaml", "path to config file")
	portOverride := flags.Int("port", 0, "override proxy port")
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
		cfg.Pin.Port = *portOverride
	}

	srv, err := pinproxy.NewServer(cfg.Pin, logger)
	if err != nil {
		fmt.Fprintf(out, "failed to initialize proxy: %v\n", err)
		return 1
	}

	if err := srv.Start(ctx); err != nil {
		fmt.Fprintf(out, "proxy error: %v\n", err)
		if err := srv.Stop(); err != nil {
			fmt.Fprintf(out, "proxy shutdown error: %v\n", err)
		}
		return 1
	}

	if err := srv.Stop(); err != nil {
		fmt.Fprintf(out, "proxy shutdown error: %v\n", err)
		return 1
	}

	return 0
}
