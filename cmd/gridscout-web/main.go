// gridscout-web serves the find page and runs gridscout once per request.
package main

import (
	"context"
	"flag"
	stdlog "log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/teslashibe/gridscout/internal/log"
	"github.com/teslashibe/gridscout/pkg/web"
)

func main() {
	defaults := web.DefaultConfig()
	runner := web.DefaultRunner()

	addr := flag.String("addr", defaults.Addr, "Listen address")
	static := flag.String("static", defaults.StaticDir, "Directory served at /")
	command := flag.String("command", runner.Command, "Binary run for each request")
	args := flag.String("args", strings.Join(runner.Args, " "), "Arguments placed before the input")
	timeout := flag.Duration("timeout", runner.Timeout, "Maximum duration of one run")
	accessLog := flag.Bool("access-log", false, "Log every request")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	// Override from environment
	if port := os.Getenv("PORT"); port != "" && *addr == defaults.Addr {
		*addr = ":" + port
	}

	log.Init(log.Options{Level: *logLevel})

	runner.Command = *command
	runner.Args = strings.Fields(*args)
	runner.Timeout = *timeout

	srv := web.NewServer(web.Config{
		Addr:      *addr,
		StaticDir: *static,
		Runner:    runner,
		Logger:    log.L(),
		AccessLog: *accessLog,
	})

	go func() {
		if err := srv.Start(); err != nil {
			stdlog.Fatalf("❌ Server error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
}
