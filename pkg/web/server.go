// Package web serves the page that asks gridscout to find things.
package web

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
)

const maxRuns = 50

// Run is one /execute request, kept for the page's history list.
type Run struct {
	ID       string        `json:"id"`
	Time     string        `json:"time"`
	Input    string        `json:"input"`
	Status   string        `json:"status"`
	Output   string        `json:"output,omitempty"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Config holds server settings.
type Config struct {
	Addr      string // Listen address, e.g. ":5000"
	StaticDir string // Served at /
	Runner    Runner
	Logger    *slog.Logger
	AccessLog bool // Log every request through fiber's logger middleware
}

// DefaultConfig listens on :5000 and serves ./web.
func DefaultConfig() Config {
	return Config{
		Addr:      ":5000",
		StaticDir: "./web",
		Runner:    DefaultRunner(),
		Logger:    slog.Default(),
	}
}

// Server is the HTTP front end.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	// One run at a time; the camera is not shared.
	runMu sync.Mutex

	runs   []Run
	runsMu sync.RWMutex
}

// NewServer creates the fiber app and registers routes.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Runner == nil {
		cfg.Runner = DefaultRunner()
	}

	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "web"),
		runs:   make([]Run, 0, maxRuns),
	}

	app := fiber.New(fiber.Config{
		AppName:               "gridscout",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format:     "${time} ${status} ${method} ${path} ${latency}\n",
			TimeFormat: "15:04:05",
			Output:     os.Stderr,
		}))
	}

	app.Post("/execute", s.handleExecute)

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/runs", s.handleRuns)

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens until the app is shut down.
func (s *Server) Start() error {
	s.logger.Info("web server listening", "addr", s.cfg.Addr)
	return s.app.Listen(s.cfg.Addr)
}

// Shutdown stops the server, waiting for in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// ExecuteRequest is the body of POST /execute.
type ExecuteRequest struct {
	InputValue *string `json:"input_value"`
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "fail",
		"message": message,
	})
}

// handleExecute runs gridscout for the submitted target.
func (s *Server) handleExecute(c *fiber.Ctx) error {
	var req ExecuteRequest
	if err := c.BodyParser(&req); err != nil || req.InputValue == nil || strings.TrimSpace(*req.InputValue) == "" {
		return fail(c, fiber.StatusBadRequest, "No input provided")
	}
	input := *req.InputValue

	s.runMu.Lock()
	start := time.Now()
	res, err := s.cfg.Runner.Run(c.UserContext(), input)
	elapsed := time.Since(start)
	s.runMu.Unlock()

	run := Run{
		Time:     start.Format("15:04:05"),
		Input:    input,
		Duration: elapsed,
	}

	var exitErr *ExitError
	switch {
	case errors.As(err, &exitErr):
		msg := exitErr.Result.Stderr
		if msg == "" {
			msg = "An error occurred."
		}
		run.Status, run.Message = "fail", msg
		s.record(run)
		s.logger.Warn("run failed", "input", input, "exit_code", exitErr.Result.ExitCode, "elapsed", elapsed)
		return fail(c, fiber.StatusInternalServerError, msg)

	case err != nil:
		run.Status, run.Message = "fail", err.Error()
		s.record(run)
		s.logger.Error("run error", "input", input, "error", err)
		return fail(c, fiber.StatusInternalServerError, err.Error())
	}

	run.Status, run.Output = "success", res.Stdout
	s.record(run)
	s.logger.Info("run complete", "input", input, "elapsed", elapsed)

	return c.JSON(fiber.Map{
		"status": "success",
		"output": res.Stdout,
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleRuns returns recent runs, newest last.
func (s *Server) handleRuns(c *fiber.Ctx) error {
	s.runsMu.RLock()
	defer s.runsMu.RUnlock()
	return c.JSON(s.runs)
}

func (s *Server) record(run Run) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	run.ID = uuid.NewString()
	s.runs = append(s.runs, run)
	if len(s.runs) > maxRuns {
		s.runs = s.runs[len(s.runs)-maxRuns:]
	}
}
