// Command tankbattle runs the tank battle simulator.
//
// Commands:
//  1. "serve" (default) runs the HTTP server exposing the REST API, the
//     spectator WebSocket and an /mcp HTTP endpoint
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none
//     is reachable
//  3. "play" runs one match locally and draws it in the terminal
//  4. "version" prints the version
//
// Settings come from tankbattle.{yaml,json,toml}, TANKBATTLE_* environment
// variables and a .env file; flags override all of them.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/tankbattle/api"
	"github.com/wricardo/mcp-training/tankbattle/game/config"
	"github.com/wricardo/mcp-training/tankbattle/game/service"
	"github.com/wricardo/mcp-training/tankbattle/game/session"
	"github.com/wricardo/mcp-training/tankbattle/game/store"
	"github.com/wricardo/mcp-training/tankbattle/logging"
	"github.com/wricardo/mcp-training/tankbattle/settings"
	"github.com/wricardo/mcp-training/tankbattle/transport/mcp"
	"github.com/wricardo/mcp-training/tankbattle/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Tank Battle Server"
)

const (
	sessionCleanupInterval = time.Hour
	filesystemSyncInterval = 5 * time.Second
	shutdownTimeout        = 10 * time.Second
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "tankbattle",
		Usage:   "discrete-turn tank combat on a grid",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "settings file (yaml, json or toml)",
				Sources: cli.EnvVars("TANKBATTLE_CONFIG"),
			},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "boards-dir", Usage: "directory containing board files", Sources: cli.EnvVars("BOARDS_DIR")},
			&cli.StringFlag{Name: "sessions-dir", Usage: "directory for persisted matches"},
			&cli.StringFlag{Name: "results-db", Usage: "SQLite file for finished match results (empty keeps them in memory)"},
			&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP server port"},
			&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server with REST API, WebSocket and MCP endpoint",
				Action: runServe,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "run an MCP stdio server",
				Action:  runStdioMCP,
			},
			playCommand(),
			{
				Name:  "version",
				Usage: "print the version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Fprintf(cmd.Root().Writer, "%s v%s\n", AppName, Version)
					return nil
				},
			},
		},
	}
}

// loadSettings reads settings and applies the flags that were set
func loadSettings(cmd *cli.Command) (*settings.Settings, error) {
	cfg, err := settings.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("boards-dir") {
		cfg.BoardsDir = cmd.String("boards-dir")
	}
	if cmd.IsSet("sessions-dir") {
		cfg.SessionsDir = cmd.String("sessions-dir")
	}
	if cmd.IsSet("results-db") {
		cfg.ResultsDB = cmd.String("results-db")
	}
	if cmd.IsSet("host") {
		cfg.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Server.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("ngrok") {
		cfg.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-auth") {
		cfg.Ngrok.AuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		cfg.Ngrok.Domain = cmd.String("ngrok-domain")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// services bundles everything a server process owns
type services struct {
	game        service.GameService
	sessions    *session.Manager
	persistence *session.FilePersistence
	boards      *config.Manager
	results     *store.Store
}

func (s *services) Close() error {
	var errs []error
	if err := s.sessions.SaveAllSessions(); err != nil {
		errs = append(errs, err)
	}
	if err := s.results.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// initializeServices wires boards, match persistence, the results store and
// the game service. Turns are published to publisher when it is not nil.
func initializeServices(cfg *settings.Settings, logger *log.Logger, publisher service.TurnPublisher) (*services, error) {
	boards, err := config.NewManager(cfg.BoardsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create board manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(cfg.SessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create match persistence: %w", err)
	}

	sessions := session.NewManagerWithPersistence(persistence, session.WithLogger(logger))
	if err := sessions.LoadPersistedSessions(); err != nil {
		logger.Warn("failed to load persisted matches", "error", err)
	}

	results, err := store.Open(cfg.ResultsDB)
	if err != nil {
		return nil, err
	}

	opts := []service.Option{
		service.WithResultStore(results),
		service.WithLogger(logger),
		service.WithDefaultRules(cfg.Rules.Rules()),
	}
	if publisher != nil {
		opts = append(opts, service.WithPublisher(publisher))
	}

	return &services{
		game:        service.NewGameService(sessions, boards, opts...),
		sessions:    sessions,
		persistence: persistence,
		boards:      boards,
		results:     results,
	}, nil
}

// sessionCleanupRoutine drops matches idle for longer than maxAge from memory
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, maxAge time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				logger.Info("cleaned up expired matches", "count", removed)
			}
		}
	}
}

// filesystemSyncRoutine removes matches from memory once their file has been
// deleted from disk
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, logger *log.Logger) {
	ticker := time.NewTicker(filesystemSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := syncWithFilesystem(manager, persistence); pruned > 0 {
				logger.Info("filesystem sync pruned orphaned matches", "count", pruned)
			}
		}
	}
}

func syncWithFilesystem(manager *session.Manager, persistence session.SessionPersistence) int {
	pruned := 0
	for _, s := range manager.List() {
		if !persistence.Exists(s.ID) {
			if err := manager.DeleteFromMemory(s.ID); err == nil {
				pruned++
			}
		}
	}
	return pruned
}

// mcpHandler forwards JSON-RPC bodies posted to /mcp to the MCP server
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	}
}

func newRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	router := http.NewServeMux()
	router.Handle("/", apiServer)
	router.HandleFunc("/mcp", mcpHandler(mcpClient))
	return router
}

// runServe starts the HTTP server and, when enabled, an ngrok tunnel. It
// blocks until SIGINT or SIGTERM.
func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)
	if cfg.ConfigFileUsed != "" {
		logger.Info("loaded settings", "file", cfg.ConfigFileUsed)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub(logger.With("component", "websocket"))
	go hub.Run(ctx)

	svcs, err := initializeServices(cfg, logger, hub)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if err := svcs.Close(); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	go sessionCleanupRoutine(ctx, svcs.sessions, cfg.SessionMaxAge, logger)
	go filesystemSyncRoutine(ctx, svcs.sessions, svcs.persistence, logger)

	addr := cfg.Server.Addr()
	apiServer := api.NewServer(svcs.game, hub, logger.With("component", "api"))
	router := newRouter(apiServer, mcp.NewClient("http://"+addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("starting", "app", AppName, "version", Version)
	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("HTTP server listening", "addr", addr,
			"api", "http://"+addr+"/api",
			"websocket", "ws://"+addr+"/ws?match=<match_id>",
			"mcp", "http://"+addr+"/mcp")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if cfg.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cfg.Ngrok, router, logger)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		stop()
		wg.Wait()
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", "error", err)
	}

	wg.Wait()
	logger.Info("server stopped")
	return nil
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, cfg settings.NgrokSettings, handler http.Handler, logger *log.Logger) {
	if cfg.AuthToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "error", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", "error", err)
		}
	}()

	url := tun.URL()
	logger.Info("ngrok tunnel established", "url", url,
		"api", url+"/api", "websocket", url+"/ws?match=<match_id>", "mcp", url+"/mcp")

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error("ngrok server error", "error", err)
	}
	logger.Info("ngrok tunnel closed")
}

// runStdioMCP serves MCP over stdio. It reuses an API already listening on
// the configured address, otherwise it starts an internal one on a random
// loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	// stdout carries the protocol
	logger := logging.New(os.Stderr, cfg.LogLevel)

	externalURL := "http://" + cfg.Server.Addr()
	baseURL := externalURL

	probe := &http.Client{Timeout: 2 * time.Second}
	resp, err := probe.Get(externalURL + "/api/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		logger.Info("using external API server", "url", externalURL)
	} else {
		if err == nil {
			resp.Body.Close()
		}
		svcs, err := initializeServices(cfg, logger, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer svcs.Close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		internal := &http.Server{Handler: api.NewServer(svcs.game, nil, logger)}
		go func() {
			if err := internal.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", "error", err)
			}
		}()
		defer internal.Close()

		baseURL = "http://" + listener.Addr().String()
		logger.Info("started internal API server", "url", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready")
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
