package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/tankbattle/api"
	"github.com/wricardo/mcp-training/tankbattle/game/engine"
	"github.com/wricardo/mcp-training/tankbattle/game/service"
	"github.com/wricardo/mcp-training/tankbattle/game/session"
	"github.com/wricardo/mcp-training/tankbattle/game/store"
	"github.com/wricardo/mcp-training/tankbattle/logging"
	"github.com/wricardo/mcp-training/tankbattle/settings"
	"github.com/wricardo/mcp-training/tankbattle/transport/mcp"
)

const duelBoard = "7 3\n#######\n#1   2#\n#######\n"

func testSettings(t *testing.T) *settings.Settings {
	t.Helper()
	boards := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(boards, "duel.txt"), []byte(duelBoard), 0644))

	cfg, err := settings.Load("")
	require.NoError(t, err)
	cfg.BoardsDir = boards
	cfg.SessionsDir = t.TempDir()
	cfg.ResultsDB = ""
	return cfg
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "1.0.0", Version)
	assert.Equal(t, "Tank Battle Server", AppName)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	require.NoError(t, app.Run(context.Background(), []string{"tankbattle", "version"}))
	assert.Equal(t, "Tank Battle Server v1.0.0\n", out.String())
}

func TestCommands(t *testing.T) {
	app := newApp()
	for _, name := range []string{"serve", "mcp", "play", "version"} {
		assert.NotNil(t, app.Command(name), name)
	}
}

func TestLoadSettings_FlagsOverride(t *testing.T) {
	boards := t.TempDir()
	var cfg *settings.Settings

	app := newApp()
	app.Action = func(ctx context.Context, cmd *cli.Command) error {
		var err error
		cfg, err = loadSettings(cmd)
		return err
	}

	err := app.Run(context.Background(), []string{
		"tankbattle",
		"--port", "9191",
		"--host", "0.0.0.0",
		"--boards-dir", boards,
		"--log-level", "debug",
		"--ngrok-domain", "tanks.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9191", cfg.Server.Addr())
	assert.Equal(t, boards, cfg.BoardsDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "tanks.example.com", cfg.Ngrok.Domain)
}

func TestLoadSettings_InvalidPort(t *testing.T) {
	app := newApp()
	app.Action = func(ctx context.Context, cmd *cli.Command) error {
		_, err := loadSettings(cmd)
		return err
	}
	err := app.Run(context.Background(), []string{"tankbattle", "--port", "70000"})
	assert.Error(t, err)
}

func TestInitializeServices(t *testing.T) {
	cfg := testSettings(t)

	svcs, err := initializeServices(cfg, logging.Discard(), nil)
	require.NoError(t, err)
	defer svcs.Close()

	info, err := svcs.game.CreateMatch(context.Background(), service.MatchSpec{Board: "duel"})
	require.NoError(t, err)
	assert.Equal(t, "duel", info.Board)

	_, err = os.Stat(filepath.Join(cfg.SessionsDir, info.ID+".json"))
	assert.NoError(t, err, "match should be persisted")
}

func TestInitializeServices_InvalidBoardsDir(t *testing.T) {
	cfg := testSettings(t)
	cfg.BoardsDir = "/non/existent/boards"

	_, err := initializeServices(cfg, logging.Discard(), nil)
	assert.Error(t, err)
}

func TestSyncWithFilesystem(t *testing.T) {
	persistence, err := session.NewFilePersistence(t.TempDir())
	require.NoError(t, err)
	manager := session.NewManagerWithPersistence(persistence)

	board := &engine.Board{Name: "duel", Width: 7, Height: 3, Layout: []string{"#######", "#1   2#", "#######"}}
	_, err = manager.Create("kept", board, service.MatchSpec{}, engine.DefaultRules())
	require.NoError(t, err)
	_, err = manager.Create("gone", board, service.MatchSpec{}, engine.DefaultRules())
	require.NoError(t, err)

	require.NoError(t, persistence.Delete("gone"))

	assert.Equal(t, 1, syncWithFilesystem(manager, persistence))
	assert.Equal(t, 1, manager.Count())
	assert.Equal(t, 0, syncWithFilesystem(manager, persistence))
}

func TestRouter(t *testing.T) {
	cfg := testSettings(t)
	svcs, err := initializeServices(cfg, logging.Discard(), nil)
	require.NoError(t, err)
	defer svcs.Close()

	apiServer := api.NewServer(svcs.game, nil, logging.Discard())
	router := newRouter(apiServer, mcp.NewClient("http://127.0.0.1:0"))

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("mcp rejects GET", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("mcp lists tools", func(t *testing.T) {
		body := `{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "create_match")
	})
}

func TestLoadPlayBoard(t *testing.T) {
	cfg := testSettings(t)

	t.Run("from boards dir", func(t *testing.T) {
		board, err := loadPlayBoard(cfg, "duel")
		require.NoError(t, err)
		assert.Equal(t, 7, board.Width)
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tiny.board")
		require.NoError(t, os.WriteFile(path, []byte("3 1\n1 2\n"), 0644))
		board, err := loadPlayBoard(cfg, path)
		require.NoError(t, err)
		assert.Equal(t, "tiny", board.Name)
	})

	t.Run("missing board", func(t *testing.T) {
		_, err := loadPlayBoard(cfg, "nowhere")
		assert.Error(t, err)
	})

	t.Run("no boards dir falls back to built-in", func(t *testing.T) {
		missing := *cfg
		missing.BoardsDir = filepath.Join(t.TempDir(), "absent")
		board, err := loadPlayBoard(&missing, "")
		require.NoError(t, err)
		assert.Equal(t, "default", board.Name)
	})
}

func TestPlayASCII(t *testing.T) {
	cfg := testSettings(t)
	db := filepath.Join(t.TempDir(), "results.db")

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	err := app.Run(context.Background(), []string{
		"tankbattle",
		"--boards-dir", cfg.BoardsDir,
		"--results-db", db,
		"--log-level", "error",
		"play", "--ascii", "--p1", "idle", "--p2", "idle",
		"--max-turns", "3", "--delay", "0s", "--record",
		"duel",
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "#1   2#")
	assert.Contains(t, text, "tie (max_turns) after 3 turns: idle vs idle on duel")

	results, err := store.Open(db)
	require.NoError(t, err)
	defer results.Close()
	list, err := results.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, engine.Tie, list[0].Result)
}

func TestPlay_UnknownStrategy(t *testing.T) {
	cfg := testSettings(t)
	app := newApp()
	app.Writer = &bytes.Buffer{}

	err := app.Run(context.Background(), []string{
		"tankbattle", "--boards-dir", cfg.BoardsDir,
		"play", "--ascii", "--p1", "kamikaze", "duel",
	})
	assert.Error(t, err)
}
