package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/tankbattle/game/engine"
	"github.com/wricardo/mcp-training/tankbattle/game/service"
	"github.com/wricardo/mcp-training/tankbattle/render"
)

var actionNames = []string{
	string(engine.MoveForward),
	string(engine.MoveBackward),
	string(engine.RotateLeftEighth),
	string(engine.RotateRightEighth),
	string(engine.RotateLeftQuarter),
	string(engine.RotateRightQuarter),
	string(engine.Shoot),
	string(engine.DoNothing),
}

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API at baseURL
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Tank Battle",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Tank Battle - MCP Interface

Two tanks fight on a grid, one turn at a time. Each turn both tanks pick an
action, then shells fly two cells. A tank dies when hit by a shell, when it
drives onto a mine, or when both tanks end up on the same cell.

Seats are driven by strategies (idle, scripted, manual, random, sniper,
evasive, hunter). Use the "manual" strategy to play a seat yourself with
play_turn.

AVAILABLE TOOLS:
- create_match, get_match, list_matches, reset_match
- cancel_backward: drop a tank's pending backward move
- game_state: board picture and tank status
- play_turn: one turn, with actions for manual seats - requires intent
- play_turns, run_match: let the strategies play
- match_history: the action log
- describe_cell: what is at (x, y)
- list_boards, list_strategies, standings
- game_instructions: full rules`),
	)

	c.registerTools()
}

func matchIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Match ID",
	}
}

func (c *Client) registerTools() {
	// Match management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_match",
		Description: "Create a new match on a board with a strategy for each seat",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"board": map[string]interface{}{
					"type":        "string",
					"description": "Board ID (optional, default board when empty)",
				},
				"player1": map[string]interface{}{
					"type":        "string",
					"description": "Strategy for tank 1 (default idle)",
				},
				"player2": map[string]interface{}{
					"type":        "string",
					"description": "Strategy for tank 2 (default idle)",
				},
				"seed": map[string]interface{}{
					"type":        "integer",
					"description": "Seed for random strategies",
				},
				"max_turns": map[string]interface{}{
					"type":        "integer",
					"description": "Turn limit override",
				},
			},
		},
	}, c.handleCreateMatch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_matches",
		Description: "List all matches",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListMatches)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_match",
		Description: "Get details of a specific match",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": matchIDProperty(),
			},
			Required: []string{"match_id"},
		},
	}, c.handleGetMatch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the board picture and the status of both tanks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": matchIDProperty(),
			},
			Required: []string{"match_id"},
		},
	}, c.handleGameState)

	// Turns
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "play_turn",
		Description: "Resolve one turn. Actions are only accepted for seats played by the manual strategy.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": matchIDProperty(),
				"player1": map[string]interface{}{
					"type":        "string",
					"enum":        actionNames,
					"description": "Action for tank 1",
				},
				"player2": map[string]interface{}{
					"type":        "string",
					"enum":        actionNames,
					"description": "Action for tank 2",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this turn (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"match_id"},
		},
	}, c.handlePlayTurn)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "play_turns",
		Description: "Resolve several turns, stopping early when the match ends",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": matchIDProperty(),
				"turns": map[string]interface{}{
					"type":        "integer",
					"description": "Number of turns to play",
				},
			},
			Required: []string{"match_id", "turns"},
		},
	}, c.handlePlayTurns)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run_match",
		Description: "Play the match to its end",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": matchIDProperty(),
			},
			Required: []string{"match_id"},
		},
	}, c.handleRunMatch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_match",
		Description: "Reset the match to turn 0",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": matchIDProperty(),
			},
			Required: []string{"match_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "cancel_backward",
		Description: "Cancel a tank's pending backward move before it starts",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": matchIDProperty(),
				"tank": map[string]interface{}{
					"type":        "integer",
					"description": "Tank id (1 or 2)",
				},
			},
			Required: []string{"match_id", "tank"},
		},
	}, c.handleCancelBackward)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "match_history",
		Description: "Get the action log of a match",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": matchIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
			},
			Required: []string{"match_id"},
		},
	}, c.handleHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Get the terrain and any tank or shell at a cell",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": matchIDProperty(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "X coordinate (column, 0-based)",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Y coordinate (row, 0-based)",
				},
			},
			Required: []string{"match_id", "x", "y"},
		},
	}, c.handleDescribeCell)

	// Catalog
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_boards",
		Description: "List available boards",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListBoards)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_strategies",
		Description: "List the strategies a seat can be played by",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListStrategies)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "standings",
		Description: "Win/loss table of strategies over recorded matches",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleStandings)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the full rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func matchPath(matchID string, parts ...string) string {
	return "/api/matches/" + url.PathEscape(matchID) + strings.Join(parts, "")
}

// Tool handlers

func (c *Client) handleCreateMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	spec := service.MatchSpec{
		Board:   stringArg(args, "board"),
		Player1: service.PlayerSpec{Strategy: stringArg(args, "player1")},
		Player2: service.PlayerSpec{Strategy: stringArg(args, "player2")},
	}
	if seed, ok := intArg(args, "seed"); ok {
		spec.Player1.Options.Seed = int64(seed)
		spec.Player2.Options.Seed = int64(seed) + 1
	}
	if maxTurns, ok := intArg(args, "max_turns"); ok && maxTurns > 0 {
		spec.Rules = &service.RuleOverrides{MaxTurns: service.Override(maxTurns)}
	}

	var match service.MatchInfo
	if err := c.apiCall(ctx, "POST", "/api/matches", spec, &match); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMatchInfo(&match)), nil
}

func (c *Client) handleListMatches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count   int                 `json:"count"`
		Matches []service.MatchInfo `json:"matches"`
	}
	if err := c.apiCall(ctx, "GET", "/api/matches", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Matches (%d):\n\n", response.Count)
	for _, m := range response.Matches {
		fmt.Fprintf(&b, "- %s on %s: %s vs %s, turn %d, %s\n",
			m.ID, m.Board, seatName(m.Player1), seatName(m.Player2), m.Turn, m.Status)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matchID := stringArg(arguments(request), "match_id")

	var match service.MatchInfo
	if err := c.apiCall(ctx, "GET", matchPath(matchID), nil, &match); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMatchInfo(&match)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matchID := stringArg(arguments(request), "match_id")

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", matchPath(matchID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handlePlayTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	matchID := stringArg(args, "match_id")

	// intent is only there to make the caller explain itself
	_ = stringArg(args, "intent")

	body := service.ManualActions{
		Player1: engine.Action(stringArg(args, "player1")),
		Player2: engine.Action(stringArg(args, "player2")),
	}

	var result service.TurnResult
	if err := c.apiCall(ctx, "POST", matchPath(matchID, "/turn"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatTurnResult(&result)), nil
}

func (c *Client) handlePlayTurns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	matchID := stringArg(args, "match_id")
	turns, ok := intArg(args, "turns")
	if !ok || turns < 1 {
		return mcp.NewToolResultError("turns must be a positive integer"), nil
	}

	var result service.TurnResult
	if err := c.apiCall(ctx, "POST", matchPath(matchID, "/turns"), map[string]int{"turns": turns}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatTurnResult(&result)), nil
}

func (c *Client) handleRunMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matchID := stringArg(arguments(request), "match_id")

	var result service.TurnResult
	if err := c.apiCall(ctx, "POST", matchPath(matchID, "/run"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatTurnResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matchID := stringArg(arguments(request), "match_id")

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", matchPath(matchID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleCancelBackward(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	matchID := stringArg(args, "match_id")
	tank, ok := intArg(args, "tank")
	if !ok {
		return mcp.NewToolResultError("tank is required"), nil
	}

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	path := matchPath(matchID, "/tanks/", fmt.Sprint(tank), "/cancel_backward")
	if err := c.apiCall(ctx, "POST", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	matchID := stringArg(args, "match_id")

	query := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		query.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", fmt.Sprint(limit))
	}
	path := matchPath(matchID, "/history")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	matchID := stringArg(args, "match_id")
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required integers"), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", matchPath(matchID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := describeCell(&state, x, y)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleListBoards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var boards []service.BoardInfo
	if err := c.apiCall(ctx, "GET", "/api/boards", nil, &boards); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Boards:\n\n")
	for _, board := range boards {
		wrap := ""
		if board.WrapAround {
			wrap = ", wraps around"
		}
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Grid: %dx%d%s\n\n",
			board.BoardID, board.Name, board.Description, board.Width, board.Height, wrap)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListStrategies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var strategies []service.StrategyInfo
	if err := c.apiCall(ctx, "GET", "/api/strategies", nil, &strategies); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Strategies:\n\n")
	for _, s := range strategies {
		fmt.Fprintf(&b, "• %s: %s\n", s.Name, s.Description)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleStandings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var rows []struct {
		service.Standing
		WinRate float64 `json:"win_rate"`
	}
	if err := c.apiCall(ctx, "GET", "/api/standings", nil, &rows); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(rows) == 0 {
		return mcp.NewToolResultText("No finished matches recorded yet."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %6s %5s %6s %5s %8s\n", "strategy", "played", "wins", "losses", "ties", "win rate")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-10s %6d %5d %6d %5d %7.1f%%\n",
			r.Strategy, r.Played, r.Wins, r.Losses, r.Ties, r.WinRate*100)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Tank Battle - Rules

TURNS:
• Both tanks decide at the same time from the board as it stood before the turn
• Tank 1 acts first, then tank 2, then every shell advances two cells

ACTIONS:
• move_forward: one cell along the facing
• move_backward: arms a backward step that runs two turns later and
  replaces that turn's action
• rotate_left_eighth / rotate_right_eighth: turn 45 degrees
• rotate_left_quarter / rotate_right_quarter: turn 90 degrees
• shoot: fire a shell along the facing, if loaded and off cooldown
• do_nothing

BOARD:
• # wall, = weak wall (a second hit clears it), @ mine, space is open ground
• Walls stop tanks and shells; each shell hit weakens a wall
• A tank that drives onto a mine is destroyed
• Some boards wrap around at the edges

END OF MATCH:
• A tank is destroyed: the other wins (both destroyed is a tie)
• Turn limit reached, or neither tank has shells left for too long

TIPS:
• describe_cell checks a single cell
• game_state shows the board: 1 and 2 are the tanks, o shells, x wrecks`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func seatName(p service.PlayerSpec) string {
	if p.Strategy == "" {
		return "idle"
	}
	return p.Strategy
}

func formatMatchInfo(match *service.MatchInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Match: %s\nBoard: %s\nPlayers: %s vs %s\nCreated: %s\n",
		match.ID, match.Board, seatName(match.Player1), seatName(match.Player2),
		match.CreatedAt.Format("2006-01-02 15:04:05"))
	if match.GameState != nil {
		b.WriteString("\n")
		b.WriteString(formatGameState(match.GameState))
	}
	return b.String()
}

func formatGameState(state *engine.GameState) string {
	if state == nil || state.Grid == nil {
		return "No game state available"
	}
	return formatSnapshot(engine.NewSnapshot(state))
}

func formatSnapshot(snap engine.Snapshot) string {
	var b strings.Builder
	for _, row := range render.Frame(snap) {
		b.WriteString("|" + row + "|\n")
	}
	b.WriteString("\n")
	for _, t := range snap.Tanks {
		state := "alive"
		if !t.Alive {
			state = "DESTROYED"
		}
		fmt.Fprintf(&b, "Tank %d: %s at %s facing %s, shells %d, cooldown %d\n",
			t.ID, state, t.Position, t.Facing, t.Shells, t.Cooldown)
	}
	fmt.Fprintf(&b, "Turn: %d | Shells in flight: %d\n", snap.Turn, countActive(snap.Shells))
	if snap.Outcome != nil {
		fmt.Fprintf(&b, "\nMATCH OVER: %s\n", snap.Outcome)
	}
	return b.String()
}

func countActive(shells []engine.Shell) int {
	n := 0
	for _, s := range shells {
		if s.Active {
			n++
		}
	}
	return n
}

func formatTurnResult(result *service.TurnResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Played %d turn(s), now at turn %d\n", result.TurnsPlayed, result.Turn)
	if result.Truncated {
		fmt.Fprintf(&b, "(capped at %d turns per call)\n", result.Limit)
	}

	entries := result.Entries
	const maxLines = 20
	if len(entries) > maxLines {
		fmt.Fprintf(&b, "... %d earlier actions omitted\n", len(entries)-maxLines)
		entries = entries[len(entries)-maxLines:]
	}
	for _, e := range entries {
		b.WriteString(e.String() + "\n")
	}

	b.WriteString("\n")
	b.WriteString(formatSnapshot(result.Snapshot))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Action Log (Page %d/%d), %d entries\n\n", history.Page, history.TotalPages, history.TotalEntries)
	for _, e := range history.Entries {
		b.WriteString(e.String() + "\n")
	}
	return b.String()
}

func describeCell(state *engine.GameState, x, y int) (string, error) {
	g := state.Grid
	if g == nil {
		return "", fmt.Errorf("no grid available")
	}
	p, ok := g.NormalizePos(engine.Position{X: x, Y: y})
	if !ok {
		return "", fmt.Errorf("coordinates (%d, %d) are out of bounds, grid is %dx%d (0-%d, 0-%d)",
			x, y, g.Width, g.Height, g.Width-1, g.Height-1)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Cell %s\n", p)
	terrain := g.CellAt(p.X, p.Y)
	fmt.Fprintf(&b, "Terrain: %s\n", terrain)
	switch terrain {
	case engine.Wall:
		b.WriteString("Blocks tanks. Two shell hits clear it.\n")
	case engine.WeakWall:
		b.WriteString("Blocks tanks. One more shell hit clears it.\n")
	case engine.Mine:
		b.WriteString("Destroys any tank that drives onto it.\n")
	case engine.Boom:
		b.WriteString("Explosion from the last turn; clears next turn.\n")
	}

	for _, t := range state.Tanks {
		if tp, _ := g.NormalizePos(t.Position); tp == p {
			fmt.Fprintf(&b, "Tank %d (alive: %t, facing %s)\n", t.ID, t.Alive, t.Facing)
		}
	}
	for _, s := range state.Shells {
		if sp, _ := g.NormalizePos(s.Position); sp == p && s.Active {
			fmt.Fprintf(&b, "Shell from tank %d heading %s\n", s.Owner, s.Facing)
		}
	}
	return b.String(), nil
}
