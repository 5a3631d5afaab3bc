package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wricardo/mcp-training/tankbattle/game/engine"
	"github.com/wricardo/mcp-training/tankbattle/game/strategy"
	"github.com/wricardo/mcp-training/tankbattle/logging"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions  SessionManager
	boards    BoardManager
	results   ResultStore
	publisher TurnPublisher
	logger    *log.Logger
	rules     engine.Rules
	metrics   *serviceMetrics
	mu        sync.RWMutex
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithResultStore records finished matches in store
func WithResultStore(store ResultStore) Option {
	return func(s *gameServiceImpl) { s.results = store }
}

// WithPublisher forwards every turn snapshot to p
func WithPublisher(p TurnPublisher) Option {
	return func(s *gameServiceImpl) { s.publisher = p }
}

// WithLogger sets the logger used for match and action lines
func WithLogger(logger *log.Logger) Option {
	return func(s *gameServiceImpl) { s.logger = logger }
}

// WithDefaultRules sets the rules used when a match spec carries none
func WithDefaultRules(rules engine.Rules) Option {
	return func(s *gameServiceImpl) { s.rules = rules }
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, boards BoardManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		boards:   boards,
		rules:    engine.DefaultRules(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}

	metrics, err := newServiceMetrics()
	if err != nil {
		s.logger.Warn("metrics disabled", "error", err)
	}
	s.metrics = metrics
	return s
}

// NewController builds the controller a player spec names. An empty strategy
// means idle.
func NewController(p PlayerSpec) (engine.Controller, error) {
	name := p.Strategy
	if strings.TrimSpace(name) == "" {
		name = "idle"
	}
	return strategy.New(name, p.Options)
}

// MergeRules overlays the set fields of override onto base
func MergeRules(base engine.Rules, override *RuleOverrides) engine.Rules {
	if override == nil {
		return base
	}
	if v := override.InitialShells; v != nil {
		base.InitialShells = *v
		if *v <= 0 {
			base.InitialShells = engine.NoShells
		}
	}
	if v := override.ShootCooldown; v != nil {
		base.ShootCooldown = *v
	}
	if v := override.MaxTurns; v != nil {
		base.MaxTurns = *v
	}
	if v := override.AmmoTimeout; v != nil {
		base.AmmoTimeout = *v
	}
	if v := override.ShellRange; v != nil {
		base.ShellRange = max(*v, 0)
	}
	return base
}

// CreateMatch creates a new match
func (s *gameServiceImpl) CreateMatch(ctx context.Context, spec MatchSpec) (*MatchInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range []PlayerSpec{spec.Player1, spec.Player2} {
		if p.Strategy != "" && !strategy.Exists(p.Strategy) {
			return nil, fmt.Errorf("%w: %q (available: %s)", strategy.ErrUnknownStrategy, p.Strategy, strings.Join(strategy.Names(), ", "))
		}
	}

	var board *engine.Board
	if spec.Board != "" {
		var err error
		board, err = s.boards.LoadBoard(spec.Board)
		if err != nil {
			return nil, s.boardNotFound(spec.Board, err)
		}
	} else {
		board = s.boards.GetDefault()
		spec.Board = "default"
	}

	rules := MergeRules(s.rules, spec.Rules)

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", board, spec, rules)
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	s.metrics.matchCreated(ctx, spec.Board)
	s.logger.Info("match created",
		"match", sess.ID,
		"board", spec.Board,
		"player1", sess.Player1.Strategy,
		"player2", sess.Player2.Strategy,
	)
	return matchInfo(sess, true), nil
}

func (s *gameServiceImpl) boardNotFound(name string, err error) error {
	available, listErr := s.boards.ListBoards()
	if listErr == nil && len(available) > 0 {
		ids := make([]string, 0, len(available))
		for _, b := range available {
			ids = append(ids, b.BoardID)
		}
		return fmt.Errorf("board '%s' not found. Available boards: %v: %w", name, ids, err)
	}
	return fmt.Errorf("failed to load board %s: %w", name, err)
}

// GetMatch retrieves match information
func (s *gameServiceImpl) GetMatch(ctx context.Context, matchID string) (*MatchInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(matchID)
	if err != nil {
		return nil, fmt.Errorf("match not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(matchID)

	return matchInfo(sess, true), nil
}

// ListMatches returns all active matches without their full state
func (s *gameServiceImpl) ListMatches(ctx context.Context) ([]*MatchInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*MatchInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, matchInfo(sess, false))
	}
	return result, nil
}

// DeleteMatch removes a match
func (s *gameServiceImpl) DeleteMatch(ctx context.Context, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(matchID)
}

// PlayTurn queues the submitted actions for manual players and resolves one
// turn
func (s *gameServiceImpl) PlayTurn(ctx context.Context, matchID string, actions ManualActions) (*TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(matchID)
	if err != nil {
		return nil, fmt.Errorf("match not found: %w", err)
	}
	if sess.Engine.IsOver() {
		return nil, ErrMatchOver
	}

	queued := map[int]engine.Action{1: actions.Player1, 2: actions.Player2}
	for id := 1; id <= 2; id++ {
		action := queued[id]
		if action == "" {
			continue
		}
		if _, err := engine.ParseAction(string(action)); err != nil {
			return nil, err
		}
		if _, ok := sess.Engine.Controller(id).(*strategy.Manual); !ok {
			return nil, fmt.Errorf("player %d (%s): %w", id, sess.Player(id).Strategy, ErrNotManual)
		}
	}
	for id := 1; id <= 2; id++ {
		if action := queued[id]; action != "" {
			a, _ := engine.ParseAction(string(action))
			sess.Engine.Controller(id).(*strategy.Manual).Push(a)
		}
	}

	return s.play(ctx, sess, 1)
}

// PlayTurns resolves up to n turns, stopping early when the match ends
func (s *gameServiceImpl) PlayTurns(ctx context.Context, matchID string, turns int) (*TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(matchID)
	if err != nil {
		return nil, fmt.Errorf("match not found: %w", err)
	}
	if sess.Engine.IsOver() {
		return nil, ErrMatchOver
	}
	if turns <= 0 {
		turns = 1
	}

	truncated := false
	if turns > MaxTurnsPerCall {
		turns = MaxTurnsPerCall
		truncated = true
	}

	result, err := s.play(ctx, sess, turns)
	if result != nil && truncated {
		result.Truncated = true
		result.Limit = MaxTurnsPerCall
	}
	return result, err
}

// RunMatch plays the match to completion
func (s *gameServiceImpl) RunMatch(ctx context.Context, matchID string) (*TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(matchID)
	if err != nil {
		return nil, fmt.Errorf("match not found: %w", err)
	}
	if sess.Engine.IsOver() {
		return nil, ErrMatchOver
	}

	// max_turns bounds every match, so this always terminates
	remaining := sess.Engine.Rules().MaxTurns - sess.Engine.State().Turn
	if remaining < 1 {
		remaining = 1
	}
	return s.play(ctx, sess, remaining)
}

// play steps the engine at most n times. The context is checked between
// turns; a cancelled call keeps the turns already played.
func (s *gameServiceImpl) play(ctx context.Context, sess *Session, n int) (*TurnResult, error) {
	s.sessions.UpdateLastAccessed(sess.ID)
	sess.Engine.SetObserver(s.observerFor(sess.ID))
	defer sess.Engine.SetObserver(nil)

	result := &TurnResult{MatchID: sess.ID, Entries: []engine.ActionLogEntry{}}
	var ctxErr error
	for i := 0; i < n && !sess.Engine.IsOver(); i++ {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}
		snap := sess.Engine.Step()
		result.TurnsPlayed++
		result.Entries = append(result.Entries, snap.Entries...)
	}

	s.metrics.turnsPlayed(ctx, sess.BoardID, result.TurnsPlayed)
	result.Snapshot = sess.Engine.Snapshot()
	result.Turn = result.Snapshot.Turn
	result.GameOver = sess.Engine.IsOver()
	result.Outcome = result.Snapshot.Outcome

	if result.GameOver {
		s.recordResult(ctx, sess)
	}

	// Auto-save after playing
	if err := s.sessions.Save(sess.ID); err != nil {
		s.logger.Warn("failed to save match", "match", sess.ID, "error", err)
	}

	if ctxErr != nil {
		return result, ctxErr
	}
	return result, nil
}

func (s *gameServiceImpl) observerFor(matchID string) engine.Observer {
	obs := engine.Observers{logging.NewActionLogger(s.logger, matchID)}
	if s.publisher != nil {
		pub := s.publisher
		obs = append(obs, engine.TurnFunc(func(snap engine.Snapshot) {
			pub.PublishTurn(matchID, snap)
		}))
	}
	return obs
}

// recordResult writes the outcome once per finished match
func (s *gameServiceImpl) recordResult(ctx context.Context, sess *Session) {
	if sess.Recorded {
		return
	}
	out := sess.Engine.Outcome()
	if out == nil {
		return
	}

	res := MatchResult{
		MatchID:    sess.ID,
		Board:      sess.BoardID,
		Player1:    strategyName(sess.Player1),
		Player2:    strategyName(sess.Player2),
		Result:     out.Result,
		Reason:     out.Reason,
		Winner:     out.Winner,
		Turns:      out.Turn,
		FinishedAt: time.Now(),
	}
	s.metrics.matchFinished(ctx, res)

	if s.results != nil {
		if err := s.results.Record(ctx, res); err != nil {
			s.logger.Error("failed to record result", "match", sess.ID, "error", err)
			return
		}
	}
	sess.Recorded = true
}

func strategyName(p PlayerSpec) string {
	if p.Strategy == "" {
		return "idle"
	}
	return strings.ToLower(p.Strategy)
}

// Reset restarts a match from its board
func (s *gameServiceImpl) Reset(ctx context.Context, matchID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(matchID)
	if err != nil {
		return nil, fmt.Errorf("match not found: %w", err)
	}

	state, err := sess.Engine.Reset()
	if err != nil {
		return nil, fmt.Errorf("failed to reset match: %w", err)
	}
	for id := 1; id <= 2; id++ {
		c, err := NewController(sess.Player(id))
		if err != nil {
			return nil, err
		}
		sess.Engine.SetController(id, c)
	}
	sess.Recorded = false
	s.sessions.UpdateLastAccessed(matchID)

	if err := s.sessions.Save(matchID); err != nil {
		s.logger.Warn("failed to save match after reset", "match", matchID, "error", err)
	}
	return state.Clone(), nil
}

// CancelBackward drops the pending backward move of a tank between turns.
// Moves already executing cannot be cancelled.
func (s *gameServiceImpl) CancelBackward(ctx context.Context, matchID string, tankID int) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(matchID)
	if err != nil {
		return nil, fmt.Errorf("match not found: %w", err)
	}
	if sess.Engine.IsOver() {
		return nil, ErrMatchOver
	}
	tank := sess.Engine.State().Tank(tankID)
	if tank == nil {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTank, tankID)
	}
	if !tank.CancelBackward() {
		return nil, fmt.Errorf("tank %d: %w", tankID, ErrNoBackward)
	}
	s.sessions.UpdateLastAccessed(matchID)

	if err := s.sessions.Save(matchID); err != nil {
		s.logger.Warn("failed to save match after cancel", "match", matchID, "error", err)
	}
	return sess.Engine.State().Clone(), nil
}

// GetGameState returns a copy of the current match state
func (s *gameServiceImpl) GetGameState(ctx context.Context, matchID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(matchID)
	if err != nil {
		return nil, fmt.Errorf("match not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(matchID)

	return sess.Engine.State().Clone(), nil
}

// GetHistory returns the action log of a match, paginated
func (s *gameServiceImpl) GetHistory(ctx context.Context, matchID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(matchID)
	if err != nil {
		return nil, fmt.Errorf("match not found: %w", err)
	}

	var history []engine.ActionLogEntry
	for _, rec := range sess.Engine.State().History {
		history = append(history, rec.Entries...)
	}
	return paginate(history, opts), nil
}

func paginate(history []engine.ActionLogEntry, opts HistoryOptions) *HistoryResponse {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultHistoryLimit
	}
	if opts.Limit > MaxHistoryLimit {
		opts.Limit = MaxHistoryLimit
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	total := len(history)
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	entries := []engine.ActionLogEntry{}
	if start < total {
		if opts.Order == "desc" {
			// Reverse order (most recent first)
			for i := total - 1 - start; i >= total-end; i-- {
				entries = append(entries, history[i])
			}
		} else {
			entries = append(entries, history[start:end]...)
		}
	}

	return &HistoryResponse{
		Entries:      entries,
		TotalEntries: total,
		Page:         opts.Page,
		PageSize:     opts.Limit,
		TotalPages:   totalPages,
		HasNext:      opts.Page < totalPages,
		HasPrevious:  opts.Page > 1,
	}
}

// ListBoards returns the available boards
func (s *gameServiceImpl) ListBoards(ctx context.Context) ([]*BoardInfo, error) {
	return s.boards.ListBoards()
}

// LoadBoard loads a specific board
func (s *gameServiceImpl) LoadBoard(ctx context.Context, boardID string) (*engine.Board, error) {
	return s.boards.LoadBoard(boardID)
}

// SaveBoard validates and writes a board to disk
func (s *gameServiceImpl) SaveBoard(ctx context.Context, boardID string, board *engine.Board) error {
	return s.boards.SaveBoard(boardID, board)
}

// ListStrategies returns the registered controllers
func (s *gameServiceImpl) ListStrategies(ctx context.Context) ([]StrategyInfo, error) {
	infos := strategy.List()
	out := make([]StrategyInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, StrategyInfo{Name: info.Name, Description: info.Description})
	}
	return out, nil
}

// ListResults returns the most recent finished matches
func (s *gameServiceImpl) ListResults(ctx context.Context, limit int) ([]MatchResult, error) {
	if s.results == nil {
		return []MatchResult{}, nil
	}
	return s.results.List(ctx, limit)
}

// Standings aggregates recorded results per strategy
func (s *gameServiceImpl) Standings(ctx context.Context) ([]Standing, error) {
	if s.results == nil {
		return []Standing{}, nil
	}
	return s.results.Standings(ctx)
}

func matchInfo(sess *Session, withState bool) *MatchInfo {
	state := sess.Engine.State()
	info := &MatchInfo{
		ID:             sess.ID,
		Board:          sess.BoardID,
		Player1:        sess.Player1,
		Player2:        sess.Player2,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Turn:           state.Turn,
		Status:         state.Status,
	}
	if state.Outcome != nil {
		out := *state.Outcome
		info.Outcome = &out
	}
	if withState {
		info.GameState = state.Clone()
	}
	return info
}

// IsNotFound reports whether err means a match or board does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMatchNotFound) || errors.Is(err, ErrBoardNotFound)
}
