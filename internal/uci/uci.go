// Package uci implements the Universal Chess Interface front-end. It reads
// one command per line and writes protocol responses; diagnostics go to the
// zap logger.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hailam/foxsee/internal/board"
	"github.com/hailam/foxsee/internal/engine"
	"github.com/hailam/foxsee/internal/obslog"
	"github.com/hailam/foxsee/internal/storage"
)

// Engine identification.
const (
	EngineName   = "foxsee"
	EngineAuthor = "foxsee team"
	Version      = "1.0.0"
)

// storeTimeout bounds every storage call made from the protocol loop.
const storeTimeout = 2 * time.Second

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	store    storage.Store // nil when persistence is disabled
	position *board.Position

	in    io.Reader
	out   io.Writer
	outMu sync.Mutex
	log   *zap.Logger

	// Search state
	cancel     context.CancelFunc
	searchDone chan struct{}
}

// New creates a protocol handler reading from in and writing to out. store
// may be nil.
func New(eng *engine.Engine, store storage.Store, in io.Reader, out io.Writer) *UCI {
	u := &UCI{
		engine:   eng,
		store:    store,
		position: board.NewPosition(),
		in:       in,
		out:      out,
		log:      obslog.L().Named("uci"),
	}
	eng.OnInfo = u.sendInfo
	return u
}

// Run processes commands until quit, end of input or ctx cancellation. At
// end of input a running search is allowed to finish.
func (u *UCI) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(u.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				readErr <- ctx.Err()
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			u.stopSearch()
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				err := <-readErr
				if ctx.Err() != nil {
					u.stopSearch()
					return ctx.Err()
				}
				u.waitSearch()
				if err != nil {
					return fmt.Errorf("read commands: %w", err)
				}
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if quit := u.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// handle dispatches one command line and reports whether the loop should end.
func (u *UCI) handle(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "uci":
		u.handleUCI()
	case "isready":
		u.send("readyok")
	case "setoption":
		u.handleSetOption(ctx, args)
	case "ucinewgame":
		u.handleNewGame()
	case "position":
		u.handlePosition(args)
	case "go":
		u.handleGo(ctx, args)
	case "stop":
		u.stopSearch()
		u.send("uciok")
	case "quit":
		u.stopSearch()
		return true
	case "debug", "register", "ponderhit":

	// Debug commands
	case "d":
		u.handleDisplay(ctx)
	case "perft":
		u.handlePerft(args)
	default:
		u.protocolError("unknown command " + cmd)
	}
	return false
}

// send writes one protocol line. It is called from the search goroutine too.
func (u *UCI) send(format string, args ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format+"\n", args...)
}

// protocolError logs a malformed command and tells the GUI about it.
func (u *UCI) protocolError(msg string, fields ...zap.Field) {
	u.log.Warn(msg, fields...)
	u.send("info string %s", msg)
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	u.send("id name %s %s", EngineName, Version)
	u.send("id author %s", EngineAuthor)
	u.send("option name Hash type spin default %d min %d max %d",
		engine.DefaultHashMB, engine.MinHashMB, engine.MaxHashMB)
	u.send("uciok")
}

// handleNewGame resets the tables for a new game.
func (u *UCI) handleNewGame() {
	u.stopSearch()
	u.engine.Clear()
	u.position = board.NewPosition()
	u.send("uciok")
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos [moves e2e4 e7e5 ...]
//   - position fen <fen> [moves ...]
//
// An invalid FEN leaves the current position untouched; an invalid move
// stops the replay at the last legal move.
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		u.protocolError("position needs startpos or fen")
		return
	}

	movesAt := len(args)
	for i, arg := range args {
		if arg == "moves" {
			movesAt = i
			break
		}
	}

	var pos *board.Position
	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
	case "fen":
		fen := strings.Join(args[1:movesAt], " ")
		p, err := board.ParseFEN(fen)
		if err != nil {
			u.protocolError(fmt.Sprintf("invalid fen: %v", err), zap.String("fen", fen))
			return
		}
		pos = p
	default:
		u.protocolError("unknown position type " + args[0])
		return
	}

	u.stopSearch()
	u.position = pos

	if movesAt >= len(args) {
		return
	}
	for _, s := range args[movesAt+1:] {
		m, err := pos.ParseUCIMove(s)
		if err != nil {
			u.protocolError(fmt.Sprintf("invalid move %s: %v", s, err), zap.String("fen", pos.FEN()))
			return
		}
		pos.DoMove(m)
	}
}

// parseGo converts "go" arguments to search limits. perft is returned
// separately since it does not search.
func parseGo(args []string) (limits engine.Limits, perft int, err error) {
	next := func(i int) (int, error) {
		if i+1 >= len(args) {
			return 0, fmt.Errorf("%s needs a value", args[i])
		}
		n, err := strconv.Atoi(args[i+1])
		if err != nil {
			return 0, fmt.Errorf("%s: %w", args[i], err)
		}
		return n, nil
	}
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }

	for i := 0; i < len(args); i++ {
		var n int
		switch args[i] {
		case "infinite":
			limits.Infinite = true
			continue
		case "ponder":
			continue
		case "depth", "movetime", "wtime", "btime", "winc", "binc", "movestogo", "perft", "nodes":
			if n, err = next(i); err != nil {
				return limits, 0, err
			}
		default:
			return limits, 0, fmt.Errorf("unsupported go parameter %q", args[i])
		}

		switch args[i] {
		case "depth":
			limits.Depth = n
		case "movetime":
			limits.MoveTime = ms(n)
		case "wtime":
			limits.WTime = ms(n)
		case "btime":
			limits.BTime = ms(n)
		case "winc":
			limits.WInc = ms(n)
		case "binc":
			limits.BInc = ms(n)
		case "movestogo":
			limits.MovesToGo = n
		case "perft":
			perft = n
		}
		i++
	}
	return limits, perft, nil
}

// handleGo starts a search with the given parameters.
func (u *UCI) handleGo(ctx context.Context, args []string) {
	limits, perft, err := parseGo(args)
	if err != nil {
		u.protocolError(err.Error())
		return
	}
	if perft > 0 {
		u.handlePerft([]string{strconv.Itoa(perft)})
		return
	}

	u.stopSearch()

	searchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	u.cancel = cancel
	u.searchDone = done

	pos := u.position.Copy()

	go func() {
		defer close(done)
		defer cancel()

		res := u.engine.Search(searchCtx, pos, limits)
		u.sendBestMove(pos, res)
		u.saveAnalysis(pos, res)
	}()
}

// sendBestMove validates the search result before sending it. An illegal
// or missing move falls back to the first legal one, or 0000 when there
// is none.
func (u *UCI) sendBestMove(pos *board.Position, res engine.Result) {
	legal := pos.LegalMoves()
	for _, m := range legal {
		if m == res.BestMove {
			u.send("bestmove %s", m)
			return
		}
	}

	if res.BestMove != board.NoMove {
		u.log.Error("search returned an illegal move",
			zap.String("move", res.BestMove.String()),
			zap.String("fen", pos.FEN()))
	}
	if len(legal) > 0 {
		u.send("bestmove %s", legal[0])
		return
	}
	u.send("bestmove 0000")
}

// saveAnalysis records a finished search in the store.
func (u *UCI) saveAnalysis(pos *board.Position, res engine.Result) {
	if u.store == nil || res.BestMove == board.NoMove || res.Depth == 0 {
		return
	}

	pv := make([]string, len(res.PV))
	for i, m := range res.PV {
		pv[i] = m.String()
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	err := u.store.SaveAnalysis(ctx, &storage.Analysis{
		FEN:       pos.FEN(),
		BestMove:  res.BestMove.String(),
		Score:     res.Score,
		Depth:     res.Depth,
		Nodes:     res.Nodes,
		ElapsedMS: res.Elapsed.Milliseconds(),
		PV:        pv,
	})
	if err != nil {
		u.log.Warn("save analysis failed", zap.Error(err))
	}
}

// sendInfo outputs one completed iteration in UCI format.
func (u *UCI) sendInfo(info engine.Info) {
	var b strings.Builder
	if info.Mate != 0 {
		fmt.Fprintf(&b, "info score mate %d", info.Mate)
	} else {
		fmt.Fprintf(&b, "info score cp %d", info.Score)
	}
	fmt.Fprintf(&b, " depth %d seldepth %d nodes %d nps %d time %d",
		info.Depth, info.SelDepth, info.Nodes, info.NPS, info.Time.Milliseconds())
	if len(info.PV) > 0 {
		b.WriteString(" pv")
		for _, m := range info.PV {
			b.WriteByte(' ')
			b.WriteString(m.String())
		}
	}
	u.send("%s", b.String())
}

// stopSearch stops the current search and waits for its bestmove.
func (u *UCI) stopSearch() {
	if u.searchDone == nil {
		return
	}
	u.cancel()
	u.engine.Stop()
	u.waitSearch()
}

// waitSearch blocks until the running search, if any, has finished.
func (u *UCI) waitSearch() {
	if u.searchDone == nil {
		return
	}
	<-u.searchDone
	u.searchDone = nil
	u.cancel = nil
}

// handleSetOption processes "setoption name <name> [value <value>]".
func (u *UCI) handleSetOption(ctx context.Context, args []string) {
	var name, value []string
	var cur *[]string
	for _, arg := range args {
		switch arg {
		case "name":
			cur = &name
		case "value":
			cur = &value
		default:
			if cur != nil {
				*cur = append(*cur, arg)
			}
		}
	}

	switch strings.ToLower(strings.Join(name, " ")) {
	case "hash":
		mb, err := strconv.Atoi(strings.Join(value, " "))
		if err != nil {
			u.protocolError("hash value must be a number")
			return
		}
		u.setHash(ctx, mb)
	default:
		u.log.Debug("ignored option", zap.Strings("name", name))
		u.send("uciok")
	}
}

// setHash resizes the tables and persists the new size.
func (u *UCI) setHash(ctx context.Context, mb int) {
	if !engine.HashSizeSupported(mb) {
		u.log.Warn("unsupported hash size", zap.Int("mb", mb))
		u.send("hash size %d is not supported", mb)
		return
	}

	u.stopSearch()
	if err := u.engine.SetHashSize(mb); err != nil {
		u.log.Warn("hash resize failed", zap.Error(err))
		return
	}

	if u.store == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := u.store.SavePreferences(sctx, &storage.Preferences{HashMB: mb}); err != nil {
		u.log.Warn("save preferences failed", zap.Error(err))
	}
}

// handleDisplay prints the current position, and its stored analysis when
// there is one.
func (u *UCI) handleDisplay(ctx context.Context) {
	u.send("%s", u.position.String())
	u.send("Fen: %s", u.position.FEN())
	u.send("Key: %016x", u.position.Hash)
	u.send("Eval: %s", engine.ScoreToString(u.engine.Evaluate(u.position)))

	if u.store == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	a, err := u.store.LoadAnalysis(sctx, u.position.FEN())
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		u.log.Warn("load analysis failed", zap.Error(err))
	default:
		u.send("Stored: bestmove %s score %d depth %d nodes %d", a.BestMove, a.Score, a.Depth, a.Nodes)
	}
}

// handlePerft runs a perft count on the current position.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil || d < 1 {
			u.protocolError("perft depth must be a positive number")
			return
		}
		depth = d
	}

	start := time.Now()
	nodes := u.engine.Perft(u.position, depth)
	elapsed := time.Since(start)

	u.log.Debug("perft", zap.Int("depth", depth), zap.Uint64("nodes", nodes), zap.Duration("elapsed", elapsed))
	u.send("depth %d perft %d", depth, nodes)
}
