package main

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/pokerface/cmd/pokerface/shared"
	"github.com/lox/pokerface/internal/game"
	"github.com/lox/pokerface/internal/randutil"
	"github.com/lox/pokerface/internal/table"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	tableStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14"))

	winStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))
)

// SimulateCmd plays random legal actions on independent tables
type SimulateCmd struct {
	Tables  int    `kong:"default='4',help='Number of tables to run concurrently'"`
	Hands   int    `kong:"default='100',help='Hands to play per table'"`
	Players int    `kong:"default='4',help='Players seated at each table'"`
	Chips   int    `kong:"default='1000',help='Starting chips per player'"`
	Ante    int    `kong:"default='5',help='Ante'"`
	Seed    *int64 `kong:"help='Deterministic RNG seed (optional)'"`
	Verbose bool   `kong:"short='V',help='Print every hand result'"`
	Debug   bool   `kong:"help='Enable debug logging'"`
}

type simResult struct {
	table      string
	hands      int
	biggestPot int
	wins       map[string]int
	stacks     map[string]int
	lines      []string
	stopReason string
}

func (c *SimulateCmd) Run() error {
	if c.Tables < 1 || c.Hands < 1 {
		return errors.New("tables and hands must be positive")
	}
	cfg := game.DefaultConfig()
	cfg.Ante = c.Ante
	if c.Players < 2 || c.Players > cfg.MaxSeats {
		return fmt.Errorf("players must be between 2 and %d", cfg.MaxSeats)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := shared.SetupLogger(c.Debug)
	if !c.Debug {
		logger = logger.Level(zerolog.WarnLevel)
	}
	seed := randutil.Seed(c.Seed)

	fmt.Println(headerStyle.Render(fmt.Sprintf("Simulating %d hands on %d tables (seed %d)", c.Hands, c.Tables, seed)))
	start := time.Now()

	ctx, cancel := shared.SetupSignalHandlerWithLogger(logger)
	defer cancel()

	results := make([]simResult, c.Tables)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range c.Tables {
		g.Go(func() error {
			res, err := c.runTable(ctx, i, cfg, seed, logger)
			if err != nil {
				return fmt.Errorf("table %d: %w", i+1, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		return err
	}

	total := 0
	for _, res := range results {
		total += res.hands
		printResult(res, c.Verbose)
	}
	elapsed := time.Since(start)
	fmt.Println(headerStyle.Render(fmt.Sprintf("%d hands in %s (%.0f hands/sec)", total, elapsed.Round(time.Millisecond), float64(total)/elapsed.Seconds())))
	return nil
}

func (c *SimulateCmd) runTable(ctx context.Context, n int, cfg game.Config, seed int64, logger zerolog.Logger) (simResult, error) {
	name := fmt.Sprintf("sim-%d", n+1)
	res := simResult{table: name, wins: make(map[string]int), stacks: make(map[string]int)}

	// Busted players are removed from a timer goroutine
	var mu sync.Mutex
	removed := make(map[string]bool)
	sink := func(_ int, events []table.Event) {
		mu.Lock()
		defer mu.Unlock()
		for _, ev := range events {
			if e, ok := ev.(table.PlayerRemoved); ok {
				removed[e.Name] = true
			}
		}
	}

	t, err := table.New(n+1, name, cfg,
		table.WithLogger(logger),
		table.WithRNG(randutil.New(randutil.Derive(seed, n))),
		table.WithRemovalDelay(0),
		table.WithEventSink(sink),
		table.WithStartingChips(c.Chips),
	)
	if err != nil {
		return res, err
	}
	defer t.Close()

	players := make([]string, c.Players)
	for i := range players {
		players[i] = fmt.Sprintf("Bot%d", i+1)
		if _, _, err := t.AddPlayer(players[i], 0); err != nil {
			return res, err
		}
	}

	// Decisions use their own stream so they do not disturb the deals
	decide := randutil.New(randutil.Derive(seed, n+c.Tables))
	for res.hands < c.Hands {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, err := t.StartRound(); err != nil {
			if errors.Is(err, game.ErrNotEnoughPlayers) {
				res.stopReason = "not enough players"
				break
			}
			return res, err
		}
		res.hands++

		for {
			seat, opts := t.LegalActions()
			if seat < 0 {
				break
			}
			events, err := t.SubmitAction(seat, randomAction(decide, opts))
			if err != nil {
				return res, err
			}
			for _, ev := range events {
				if rf, ok := ev.(game.RoundFinished); ok {
					c.record(&res, t, rf)
				}
			}
		}
	}

	view := t.Snapshot(-1)
	for _, s := range view.Seats {
		res.stacks[s.Name] = s.Chips
	}
	mu.Lock()
	for name := range removed {
		res.stacks[name] = 0
	}
	mu.Unlock()
	return res, nil
}

func (c *SimulateCmd) record(res *simResult, t *table.Table, rf game.RoundFinished) {
	res.biggestPot = max(res.biggestPot, rf.Pot)
	view := t.Snapshot(-1)
	names := make(map[int]string, len(view.Seats))
	for _, s := range view.Seats {
		names[s.Seat] = s.Name
	}
	for _, seat := range rf.Winners {
		res.wins[names[seat]]++
	}
	if !c.Verbose {
		return
	}
	seats := make([]int, 0, len(rf.Results))
	for seat := range rf.Results {
		seats = append(seats, seat)
	}
	sort.Ints(seats)
	parts := make([]string, 0, len(seats))
	for _, seat := range seats {
		parts = append(parts, rf.Results[seat])
	}
	res.lines = append(res.lines, fmt.Sprintf("#%d pot %d: %s", res.hands, rf.Pot, strings.Join(parts, "; ")))
}

// randomAction picks a legal option, folding rarely and sizing bets
// uniformly within the allowed range
func randomAction(rng *rand.Rand, opts []game.ActionOption) game.Action {
	choices := opts
	if len(opts) > 1 && opts[0].Kind == game.Fold && rng.IntN(5) > 0 {
		choices = opts[1:]
	}
	opt := choices[rng.IntN(len(choices))]
	a := game.Action{Kind: opt.Kind}
	if opt.Kind == game.Bet || opt.Kind == game.Raise {
		a.Amount = opt.Amount
		if opt.Max > opt.Amount {
			a.Amount += rng.IntN(opt.Max - opt.Amount + 1)
		}
	}
	return a
}

func printResult(res simResult, verbose bool) {
	fmt.Println(tableStyle.Render(fmt.Sprintf("%s: %d hands, biggest pot %d", res.table, res.hands, res.biggestPot)))
	if verbose {
		for _, line := range res.lines {
			fmt.Println(mutedStyle.Render("  " + line))
		}
	}

	names := make([]string, 0, len(res.stacks))
	for name := range res.stacks {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if res.stacks[names[i]] != res.stacks[names[j]] {
			return res.stacks[names[i]] > res.stacks[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		line := fmt.Sprintf("  %-6s %6d chips, %d pots won", name, res.stacks[name], res.wins[name])
		if res.stacks[name] == 0 {
			fmt.Println(mutedStyle.Render(line))
			continue
		}
		fmt.Println(winStyle.Render(line))
	}
	if res.stopReason != "" {
		fmt.Println(mutedStyle.Render("  stopped early: " + res.stopReason))
	}
}
