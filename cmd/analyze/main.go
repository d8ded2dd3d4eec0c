// Command analyze plays batches of seeded headless games for each ruleset in
// a configs directory and prints aggregate statistics: win split, scoring,
// play outcomes, injuries and play length. It is meant for tuning rules files.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/Anzelak/goblin-ball/game/config"
	"github.com/Anzelak/goblin-ball/game/engine"
	"github.com/Anzelak/goblin-ball/game/match"
	"github.com/Anzelak/goblin-ball/game/service"
)

// Report aggregates a batch of games played under one ruleset.
type Report struct {
	Config      string                     `json:"config"`
	Name        string                     `json:"name"`
	Games       int                        `json:"games"`
	HomeWins    int                        `json:"home_wins"`
	AwayWins    int                        `json:"away_wins"`
	Ties        int                        `json:"ties"`
	HomePoints  int                        `json:"home_points"`
	AwayPoints  int                        `json:"away_points"`
	Plays       int                        `json:"plays"`
	Turns       int                        `json:"turns"`
	LongestPlay int                        `json:"longest_play"`
	Outcomes    map[engine.PlayOutcome]int `json:"outcomes"`
	Touchdowns  int                        `json:"touchdowns"`
	FieldGoals  int                        `json:"field_goals"`
	Missed      int                        `json:"field_goals_missed"`
	Knockdowns  int                        `json:"knockdowns"`
	Injuries    int                        `json:"injuries"`
}

// AvgTurnsPerPlay is the mean play length in turns.
func (r Report) AvgTurnsPerPlay() float64 {
	if r.Plays == 0 {
		return 0
	}
	return float64(r.Turns) / float64(r.Plays)
}

func perGame(n, games int) float64 {
	if games == 0 {
		return 0
	}
	return float64(n) / float64(games)
}

// gameSummary is what one finished game contributes to a Report.
type gameSummary struct {
	result engine.GameResult
	stats  match.Stats
	home   engine.TeamStats
	away   engine.TeamStats
}

func playOne(ctx context.Context, rules *engine.Rules, seed int64) (gameSummary, error) {
	c, err := match.New(rules.Clone(), match.WithSeed(seed))
	if err != nil {
		return gameSummary{}, err
	}
	res, err := c.RunGame(ctx)
	if err != nil {
		return gameSummary{}, fmt.Errorf("seed %d: %w", seed, err)
	}
	snap := c.Snapshot()
	return gameSummary{result: res, stats: c.Stats(), home: snap.Home.Stats, away: snap.Away.Stats}, nil
}

// Analyze plays games seeded baseSeed, baseSeed+1, ... on up to workers
// goroutines. The report does not depend on workers.
func Analyze(ctx context.Context, id string, rs *service.Ruleset, games int, baseSeed int64, workers int) (Report, error) {
	summaries := make([]gameSummary, games)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))
	for i := range games {
		g.Go(func() error {
			s, err := playOne(ctx, rs.Rules, baseSeed+int64(i))
			summaries[i] = s
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	r := Report{Config: id, Name: rs.Name, Games: games, Outcomes: map[engine.PlayOutcome]int{}}
	for _, s := range summaries {
		switch {
		case s.result.Tie:
			r.Ties++
		case s.result.HomeScore > s.result.AwayScore:
			r.HomeWins++
		default:
			r.AwayWins++
		}
		r.HomePoints += s.result.HomeScore
		r.AwayPoints += s.result.AwayScore
		r.Plays += s.stats.PlaysCompleted
		r.Turns += s.stats.TurnsPlayed
		r.LongestPlay = max(r.LongestPlay, s.stats.LongestPlay)
		for o, n := range s.stats.Outcomes {
			r.Outcomes[o] += n
		}
		for _, t := range []engine.TeamStats{s.home, s.away} {
			r.Touchdowns += t.Touchdowns
			r.FieldGoals += t.FieldGoals
			r.Missed += t.FieldGoalsMissed
			r.Knockdowns += t.Knockdowns
			r.Injuries += t.InjuriesSuffered
		}
	}
	return r, nil
}

func printReports(w io.Writer, reports []Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CONFIG\tGAMES\tHOME W\tAWAY W\tTIES\tPTS/G\tTD/G\tFG/G\tINJ/G\tTURNS/PLAY\tLONGEST")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.1f\t%d\n",
			r.Config, r.Games, r.HomeWins, r.AwayWins, r.Ties,
			perGame(r.HomePoints+r.AwayPoints, r.Games),
			perGame(r.Touchdowns, r.Games),
			perGame(r.FieldGoals, r.Games),
			perGame(r.Injuries, r.Games),
			r.AvgTurnsPerPlay(), r.LongestPlay)
	}
	tw.Flush()

	for _, r := range reports {
		fmt.Fprintf(w, "\n=== %s (%s) ===\n", r.Config, r.Name)
		outcomes := make([]engine.PlayOutcome, 0, len(r.Outcomes))
		for o := range r.Outcomes {
			outcomes = append(outcomes, o)
		}
		slices.Sort(outcomes)
		for _, o := range outcomes {
			fmt.Fprintf(w, "  %-16s %5d  (%.1f%%)\n", o, r.Outcomes[o], 100*float64(r.Outcomes[o])/float64(max(1, r.Plays)))
		}
		if r.FieldGoals+r.Missed > 0 {
			fmt.Fprintf(w, "  field goal accuracy %.1f%%\n", 100*float64(r.FieldGoals)/float64(r.FieldGoals+r.Missed))
		}
		fmt.Fprintf(w, "  knockdowns per game %.2f\n", perGame(r.Knockdowns, r.Games))
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	configs, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}

	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		infos, err := configs.ListConfigs()
		if err != nil {
			return err
		}
		for _, info := range infos {
			ids = append(ids, info.ConfigID)
		}
	}

	reports := make([]Report, 0, len(ids))
	for _, id := range ids {
		rs, err := configs.LoadConfig(id)
		if err != nil {
			return err
		}
		r, err := Analyze(ctx, id, rs, cmd.Int("games"), cmd.Int64("seed"), cmd.Int("workers"))
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		reports = append(reports, r)
	}

	w := cmd.Root().Writer
	if cmd.Bool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	printReports(w, reports)
	return nil
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Play seeded batches of games per ruleset and report aggregate statistics",
		ArgsUsage: "[config...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing rules files"},
			&cli.IntFlag{Name: "games", Value: 100, Usage: "Games per ruleset"},
			&cli.Int64Flag{Name: "seed", Value: 1, Usage: "Seed of the first game"},
			&cli.IntFlag{Name: "workers", Value: runtime.NumCPU(), Usage: "Games played in parallel"},
			&cli.BoolFlag{Name: "json", Usage: "Print reports as JSON"},
		},
		Action: run,
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
