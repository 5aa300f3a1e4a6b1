// Command admin manages rulesets, worlds and games directly in the database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"grand-strategy/internal/database"
	"grand-strategy/internal/game"
	"grand-strategy/internal/gamerule"
	"grand-strategy/internal/world"
)

type command struct {
	usage string
	run   func(a *admin, args []string) error
}

var commands = map[string]command{
	"import-ruleset":    {"FILE", importRuleset},
	"import-world":      {"FILE", importWorld},
	"generate-world":    {"-name NAME [-seed N] [-territories N] [-weighted]", generateWorld},
	"new-game":          {"-name NAME -server ID -ruleset NAME -world NAME [-start M/YYYY]", newGame},
	"add-nation":        {"-game ID -name NAME [-role PLAYER] [-color #RRGGBB]", addNation},
	"bind-role":         {"-game ID -nation NAME -role PLAYER", bindRole},
	"transfer":          {"-game ID -territory NAME -nation NAME", transfer},
	"relation":          {"-game ID -nation NAME -other NAME -relation Enemy|Ally|Neutral", relation},
	"add-population":    {"-game ID -nation NAME -territory NAME -occupation NAME -size N [-id category=value,...]", addPopulation},
	"remove-population": {"-game ID -nation NAME -territory NAME -occupation NAME -size N [-id category=value,...]", removePopulation},
	"add-resources":     {"-game ID -nation NAME Resource=amount ...", addResources},
	"advance":           {"-game ID [-months N]", advance},
	"summary":           {"-game ID", summary},
	"games":             {"", listGames},
	"delete-game":       {"-game ID", deleteGame},
	"library":           {"", listLibrary},
	"player":            {"-id PLAYER", showPlayer},
}

type admin struct {
	db      *database.DB
	repo    *database.Repository
	out     io.Writer
	workers int
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	global := flag.NewFlagSet("admin", flag.ExitOnError)
	dbPath := global.String("db", "data/strategy.db", "Database path")
	workers := global.Int("workers", 4, "Turn worker goroutines")
	global.Usage = usage
	global.Parse(os.Args[1:])

	if global.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[global.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", global.Arg(0))
		usage()
		os.Exit(2)
	}

	db, err := database.New(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	a := &admin{db: db, repo: database.NewRepository(db), out: os.Stdout, workers: *workers}
	if err := cmd.run(a, global.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", global.Arg(0), err)
		db.Close()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: admin [-db PATH] [-workers N] COMMAND [ARGS]")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-18s %s\n", name, commands[name].usage)
	}
}

func importRuleset(a *admin, args []string) error {
	if len(args) != 1 {
		return errors.New("expected a ruleset file")
	}
	rules, err := gamerule.Load(args[0])
	if err != nil {
		return err
	}
	if err := a.repo.SaveRuleset(rules); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Imported ruleset %s (%d buildings, %d units)\n",
		rules.Name, len(rules.Buildings), len(rules.Units))
	return nil
}

func importWorld(a *admin, args []string) error {
	if len(args) != 1 {
		return errors.New("expected a world file")
	}
	w, err := world.Load(args[0])
	if err != nil {
		return err
	}
	if err := a.repo.SaveWorld(w); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Imported world %s (%d territories)\n", w.Name, len(w.Territories))
	return nil
}

func generateWorld(a *admin, args []string) error {
	cfg := world.DefaultGenConfig()
	fs := flag.NewFlagSet("generate-world", flag.ContinueOnError)
	fs.StringVar(&cfg.Name, "name", cfg.Name, "World name")
	fs.Int64Var(&cfg.Seed, "seed", 0, "Noise seed (0 = random)")
	fs.IntVar(&cfg.Territories, "territories", cfg.Territories, "Number of territories")
	fs.BoolVar(&cfg.TerrainWeighted, "weighted", false, "Weight edges by terrain")
	if err := fs.Parse(args); err != nil {
		return err
	}
	w, err := world.Generate(cfg)
	if err != nil {
		return err
	}
	if err := a.repo.SaveWorld(w); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Generated world %s with %d territories\n", w.Name, len(w.Territories))
	return nil
}

func newGame(a *admin, args []string) error {
	fs := flag.NewFlagSet("new-game", flag.ContinueOnError)
	name := fs.String("name", "", "Game name")
	server := fs.String("server", "", "Server id hosting the game")
	ruleset := fs.String("ruleset", "", "Ruleset name")
	worldName := fs.String("world", "", "World name")
	start := fs.String("start", "1/1200", "Start date (month/year)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	date, err := game.ParseDate(*start)
	if err != nil {
		return err
	}
	if _, err := a.repo.Ruleset(*ruleset); err != nil {
		return err
	}
	if _, err := a.repo.World(*worldName); err != nil {
		return err
	}
	s, err := game.NewSavegame(*name, *server, *ruleset, *worldName, date)
	if err != nil {
		return err
	}
	if err := a.repo.SaveGame(s); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created game %s (%s)\n", s.Name, s.ID)
	return nil
}

// mutate loads a game, applies fn and saves it with a history entry.
func (a *admin) mutate(gameID, event string, fn func(sess *game.Session) (nation, message string, err error)) error {
	sess, err := a.repo.Session(gameID, a.workers)
	if err != nil {
		return err
	}
	nation, message, err := fn(sess)
	if game.IsNonFatal(err) {
		fmt.Fprintf(a.out, "Nothing to do: %v\n", err)
		return nil
	}
	if err != nil {
		return err
	}
	if err := a.repo.SaveGame(sess.Save); err != nil {
		return err
	}
	if err := a.db.AddHistoryEvent(sess.Save, nation, event, message); err != nil {
		return err
	}
	fmt.Fprintln(a.out, message)
	return nil
}

func addNation(a *admin, args []string) error {
	fs := flag.NewFlagSet("add-nation", flag.ContinueOnError)
	id := fs.String("game", "", "Game id")
	name := fs.String("name", "", "Nation name")
	role := fs.String("role", "", "Player id bound to the nation")
	color := fs.String("color", "#808080", "Map color")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return a.mutate(*id, database.EventNationAdded, func(sess *game.Session) (string, string, error) {
		return *name, "Added nation " + *name, sess.AddNation(*name, *role, *color)
	})
}

func bindRole(a *admin, args []string) error {
	fs := flag.NewFlagSet("bind-role", flag.ContinueOnError)
	id := fs.String("game", "", "Game id")
	nation := fs.String("nation", "", "Nation name")
	role := fs.String("role", "", "Player id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return a.mutate(*id, database.EventCommand, func(sess *game.Session) (string, string, error) {
		return *nation, fmt.Sprintf("Bound %s to %s", *role, *nation), sess.Save.BindRole(*nation, *role)
	})
}

func transfer(a *admin, args []string) error {
	fs := flag.NewFlagSet("transfer", flag.ContinueOnError)
	id := fs.String("game", "", "Game id")
	territory := fs.String("territory", "", "Territory name")
	nation := fs.String("nation", "", "Receiving nation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return a.mutate(*id, database.EventTransfer, func(sess *game.Session) (string, string, error) {
		return *nation, fmt.Sprintf("%s transferred to %s", *territory, *nation),
			sess.TransferTerritory(*territory, *nation)
	})
}

func relation(a *admin, args []string) error {
	fs := flag.NewFlagSet("relation", flag.ContinueOnError)
	id := fs.String("game", "", "Game id")
	nation := fs.String("nation", "", "Nation declaring")
	other := fs.String("other", "", "Nation regarded")
	rel := fs.String("relation", "", "Enemy, Ally or Neutral")
	if err := fs.Parse(args); err != nil {
		return err
	}
	r := game.Relation(*rel)
	if strings.EqualFold(*rel, "neutral") {
		r = ""
	}
	return a.mutate(*id, database.EventCommand, func(sess *game.Session) (string, string, error) {
		return *nation, fmt.Sprintf("%s regards %s as %s", *nation, *other, *rel),
			sess.SetRelation(*nation, *other, r)
	})
}

// cohortFlags are the flags shared by the population commands.
type cohortFlags struct {
	game, nation, territory, occupation string
	size                                int
	identifiers                         map[string]string
}

func parseCohortFlags(name string, args []string) (*cohortFlags, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	c := &cohortFlags{identifiers: make(map[string]string)}
	fs.StringVar(&c.game, "game", "", "Game id")
	fs.StringVar(&c.nation, "nation", "", "Nation name")
	fs.StringVar(&c.territory, "territory", "", "Territory name")
	fs.StringVar(&c.occupation, "occupation", "", "Occupation")
	fs.IntVar(&c.size, "size", 0, "Number of people")
	idents := fs.String("id", "", "Identifiers as category=value,...")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *idents != "" {
		for _, pair := range strings.Split(*idents, ",") {
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("bad identifier %q", pair)
			}
			c.identifiers[k] = v
		}
	}
	return c, nil
}

func addPopulation(a *admin, args []string) error {
	c, err := parseCohortFlags("add-population", args)
	if err != nil {
		return err
	}
	return a.mutate(c.game, database.EventCommand, func(sess *game.Session) (string, string, error) {
		return c.nation, fmt.Sprintf("Added %s %s to %s", humanize.Comma(int64(c.size)), c.occupation, c.territory),
			sess.AddPopulation(c.nation, c.territory, c.occupation, c.identifiers, c.size)
	})
}

func removePopulation(a *admin, args []string) error {
	c, err := parseCohortFlags("remove-population", args)
	if err != nil {
		return err
	}
	return a.mutate(c.game, database.EventCommand, func(sess *game.Session) (string, string, error) {
		return c.nation, fmt.Sprintf("Removed %s %s from %s", humanize.Comma(int64(c.size)), c.occupation, c.territory),
			sess.RemovePopulation(c.nation, c.territory, c.occupation, c.identifiers, c.size)
	})
}

func addResources(a *admin, args []string) error {
	fs := flag.NewFlagSet("add-resources", flag.ContinueOnError)
	id := fs.String("game", "", "Game id")
	nation := fs.String("nation", "", "Nation name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	amounts := make(map[string]float64)
	for _, pair := range fs.Args() {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("bad amount %q", pair)
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("bad amount %q: %w", pair, err)
		}
		amounts[k] += f
	}
	return a.mutate(*id, database.EventCommand, func(sess *game.Session) (string, string, error) {
		return *nation, fmt.Sprintf("Granted %s %d resource types", *nation, len(amounts)),
			sess.AddResources(*nation, amounts)
	})
}

func advance(a *admin, args []string) error {
	fs := flag.NewFlagSet("advance", flag.ContinueOnError)
	id := fs.String("game", "", "Game id")
	months := fs.Int("months", 1, "Months to advance")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var report *game.TurnReport
	err := a.mutate(*id, database.EventTurnAdvanced, func(sess *game.Session) (string, string, error) {
		var err error
		report, err = sess.AdvanceTurn(context.Background(), *months)
		if err != nil {
			return "", "", err
		}
		return "", fmt.Sprintf("Advanced to turn %d (%s)", report.Turn, report.Date), nil
	})
	if err != nil || report == nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NATION\tTAX\tCOMPLETED\tARRIVED")
	for _, nr := range report.Nations {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", nr.Nation, humanize.FormatFloat("#,###.##", nr.Tax),
			len(nr.Completed), len(nr.Arrived))
	}
	tw.Flush()
	for _, ic := range report.Interceptions {
		fmt.Fprintf(a.out, "%s intercepted by %s in %s\n", ic.Mover, ic.Defender, ic.Territory)
	}
	return nil
}

func summary(a *admin, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	id := fs.String("game", "", "Game id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := a.repo.Game(*id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: turn %d, %s\n", s.Name, s.Turn, s.Date)
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NATION\tTERRITORIES\tPOPULATION\tMANPOWER\tFORCES\tMONEY")
	for _, sum := range s.Summaries() {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\t%s\n",
			sum.Nation, sum.Territories,
			humanize.Comma(int64(sum.Population)),
			humanize.Comma(int64(sum.Manpower)),
			sum.Forces,
			humanize.FormatFloat("#,###.##", sum.Money),
		)
	}
	return tw.Flush()
}

func listGames(a *admin, _ []string) error {
	games, err := a.db.ListGames()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSERVER\tTURN\tDATE\tUPDATED")
	for _, g := range games {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d/%d\t%s\n",
			g.ID, g.Name, g.Server, g.Turn, g.Month, g.Year, humanize.Time(g.UpdatedAt))
	}
	return tw.Flush()
}

func deleteGame(a *admin, args []string) error {
	fs := flag.NewFlagSet("delete-game", flag.ContinueOnError)
	id := fs.String("game", "", "Game id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.db.DeleteGame(*id); err != nil {
		return err
	}
	a.repo.Invalidate(*id)
	fmt.Fprintf(a.out, "Deleted game %s\n", *id)
	return nil
}

func listLibrary(a *admin, _ []string) error {
	rulesets, err := a.db.ListRulesets()
	if err != nil {
		return err
	}
	worlds, err := a.db.ListWorlds()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tNAME\tTERRITORIES")
	for _, name := range rulesets {
		fmt.Fprintf(tw, "ruleset\t%s\t\n", name)
	}
	for _, w := range worlds {
		fmt.Fprintf(tw, "world\t%s\t%d\n", w.Name, w.Territories)
	}
	return tw.Flush()
}

func showPlayer(a *admin, args []string) error {
	fs := flag.NewFlagSet("player", flag.ContinueOnError)
	id := fs.String("id", "", "Player id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := a.db.GetPlayerByID(*id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s)\ntoken: %s\ncreated %s, last seen %s\n",
		p.Name, p.ID, p.Token, humanize.Time(p.CreatedAt), humanize.Time(p.LastSeenAt))
	return nil
}
