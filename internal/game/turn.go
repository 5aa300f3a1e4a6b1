package game

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"grand-strategy/internal/gamerule"
	"grand-strategy/internal/world"
)

// NationReport is what happened to one nation during a turn.
type NationReport struct {
	Nation    string    `json:"nation"`
	Income    Resources `json:"income"`
	Tax       float64   `json:"tax"`
	Completed []string  `json:"completed,omitempty"`
	Arrived   []string  `json:"arrived,omitempty"`
}

// TurnReport summarises an advanced turn.
type TurnReport struct {
	Turn          int            `json:"turn"`
	Date          Date           `json:"date"`
	Months        int            `json:"months"`
	Interceptions []Interception `json:"interceptions,omitempty"`
	Nations       []NationReport `json:"nations"`
}

// AdvanceTurn moves the game forward by the given number of months.
//
// The turn is computed on a copy of the savegame and swapped in only when
// every step succeeds, so a failed turn leaves s untouched. Pointers into the
// previous nations are not updated. Nations are processed in parallel by up
// to workers goroutines after a single interception pass.
func (s *Savegame) AdvanceTurn(ctx context.Context, rules *gamerule.Gamerule, w *world.World, months, workers int) (report *TurnReport, err error) {
	if months <= 0 {
		return nil, inputf(ErrInvalidArgument, "months must be positive, got %d", months)
	}
	if workers <= 0 {
		workers = 1
	}
	defer func() {
		if r := recover(); r != nil {
			report, err = nil, logicf(ErrCorruptState, "turn panicked: %v", r)
		}
	}()

	next := s.Clone()
	next.Date = s.Date.AddMonths(months)
	next.Turn = s.Turn + 1

	intercepts, err := next.intercept(rules, months)
	if err != nil {
		return nil, err
	}

	names := next.NationNames()
	reports := make([]NationReport, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range names {
		n := next.Nations[name]
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = logicf(ErrCorruptState, "nation %q panicked: %v", name, r)
				}
			}()
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i], err = n.processTurn(rules, w, next.Date, months)
			if err != nil {
				return fmt.Errorf("nation %q: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	next.markChanged()
	*s = *next

	slog.Info("turn advanced", "game", s.ID, "turn", s.Turn, "date", s.Date, "months", months,
		"interceptions", len(intercepts))
	return &TurnReport{
		Turn:          s.Turn,
		Date:          s.Date,
		Months:        months,
		Interceptions: intercepts,
		Nations:       reports,
	}, nil
}

// processTurn runs one nation's part of a turn: growth, construction, income,
// tax and military. Deltas are merged into the ledger at the end.
func (n *Nation) processTurn(rules *gamerule.Gamerule, w *world.World, now Date, months int) (NationReport, error) {
	report := NationReport{Nation: n.Name}

	n.growPopulation(months)

	completed, err := n.advanceBuildings(rules, now)
	if err != nil {
		return report, err
	}
	report.Completed = completed

	income, err := n.buildingIncome(rules, w)
	if err != nil {
		return report, err
	}
	income = income.Scaled(float64(months))

	report.Tax = n.taxIncome(rules, months)
	income[gamerule.Money] += report.Tax

	upkeep, arrived, err := n.processMilitary(rules, now, months)
	if err != nil {
		return report, err
	}
	report.Arrived = arrived
	income.Add(upkeep)

	n.Resources.Add(income)
	report.Income = income
	return report, nil
}
