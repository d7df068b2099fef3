package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"studyplan/internal/app"
	"studyplan/internal/calendar"
	"studyplan/internal/plan"
	"studyplan/internal/projector"
	"studyplan/internal/schedule"
	"studyplan/internal/sequencer"
)

var errUsage = errors.New("usage")

func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "plan":
		return c.plan(ctx, args)
	case "show":
		return c.show(ctx, args)
	case "agenda":
		return c.agenda(ctx, args)
	case "save":
		return c.save(ctx, args)
	case "load":
		return c.load(ctx, args)
	case "edit":
		return c.edit(ctx, args)
	case "delete":
		return c.delete(ctx, args)
	case "snapshots":
		return c.snapshots(ctx, args)
	case "serve":
		return c.app.Serve(ctx)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func (c *cli) plan(ctx context.Context, args []string) error {
	if err := newFlagSet("plan").Parse(args); err != nil {
		return err
	}
	res, err := c.app.Sequence(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(c.out, c.r.List(schedule.Flatten(res.Assignment)))
	fmt.Fprintln(c.out)
	fmt.Fprint(c.out, c.r.Span(sequencer.SpanOf(res.Assignment)))
	fmt.Fprint(c.out, c.r.Load(c.app.WeeklyLoad(res.Assignment)))
	return nil
}

func (c *cli) show(ctx context.Context, args []string) error {
	fs := newFlagSet("show")
	offset := fs.Int("offset", 0, "months relative to the reference month")
	months := fs.Int("months", 1, "number of consecutive months to print")
	ref := fs.String("ref", "", "reference date YYYY-MM-DD (default today)")
	saved := fs.Bool("saved", false, "show the stored snapshot instead of a fresh plan")
	user := fs.String("user", "", "snapshot key (with -saved)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	refDate, err := c.refDate(*ref)
	if err != nil {
		return err
	}
	var asg plan.Assignment
	if *saved {
		asg, _, err = c.app.LoadAssignment(ctx, *user)
	} else {
		var res app.Result
		res, err = c.app.Sequence(ctx)
		asg = res.Assignment
	}
	if err != nil {
		return err
	}
	return c.grids(asg, refDate, *offset, *months)
}

func (c *cli) agenda(ctx context.Context, args []string) error {
	fs := newFlagSet("agenda")
	date := fs.String("date", "", "day YYYY-MM-DD (default today)")
	user := fs.String("user", "", "snapshot key")
	if err := fs.Parse(args); err != nil {
		return err
	}
	day, err := c.refDate(*date)
	if err != nil {
		return err
	}
	entries, err := c.app.Agenda(ctx, *user, day)
	if err != nil {
		return err
	}
	fmt.Fprint(c.out, c.r.Agenda(day, entries))
	return nil
}

func (c *cli) save(ctx context.Context, args []string) error {
	fs := newFlagSet("save")
	user := fs.String("user", "", "snapshot key (default planner.user)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	snap, err := c.app.Save(ctx, *user)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "saved %s (%d entries)\n", snap.ID, len(snap.Entries))
	return nil
}

func (c *cli) load(ctx context.Context, args []string) error {
	fs := newFlagSet("load")
	user := fs.String("user", "", "snapshot key (default planner.user)")
	offset := fs.Int("offset", 0, "months relative to the snapshot start")
	months := fs.Int("months", 1, "number of consecutive months to print")
	list := fs.Bool("list", false, "print the entry list instead of a grid")
	if err := fs.Parse(args); err != nil {
		return err
	}
	asg, snap, err := c.app.LoadAssignment(ctx, *user)
	if err != nil {
		return err
	}
	if *list {
		fmt.Fprint(c.out, c.r.List(snap.Plan()))
		return nil
	}
	return c.grids(asg, snap.StartDate, *offset, *months)
}

// grids prints months consecutive month grids, the first one offset
// months away from ref.
func (c *cli) grids(asg plan.Assignment, ref calendar.Date, offset, months int) error {
	if months < 1 {
		return fmt.Errorf("%w: -months must be >= 1", errUsage)
	}
	nav := projector.NewNavigator(ref)
	g := nav.Seek(asg, offset)
	for i := 0; ; i++ {
		fmt.Fprint(c.out, c.r.Grid(g))
		if i == months-1 {
			return nil
		}
		fmt.Fprintln(c.out)
		g = nav.Next(asg)
	}
}

func (c *cli) edit(ctx context.Context, args []string) error {
	fs := newFlagSet("edit")
	user := fs.String("user", "", "snapshot key (default planner.user)")
	entry := fs.String("entry", "", "entry id, e.g. ielts#3")
	move := fs.String("move", "", "move the entry to YYYY-MM-DD")
	color := fs.Int("color", -1, "set the entry color slot")
	resize := fs.String("resize", "", "set session I (1-based) to MIN minutes, as I=MIN")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*entry) == "" {
		return fmt.Errorf("%w: edit needs -entry", errUsage)
	}
	m, err := parseMutation(*move, *color, *resize)
	if err != nil {
		return err
	}
	snap, err := c.app.Edit(ctx, *user, *entry, m)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s %s, saved %s\n", m.Kind(), *entry, snap.ID)
	return nil
}

// parseMutation builds exactly one edit from the edit flags. color < 0
// means unset.
func parseMutation(move string, color int, resize string) (schedule.Mutation, error) {
	var out []schedule.Mutation
	if move != "" {
		d, err := calendar.ParseKey(move)
		if err != nil {
			return nil, fmt.Errorf("-move: %w", err)
		}
		out = append(out, schedule.MoveTo{Date: d})
	}
	if color >= 0 {
		out = append(out, schedule.Retag{ColorIndex: color})
	}
	if resize != "" {
		is, ms, ok := strings.Cut(resize, "=")
		if !ok {
			return nil, fmt.Errorf("-resize: want I=MIN, got %q", resize)
		}
		i, err := strconv.Atoi(strings.TrimSpace(is))
		if err != nil || i < 1 {
			return nil, fmt.Errorf("-resize: bad session index %q", is)
		}
		m, err := strconv.Atoi(strings.TrimSpace(ms))
		if err != nil {
			return nil, fmt.Errorf("-resize: bad minutes %q", ms)
		}
		out = append(out, schedule.Resize{Session: i - 1, Minutes: m})
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%w: edit needs exactly one of -move, -color, -resize", errUsage)
	}
	return out[0], nil
}

func (c *cli) delete(ctx context.Context, args []string) error {
	fs := newFlagSet("delete")
	user := fs.String("user", "", "snapshot key (default planner.user)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ok, err := c.app.Delete(ctx, *user)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(c.out, "nothing to delete")
		return nil
	}
	fmt.Fprintln(c.out, "deleted")
	return nil
}

func (c *cli) snapshots(ctx context.Context, args []string) error {
	if err := newFlagSet("snapshots").Parse(args); err != nil {
		return err
	}
	recs, err := c.app.Snapshots(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(c.out, c.r.Snapshots(recs, c.app.Now()))
	return nil
}

func (c *cli) refDate(s string) (calendar.Date, error) {
	if strings.TrimSpace(s) == "" {
		return c.app.Today(), nil
	}
	return calendar.ParseKey(s)
}
