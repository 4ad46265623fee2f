package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"nutrilog/internal/food"
	"nutrilog/internal/ledger"
	"nutrilog/internal/syncclient"
)

var errUsage = errors.New("invalid arguments")

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func (a *app) register(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: register EMAIL PASSWORD", errUsage)
	}
	token, err := a.client.Register(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return a.saveToken(token)
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: login EMAIL PASSWORD", errUsage)
	}
	token, err := a.client.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return a.saveToken(token)
}

func (a *app) saveToken(token string) error {
	if err := os.MkdirAll(a.cfg.Home, 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(a.cfg.Home, tokenFile), []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	fmt.Fprintln(a.out, "signed in")
	return nil
}

func (a *app) logout() error {
	err := os.Remove(filepath.Join(a.cfg.Home, tokenFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	fmt.Fprintln(a.out, "signed out")
	return nil
}

func (a *app) show(args []string) error {
	fs := a.flags("show")
	date := fs.String("date", a.ledger.CurrentDate(), "day to show (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := ledger.ParseDate(*date); err != nil {
		return err
	}

	day := a.ledger.Day(*date)
	fmt.Fprintf(a.out, "%s\n\n", *date)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, mt := range ledger.MealTypes {
		for _, m := range day.Meals {
			if m.MealType != mt {
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\tx%g\t%.0f kcal\n", mt, m.ID, m.FoodItem.Name, m.Quantity, m.Quantity*m.FoodItem.Calories)
		}
	}
	_ = tw.Flush()

	p := day.Progress(a.ledger.Goals())
	fmt.Fprintln(a.out)
	printProgress(a, "calories", p.Calories, "kcal")
	printProgress(a, "protein", p.Protein, "g")
	printProgress(a, "carbs", p.Carbs, "g")
	printProgress(a, "fat", p.Fat, "g")
	printProgress(a, "water", p.Water, "ml")
	if day.MoodRating != nil {
		fmt.Fprintf(a.out, "mood      %d/5 %s\n", *day.MoodRating, day.Notes)
	}
	return nil
}

func printProgress(a *app, name string, p ledger.Progress, unit string) {
	fmt.Fprintf(a.out, "%-9s %.1f / %.1f %s (%.0f%%)\n", name, p.Consumed, p.Goal, unit, p.Percent*100)
}

func (a *app) week(args []string) error {
	fs := a.flags("week")
	end := fs.String("end", a.ledger.CurrentDate(), "last day of the week (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	days, err := a.ledger.Week(*end)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "date\tkcal\tprotein\tcarbs\tfat\twater\tmeals\tmood")
	for _, d := range days {
		mood := "-"
		if d.MoodRating != nil {
			mood = strconv.Itoa(*d.MoodRating)
		}
		fmt.Fprintf(tw, "%s\t%.0f\t%.1f\t%.1f\t%.1f\t%.0f\t%d\t%s\n",
			d.Date, d.Totals.Calories, d.Totals.Protein, d.Totals.Carbs, d.Totals.Fat, d.WaterIntake, d.MealCount, mood)
	}
	return tw.Flush()
}

func (a *app) date(args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, a.ledger.CurrentDate())
		return nil
	}
	if err := a.ledger.SetCurrentDate(args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, a.ledger.CurrentDate())
	return nil
}

// customFlags registers the custom food form on fs.
type customFlags struct {
	name                     *string
	cal, protein, carbs, fat *float64
	serving                  *string
}

func addCustomFlags(fs *flag.FlagSet) customFlags {
	return customFlags{
		name:    fs.String("name", "", "custom food name"),
		cal:     fs.Float64("cal", 0, "calories per serving"),
		protein: fs.Float64("protein", 0, "protein grams per serving"),
		carbs:   fs.Float64("carbs", 0, "carbohydrate grams per serving"),
		fat:     fs.Float64("fat", 0, "fat grams per serving"),
		serving: fs.String("serving", "1 serving", "serving size"),
	}
}

func (c customFlags) item() (food.Item, error) {
	it := food.NewCustom(*c.name, *c.cal, *c.protein, *c.carbs, *c.fat, *c.serving)
	return it, it.Validate()
}

// pickFood resolves the food for add and fav add.
func (a *app) pickFood(catalogID, favID string, custom customFlags) (food.Item, error) {
	switch {
	case catalogID != "":
		it, ok := a.catalog.Get(catalogID)
		if !ok {
			return food.Item{}, fmt.Errorf("no catalog food %q", catalogID)
		}
		return it, nil
	case favID != "":
		for _, it := range a.ledger.Favorites() {
			if it.ID == favID {
				return it, nil
			}
		}
		return food.Item{}, fmt.Errorf("no favorite %q", favID)
	case *custom.name != "":
		return custom.item()
	}
	return food.Item{}, fmt.Errorf("%w: one of -food, -fav or -name is required", errUsage)
}

func parseMealType(s string) (ledger.MealType, error) {
	mt := ledger.MealType(strings.ToLower(s))
	if !mt.Valid() {
		return "", fmt.Errorf("%w: meal must be breakfast, lunch, dinner or snack", errUsage)
	}
	return mt, nil
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := a.flags("add")
	meal := fs.String("meal", "snack", "breakfast, lunch, dinner or snack")
	qty := fs.Float64("qty", 1, "servings")
	date := fs.String("date", "", "day to log (default current date)")
	catalogID := fs.String("food", "", "catalog food id")
	favID := fs.String("fav", "", "favorite food id")
	code := fs.String("barcode", "", "product barcode")
	save := fs.Bool("save", false, "also keep a custom food as favorite")
	custom := addCustomFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	mt, err := parseMealType(*meal)
	if err != nil {
		return err
	}
	if *qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive", errUsage)
	}
	if *date != "" {
		if _, err := ledger.ParseDate(*date); err != nil {
			return err
		}
	}

	var it food.Item
	if *code != "" {
		p, err := a.client.Barcode(ctx, *code)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("no product found for %s", *code)
		}
		it = *p
	} else if it, err = a.pickFood(*catalogID, *favID, custom); err != nil {
		return err
	}
	if *save && it.Source == food.SourceCustom {
		it = a.ledger.AddFavorite(it)
	}

	e := a.ledger.AddMeal(ledger.MealEntry{MealType: mt, FoodItem: it, Quantity: *qty, Date: *date})
	fmt.Fprintf(a.out, "logged %s x%g for %s on %s (%s)\n", it.Name, e.Quantity, e.MealType, e.Date, e.ID)
	return nil
}

func (a *app) edit(args []string) error {
	fs := a.flags("edit")
	qty := fs.Float64("qty", 0, "new quantity")
	meal := fs.String("meal", "", "new meal type")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: edit [-qty N] [-meal TYPE] ID", errUsage)
	}

	var changes ledger.MealUpdate
	if *qty != 0 {
		if *qty < 0 {
			return fmt.Errorf("%w: quantity must be positive", errUsage)
		}
		changes.Quantity = qty
	}
	if *meal != "" {
		mt, err := parseMealType(*meal)
		if err != nil {
			return err
		}
		changes.MealType = &mt
	}
	if !a.ledger.UpdateMealEntry(fs.Arg(0), changes) {
		return fmt.Errorf("no meal %q", fs.Arg(0))
	}
	fmt.Fprintln(a.out, "updated", fs.Arg(0))
	return nil
}

func (a *app) remove(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: remove ID", errUsage)
	}
	if !a.ledger.RemoveMeal(args[0]) {
		return fmt.Errorf("no meal %q", args[0])
	}
	fmt.Fprintln(a.out, "removed", args[0])
	return nil
}

func (a *app) water(args []string) error {
	fs := a.flags("water")
	date := fs.String("date", a.ledger.CurrentDate(), "day (YYYY-MM-DD)")
	reset := fs.Bool("reset", false, "set the day's water to zero")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *reset {
		if err := a.ledger.ResetWaterIntake(*date); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "water reset for %s\n", *date)
		return nil
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: water [-date D] ML", errUsage)
	}
	ml, err := strconv.ParseFloat(fs.Arg(0), 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", errUsage, fs.Arg(0))
	}
	total, err := a.ledger.AddWaterIntake(*date, ml)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%.0f ml on %s\n", total, *date)
	return nil
}

func (a *app) mood(args []string) error {
	fs := a.flags("mood")
	date := fs.String("date", a.ledger.CurrentDate(), "day (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%w: mood [-date D] RATING [NOTES]", errUsage)
	}
	rating, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		return ledger.ErrMoodRating
	}
	notes := strings.Join(fs.Args()[1:], " ")
	if err := a.ledger.UpdateDailyMood(*date, rating, notes); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "mood %d/5 on %s\n", rating, *date)
	return nil
}

func (a *app) clear() error {
	a.ledger.ClearTodayData()
	fmt.Fprintf(a.out, "cleared meals for %s\n", a.ledger.CurrentDate())
	return nil
}

func (a *app) goals(args []string) error {
	fs := a.flags("goals")
	cal := fs.Float64("calories", 0, "daily calories")
	protein := fs.Int("protein", 0, "protein share in percent")
	carbs := fs.Int("carbs", 0, "carbohydrate share in percent")
	fat := fs.Int("fat", 0, "fat share in percent")
	water := fs.Float64("water", 0, "daily water in ml")
	weight := fs.Float64("weight", 0, "weight goal in kg")
	if err := fs.Parse(args); err != nil {
		return err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var patch ledger.GoalsPatch
	if set["calories"] {
		patch.DailyCalories = cal
	}
	if set["protein"] || set["carbs"] || set["fat"] {
		m := a.ledger.Goals().Macros
		if set["protein"] {
			m.Protein = *protein
		}
		if set["carbs"] {
			m.Carbs = *carbs
		}
		if set["fat"] {
			m.Fat = *fat
		}
		patch.Macros = &m
	}
	if set["water"] {
		patch.WaterMl = water
	}
	if set["weight"] {
		patch.WeightKg = weight
	}

	g := a.ledger.Goals()
	if len(set) > 0 {
		candidate := g
		if patch.DailyCalories != nil {
			candidate.DailyCalories = *patch.DailyCalories
		}
		if patch.Macros != nil {
			candidate.Macros = *patch.Macros
		}
		if patch.WaterMl != nil {
			candidate.WaterMl = *patch.WaterMl
		}
		if patch.WeightKg != nil {
			candidate.WeightKg = *patch.WeightKg
		}
		if err := ledger.ValidateGoals(candidate); err != nil {
			return err
		}
		g = a.ledger.UpdateGoals(patch)
	}

	p, c, f := g.MacroTargets()
	fmt.Fprintf(a.out, "calories  %.0f kcal\n", g.DailyCalories)
	fmt.Fprintf(a.out, "protein   %d%% (%.0f g)\n", g.Macros.Protein, p)
	fmt.Fprintf(a.out, "carbs     %d%% (%.0f g)\n", g.Macros.Carbs, c)
	fmt.Fprintf(a.out, "fat       %d%% (%.0f g)\n", g.Macros.Fat, f)
	fmt.Fprintf(a.out, "water     %.0f ml\n", g.WaterMl)
	fmt.Fprintf(a.out, "weight    %.1f kg\n", g.WeightKg)
	return nil
}

func (a *app) fav(args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}
	switch sub {
	case "list":
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		for _, it := range a.ledger.Favorites() {
			fmt.Fprintf(tw, "%s\t%s\t%.0f kcal\t%s\n", it.ID, it.Name, it.Calories, it.ServingSize)
		}
		return tw.Flush()
	case "add":
		fs := a.flags("fav add")
		catalogID := fs.String("food", "", "catalog food id")
		custom := addCustomFlags(fs)
		if err := fs.Parse(args); err != nil {
			return err
		}
		it, err := a.pickFood(*catalogID, "", custom)
		if err != nil {
			return err
		}
		it = a.ledger.AddFavorite(it)
		fmt.Fprintf(a.out, "saved %s (%s)\n", it.Name, it.ID)
		return nil
	case "rm", "remove":
		if len(args) != 1 {
			return fmt.Errorf("%w: fav rm ID", errUsage)
		}
		if !a.ledger.RemoveFavorite(args[0]) {
			return fmt.Errorf("no favorite %q", args[0])
		}
		fmt.Fprintln(a.out, "removed", args[0])
		return nil
	}
	return fmt.Errorf("%w: fav list|add|rm", errUsage)
}

func (a *app) search(ctx context.Context, args []string) error {
	fs := a.flags("search")
	source := fs.String("source", "local", "local or usda")
	page := fs.Int("page", 1, "result page")
	category := fs.String("category", "", "only this category")
	if err := fs.Parse(args); err != nil {
		return err
	}
	q := strings.Join(fs.Args(), " ")

	var items []food.Item
	switch *source {
	case "local":
		for _, it := range a.catalog.Search(q) {
			if *category == "" || strings.EqualFold(it.Category, *category) {
				items = append(items, it)
			}
		}
	case "usda":
		res, err := a.client.SearchFoods(ctx, "usda", food.Query{Text: q, Page: *page, Category: *category})
		if err != nil {
			return err
		}
		items = res.Items
		defer fmt.Fprintf(a.out, "page %d of %d (%d hits)\n", res.Page, res.TotalPages, res.TotalHits)
	default:
		return fmt.Errorf("%w: source must be local or usda", errUsage)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%.0f kcal\tP %.1f\tC %.1f\tF %.1f\t%s\n",
			it.ID, it.Name, it.Calories, it.Protein, it.Carbs, it.Fat, it.ServingSize)
	}
	return tw.Flush()
}

func (a *app) barcode(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: barcode CODE", errUsage)
	}
	it, err := a.client.Barcode(ctx, args[0])
	if err != nil {
		return err
	}
	if it == nil {
		fmt.Fprintf(a.out, "no product found for %s\n", args[0])
		return nil
	}
	fmt.Fprintf(a.out, "%s %s\n%.0f kcal, P %.1f g, C %.1f g, F %.1f g per %s\n",
		it.Brand, it.Name, it.Calories, it.Protein, it.Carbs, it.Fat, it.ServingSize)
	return nil
}

func (a *app) syncNow(ctx context.Context, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "synced")
	return nil
}

func (a *app) watch(ctx context.Context) error {
	if !a.client.HasToken() {
		return syncclient.ErrUnauthorized
	}
	fmt.Fprintln(a.out, "watching for connectivity, press Ctrl-C to stop")
	a.syncer.Run(ctx)
	return nil
}
