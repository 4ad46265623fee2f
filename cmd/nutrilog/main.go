// Command nutrilog is the nutrition log client. The ledger lives in a JSON
// file under NUTRILOG_HOME and is synchronized with a nutrilogd server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"nutrilog/internal/config"
	"nutrilog/internal/cooldown"
	"nutrilog/internal/food"
	"nutrilog/internal/ledger"
	"nutrilog/internal/logger"
	"nutrilog/internal/syncclient"
)

const tokenFile = "token"

const usage = `usage: nutrilog <command> [flags] [args]

commands:
  register EMAIL PASSWORD   create an account and sign in
  login EMAIL PASSWORD      sign in
  logout                    forget the stored token
  show [-date D]            meals, totals and progress for a day
  week [-end D]             seven daily summaries
  date [D]                  print or set the current date
  add                       log a meal (see nutrilog add -h)
  edit ID                   change a meal's quantity or type
  remove ID                 delete a meal
  water ML | water -reset   add water for the current date
  mood RATING [NOTES]       rate the current date from 1 to 5
  clear                     remove today's meals
  goals                     print or change goals
  fav [list|add|rm]         manage favorite foods
  search QUERY              search foods
  barcode CODE              look up a product
  sync | pull | push        synchronize with the server
  watch                     sync at start-up and whenever the server comes back
`

type app struct {
	cfg     config.Client
	out     io.Writer
	log     *zap.Logger
	store   *ledger.FileStore
	ledger  *ledger.Ledger
	catalog *food.Catalog
	client  *syncclient.Client
	syncer  *syncclient.Syncer
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(os.Getenv("ENV"))
	defer func() { _ = log.Sync() }()

	a, err := newApp(cfg, os.Stdout, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "nutrilog:", describe(err))
		os.Exit(1)
	}
}

// newApp restores the ledger from cfg.Home and wires it to the server.
func newApp(cfg config.Client, out io.Writer, log *zap.Logger) (*app, error) {
	store := ledger.NewFileStore(cfg.Home)
	state, err := store.Load()
	if err != nil {
		return nil, err
	}
	l := ledger.New(ledger.WithPersister(store), ledger.WithLogger(log.Named("ledger")))
	l.Restore(state.Snapshot)

	catalog, err := food.LoadCatalog()
	if err != nil {
		return nil, err
	}

	token := cfg.Token
	if token == "" {
		b, err := os.ReadFile(filepath.Join(cfg.Home, tokenFile))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read token: %w", err)
		}
		token = strings.TrimSpace(string(b))
	}
	client := syncclient.NewClient(cfg.ServerURL, token, &http.Client{Timeout: 15 * time.Second})
	syncer := syncclient.NewSyncer(l, client, cooldown.New(cfg.SyncCooldown), store, log.Named("sync"), syncclient.Options{
		StartupDelay:  cfg.AutoSyncDelay,
		ProbeInterval: cfg.ConnectivityProbe,
	})

	return &app{
		cfg:     cfg,
		out:     out,
		log:     log,
		store:   store,
		ledger:  l,
		catalog: catalog,
		client:  client,
		syncer:  syncer,
	}, nil
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout()
	case "show":
		return a.show(args)
	case "week":
		return a.week(args)
	case "date":
		return a.date(args)
	case "add":
		return a.add(ctx, args)
	case "edit":
		return a.edit(args)
	case "remove", "rm":
		return a.remove(args)
	case "water":
		return a.water(args)
	case "mood":
		return a.mood(args)
	case "clear":
		return a.clear()
	case "goals":
		return a.goals(args)
	case "fav":
		return a.fav(args)
	case "search":
		return a.search(ctx, args)
	case "barcode":
		return a.barcode(ctx, args)
	case "sync":
		return a.syncNow(ctx, a.syncer.Sync)
	case "pull":
		return a.syncNow(ctx, a.syncer.Pull)
	case "push":
		return a.syncNow(ctx, a.syncer.Push)
	case "watch":
		return a.watch(ctx)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
}

// describe turns sync errors into something a person can act on.
func describe(err error) string {
	var ce *syncclient.CooldownError
	switch {
	case errors.As(err, &ce):
		return fmt.Sprintf("please wait %s before syncing again", ce.Remaining.Round(time.Second))
	case errors.Is(err, syncclient.ErrUnauthorized):
		return "not signed in, run nutrilog login"
	}
	return err.Error()
}
