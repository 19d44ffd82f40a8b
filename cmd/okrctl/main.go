package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/aryan0dhankhar/okrboard/internal/client"
	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/guard"
	"github.com/aryan0dhankhar/okrboard/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/okrboard/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	app, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer app.store.Close()

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "login":
		err = app.login(ctx, args)
	case "signup":
		err = app.signup(ctx, args)
	case "logout":
		err = app.logout(ctx)
	case "whoami":
		err = app.whoami(ctx)
	case "tenant":
		err = app.tenant(ctx, args)
	case "route":
		err = app.route(ctx, args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	dir    string
	api    *client.Client
	store  *session.Store
	logger *slog.Logger
}

func newApp() (*app, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	log := logger.New(os.Stderr, getEnv("OKRCTL_LOG_LEVEL", "error"))

	breaker := circuitbreaker.New(3, 1, 30*time.Second)
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		log.Warn("api circuit state changed", slog.String("from", from.String()), slog.String("to", to.String()))
	})
	api := client.New(client.Options{BaseURL: getAPIURL(), Breaker: breaker, Logger: log})

	store := session.NewStore(session.Options{
		Auth:      api,
		Profiles:  api,
		Selection: session.NewFileSelectionStore(filepath.Join(dir, "tenant.json")),
		Logger:    log,
	})
	return &app{dir: dir, api: api, store: store, logger: log}, nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 2 {
		return errors.New("usage: okrctl login <email> <password>")
	}
	if err := a.store.Login(ctx, fs.Arg(0), fs.Arg(1)); err != nil {
		return describe(err)
	}
	if err := a.saveSession(); err != nil {
		return err
	}
	fmt.Printf("✓ Logged in as: %s (%s)\n", fs.Arg(0), a.store.Profile().Role)
	return nil
}

func (a *app) signup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 3 {
		return errors.New("usage: okrctl signup <email> <password> <full name>")
	}
	if err := a.store.Signup(ctx, fs.Arg(0), fs.Arg(1), fs.Arg(2)); err != nil {
		return describe(err)
	}
	if err := a.saveSession(); err != nil {
		return err
	}
	fmt.Printf("✓ User registered: %s\n", fs.Arg(0))
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if !a.restore(ctx) {
		fmt.Println("Not logged in")
		return nil
	}
	err := a.store.Logout(ctx)
	// Local state is gone either way.
	if rmErr := os.Remove(a.sessionFile()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		return rmErr
	}
	if err != nil {
		fmt.Printf("✓ Logged out locally (server: %v)\n", err)
		return nil
	}
	fmt.Println("✓ Logged out")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if !a.restore(ctx) {
		fmt.Println("Not logged in")
		return nil
	}
	state := a.store.Snapshot()
	p := state.Profile
	if p == nil {
		return errors.New("profile unavailable, try again")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "USER\t%s\n", p.Email)
	fmt.Fprintf(w, "NAME\t%s\n", p.FullName)
	fmt.Fprintf(w, "ROLE\t%s\n", p.Role)
	switch {
	case state.TenantID() != nil:
		fmt.Fprintf(w, "TENANT\t%s\n", *state.TenantID())
	case state.AllTenants():
		fmt.Fprintf(w, "TENANT\t(all)\n")
	default:
		fmt.Fprintf(w, "TENANT\t(none)\n")
	}
	fmt.Fprintf(w, "EXPIRES\t%s\n", time.Unix(state.Session.ExpiresAt, 0).Format(time.RFC3339))
	return w.Flush()
}

func (a *app) tenant(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: okrctl tenant <select <id>|clear|list>")
	}
	if !a.restore(ctx) {
		return errors.New("not logged in")
	}
	sess := a.store.Session()

	switch args[0] {
	case "select":
		if len(args) != 2 {
			return errors.New("usage: okrctl tenant select <id>")
		}
		if err := a.store.SelectTenant(ctx, args[1]); err != nil {
			return describe(err)
		}
		t, err := a.api.SelectTenant(ctx, sess, a.store.SelectedTenant())
		if err != nil {
			return fmt.Errorf("selection saved locally but the server refused it: %w", err)
		}
		fmt.Printf("✓ Working in %s (%s)\n", t.Name, t.ID)
	case "clear":
		if err := a.store.SelectTenant(ctx, ""); err != nil {
			return describe(err)
		}
		if err := a.api.ClearTenant(ctx, sess); err != nil {
			return fmt.Errorf("selection cleared locally but not on the server: %w", err)
		}
		fmt.Println("✓ Tenant selection cleared")
	case "list":
		tenants, err := a.api.ListTenants(ctx, sess)
		if err != nil {
			return err
		}
		selected := a.store.SelectedTenant()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\tID\tSLUG\tNAME\tACTIVE")
		for _, t := range tenants {
			mark := ""
			if t.ID == selected {
				mark = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", mark, t.ID, t.Slug, t.Name, t.IsActive)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown tenant command: %s", args[0])
	}
	return nil
}

// route evaluates the route guard locally against the restored session.
func (a *app) route(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: okrctl route <path>")
	}
	a.restore(ctx)
	d := guard.Resolve(a.store.Snapshot(), args[0])

	switch d.Kind {
	case guard.Allow:
		fmt.Printf("✓ %s: allowed\n", guard.Normalize(args[0]))
	case guard.Redirect:
		fmt.Printf("→ %s: redirect to %s (%s)\n", guard.Normalize(args[0]), d.Path, d.Reason)
	case guard.NoTenant:
		fmt.Printf("✗ %s: no organization assigned\n", guard.Normalize(args[0]))
	case guard.Loading:
		fmt.Printf("… %s: profile still loading\n", guard.Normalize(args[0]))
	default:
		fmt.Printf("✗ %s: not found\n", guard.Normalize(args[0]))
	}
	return nil
}

// restore resumes the saved session. It reports false when there is none or it is no longer valid.
func (a *app) restore(ctx context.Context) bool {
	data, err := os.ReadFile(a.sessionFile())
	if err != nil {
		return false
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		a.logger.Warn("ignoring unreadable session file", slog.String("error", err.Error()))
		return false
	}
	if err := a.store.Restore(ctx, sess); err != nil {
		a.logger.Info("saved session rejected", slog.String("error", err.Error()))
		return false
	}
	return a.store.IsAuthenticated()
}

func (a *app) saveSession() error {
	sess := a.store.Session()
	if sess == nil {
		return errors.New("no session to save")
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return os.WriteFile(a.sessionFile(), data, 0o600)
}

func (a *app) sessionFile() string {
	return filepath.Join(a.dir, "session.json")
}

func describe(err error) error {
	switch {
	case session.IsKind(err, session.KindInvalidCredentials):
		return errors.New("invalid email or password")
	case session.IsKind(err, session.KindSignupRejected):
		return fmt.Errorf("signup rejected: %w", err)
	case session.IsKind(err, session.KindNetwork), errors.Is(err, circuitbreaker.ErrOpen):
		return fmt.Errorf("cannot reach %s: %w", getAPIURL(), err)
	case errors.Is(err, session.ErrNotRoot):
		return errors.New("only root users can select a tenant")
	case errors.Is(err, session.ErrInvalidTenant):
		return errors.New("tenant id must be a UUID")
	}
	return err
}

// Helper functions
func getAPIURL() string {
	return getEnv("OKRBOARD_API", "http://localhost:8080")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate home directory: %w", err)
	}
	dir := filepath.Join(home, ".okrctl")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

func printUsage() {
	fmt.Print(`okrctl - OKR board command line client

Usage:
  okrctl <command> [arguments]

Commands:
  login <email> <password>            Sign in and save the session
  signup <email> <password> <name>    Create an account
  logout                              End the session
  whoami                              Show the signed-in profile and tenant
  tenant select <id>                  Work inside one organization (root only)
  tenant clear                        Return to the all-organization view (root only)
  tenant list                         List organizations (root only)
  route <path>                        Show what the route guard decides for a page
  help                                Show this help message

Environment Variables:
  OKRBOARD_API        API endpoint (default: http://localhost:8080)
  OKRCTL_LOG_LEVEL    Log level for diagnostics on stderr (default: error)

Examples:
  okrctl login ana@example.com s3cret-pass
  okrctl route /reports
  okrctl tenant select 0b6f3d4e-2c1a-4e53-9f0e-6a1f1e2b3c4d
`)
}
