// ABOUTME: Scripted admin client for the manga-admin HTTP API
// ABOUTME: Authenticates with a saved session cookie or a bearer token and prints tables

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/freegoat/manga-admin/internal/config"
	"github.com/freegoat/manga-admin/internal/dashboard"
)

const banner = `
  _ __ ___   __ _ _ __   __ _  __ _        ___| (_)
 | '_ ' _ \ / _' | '_ \ / _' |/ _' |_____ / __| | |
 | | | | | | (_| | | | | (_| | (_| |_____| (__| | |
 |_| |_| |_|\__,_|_| |_|\__, |\__,_|      \___|_|_|
                        |___/
`

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage(os.Stdout)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	app, err := newApp(os.Stdout)
	if err == nil {
		err = app.run(ctx, cmd, args)
	}
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Fprint(w, banner)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: manga-admin-cli <command> [args]")
	fmt.Fprintln(w)
	yellow.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  login <username> <password>           Start a session and save its cookie")
	fmt.Fprintln(w, "  logout                                End the saved session")
	fmt.Fprintln(w, "  whoami                                Show who the server thinks you are")
	fmt.Fprintln(w, "  stats                                 Dashboard statistics")
	fmt.Fprintln(w, "  notifications [list]                  List notifications")
	fmt.Fprintln(w, "  notifications send <title> <body> [type] [priority]")
	fmt.Fprintln(w, "  notifications delete <id>")
	fmt.Fprintln(w, "  repos [list]                          List repositories")
	fmt.Fprintln(w, "  repos add <name> <url> [description]")
	fmt.Fprintln(w, "  repos toggle|refresh|delete <id>")
	fmt.Fprintln(w, "  repos refresh-all")
	fmt.Fprintln(w, "  users [list] | users delete <id>")
	fmt.Fprintln(w, "  manga [list] | manga delete <id>")
	fmt.Fprintln(w, "  quick <clear-cache|export-data|backup>")
	fmt.Fprintln(w, "  audit [limit]                         Recent admin actions")
	fmt.Fprintln(w)
	yellow.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  MANGA_ADMIN_URL      Server URL (default http://localhost:8080)")
	fmt.Fprintln(w, "  MANGA_ADMIN_TOKEN    Bearer token (default: the token file written by manga-admin token)")
	fmt.Fprintln(w)
}

// app is one CLI invocation.
type app struct {
	client  *dashboard.Client
	out     io.Writer
	profile dashboard.Profile
}

func newApp(out io.Writer) (*app, error) {
	profile := dashboard.LoadProfile(filepath.Dir(config.Path()))
	client, err := profile.NewClient()
	if err != nil {
		return nil, err
	}
	return &app{client: client, out: out, profile: profile}, nil
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.cmdLogin(ctx, args)
	case "logout":
		return a.cmdLogout(ctx)
	case "whoami":
		return a.cmdWhoami(ctx)
	case "stats":
		return a.cmdStats(ctx)
	case "notifications":
		return a.cmdNotifications(ctx, args)
	case "repos":
		return a.cmdRepos(ctx, args)
	case "users":
		return a.cmdUsers(ctx, args)
	case "manga":
		return a.cmdManga(ctx, args)
	case "quick":
		return a.cmdQuick(ctx, args)
	case "audit":
		return a.cmdAudit(ctx, args)
	default:
		printUsage(a.out)
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// subcommand splits "list" (the default) from the rest.
func subcommand(args []string) (string, []string) {
	if len(args) == 0 {
		return "list", nil
	}
	return args[0], args[1:]
}

func need(args []string, n int, usage string) error {
	if len(args) < n {
		return errors.New("usage: " + usage)
	}
	return nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	if err := need(args, 2, "login <username> <password>"); err != nil {
		return err
	}
	name, err := a.client.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if err := a.profile.SaveSession(a.client); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(a.out, "  ✓ Logged in as %s\n", name)
	return nil
}

func (a *app) cmdLogout(ctx context.Context) error {
	err := a.client.Logout(ctx)
	_ = a.profile.ClearSession()
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintln(a.out, "  ✓ Logged out")
	return nil
}

func (a *app) cmdWhoami(ctx context.Context) error {
	res, err := a.client.Check(ctx)
	if err != nil {
		return err
	}
	if !res.Authenticated {
		color.New(color.FgYellow).Fprintln(a.out, "  not logged in (run login, or set MANGA_ADMIN_TOKEN)")
		return nil
	}
	fmt.Fprintf(a.out, "  %s @ %s\n", res.Username(), a.client.BaseURL())
	return nil
}
