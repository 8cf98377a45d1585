// ABOUTME: Terminal dashboard for manga-admin built on bubbletea
// ABOUTME: Shares the session file and bearer token with manga-admin-cli

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"

	"github.com/freegoat/manga-admin/internal/config"
	"github.com/freegoat/manga-admin/internal/dashboard"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "help", "-h", "--help":
			fmt.Println("Usage: manga-admin-tui")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  MANGA_ADMIN_URL      Server URL (default http://localhost:8080)")
			fmt.Println("  MANGA_ADMIN_TOKEN    Bearer token (default: the token file written by manga-admin token)")
			return
		}
	}

	if err := run(); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	profile := dashboard.LoadProfile(filepath.Dir(config.Path()))
	client, err := profile.NewClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := &bridge{}
	toasts := dashboard.NewToaster(dashboard.ToastDuration, func(*dashboard.Toast) { b.send(toastMsg{}) })
	ctrl := dashboard.NewController(client, modalConfirmer{send: b.send}, toasts)

	p := tea.NewProgram(newModel(ctx, ctrl, client.BaseURL()), tea.WithAltScreen(), tea.WithContext(ctx))
	b.program = p

	_, runErr := p.Run()
	cancel()
	if err := profile.SaveSession(client); err != nil {
		return err
	}
	return runErr
}

// bridge delivers messages from controller goroutines and toast timers into
// the running program.
type bridge struct {
	program *tea.Program
}

// send never blocks the caller; Program.Send waits for the event loop, which
// may be the caller itself.
func (b *bridge) send(msg tea.Msg) {
	if b.program != nil {
		go b.program.Send(msg)
	}
}

// modalConfirmer shows the confirmation modal and waits for the answer.
type modalConfirmer struct {
	send func(tea.Msg)
}

func (c modalConfirmer) Confirm(ctx context.Context, prompt string) bool {
	reply := make(chan bool, 1)
	c.send(confirmMsg{prompt: prompt, reply: reply})
	select {
	case ok := <-reply:
		return ok
	case <-ctx.Done():
		return false
	}
}
