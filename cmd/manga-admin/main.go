// ABOUTME: Entry point for the manga-admin dashboard server
// ABOUTME: Subcommands serve, init, bootstrap, token and health

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/freegoat/manga-admin/internal/config"
	"github.com/freegoat/manga-admin/internal/server"
)

// Version is set at build time.
var version = "dev"

const banner = `
                                                  _           _
  _ __ ___   __ _ _ __   __ _  __ _        __ _  __| |_ __ ___ (_)_ __
 | '_ ' _ \ / _' | '_ \ / _' |/ _' |_____ / _' |/ _' | '_ ' _ \| | '_ \
 | | | | | | (_| | | | | (_| | (_| |_____| (_| | (_| | | | | | | | | | |
 |_| |_| |_|\__,_|_| |_|\__, |\__,_|      \__,_|\__,_|_| |_| |_|_|_| |_|
                        |___/
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: manga-admin <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                                   Start the dashboard server")
		fmt.Println("  init                                    Create a new config file interactively")
		fmt.Println("  bootstrap --username U --password P     Create config, database, demo data and an admin")
		fmt.Println("  token --username U [--ttl 720h]         Issue a bearer token for the CLI and TUI")
		fmt.Println("  health                                  Check server health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "bootstrap":
		err = runBootstrap(ctx, os.Args[2:])
	case "token":
		err = runToken(os.Args[2:])
	case "health":
		err = runHealth(ctx)
	case "version", "--version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := config.Path()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s (%s)\n", cfg.Database.Path, cfg.Database.Driver)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	if cfg.Server.GRPCAddr != "" {
		green.Print("    ▶ ")
		fmt.Printf("gRPC:      %s (health)\n", cfg.Server.GRPCAddr)
	}
	green.Print("    ▶ ")
	fmt.Printf("Sessions:  %s\n", cfg.Auth.SessionStore)
	if cfg.Notify.Matrix.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Matrix:    %s\n", cfg.Notify.Matrix.RoomID)
	}
	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}
	fmt.Println()

	logger.Info("starting manga-admin",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"grpc_addr", cfg.Server.GRPCAddr,
	)

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return srv.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := healthURL(cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	fmt.Println("healthy")
	return nil
}

// healthURL turns a listen address such as ":8080" into a dialable URL.
func healthURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return fmt.Sprintf("http://%s/health", addr)
}

// tokenPath is where bootstrap and token save the bearer token for the clients.
func tokenPath() string {
	return filepath.Join(filepath.Dir(config.Path()), "token")
}

// flagValue reads "--name value" or "--name=value" from args.
func flagValue(args []string, names ...string) (string, error) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		for _, name := range names {
			if arg == name {
				if i+1 >= len(args) {
					return "", fmt.Errorf("%s requires a value", name)
				}
				return args[i+1], nil
			}
			if strings.HasPrefix(arg, name+"=") {
				return strings.TrimPrefix(arg, name+"="), nil
			}
		}
	}
	return "", nil
}

// checkFlags rejects anything that is not one of the known flags or their values.
func checkFlags(args []string, known ...string) error {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			return fmt.Errorf("unexpected argument: %s", arg)
		}
		name, _, hasValue := strings.Cut(arg, "=")
		ok := false
		for _, k := range known {
			if name == k {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("unknown flag: %s", arg)
		}
		if !hasValue {
			i++
		}
	}
	return nil
}
