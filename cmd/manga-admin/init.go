// ABOUTME: Interactive config file generator
// ABOUTME: Prompts for listeners, database, tailscale, matrix and logging, then writes YAML

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/freegoat/manga-admin/internal/config"
)

func runInit() error {
	return initConfig(bufio.NewReader(os.Stdin), os.Stdout)
}

func initConfig(reader *bufio.Reader, out io.Writer) error {
	fmt.Fprintln(out, "manga-admin configuration setup")
	fmt.Fprintln(out, "===============================")
	fmt.Fprintln(out)

	cfg, err := newConfigWithSecrets()
	if err != nil {
		return err
	}

	outputFile := prompt(reader, out, "Config file path", config.Path())
	if _, err := os.Stat(outputFile); err == nil {
		if !yes(prompt(reader, out, "File exists. Overwrite?", "no")) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	fmt.Fprintln(out, "\n--- Server ---")
	cfg.Server.HTTPAddr = prompt(reader, out, "HTTP address", cfg.Server.HTTPAddr)
	cfg.Server.GRPCAddr = prompt(reader, out, "gRPC health address (empty to disable)", "")
	if origins := prompt(reader, out, "Allowed CORS origins (comma separated, empty for any)", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.Server.CORSOrigins = append(cfg.Server.CORSOrigins, o)
			}
		}
	}

	fmt.Fprintln(out, "\n--- Database ---")
	cfg.Database.Driver = prompt(reader, out, "Driver (sqlite/sqlite3)", cfg.Database.Driver)
	cfg.Database.Path = prompt(reader, out, "SQLite database path", cfg.Database.Path)

	fmt.Fprintln(out, "\n--- Login ---")
	cfg.Auth.AdminUsername = prompt(reader, out, "Admin username", cfg.Auth.AdminUsername)
	cfg.Auth.AdminPassword = prompt(reader, out, "Static admin password", cfg.Auth.AdminPassword)
	cfg.Auth.SessionStore = prompt(reader, out, "Session store (memory/database)", cfg.Auth.SessionStore)

	fmt.Fprintln(out, "\n--- Tailscale ---")
	cfg.Tailscale.Enabled = yes(prompt(reader, out, "Enable Tailscale?", "no"))
	if cfg.Tailscale.Enabled {
		cfg.Tailscale.Hostname = prompt(reader, out, "Tailscale hostname", "manga-admin")
		cfg.Tailscale.AuthKey = prompt(reader, out, "Tailscale auth key (empty to use TS_AUTHKEY)", "")
		cfg.Tailscale.Ephemeral = yes(prompt(reader, out, "Ephemeral node?", "no"))
		cfg.Tailscale.Funnel = yes(prompt(reader, out, "Enable Funnel (public HTTPS)?", "no"))
		if !cfg.Tailscale.Funnel {
			cfg.Tailscale.HTTPS = yes(prompt(reader, out, "Serve HTTPS with the tailnet certificate?", "yes"))
		}
	}

	fmt.Fprintln(out, "\n--- Matrix notifications ---")
	m := &cfg.Notify.Matrix
	m.Enabled = yes(prompt(reader, out, "Post notifications to a Matrix room?", "no"))
	if m.Enabled {
		m.Homeserver = prompt(reader, out, "Homeserver URL", "https://matrix.org")
		m.UserID = prompt(reader, out, "Bot user ID", "")
		m.AccessToken = prompt(reader, out, "Access token", "${MATRIX_ACCESS_TOKEN}")
		m.RoomID = prompt(reader, out, "Room ID", "")
	}

	fmt.Fprintln(out, "\n--- Logging ---")
	cfg.Logging.Level = prompt(reader, out, "Log level (debug/info/warn/error)", cfg.Logging.Level)
	cfg.Logging.Format = prompt(reader, out, "Log format (text/json)", cfg.Logging.Format)

	if err := config.Write(outputFile, cfg); err != nil {
		return err
	}
	dataDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", outputFile)
	fmt.Fprintf(out, "Data directory: %s\n", dataDir)
	fmt.Fprintln(out, "\nTo start the server:")
	fmt.Fprintln(out, "  manga-admin serve")
	return nil
}

func yes(answer string) bool {
	a := strings.ToLower(answer)
	return a == "yes" || a == "y"
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// EOF keeps the default
		fmt.Fprintln(out)
		if s := strings.TrimSpace(input); s != "" {
			return s
		}
		return defaultVal
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}
