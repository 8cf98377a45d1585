// ABOUTME: First-run setup and token issuing commands
// ABOUTME: bootstrap writes config, seeds the database and creates an admin; token mints a bearer JWT

package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/freegoat/manga-admin/internal/auth"
	"github.com/freegoat/manga-admin/internal/config"
	"github.com/freegoat/manga-admin/internal/store"
)

const defaultTokenTTL = 30 * 24 * time.Hour

func randomSecret(n int, encode func([]byte) string) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return encode(b), nil
}

// newConfigWithSecrets returns the default config with fresh JWT and cookie keys.
func newConfigWithSecrets() (*config.Config, error) {
	cfg := config.Default()

	jwtSecret, err := randomSecret(32, base64.StdEncoding.EncodeToString)
	if err != nil {
		return nil, fmt.Errorf("generating JWT secret: %w", err)
	}
	hashKey, err := randomSecret(32, hex.EncodeToString)
	if err != nil {
		return nil, fmt.Errorf("generating cookie key: %w", err)
	}
	cfg.Auth.JWTSecret = jwtSecret
	cfg.Auth.CookieHashKey = hashKey
	return cfg, nil
}

// runBootstrap is the one-command setup:
//
//	manga-admin bootstrap --username admin --password s3cret
func runBootstrap(ctx context.Context, args []string) error {
	if err := checkFlags(args, "--username", "-u", "--password", "-p"); err != nil {
		return err
	}
	username, err := flagValue(args, "--username", "-u")
	if err != nil {
		return err
	}
	password, err := flagValue(args, "--password", "-p")
	if err != nil {
		return err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return errors.New("--username is required")
	}
	if len(password) < 8 {
		return errors.New("--password must be at least 8 characters")
	}

	configPath := config.Path()
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	var cfg *config.Config
	if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
		cfg, err = newConfigWithSecrets()
		if err != nil {
			return err
		}
		cfg.Auth.AdminUsername = username
		if err := config.Write(configPath, cfg); err != nil {
			return err
		}
		green.Printf("  ✓ Created config: %s\n", configPath)
	} else {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cyan.Printf("  Using existing config: %s\n", configPath)
	}

	s, err := store.Open(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()
	green.Printf("  ✓ Database: %s\n", cfg.Database.Path)

	if cfg.Database.SeedEnabled() {
		if err := store.Seed(ctx, s); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
		green.Println("  ✓ Demo data seeded")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	existing, err := s.GetAdminUserByUsername(ctx, username)
	switch {
	case errors.Is(err, store.ErrAdminUserNotFound):
		if err := s.CreateAdminUser(ctx, &store.AdminUser{
			Username:     username,
			PasswordHash: hash,
			DisplayName:  username,
		}); err != nil {
			return fmt.Errorf("creating admin user: %w", err)
		}
		green.Printf("  ✓ Created admin: %s\n", username)
	case err != nil:
		return fmt.Errorf("looking up admin user: %w", err)
	default:
		if err := s.UpdateAdminUserPassword(ctx, existing.ID, hash); err != nil {
			return fmt.Errorf("updating admin password: %w", err)
		}
		yellow.Printf("  ✓ Reset password for existing admin: %s\n", username)
	}

	if cfg.Auth.JWTSecret != "" {
		path, expires, err := issueToken(cfg, username, defaultTokenTTL)
		if err != nil {
			return err
		}
		green.Printf("  ✓ Saved token: %s (expires %s)\n", path, expires.Format("Jan 02, 2006"))
	}

	fmt.Println()
	green.Println("  Bootstrap complete!")
	fmt.Println()
	yellow.Println("  Ready to go:")
	fmt.Println("    manga-admin serve         # start the dashboard")
	fmt.Println("    manga-admin-cli whoami    # verify the token")
	fmt.Println("    manga-admin-tui           # terminal dashboard")
	fmt.Println()
	return nil
}

func runToken(args []string) error {
	if err := checkFlags(args, "--username", "-u", "--ttl"); err != nil {
		return err
	}
	username, err := flagValue(args, "--username", "-u")
	if err != nil {
		return err
	}
	if username == "" {
		return errors.New("--username is required")
	}
	ttl := defaultTokenTTL
	if raw, err := flagValue(args, "--ttl"); err != nil {
		return err
	} else if raw != "" {
		ttl, err = time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return fmt.Errorf("invalid --ttl %q", raw)
		}
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not configured in %s", config.Path())
	}

	path, expires, err := issueToken(cfg, username, ttl)
	if err != nil {
		return err
	}
	color.Green("  ✓ Saved token for %s to %s (expires %s)\n", username, path, expires.Format(time.RFC3339))
	return nil
}

func issueToken(cfg *config.Config, username string, ttl time.Duration) (string, time.Time, error) {
	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("creating JWT verifier: %w", err)
	}
	token, err := verifier.Generate(username, ttl)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generating token: %w", err)
	}
	path := tokenPath()
	if err := os.WriteFile(path, []byte(token), 0600); err != nil {
		return "", time.Time{}, fmt.Errorf("writing token file: %w", err)
	}
	return path, time.Now().Add(ttl).UTC(), nil
}
