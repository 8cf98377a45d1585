// Package config handles configuration loading for manga-admin.
//
// # Configuration File
//
// Lookup order (see Path):
//
//  1. Path from MANGA_ADMIN_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/manga-admin/config.yaml
//  3. ~/.config/manga-admin/config.yaml
//
// Files ending in .toml are decoded as TOML; anything else is YAML.
//
// # Environment Variable Expansion
//
// Values can reference environment variables before parsing:
//
//	auth:
//	  admin_password: "${MANGA_ADMIN_PASSWORD}"
//
// Unset variables expand to the empty string.
//
// # Example
//
//	server:
//	  http_addr: ":8080"
//	  grpc_addr: ":50051"        # optional gRPC health service
//	  cors_origins: ["*"]
//
//	tailscale:
//	  enabled: false
//	  hostname: "manga-admin"
//
//	database:
//	  driver: "sqlite"            # or sqlite3 (cgo)
//	  path: "~/.local/share/manga-admin/manga-admin.db"
//	  seed: true
//
//	auth:
//	  admin_username: "admin"
//	  admin_password: "admin"
//	  session_ttl: "168h"
//	  session_store: "memory"     # or database
//	  jwt_secret: "${MANGA_ADMIN_JWT_SECRET}"
//
//	notify:
//	  matrix:
//	    enabled: false
//
//	idempotency:
//	  ttl: "10m"
//	  max_entries: 1000
//
//	logging:
//	  level: "info"
//	  format: "text"
//
// Duration values use Go's time.ParseDuration syntax.
package config
