// Package config handles configuration loading for projectcamp.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable expansion.
// Before the file is read, an optional .env file in the same directory is
// loaded into the process environment. Variables that are already set win.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from PROJECTCAMP_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/projectcamp/config.yaml
//  3. ~/.config/projectcamp/config.yaml
//
// # Environment Variable Expansion
//
//	auth:
//	  jwt_secret: "${PROJECTCAMP_JWT_SECRET}"
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  base_url: "https://camp.example.com"
//	  shutdown_timeout: "10s"
//
//	database:
//	  driver: "sqlite"                 # sqlite, postgres
//	  path: "/var/lib/projectcamp/camp.db"
//	  dsn: "${DATABASE_URL}"           # postgres only
//
//	auth:
//	  jwt_secret: "${PROJECTCAMP_JWT_SECRET}"  # at least 32 bytes
//	  token_ttl: "24h"
//	  password_reset_ttl: "1h"
//
//	mail:
//	  driver: "log"                    # log, smtp
//	  from: "ProjectCamp <noreply@example.com>"
//	  cooldown: "1m"                   # optional, 0 disables
//	  smtp:
//	    host: "smtp.example.com"
//	    port: 587
//	    username: "${SMTP_USER}"
//	    password: "${SMTP_PASS}"
//
//	tailscale:
//	  enabled: false
//	  hostname: "projectcamp"
//	  auth_key: "${TS_AUTHKEY}"
//	  funnel: false
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
