// ABOUTME: Interactive config generation and first-admin bootstrap commands
// ABOUTME: init writes a config with a random jwt_secret; bootstrap creates a verified admin account

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/2389/projectcamp/internal/auth"
	"github.com/2389/projectcamp/internal/config"
	"github.com/2389/projectcamp/internal/store"
)

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("projectcamp configuration setup")
	fmt.Println("===============================")
	fmt.Println()

	defaultConfigPath := getConfigPath()
	defaultDbPath := filepath.Join(getDataPath(), "projectcamp.db")

	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "localhost:8080")
	baseURL := prompt(reader, "Public base URL (used in email links)", "http://"+httpAddr)

	fmt.Println("\n--- Database Configuration ---")
	driver := prompt(reader, "Database driver (sqlite/postgres)", config.DriverSQLite)
	var dbPath, dsn string
	if driver == config.DriverPostgres {
		dsn = prompt(reader, "Postgres DSN", "postgres://localhost:5432/projectcamp?sslmode=disable")
	} else {
		dbPath = prompt(reader, "SQLite database path", defaultDbPath)
	}

	fmt.Println("\n--- Mail Configuration ---")
	mailDriver := prompt(reader, "Mail driver (log/smtp)", config.MailDriverLog)
	mailFrom := prompt(reader, "From address", "projectcamp@localhost")
	var smtpHost, smtpPort, smtpUser string
	if mailDriver == config.MailDriverSMTP {
		smtpHost = prompt(reader, "SMTP host", "")
		smtpPort = prompt(reader, "SMTP port", "587")
		smtpUser = prompt(reader, "SMTP username", "")
	}

	fmt.Println("\n--- Tailscale Configuration ---")
	tailscaleEnabled := isYes(prompt(reader, "Enable Tailscale?", "no"))

	var tsHostname, tsAuthKey string
	var tsEphemeral, tsFunnel bool
	if tailscaleEnabled {
		tsHostname = prompt(reader, "Tailscale hostname", "projectcamp")
		tsAuthKey = prompt(reader, "Tailscale auth key (leave empty to use TS_AUTHKEY)", "")
		tsEphemeral = isYes(prompt(reader, "Ephemeral node?", "no"))
		tsFunnel = isYes(prompt(reader, "Enable Funnel (public HTTPS)?", "no"))
	}

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	secret, err := generateSecret()
	if err != nil {
		return err
	}

	var cfg strings.Builder
	cfg.WriteString("# projectcamp configuration\n")
	cfg.WriteString("# Generated by projectcamp init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n", httpAddr))
	cfg.WriteString(fmt.Sprintf("  base_url: %q\n", baseURL))
	cfg.WriteString("  shutdown_timeout: \"10s\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  driver: %q\n", driver))
	if dsn != "" {
		cfg.WriteString(fmt.Sprintf("  dsn: %q\n", dsn))
	} else {
		cfg.WriteString(fmt.Sprintf("  path: %q\n", dbPath))
	}
	cfg.WriteString("\n")

	cfg.WriteString("auth:\n")
	cfg.WriteString(fmt.Sprintf("  jwt_secret: %q\n", secret))
	cfg.WriteString("  token_ttl: \"24h\"\n")
	cfg.WriteString("  password_reset_ttl: \"1h\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("mail:\n")
	cfg.WriteString(fmt.Sprintf("  driver: %q\n", mailDriver))
	cfg.WriteString(fmt.Sprintf("  from: %q\n", mailFrom))
	if mailDriver == config.MailDriverSMTP {
		cfg.WriteString("  smtp:\n")
		cfg.WriteString(fmt.Sprintf("    host: %q\n", smtpHost))
		cfg.WriteString(fmt.Sprintf("    port: %s\n", smtpPort))
		cfg.WriteString(fmt.Sprintf("    username: %q\n", smtpUser))
		cfg.WriteString("    password: \"${SMTP_PASSWORD}\"\n")
	}
	cfg.WriteString("\n")

	cfg.WriteString("tailscale:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", tailscaleEnabled))
	if tailscaleEnabled {
		cfg.WriteString(fmt.Sprintf("  hostname: %q\n", tsHostname))
		if tsAuthKey != "" {
			cfg.WriteString(fmt.Sprintf("  auth_key: %q\n", tsAuthKey))
		}
		cfg.WriteString(fmt.Sprintf("  ephemeral: %t\n", tsEphemeral))
		cfg.WriteString(fmt.Sprintf("  funnel: %t\n", tsFunnel))
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", logFormat))

	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// The file holds the signing secret.
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	if dbPath != "" {
		dataDir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		fmt.Printf("Data directory: %s\n", dataDir)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  projectcamp serve\n")

	return nil
}

func generateSecret() (string, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("generating JWT secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(secretBytes), nil
}

type bootstrapArgs struct {
	username string
	email    string
	password string
}

// parseBootstrapArgs supports both "--flag value" and "--flag=value".
func parseBootstrapArgs(args []string) (bootstrapArgs, error) {
	var out bootstrapArgs
	targets := map[string]*string{
		"--username": &out.username,
		"--email":    &out.email,
		"--password": &out.password,
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")
		target, ok := targets[name]
		switch {
		case ok && hasValue:
			*target = value
		case ok:
			if i+1 >= len(args) {
				return out, fmt.Errorf("%s requires a value", name)
			}
			*target = args[i+1]
			i++
		case strings.HasPrefix(arg, "-"):
			return out, fmt.Errorf("unknown flag: %s", arg)
		default:
			return out, fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	out.username = strings.ToLower(strings.TrimSpace(out.username))
	out.email = strings.ToLower(strings.TrimSpace(out.email))
	if out.username == "" {
		return out, errors.New("--username flag is required")
	}
	if out.email == "" {
		return out, errors.New("--email flag is required")
	}
	return out, nil
}

// runBootstrap creates a verified account with the global admin role.
func runBootstrap(ctx context.Context, args []string) error {
	ba, err := parseBootstrapArgs(args)
	if err != nil {
		return err
	}
	if ba.password == "" {
		ba.password = prompt(bufio.NewReader(os.Stdin), "Password", "")
	}
	if ba.password == "" {
		return errors.New("password cannot be empty")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.SetDefault(setupLogger(cfg.Logging))

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	hash, err := auth.HashPassword(ba.password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	u := &store.User{
		ID:              uuid.New().String(),
		Username:        ba.username,
		Email:           ba.email,
		Role:            store.RoleAdmin,
		IsEmailVerified: true,
		PasswordHash:    hash,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) || errors.Is(err, store.ErrDuplicateUsername) {
			return fmt.Errorf("account already exists: %w", err)
		}
		return fmt.Errorf("creating account: %w", err)
	}

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	green.Printf("  ✓ Created admin account: %s\n", u.Username)
	fmt.Println()
	cyan.Println("  Admin Account")
	cyan.Println("  -------------")
	fmt.Printf("  ID:       %s\n", u.ID)
	fmt.Printf("  Username: %s\n", u.Username)
	fmt.Printf("  Email:    %s\n", u.Email)
	fmt.Printf("  Role:     %s\n", u.Role)
	fmt.Println()

	return nil
}

func isYes(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
