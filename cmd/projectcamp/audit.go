// ABOUTME: audit subcommand that prints the account and project audit trail
// ABOUTME: Filters map onto store.AuditFilter; output is a tab-aligned table, newest first

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/projectcamp/internal/config"
	"github.com/2389/projectcamp/internal/store"
)

// parseAuditArgs builds a filter from --actor, --action, --target-type,
// --target, --since and --limit. --since takes a duration back from now or
// an RFC3339 time.
func parseAuditArgs(args []string, now time.Time) (store.AuditFilter, error) {
	var f store.AuditFilter
	for i := 0; i < len(args); i++ {
		name, value, hasValue := strings.Cut(args[i], "=")
		if !strings.HasPrefix(name, "--") {
			return f, fmt.Errorf("unexpected argument: %s", args[i])
		}
		if !hasValue {
			if i+1 >= len(args) {
				return f, fmt.Errorf("%s requires a value", name)
			}
			value = args[i+1]
			i++
		}

		switch name {
		case "--actor":
			f.ActorUserID = &value
		case "--action":
			action := store.AuditAction(value)
			if !slices.Contains(store.ValidAuditActions, action) {
				return f, fmt.Errorf("unknown action %q", value)
			}
			f.Action = &action
		case "--target-type":
			f.TargetType = &value
		case "--target":
			f.TargetID = &value
		case "--since":
			since, err := parseSince(value, now)
			if err != nil {
				return f, err
			}
			f.Since = &since
		case "--limit":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return f, fmt.Errorf("--limit must be a positive integer")
			}
			f.Limit = n
		default:
			return f, fmt.Errorf("unknown flag: %s", name)
		}
	}
	return f, nil
}

func parseSince(value string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(value); err == nil {
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--since must be a duration like 24h or an RFC3339 time")
	}
	return t, nil
}

func runAudit(ctx context.Context, args []string) error {
	f, err := parseAuditArgs(args, time.Now().UTC())
	if err != nil {
		return err
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.ListAuditLog(ctx, f)
	if err != nil {
		return fmt.Errorf("listing audit log: %w", err)
	}

	if len(entries) == 0 {
		color.New(color.FgHiBlack).Println("  No audit entries")
		return nil
	}
	return printAuditEntries(os.Stdout, entries)
}

func printAuditEntries(out io.Writer, entries []store.AuditEntry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  TIME\tACTION\tACTOR\tTARGET\tDETAIL")
	fmt.Fprintln(w, "  ----\t------\t-----\t------\t------")

	for _, e := range entries {
		detail := ""
		if len(e.Detail) > 0 {
			raw, err := json.Marshal(e.Detail)
			if err != nil {
				return fmt.Errorf("encoding detail of %s: %w", e.ID, err)
			}
			detail = string(raw)
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s:%s\t%s\n",
			e.Timestamp.Format("Jan 02 15:04:05"), e.Action, e.ActorUserID, e.TargetType, e.TargetID, detail)
	}
	return w.Flush()
}
