// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Command isomer-migrate runs content migrations against the resource
// tree. Runs are dry by default; pass --apply to write.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"isomer/internal/config"
	"isomer/internal/database"
	"isomer/internal/migration"
	"isomer/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "isomer-migrate",
		Short:         "Run content migrations over the resource tree",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newListCmd(), newRunCmd(), newLogCmd(), newSchemaCmd())
	return root
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the built-in migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, m := range migration.Builtins() {
				fmt.Fprintf(w, "%s\t%s\n", m.Name(), m.Description())
			}
			return w.Flush()
		},
	}
}

func newRunCmd() *cobra.Command {
	var (
		apply    bool
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run one migration (dry run unless --apply is given)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ok := migration.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown migration %q, see 'isomer-migrate list'", args[0])
			}

			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			runner := migration.NewRunner(migration.NewDBSource(db), store.NewMigrationLogStore(db)).
				WithPageSize(pageSize)
			report, err := runner.Run(cmd.Context(), m, apply)
			if report != nil {
				report.Print(cmd.OutOrStdout())
			}
			if err != nil {
				return fmt.Errorf("migration %s stopped: %w", m.Name(), err)
			}
			if report.Failed > 0 {
				return fmt.Errorf("migration %s: %d of %d resources failed", m.Name(), report.Failed, report.Total())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "write changes (default is a dry run)")
	cmd.Flags().IntVar(&pageSize, "page-size", migration.DefaultPageSize, "candidates fetched per page")
	return cmd
}

func newLogCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "log <name>",
		Short: "Show the newest audited outcomes of a migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := store.NewMigrationLogStore(db).RecentEntries(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, e := range entries {
				mode := "applied"
				if e.DryRun {
					mode = "dry-run"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.LoggedAt.Format(time.RFC3339), mode, e.Outcome, e.ResourceID, e.Reason)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "entries to show")
	return cmd
}

func newSchemaCmd() *cobra.Command {
	schema := &cobra.Command{
		Use:   "schema",
		Short: "Inspect or apply the table schema",
	}
	schema.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show which schema versions are applied",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := openDB(cmd)
				if err != nil {
					return err
				}
				defer db.Close()

				versions, err := database.Status(cmd.Context(), db)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, v := range versions {
					applied := "pending"
					if v.Applied {
						applied = v.AppliedAt.Format(time.RFC3339)
					}
					fmt.Fprintf(w, "%05d\t%s\t%s\n", v.Version, v.File, applied)
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending schema versions",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := openDB(cmd)
				if err != nil {
					return err
				}
				defer db.Close()
				return database.Migrate(cmd.Context(), db)
			},
		},
	)
	return schema
}

// openDB loads configuration, installs the logger and connects.
func openDB(cmd *cobra.Command) (*sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))
	return database.Connect(cmd.Context(), cfg.DSN())
}
