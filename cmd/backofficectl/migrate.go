package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/erp/backoffice/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd(a *app) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, inspect and author SQL schema migrations",
		Long: `Manage the versioned SQL schema under the migrations directory.

The server never creates tables on its own; run "migrate up" before the
first start and after every upgrade.`,
		Example: `  backofficectl migrate up
  backofficectl migrate down 1
  backofficectl migrate create add_bill_reference_index`,
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "Path to migrations directory (default: ./migrations)")

	withMigrator := func(fn func(m *migration.Migrator) error) error {
		dir, err := resolveMigrationsPath(path)
		if err != nil {
			return err
		}
		db, err := sql.Open("postgres", a.cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}

		m, err := migration.New(db, dir, a.log)
		if err != nil {
			return err
		}
		defer m.Close()
		return fn(m)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *migration.Migrator) error { return m.Up() })
			},
		},
		&cobra.Command{
			Use:   "down [n]",
			Short: "Roll back n migrations, or all of them without n",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n := 0
				if len(args) == 1 {
					v, err := strconv.Atoi(args[0])
					if err != nil || v <= 0 {
						return fmt.Errorf("invalid step count %q", args[0])
					}
					n = v
				}
				return withMigrator(func(m *migration.Migrator) error { return m.Down(n) })
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *migration.Migrator) error {
					st, err := m.Version()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", st.Version, st.Dirty)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the recorded version without running SQL, clearing the dirty flag",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return withMigrator(func(m *migration.Migrator) error { return m.Force(v) })
			},
		},
		&cobra.Command{
			Use:   "create <name>",
			Short: "Write the next empty up/down migration pair",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				dir, err := resolveMigrationsPath(path)
				if err != nil {
					return err
				}
				mf, err := migration.CreateMigration(dir, args[0])
				if err != nil {
					return err
				}
				a.log.Info("Migration created",
					zap.Uint("version", mf.Version),
					zap.String("up_file", mf.UpPath),
					zap.String("down_file", mf.DownPath),
				)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the migrations found on disk",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				dir, err := resolveMigrationsPath(path)
				if err != nil {
					return err
				}
				list, err := migration.ListMigrations(dir)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no migrations found in", dir)
					return nil
				}
				for _, mi := range list {
					fmt.Fprintf(cmd.OutOrStdout(), "%06d  %s\n", mi.Version, mi.Name)
				}
				return nil
			},
		},
	)
	return cmd
}

// resolveMigrationsPath falls back to ./migrations, then to the directory two
// levels above the executable, which is where a repo-local build lands.
func resolveMigrationsPath(path string) (string, error) {
	if path == "" {
		path = migration.DefaultPath
		if _, err := os.Stat(path); err != nil {
			if exe, err := os.Executable(); err == nil {
				candidate := filepath.Join(filepath.Dir(exe), "..", "..", migration.DefaultPath)
				if _, err := os.Stat(candidate); err == nil {
					path = candidate
				}
			}
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve migrations path: %w", err)
	}
	return abs, nil
}
