package main

import (
	"fmt"

	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/spf13/cobra"
)

func newSchemaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect the live database schema",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Verify the live schema carries every table and required column",
		Long: `Compare the persistence models against the live schema.

Missing tables or required columns fail the check. Missing optional columns
are reported and tolerated; the engine degrades the affected features.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			caps, err := persistence.CheckSchema(cmd.Context(), db.DB, models.All()...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range models.All() {
				t, ok := m.(interface{ TableName() string })
				if !ok {
					continue
				}
				if missing := caps.Missing(t.TableName()); len(missing) > 0 {
					fmt.Fprintf(out, "%-24s missing optional %v\n", t.TableName(), missing)
					continue
				}
				fmt.Fprintf(out, "%-24s ok\n", t.TableName())
			}
			return nil
		},
	})
	return cmd
}
