package main

import (
	"fmt"

	p2papp "github.com/erp/backoffice/internal/application/p2p"
	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newReconcileCmd(a *app) *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Retry bill creation for approved invoices",
	}
	run := &cobra.Command{
		Use:   "run",
		Short: "Run one reconciliation pass over pending invoices",
		Long: `Retry bill creation for approved invoices whose bill could not be created
at approval time. Records that keep failing are given up after the configured
number of attempts.`,
		Example: `  backofficectl reconcile run --batch-size 50`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if batch <= 0 {
				batch = a.cfg.Reconcile.BatchSize
			}
			db, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			scope := persistence.NewGormTransactionScope(db.DB, persistence.StoreOptions{
				LockWaitTimeout: a.cfg.Database.LockWaitTimeout,
			})
			synth := p2papp.NewBillSynthesizer(scope, a.cfg.Ledger.NetDays)
			svc := p2papp.NewReconciliationService(scope, synth, a.cfg.Reconcile.MaxAttempts)

			report, err := svc.RetryPending(cmd.Context(), batch)
			a.log.Info("Reconciliation pass finished",
				zap.Int("attempted", report.Attempted),
				zap.Int("resolved", report.Resolved),
				zap.Int("failed", report.Failed),
				zap.Int("given_up", report.GivenUp),
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "attempted=%d resolved=%d failed=%d given_up=%d\n",
				report.Attempted, report.Resolved, report.Failed, report.GivenUp)
			return nil
		},
	}
	run.Flags().IntVar(&batch, "batch-size", 0, "Records per pass (default: reconcile.batch_size)")
	cmd.AddCommand(run)
	return cmd
}
