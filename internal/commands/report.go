package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/report"
)

func newReportCommand(configPath *string) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Spending reports",
	}
	reportCmd.AddCommand(
		newMonthlyReportCommand(configPath),
		newMonthReportCommand(configPath, "merchants", "Top merchants by spend for a month", printTopMerchants),
		newMonthReportCommand(configPath, "biggest", "Largest expenses for a month", printBiggest),
		newMonthReportCommand(configPath, "fraud", "Expenses at or above the fraud threshold for a month", printFraud),
	)
	return reportCmd
}

// withReports opens the project, runs fn with its report service and closes
// the store.
func withReports(cmd *cobra.Command, configPath string, fn func(context.Context, *report.Service) error) error {
	p, err := openProject(cmd, configPath)
	if err != nil {
		return err
	}
	defer p.Close()

	svc, err := p.reports()
	if err != nil {
		return err
	}
	return fn(cmd.Context(), svc)
}

func newMonthlyReportCommand(configPath *string) *cobra.Command {
	var months int

	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Income, expense and net per month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReports(cmd, *configPath, func(ctx context.Context, svc *report.Service) error {
				rows, err := svc.Monthly(ctx, months)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
				fmt.Fprintln(tw, "MONTH\tINCOME\tEXPENSE\tNET\t")
				for _, r := range rows {
					fmt.Fprintf(tw, "%04d-%02d\t%s\t%s\t%s\t\n", r.Year, int(r.Month),
						r.Income.StringFixed(2), r.Expense.StringFixed(2), r.Net.StringFixed(2))
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().IntVar(&months, "months", 0, "months to cover (0 uses reports.monthly_default)")

	return cmd
}

type monthPrinter func(ctx context.Context, out io.Writer, svc *report.Service, month string) error

func newMonthReportCommand(configPath *string, use, short string, printFn monthPrinter) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if month == "" {
				month = time.Now().Format("2006-01")
			}
			return withReports(cmd, *configPath, func(ctx context.Context, svc *report.Service) error {
				return printFn(ctx, cmd.OutOrStdout(), svc, month)
			})
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default current month)")

	return cmd
}

func printTopMerchants(ctx context.Context, out io.Writer, svc *report.Service, month string) error {
	rows, err := svc.TopMerchants(ctx, month)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MERCHANT\tSPENT")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r.Merchant, r.Spent.StringFixed(2))
	}
	return tw.Flush()
}

func printBiggest(ctx context.Context, out io.Writer, svc *report.Service, month string) error {
	rows, err := svc.Biggest(ctx, month)
	if err != nil {
		return err
	}
	return printExpenses(out, rows)
}

func printFraud(ctx context.Context, out io.Writer, svc *report.Service, month string) error {
	rows, err := svc.Fraud(ctx, month)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintf(out, "No expenses of %s or more in %s.\n", svc.FraudThreshold().StringFixed(2), month)
		return nil
	}
	return printExpenses(out, rows)
}

func printExpenses(out io.Writer, rows []report.Expense) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tMERCHANT\tSPENT\tDESCRIPTION")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Date.Format("2006-01-02"), r.Merchant, r.Spent.StringFixed(2), r.Description)
	}
	return tw.Flush()
}
