package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Dan9191/credit-dashboard/internal/amortization"
	"github.com/Dan9191/credit-dashboard/internal/models"
)

func newQuoteCommand() *cobra.Command {
	var (
		amount string
		terms  []int
		date   string
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Print repayment schedules for a loan amount",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			principal, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}
			if !principal.IsPositive() {
				return fmt.Errorf("amount must be positive")
			}
			start := time.Now().UTC()
			if date != "" {
				if start, err = time.Parse("2006-01-02", date); err != nil {
					return fmt.Errorf("invalid date %q: %w", date, err)
				}
			}

			for i, n := range terms {
				quoted, err := amortization.Quote(fmt.Sprintf("terms%d", n), principal, n, start)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				if err := printTerms(cmd.OutOrStdout(), quoted); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "principal to borrow")
	cmd.Flags().IntSliceVar(&terms, "terms", []int{3, 6}, "number of monthly payments")
	cmd.Flags().StringVar(&date, "date", "", "quote date (YYYY-MM-DD), defaults to today")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func printTerms(out io.Writer, t models.LoanTerms) error {
	fmt.Fprintf(out, "%d payments at %s%% APR: monthly %s, interest %s, total %s\n",
		t.TermCount, t.APR.String(), t.MonthlyPayment.StringFixed(2),
		t.TotalInterest.StringFixed(2), t.TotalAmount.StringFixed(2))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tDUE\tPRINCIPAL\tINTEREST\tTOTAL")
	for _, inst := range t.Schedule {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			inst.SequenceNumber, inst.DueDate.Format("2006-01-02"),
			inst.PrincipalPortion.StringFixed(2), inst.InterestPortion.StringFixed(2), inst.TotalAmount.StringFixed(2))
	}
	return w.Flush()
}
