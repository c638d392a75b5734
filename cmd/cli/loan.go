package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/khata/internal/adapter/http/dto"
	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/usecase"
)

type loanTerms struct {
	principal string
	rate      string
	months    int
	start     string
}

func (t *loanTerms) bind(cmd *cobra.Command, withTenure bool) {
	cmd.Flags().StringVar(&t.principal, "principal", "", "Loan principal")
	cmd.Flags().StringVar(&t.rate, "rate", "", "Annual interest rate in percent")
	cmd.Flags().StringVar(&t.start, "start", "", "Start date (YYYY-MM-DD), defaults to today")
	if withTenure {
		cmd.Flags().IntVar(&t.months, "months", 0, "Tenure in months")
	}
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("rate")
}

func (t *loanTerms) emiInput() (usecase.EMIQuoteInput, error) {
	principal, rate, err := t.decimals()
	if err != nil {
		return usecase.EMIQuoteInput{}, err
	}
	start, err := optionalDate(t.start)
	if err != nil {
		return usecase.EMIQuoteInput{}, err
	}
	return usecase.EMIQuoteInput{Principal: principal, InterestRate: rate, TenureMonths: t.months, StartDate: start}, nil
}

func (t *loanTerms) decimals() (decimal.Decimal, decimal.Decimal, error) {
	principal, err := domain.ParseAmount(t.principal)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	rate, err := domain.ParseDecimal(t.rate)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: rate %q is not a number", domain.ErrInvalidLoanTerms, t.rate)
	}
	return principal, rate, nil
}

func optionalDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := dto.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return d.Time, nil
}

func loanCmd(opts *apiOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Loan calculators and lookups",
	}
	cmd.AddCommand(emiCmd(), scheduleCmd(), interestCmd(), nextDueCmd(), loanGetCmd(opts))
	return cmd
}

func emiCmd() *cobra.Command {
	terms := &loanTerms{}
	cmd := &cobra.Command{
		Use:   "emi",
		Short: "Calculate the monthly installment for EMI terms",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := terms.emiInput()
			if err != nil {
				return err
			}
			quote, err := usecase.QuoteEMI(input)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "EMI:            %s\n", quote.EMI.StringFixed(domain.MinorUnitPlaces))
			fmt.Fprintf(out, "Total interest: %s\n", quote.TotalInterest.StringFixed(domain.MinorUnitPlaces))
			fmt.Fprintf(out, "Total payable:  %s\n", quote.TotalPayable.StringFixed(domain.MinorUnitPlaces))
			return nil
		},
	}
	terms.bind(cmd, true)
	_ = cmd.MarkFlagRequired("months")
	return cmd
}

func scheduleCmd() *cobra.Command {
	terms := &loanTerms{}
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the amortization schedule for EMI terms",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := terms.emiInput()
			if err != nil {
				return err
			}
			quote, err := usecase.QuoteEMI(input)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), dto.ScheduleFromQuote(quote))
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "#\tDue date\tInstallment\tPrincipal\tInterest\tBalance\t")
			for _, inst := range quote.Schedule {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
					inst.Number,
					inst.DueDate.Format(dto.DateLayout),
					inst.Total.StringFixed(domain.MinorUnitPlaces),
					inst.Principal.StringFixed(domain.MinorUnitPlaces),
					inst.Interest.StringFixed(domain.MinorUnitPlaces),
					inst.Balance.StringFixed(domain.MinorUnitPlaces),
				)
			}
			return tw.Flush()
		},
	}
	terms.bind(cmd, true)
	_ = cmd.MarkFlagRequired("months")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func interestCmd() *cobra.Command {
	terms := &loanTerms{}
	var today string
	cmd := &cobra.Command{
		Use:   "interest",
		Short: "Calculate monthly interest for interest-only terms",
		RunE: func(cmd *cobra.Command, args []string) error {
			principal, rate, err := terms.decimals()
			if err != nil {
				return err
			}
			start, err := optionalDate(terms.start)
			if err != nil {
				return err
			}
			now, err := optionalDate(today)
			if err != nil {
				return err
			}
			if now.IsZero() {
				now = time.Now()
			}

			quote, err := usecase.QuoteInterest(usecase.InterestQuoteInput{
				Principal:    principal,
				InterestRate: rate,
				StartDate:    start,
				Today:        now,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Monthly interest: %s\n", quote.MonthlyInterest.StringFixed(domain.MinorUnitPlaces))
			if quote.NextDueDate != nil {
				fmt.Fprintf(out, "Next due date:    %s\n", quote.NextDueDate.Format(dto.DateLayout))
			}
			return nil
		},
	}
	terms.bind(cmd, false)
	cmd.Flags().StringVar(&today, "today", "", "Reference date (YYYY-MM-DD), defaults to today")
	return cmd
}

func nextDueCmd() *cobra.Command {
	var start, today string
	cmd := &cobra.Command{
		Use:   "next-due",
		Short: "Print the next monthly due date of a loan started on --start",
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, err := optionalDate(start)
			if err != nil {
				return err
			}
			now, err := optionalDate(today)
			if err != nil {
				return err
			}
			if now.IsZero() {
				now = time.Now()
			}

			fmt.Fprintln(cmd.OutOrStdout(), domain.NextDueDate(startDate, now).Format(dto.DateLayout))
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Loan start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&today, "today", "", "Reference date (YYYY-MM-DD), defaults to today")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func loanGetCmd(opts *apiOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a loan from the API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var loan dto.LoanResponse
			if err := opts.getJSON("/api/v1/loans/"+args[0], &loan); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), loan)
		},
	}
}
