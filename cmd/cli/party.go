package main

import (
	"fmt"
	"net/url"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iho/khata/internal/adapter/http/dto"
	"github.com/iho/khata/internal/domain"
)

const descriptionWidth = 30

func partyCmd(opts *apiOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "party",
		Short: "Party ledger lookups",
	}
	cmd.AddCommand(statementCmd(opts))
	return cmd
}

func statementCmd(opts *apiOptions) *cobra.Command {
	var from, to string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "statement <party-id>",
		Short: "Print a party's statement with running balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if from != "" {
				query.Set("from", from)
			}
			if to != "" {
				query.Set("to", to)
			}
			path := "/api/v1/parties/" + url.PathEscape(args[0]) + "/statement"
			if len(query) > 0 {
				path += "?" + query.Encode()
			}

			var stmt dto.StatementResponse
			if err := opts.getJSON(path, &stmt); err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), stmt)
			}
			return printStatement(cmd, &stmt)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last day (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func printStatement(cmd *cobra.Command, stmt *dto.StatementResponse) error {
	out := cmd.OutOrStdout()
	if stmt.Party != nil {
		fmt.Fprintf(out, "%s (%s)\n", stmt.Party.Name, stmt.Party.EntityType)
	}
	fmt.Fprintf(out, "Opening balance: %s\n\n", stmt.OpeningBalance.StringFixed(domain.MinorUnitPlaces))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Date\tType\tAmount\tBalance\tDescription")
	for _, row := range stmt.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			row.TransactionDate.Format(dto.DateLayout),
			row.Label,
			row.Amount.StringFixed(domain.MinorUnitPlaces),
			row.BalanceAfter.StringFixed(domain.MinorUnitPlaces),
			truncate(row.Description, descriptionWidth),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s: %s\n", stmt.Labels.Given, stmt.TotalDebit.StringFixed(domain.MinorUnitPlaces))
	fmt.Fprintf(out, "%s: %s\n", stmt.Labels.Received, stmt.TotalCredit.StringFixed(domain.MinorUnitPlaces))
	fmt.Fprintf(out, "Balance: %s (%s)\n", stmt.CurrentBalance.StringFixed(domain.MinorUnitPlaces), stmt.BalanceLabel)
	return nil
}
