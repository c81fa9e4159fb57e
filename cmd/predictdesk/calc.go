package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gregtusar/predictdesk/pkg/sizing"
)

func newCalcCmd() *cobra.Command {
	var (
		probability float64
		price       float64
		bankroll    float64
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Size a YES position with half Kelly",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := sizing.Compute(probability, price, bankroll)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Fprintf(out, "Expected value:     %.4f\n", result.ExpectedValue)
			fmt.Fprintf(out, "Odds:               %.4f\n", result.Odds)
			fmt.Fprintf(out, "Kelly fraction:     %.4f\n", result.KellyFraction)
			fmt.Fprintf(out, "Half Kelly:         %.4f\n", result.HalfKelly)
			fmt.Fprintf(out, "Recommended stake:  $%.2f\n", result.RecommendedStake)
			fmt.Fprintf(out, "Potential profit:   $%.2f\n", result.PotentialProfit)
			fmt.Fprintf(out, "Potential loss:     $%.2f\n", result.PotentialLoss)
			fmt.Fprintf(out, "Break-even prob:    %.4f\n", result.BreakEvenProbability)
			fmt.Fprintf(out, "Risk rating:        %s\n", result.RiskRating)
			return nil
		},
	}

	cmd.Flags().Float64Var(&probability, "probability", 0, "your estimated probability of YES (0-1)")
	cmd.Flags().Float64Var(&price, "price", 0, "market YES price (0-1, exclusive)")
	cmd.Flags().Float64Var(&bankroll, "bankroll", 0, "bankroll to size against")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("probability")
	_ = cmd.MarkFlagRequired("price")
	_ = cmd.MarkFlagRequired("bankroll")

	return cmd
}
