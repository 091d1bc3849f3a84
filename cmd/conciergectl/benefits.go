package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	benefitsCmd := &cobra.Command{Use: "benefits", Short: "Benefit entitlement operations"}

	var income, rent float64
	var disability bool
	var children int
	estimateCmd := &cobra.Command{
		Use:   "estimate USER_ID",
		Short: "Estimate benefit entitlement from circumstances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{
				"userId":        args[0],
				"monthlyIncome": income,
				"monthlyRent":   rent,
				"hasDisability": disability,
				"hasChildren":   children > 0,
				"numChildren":   children,
			}
			data, err := doPostJSON("/api/benefits/estimate", payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	estimateCmd.Flags().Float64VarP(&income, "income", "i", 0, "Monthly income in GBP")
	estimateCmd.Flags().Float64VarP(&rent, "rent", "r", 0, "Monthly rent in GBP")
	estimateCmd.Flags().BoolVarP(&disability, "disability", "d", false, "Claimant has a disability")
	estimateCmd.Flags().IntVarP(&children, "children", "c", 0, "Number of children")
	benefitsCmd.AddCommand(estimateCmd)

	rootCmd.AddCommand(benefitsCmd)

	var serviceType string
	servicesCmd := &cobra.Command{
		Use:   "services POSTCODE",
		Short: "Find local advice services for a postcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet("/api/services", map[string]string{
				"postcode": args[0],
				"type":     serviceType,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	servicesCmd.Flags().StringVarP(&serviceType, "type", "t", "citizens_advice", "Service type (citizens_advice, debt, housing, benefits)")
	rootCmd.AddCommand(servicesCmd)
}
