// Command conciergectl is the operator CLI for the concierge REST API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiFlag  string
	userFlag string
	rootCmd  = &cobra.Command{
		Use:   "conciergectl",
		Short: "CLI client for the concierge REST API",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "Concierge service base URL")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Show service readiness and component status",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet("/api/health/ready", nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	rootCmd.AddCommand(healthCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
