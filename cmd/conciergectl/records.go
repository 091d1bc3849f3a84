package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	casesCmd := &cobra.Command{Use: "cases", Short: "Case ticket operations"}

	var limit int
	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "List open cases ordered by priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet("/api/cases/pending", map[string]string{"limit": fmt.Sprint(limit)})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	pendingCmd.Flags().IntVarP(&limit, "limit", "l", 50, "Maximum cases to return")
	casesCmd.AddCommand(pendingCmd)

	listCasesCmd := &cobra.Command{
		Use:   "list USER_ID",
		Short: "List cases for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("/api/users/%s/cases", args[0]), nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	casesCmd.AddCommand(listCasesCmd)
	rootCmd.AddCommand(casesCmd)

	// Per-user record listings share the same shape.
	for _, rc := range []struct {
		use, short, resource string
	}{
		{"notes", "Case note operations", "notes"},
		{"bookings", "Callback booking operations", "bookings"},
		{"letters", "Generated letter operations", "letters"},
	} {
		resource := rc.resource
		cmd := &cobra.Command{Use: rc.use, Short: rc.short}
		cmd.AddCommand(&cobra.Command{
			Use:   "list USER_ID",
			Short: fmt.Sprintf("List %s for a user", resource),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := doGet(fmt.Sprintf("/api/users/%s/%s", args[0], resource), nil)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(os.Stdout, string(data))
				return nil
			},
		})
		rootCmd.AddCommand(cmd)
	}
}
