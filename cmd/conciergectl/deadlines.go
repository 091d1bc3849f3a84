package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	deadlinesCmd := &cobra.Command{Use: "deadlines", Short: "Deadline tracking operations"}

	var title, description, category, due string
	addCmd := &cobra.Command{
		Use:   "add USER_ID",
		Short: "Track a deadline for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dueDate, err := time.Parse("2006-01-02", due)
			if err != nil {
				return fmt.Errorf("--due must be YYYY-MM-DD: %w", err)
			}
			payload := map[string]interface{}{
				"title":   title,
				"dueDate": dueDate.UTC().Format(time.RFC3339),
			}
			if description != "" {
				payload["description"] = description
			}
			if category != "" {
				payload["category"] = category
			}
			data, err := doPostJSON(fmt.Sprintf("/api/users/%s/deadlines", args[0]), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	addCmd.Flags().StringVarP(&title, "title", "t", "", "Deadline title (required)")
	addCmd.Flags().StringVarP(&description, "description", "d", "", "Description")
	addCmd.Flags().StringVarP(&category, "category", "c", "", "Issue category")
	addCmd.Flags().StringVar(&due, "due", "", "Due date, YYYY-MM-DD (required)")
	_ = addCmd.MarkFlagRequired("title")
	_ = addCmd.MarkFlagRequired("due")
	deadlinesCmd.AddCommand(addCmd)

	listCmd := &cobra.Command{
		Use:   "list USER_ID",
		Short: "List upcoming deadlines for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("/api/users/%s/deadlines", args[0]), nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	deadlinesCmd.AddCommand(listCmd)

	rootCmd.AddCommand(deadlinesCmd)
}
