package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/adviceline/concierge/internal/stream"
)

func init() {
	var sessionFlag string
	converseCmd := &cobra.Command{
		Use:   "converse MESSAGE",
		Short: "Send one conversation turn and print the streamed reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			if sessionFlag == "" {
				sessionFlag = uuid.NewString()
				fmt.Fprintf(os.Stderr, "session: %s\n", sessionFlag)
			}
			return runConverse(apiFlag, userFlag, sessionFlag, args[0], os.Stdout)
		},
	}
	converseCmd.Flags().StringVarP(&userFlag, "user", "u", "", "User ID (required)")
	converseCmd.Flags().StringVarP(&sessionFlag, "session", "s", "", "Session ID (new session when omitted)")
	rootCmd.AddCommand(converseCmd)
}

// runConverse posts one turn and renders the NDJSON event stream as it
// arrives: tool activity on stderr, assistant text on out.
func runConverse(apiURL, userID, sessionID, message string, out io.Writer) error {
	payload := map[string]string{
		"prompt":    message,
		"userId":    userID,
		"sessionId": sessionID,
	}
	body, _ := json.Marshal(payload)
	resp, err := http.Post(apiURL+"/api/converse", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev stream.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		switch ev.Type {
		case stream.EventToolUse:
			if ev.Tool != nil {
				fmt.Fprintln(os.Stderr, ev.Tool.Display)
			}
		case stream.EventContentBlockDelta:
			fmt.Fprint(out, ev.Text)
		case stream.EventContentBlockStop:
			fmt.Fprintln(out)
		case stream.EventError:
			fmt.Fprintf(os.Stderr, "error: %s\n", ev.Error)
		}
	}
	return scanner.Err()
}
