// Package validate holds request-level input checks. Validation runs
// before any collaborator is contacted.
package validate

import (
	"fmt"
	"regexp"
	"time"
)

// Identifiers are opaque but bounded: printable, no whitespace, 1-64
// chars.
var idRx = regexp.MustCompile(`^[^\s]{1,64}$`)

const maxPromptLen = 4000

func NonEmpty(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func ID(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	if !idRx.MatchString(v) {
		return fmt.Errorf("%s must be 1-64 characters with no whitespace", field)
	}
	return nil
}

// Converse checks a turn request. All three fields are required.
func Converse(prompt, userID, sessionID string) error {
	if err := NonEmpty("prompt", prompt); err != nil {
		return err
	}
	if len(prompt) > maxPromptLen {
		return fmt.Errorf("prompt exceeds %d characters", maxPromptLen)
	}
	if err := ID("userId", userID); err != nil {
		return err
	}
	return ID("sessionId", sessionID)
}

// Deadline checks a deadline creation request.
func Deadline(title string, dueDate time.Time, now time.Time) error {
	if err := NonEmpty("title", title); err != nil {
		return err
	}
	if len(title) > 200 {
		return fmt.Errorf("title exceeds 200 characters")
	}
	if dueDate.IsZero() {
		return fmt.Errorf("dueDate is required")
	}
	if !dueDate.After(now) {
		return fmt.Errorf("dueDate must be in the future")
	}
	return nil
}
