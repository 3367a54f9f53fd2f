package core

import (
	"fakeagent/fakeagent/types"
	"fmt"
	"strconv"
	"strings"
)

const ErrorTriggerPrefix = "make_error."

// InvalidContentError is returned when the last activity carries structured
// content where text is required.
type InvalidContentError struct {
	Kind string
}

func (e *InvalidContentError) Error() string {
	return fmt.Sprintf("last activity content is %s, expected text", e.Kind)
}

func (e *InvalidContentError) ErrorKind() string { return "InvalidContentError" }

// LastUserMessage returns the text of the final activity of the thread, or ""
// when the thread has no activities.
func LastUserMessage(thread types.Thread) (string, error) {
	if len(thread.Activities) == 0 {
		return "", nil
	}
	content := thread.Activities[len(thread.Activities)-1].Content
	text, ok := content.Text()
	if !ok {
		return "", &InvalidContentError{Kind: content.Kind()}
	}
	return text, nil
}

// ErrorTrigger parses "make_error.<N>" and reports the iteration index N at
// which a run should fail. Only the segment between the first and the second
// dot is considered, so "make_error.1.5" triggers at 1.
func ErrorTrigger(msg string) (int, bool) {
	if !strings.HasPrefix(msg, ErrorTriggerPrefix) {
		return 0, false
	}
	segment := strings.SplitN(msg, ".", 3)[1]
	digits, ok := stripDigitSeparators(strings.TrimSpace(segment))
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// stripDigitSeparators removes single underscores between digits, so "1_000"
// reads as "1000". Any other underscore makes the number invalid.
func stripDigitSeparators(s string) (string, bool) {
	if !strings.Contains(s, "_") {
		return s, true
	}
	isDigit := func(i int) bool { return i >= 0 && i < len(s) && s[i] >= '0' && s[i] <= '9' }
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			if !isDigit(i-1) || !isDigit(i+1) {
				return "", false
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String(), true
}
