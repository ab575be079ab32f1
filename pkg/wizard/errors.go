package wizard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidTransition is matched by every *TransitionError.
	ErrInvalidTransition = errors.New("invalid wizard transition")
	// ErrInvalidStep reports a step outside 1..11.
	ErrInvalidStep = errors.New("invalid wizard step")
	// ErrBusy is returned while a scrape or generation is in flight.
	ErrBusy = errors.New("wizard is busy")
	// ErrGenerationFailed wraps the cause of a failed résumé generation.
	ErrGenerationFailed = errors.New("resume generation failed")
	// ErrCancelled is returned when Reset or Cancel dropped an in-flight task.
	ErrCancelled = errors.New("wizard task cancelled")
)

// TransitionError names the rejected (step, event) pair.
type TransitionError struct {
	From  Step
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s on step %d (%s)", ErrInvalidTransition, e.Event, int(e.From), e.From)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// ValidationError maps field names to messages for a rejected forward submit.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, e.Fields[name])
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
