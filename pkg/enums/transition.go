package enums

import "fmt"

// TransitionError reports a status change the lifecycle table does not allow.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s cannot move from %q to %q", e.Entity, e.From, e.To)
}

// Details renders the error for API envelopes.
func (e *TransitionError) Details() map[string]any {
	if e == nil {
		return nil
	}
	return map[string]any{
		"entity": e.Entity,
		"from":   e.From,
		"to":     e.To,
	}
}
