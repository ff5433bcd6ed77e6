package enums

import "fmt"

// QuoteStatus tracks a quote request from submission to a terminal decision.
type QuoteStatus string

const (
	QuoteStatusPending  QuoteStatus = "pending"
	QuoteStatusQuoted   QuoteStatus = "quoted"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusDeclined QuoteStatus = "declined"
)

var validQuoteStatuses = []QuoteStatus{
	QuoteStatusPending,
	QuoteStatusQuoted,
	QuoteStatusAccepted,
	QuoteStatusDeclined,
}

// quoted -> quoted is a re-quote with a revised price.
var quoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuoteStatusPending:  {QuoteStatusQuoted, QuoteStatusDeclined},
	QuoteStatusQuoted:   {QuoteStatusQuoted, QuoteStatusAccepted, QuoteStatusDeclined},
	QuoteStatusAccepted: nil,
	QuoteStatusDeclined: nil,
}

// String implements fmt.Stringer.
func (s QuoteStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known QuoteStatus.
func (s QuoteStatus) IsValid() bool {
	for _, candidate := range validQuoteStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func (s QuoteStatus) IsTerminal() bool {
	return s.IsValid() && len(quoteTransitions[s]) == 0
}

// IsActive reports whether the request still belongs in the distributor queue.
func (s QuoteStatus) IsActive() bool {
	return s != QuoteStatusDeclined
}

func (s QuoteStatus) CanTransitionTo(next QuoteStatus) bool {
	for _, candidate := range quoteTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ValidateTransition returns a *TransitionError when next is not reachable from s.
func (s QuoteStatus) ValidateTransition(next QuoteStatus) error {
	if s.CanTransitionTo(next) {
		return nil
	}
	return &TransitionError{Entity: "quote request", From: string(s), To: string(next)}
}

// ActiveQuoteStatuses lists the statuses shown in the distributor queue.
func ActiveQuoteStatuses() []QuoteStatus {
	out := make([]QuoteStatus, 0, len(validQuoteStatuses))
	for _, s := range validQuoteStatuses {
		if s.IsActive() {
			out = append(out, s)
		}
	}
	return out
}

// ParseQuoteStatus converts raw input into a QuoteStatus.
func ParseQuoteStatus(value string) (QuoteStatus, error) {
	for _, candidate := range validQuoteStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quote status %q", value)
}
