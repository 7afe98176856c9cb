package provider

import "context"

// OutcomeKind classifies one status-poll result.
type OutcomeKind int

const (
	OutcomeWaiting OutcomeKind = iota
	OutcomeCode
	OutcomeExpired
	OutcomeCancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeWaiting:
		return "waiting"
	case OutcomeCode:
		return "code"
	case OutcomeExpired:
		return "expired"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is a typed poll result. FullText carries the complete message
// body when the provider exposes it alongside the extracted code.
type Outcome struct {
	Kind     OutcomeKind
	Code     string
	FullText string
}

// Rental identifies one freshly rented line.
type Rental struct {
	ID          string
	PhoneNumber string
}

type RentRequest struct {
	ServiceCode string
	MaxPrice    float64
	Country     int
}

// Client is the line-rental provider surface the engine depends on.
// Implementations serialize all calls through the shared rate gate.
type Client interface {
	CheckBalance(ctx context.Context) (float64, error)
	Rent(ctx context.Context, req RentRequest) (Rental, error)
	Poll(ctx context.Context, id string) (Outcome, error)
	Cancel(ctx context.Context, id string) error
	MarkDone(ctx context.Context, id string) error
	Keep(ctx context.Context, id string) error
}
