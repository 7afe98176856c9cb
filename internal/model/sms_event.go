package model

const (
	EventTypeNewCode  = "new_code"
	EventTypeTerminal = "terminal"
)

// SMSEvent is the persistence-hook record written on every NewCode and
// Terminal event, for external collaborators to consume.
type SMSEvent struct {
	ID             string `json:"id"`
	CorrelationID  string `json:"correlation_id"`
	VerificationID string `json:"verification_id"`
	PhoneNumber    string `json:"phone_number"`
	EventType      string `json:"event_type"`
	Code           string `json:"code,omitempty"`
	Status         string `json:"status"`
	Ctime          int64  `json:"ctime_ms"`
}
