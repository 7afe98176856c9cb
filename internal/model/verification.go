package model

type Status string

const (
	// StatusRenting is the transient state between the rental call and
	// the first successful status poll.
	StatusRenting Status = "renting"
	StatusWaiting Status = "waiting"
	// StatusCodeReceived is re-enterable: a line can collect further
	// distinct codes until it is completed or cancelled.
	StatusCodeReceived Status = "code_received"
	StatusCompleted    Status = "completed"
	StatusExpired      Status = "expired"
	StatusCancelled    Status = "cancelled"
	StatusFailed       Status = "failed"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusExpired, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// Code is one received verification code. Codes are append-only and
// de-duplicated against the most recent value.
type Code struct {
	Value      string `json:"value"`
	FullText   string `json:"full_text,omitempty"`
	ReceivedAt int64  `json:"received_at_ms"`
}

// Verification records one rented line's lifecycle. Timestamps are unix
// milliseconds.
type Verification struct {
	ID            string  `json:"id"`
	CorrelationID string  `json:"correlation_id"`
	PhoneNumber   string  `json:"phone_number"`
	PhoneDisplay  string  `json:"phone_display,omitempty"`
	ServiceCode   string  `json:"service_code"`
	Status        Status  `json:"status"`
	Codes         []Code  `json:"codes"`
	Attempts      int     `json:"attempts"`
	RentedAt      int64   `json:"rented_at_ms"`
	LastPolledAt  int64   `json:"last_polled_at_ms"`
	ExpiresAt     int64   `json:"expires_at_ms"`
	CostReserved  float64 `json:"cost_reserved"`
}

// Clone returns a deep copy safe to hand out as a snapshot.
func (v *Verification) Clone() *Verification {
	out := *v
	if len(v.Codes) > 0 {
		out.Codes = make([]Code, len(v.Codes))
		copy(out.Codes, v.Codes)
	}
	return &out
}

// LastCode returns the most recently received code value, or "".
func (v *Verification) LastCode() string {
	if len(v.Codes) == 0 {
		return ""
	}
	return v.Codes[len(v.Codes)-1].Value
}
