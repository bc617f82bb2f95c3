package domain

// PendingVerification tracks an in-progress OTP challenge for one user.
// PK: user_id. ExpiresAt is a Unix timestamp, used as DynamoDB TTL when
// the pending store runs on the durable backend.
type PendingVerification struct {
	UserID       string `json:"user_id" dynamodbav:"user_id"`
	Email        string `json:"email" dynamodbav:"email"`
	Code         string `json:"code" dynamodbav:"code"`
	ExpiresAt    int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
	AttemptsLeft int    `json:"attempts_left" dynamodbav:"attempts_left"`
}

// VerifiedIdentity is one durable ledger row. Handle is the user's display
// name prefixed with "@". The ledger is deduplicated by handle, not by
// email: only the first verification for a given handle is kept.
type VerifiedIdentity struct {
	Email  string `json:"email" dynamodbav:"email"`
	Handle string `json:"username" dynamodbav:"username"`
}

// OutcomeStatus classifies the result of checking a submitted code against
// the pending store.
type OutcomeStatus int

const (
	OutcomeNoPending OutcomeStatus = iota
	OutcomeExpired
	OutcomeMismatch
	OutcomeVerified
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeNoPending:
		return "no_pending"
	case OutcomeExpired:
		return "expired"
	case OutcomeMismatch:
		return "mismatch"
	case OutcomeVerified:
		return "verified"
	default:
		return "unknown"
	}
}

// Outcome is the result of one validation attempt. Email is set only when
// Status is OutcomeVerified; AttemptsLeft only when Status is OutcomeMismatch.
type Outcome struct {
	Status       OutcomeStatus
	Email        string
	AttemptsLeft int
}
