package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Transports wrap these so the orchestrator can drive its transition table
// by errors.Is instead of inspecting platform-specific error payloads.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrTimeout   = errors.New("timed out")
	ErrDelivery  = errors.New("delivery failed")
)
