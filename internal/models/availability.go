package models

// ReasonCode distinguishes why a caller was blocked.
type ReasonCode string

const (
	ReasonServiceDisabled  ReasonCode = "service_disabled"
	ReasonGlobalLimit      ReasonCode = "global_limit"
	ReasonDailyLimit       ReasonCode = "daily_limit"
	ReasonStoreUnavailable ReasonCode = "store_unavailable"
)

// Availability is the typed answer to "may this identity proceed?".
// Blocking is a normal result, never an error.
type Availability struct {
	Available         bool       `json:"available"`
	RemainingRequests int        `json:"remainingRequests"`
	RequestCount      int        `json:"requestCount"`
	Limit             int        `json:"limit"`
	ResetTime         string     `json:"resetTime"`
	Reason            string     `json:"reason,omitempty"`
	ReasonCode        ReasonCode `json:"reasonCode,omitempty"`
}
