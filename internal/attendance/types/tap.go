package types

// TapRequest is what a network reader module sends when a card is presented.
type TapRequest struct {
	ModuleID    string `json:"module_id"`
	Token       string `json:"token"`
	RequestedAt string `json:"requested_at,omitempty"` // optional device timestamp
}

type TapResponse struct {
	OK         bool   `json:"ok"`
	Queued     bool   `json:"queued"`
	Reason     string `json:"reason,omitempty"`
	ModuleID   string `json:"module_id"`
	ServerTime string `json:"server_time"`
}

// RunSnapshot is a read-only view of the intake loop for status endpoints.
type RunSnapshot struct {
	RunID          string `json:"run_id"`
	SessionID      string `json:"session_id,omitempty"`
	CourseCode     string `json:"course_code,omitempty"`
	OpenedAt       string `json:"opened_at,omitempty"`
	Active         bool   `json:"active"`
	Verifying      bool   `json:"verifying"`
	NewCount       int    `json:"new_count"`
	ConfirmedCount int    `json:"confirmed_count"`
	ServerTime     string `json:"server_time"`
}
