package httpapi

// TapRequest is what a reader module posts for one card tap.
type TapRequest struct {
	ModuleID string `json:"module_id"`
	Token    string `json:"token"`
}

type TapResponse struct {
	Accepted bool   `json:"accepted"`
	ModuleID string `json:"module_id"`
	Error    string `json:"error,omitempty"`
}

type HeartbeatRequest struct {
	ModuleID        string `json:"module_id"`
	FirmwareVersion string `json:"firmware_version,omitempty"`
	UptimeSeconds   uint64 `json:"uptime_s,omitempty"`
}

type HeartbeatResponse struct {
	OK         bool   `json:"ok"`
	ModuleID   string `json:"module_id"`
	Known      bool   `json:"known"`
	ServerTime string `json:"server_time"`
}
