package models

// CmdRequest represents an ad-hoc command received over MQTT for one OLT.
type CmdRequest struct {
	OLT     string `json:"olt"` // Target device ID
	Command string `json:"cmd"` // Raw CLI command to run on the device
}

// CmdResponse represents the published output of a CmdRequest.
type CmdResponse struct {
	OLT     string `json:"olt"`
	Command string `json:"cmd"`
	Result  string `json:"result"` // Device output, or "Error: <cause>"
}
