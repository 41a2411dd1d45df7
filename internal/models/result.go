package models

import "time"

// ErrorKind classifies the outcome of a device command.
type ErrorKind string

const (
	KindNone     ErrorKind = "none"
	KindConnect  ErrorKind = "connect"
	KindAuth     ErrorKind = "auth"
	KindExec     ErrorKind = "exec"
	KindTimeout  ErrorKind = "timeout"
	KindNotFound ErrorKind = "not_found"
)

// CommandResult is the outcome of running one command on one device.
type CommandResult struct {
	DeviceID  string
	Vendor    string
	Command   string
	Output    string
	Kind      ErrorKind
	Err       error
	Timestamp time.Time
	Duration  time.Duration
}

// Failed reports whether the command did not produce device output.
func (r CommandResult) Failed() bool {
	return r.Kind != KindNone
}

// Text renders the result for publishing and logging; failures become "Error: <cause>".
func (r CommandResult) Text() string {
	if r.Failed() {
		if r.Err != nil {
			return "Error: " + r.Err.Error()
		}
		return "Error: " + string(r.Kind)
	}
	return r.Output
}
