// Package device runs the per-device job state machine:
// connect, authenticate, elevate, execute, always disconnect.
package device

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/AndrewPiroli/NOS-MCT/internal/inventory"
)

// Status classifies how a device run ended.
type Status int

const (
	StatusSuccess Status = iota
	StatusConnectFailure
	StatusAuthFailure
	StatusExecFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusConnectFailure:
		return "connect_failure"
	case StatusAuthFailure:
		return "auth_failure"
	case StatusExecFailure:
		return "exec_failure"
	}
	return "unknown"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrAuth marks a failure as an authentication rejection rather than an
// unreachable host. Dialers wrap credential errors with it.
var ErrAuth = errors.New("authentication rejected")

// Capture is one command and the text the device answered with.
type Capture struct {
	Command string `json:"command"`
	Output  string `json:"output"`
}

// Outcome is the single record a worker produces for its device.
// Created once, never mutated afterwards.
type Outcome struct {
	Host       string    `json:"host"`
	DeviceType string    `json:"device_type"`
	Status     Status    `json:"status"`
	Captures   []Capture `json:"captures,omitempty"`   // yoink / save-only
	Transcript string    `json:"transcript,omitempty"` // yeet
	Err        error     `json:"-"`
}

// MarshalJSON flattens Err into a plain string so published events carry
// the failure reason.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type alias Outcome
	var msg string
	if o.Err != nil {
		msg = o.Err.Error()
	}
	return json.Marshal(struct {
		alias
		Error string `json:"error,omitempty"`
	}{alias(o), msg})
}

// Session is the interactive shell a dialer opens to one device.
// Implementations belong to exactly one worker and are never shared.
type Session interface {
	// Enable elevates to the privileged execution level.
	Enable(secret string) error
	// SendCommand runs one command in exec context and returns its output.
	SendCommand(cmd string) (string, error)
	// SendConfigSet enters configuration context once, applies the batch
	// sequentially and returns the full interaction transcript.
	SendConfigSet(cmds []string) (string, error)
	// SaveConfig persists the running configuration and returns the
	// device's response.
	SaveConfig() (string, error)
	Close() error
}

// Dialer opens a Session for a device record. Connect and authentication
// failures are distinguished by wrapping the latter with ErrAuth.
type Dialer interface {
	Dial(ctx context.Context, rec inventory.Record) (Session, error)
}
