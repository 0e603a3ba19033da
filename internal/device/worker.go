package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/AndrewPiroli/NOS-MCT/internal/inventory"
	"github.com/AndrewPiroli/NOS-MCT/internal/job"
	"github.com/AndrewPiroli/NOS-MCT/pkg/lg"
)

// Run executes the job against one device and always returns an Outcome,
// never an error: every failure inside the worker is converted at this
// boundary so it cannot reach the dispatcher or sibling workers.
func Run(ctx context.Context, dialer Dialer, rec inventory.Record, spec job.Spec) (out Outcome) {
	logger := lg.FromContext(ctx).With(lg.String("host", rec.Host))
	out = Outcome{Host: rec.Host, DeviceType: rec.DeviceType}

	defer func() {
		if r := recover(); r != nil {
			out.Status = StatusExecFailure
			out.Err = fmt.Errorf("worker panic: %v", r)
			logger.Error("worker panicked", lg.Any("panic", r))
		}
	}()

	logger.Info("running")
	sess, err := dialer.Dial(ctx, rec)
	if err != nil {
		if isAuthErr(err) {
			out.Status = StatusAuthFailure
		} else {
			out.Status = StatusConnectFailure
		}
		out.Err = err
		logger.Warn("connection failed", lg.Err(err))
		return out
	}
	// the session must never outlive the worker, whatever happens below
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.Debug("disconnect", lg.Err(cerr))
		}
	}()

	if err := sess.Enable(rec.Secret); err != nil {
		out.Status = StatusAuthFailure
		out.Err = fmt.Errorf("enable: %w", err)
		logger.Warn("privilege elevation failed", lg.Err(err))
		return out
	}

	switch spec.Mode {
	case job.ModeYoink:
		out.Captures = yoink(sess, spec.Commands, logger)
		out.Status = StatusSuccess
	case job.ModeSaveOnly:
		text, err := sess.SaveConfig()
		if err != nil {
			out.Status = StatusExecFailure
			out.Err = fmt.Errorf("save config: %w", err)
			logger.Warn("save failed", lg.Err(err))
			return out
		}
		out.Captures = []Capture{{Command: "save config", Output: text}}
		out.Status = StatusSuccess
		logger.Info("saved config")
	case job.ModeYeet:
		transcript, err := yeet(sess, spec.Commands)
		out.Transcript = transcript
		if err != nil {
			out.Status = StatusExecFailure
			out.Err = err
			logger.Warn("config push rejected", lg.Err(err))
			return out
		}
		out.Status = StatusSuccess
	default:
		out.Status = StatusExecFailure
		out.Err = fmt.Errorf("unhandled operating mode: %v", spec.Mode)
		return out
	}

	logger.Info("finished", lg.String("status", out.Status.String()))
	return out
}

// yoink sends each command individually and captures each response. A
// failing command is recorded in its own capture and execution moves on,
// one bad command never aborts the rest of the device run.
func yoink(sess Session, commands []string, logger lg.Logger) []Capture {
	captures := make([]Capture, 0, len(commands))
	for _, cmd := range commands {
		text, err := sess.SendCommand(cmd)
		if err != nil {
			logger.Debug("command error", lg.String("command", cmd), lg.Err(err))
			text = fmt.Sprintf("%s\n!! error: %v", text, err)
		}
		captures = append(captures, Capture{Command: cmd, Output: text})
	}
	return captures
}

// yeet pushes the whole command list as one batch. The config save is
// attempted even when the batch is rejected, so a partially applied set
// is never left unsaved on the device.
func yeet(sess Session, commands []string) (string, error) {
	transcript, err := sess.SendConfigSet(commands)
	saved, serr := sess.SaveConfig()
	if saved != "" {
		transcript += "\n" + saved
	}
	if err != nil {
		return transcript, fmt.Errorf("config set: %w", err)
	}
	if serr != nil {
		return transcript, fmt.Errorf("save config: %w", serr)
	}
	return transcript, nil
}

func isAuthErr(err error) bool {
	return errors.Is(err, ErrAuth)
}
