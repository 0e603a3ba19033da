// Package collect aggregates device outcomes into a run summary and
// drives artifact persistence. It is the only component fed by multiple
// workers, so all accumulation happens on one goroutine.
package collect

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/AndrewPiroli/NOS-MCT/internal/device"
	"github.com/AndrewPiroli/NOS-MCT/internal/persistence"
	"github.com/AndrewPiroli/NOS-MCT/pkg/lg"
)

// Summary is the aggregate result of one run.
type Summary struct {
	RunID          uuid.UUID `json:"run_id"`
	Success        int       `json:"success"`
	AuthFailure    int       `json:"auth_failure"`
	ConnectFailure int       `json:"connect_failure"`
	ExecFailure    int       `json:"exec_failure"`
}

// Total is the number of devices accounted for.
func (s Summary) Total() int {
	return s.Success + s.AuthFailure + s.ConnectFailure + s.ExecFailure
}

// Failed reports whether any device ended in a failed state.
func (s Summary) Failed() bool {
	return s.AuthFailure+s.ConnectFailure+s.ExecFailure > 0
}

// Sink receives each outcome as it arrives, e.g. a Kafka publisher.
type Sink interface {
	Publish(ctx context.Context, key string, outcome device.Outcome) error
}

// Collector persists artifacts per device and accumulates the summary.
type Collector struct {
	runID uuid.UUID
	dir   *persistence.ArtifactDir
	sink  Sink // optional
	log   lg.Logger
}

func New(runID uuid.UUID, dir *persistence.ArtifactDir, sink Sink, logger lg.Logger) *Collector {
	return &Collector{runID: runID, dir: dir, sink: sink, log: logger}
}

// Collect drains the outcome stream. Persistence errors are logged and
// counted against nothing: a device that executed successfully stays a
// success even if its artifact could not be written.
func (c *Collector) Collect(ctx context.Context, outcomes <-chan device.Outcome) Summary {
	summary := Summary{RunID: c.runID}
	for out := range outcomes {
		switch out.Status {
		case device.StatusSuccess:
			summary.Success++
		case device.StatusAuthFailure:
			summary.AuthFailure++
		case device.StatusConnectFailure:
			summary.ConnectFailure++
		case device.StatusExecFailure:
			summary.ExecFailure++
		}
		if err := c.persist(out); err != nil {
			c.log.Error("failed to write artifact", lg.String("host", out.Host), lg.Err(err))
		}
		if c.sink != nil {
			if err := c.sink.Publish(ctx, out.Host, out); err != nil {
				c.log.Warn("failed to publish outcome", lg.String("host", out.Host), lg.Err(err))
			}
		}
		c.log.Info("finished", lg.String("host", out.Host), lg.String("status", out.Status.String()))
	}
	if err := c.dir.WriteSummary(summary); err != nil {
		c.log.Error("failed to write summary", lg.Err(err))
	}
	return summary
}

func (c *Collector) persist(out device.Outcome) error {
	for _, capture := range out.Captures {
		name := fmt.Sprintf("%s.txt", capture.Command)
		if err := c.dir.WriteDeviceFile(out.Host, name, capture.Output); err != nil {
			return err
		}
	}
	if out.Transcript != "" {
		if err := c.dir.WriteDeviceFile(out.Host, "configset.txt", out.Transcript); err != nil {
			return err
		}
	}
	if out.Err != nil {
		if err := c.dir.WriteDeviceFile(out.Host, "error.txt", out.Err.Error()); err != nil {
			return err
		}
	}
	return nil
}
