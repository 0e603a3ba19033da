package transport

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/crypto/ssh"

	"github.com/AndrewPiroli/NOS-MCT/internal/device"
	"github.com/AndrewPiroli/NOS-MCT/internal/inventory"
	"github.com/AndrewPiroli/NOS-MCT/pkg/lg"
)

const defaultSSHPort = "22"

// Dialer opens interactive shell sessions to network devices. Each Dial
// gets its own resilience state so one flapping device cannot trip the
// breaker for its siblings.
type Dialer struct {
	Timeout  time.Duration
	DebugDir string // when set, raw session io is logged per host
	Log      lg.Logger
}

func NewDialer(timeout time.Duration, debugDir string, logger lg.Logger) *Dialer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dialer{Timeout: timeout, DebugDir: debugDir, Log: logger}
}

func newBackoff() *backoff.ExponentialBackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     500 * time.Millisecond,
		MaxInterval:         5 * time.Second,
		MaxElapsedTime:      30 * time.Second,
		Multiplier:          1.5,
		RandomizationFactor: 0.5,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
}

func newBreaker(host string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ssh-session-" + host,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
}

// Dial connects and authenticates to the device, then opens an interactive
// shell matching its transport profile. Authentication rejections are
// wrapped with device.ErrAuth so the worker can classify them.
func (d *Dialer) Dial(ctx context.Context, rec inventory.Record) (device.Session, error) {
	profile, err := Lookup(rec.DeviceType)
	if err != nil {
		return nil, err
	}

	addr := rec.Host
	if _, _, splitErr := net.SplitHostPort(addr); splitErr != nil {
		addr = net.JoinHostPort(addr, defaultSSHPort)
	}

	config := &ssh.ClientConfig{
		User: rec.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(rec.Password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = rec.Password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         d.Timeout,
		BannerCallback:  func(string) error { return nil }, // ignore banner
	}
	var client *ssh.Client
	operation := func() error {
		var dialErr error
		client, dialErr = ssh.Dial("tcp", addr, config)
		if dialErr != nil && isAuthFailure(dialErr) {
			// retrying bad credentials only locks accounts out
			return backoff.Permanent(fmt.Errorf("%w: %s", device.ErrAuth, dialErr))
		}
		return dialErr
	}
	if err := backoff.Retry(operation, backoff.WithContext(newBackoff(), ctx)); err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	shell, err := openShell(client, profile, rec.Host, d.DebugDir, newBreaker(rec.Host))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("open shell %s: %w", addr, err)
	}
	return shell, nil
}

func isAuthFailure(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}
