package transport

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/crypto/ssh"

	"github.com/AndrewPiroli/NOS-MCT/internal/device"
)

const readTimeout = 30 * time.Second

// shell is one interactive session to one device. Owned by exactly one
// worker, so no internal locking is needed.
type shell struct {
	client    *ssh.Client
	sess      *ssh.Session
	profile   *Profile
	stdin     io.WriteCloser
	chunks    chan []byte
	done      chan struct{}
	closeOnce sync.Once
	debug     io.WriteCloser
}

var _ device.Session = (*shell)(nil)

func openShell(client *ssh.Client, profile *Profile, host, debugDir string, cb *gobreaker.CircuitBreaker) (*shell, error) {
	res, err := cb.Execute(func() (any, error) {
		return client.NewSession()
	})
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	sess := res.(*ssh.Session)

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty("vt100", 0, 512, modes); err != nil {
		sess.Close()
		return nil, fmt.Errorf("request pty: %w", err)
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := sess.Shell(); err != nil {
		sess.Close()
		return nil, fmt.Errorf("start shell: %w", err)
	}

	sh := &shell{
		client:  client,
		sess:    sess,
		profile: profile,
		stdin:   stdin,
		chunks:  make(chan []byte, 16),
		done:    make(chan struct{}),
	}
	if debugDir != "" {
		// best effort, a failed debug log never fails the session
		if f, ferr := os.Create(filepath.Join(debugDir, sanitizeHost(host)+".log")); ferr == nil {
			sh.debug = f
		}
	}
	go sh.pump(stdout)

	// drain the login banner and MOTD up to the first prompt
	if _, err := sh.readUntil(profile.PromptPattern, readTimeout); err != nil {
		sh.Close()
		return nil, fmt.Errorf("no prompt after login: %w", err)
	}
	// pagination would stall every long show command
	if _, err := sh.run("terminal length 0", profile.PromptPattern); err != nil {
		sh.Close()
		return nil, fmt.Errorf("disable pagination: %w", err)
	}
	return sh, nil
}

// pump forwards device output to the chunks channel until the stream
// ends or the shell is closed. Selecting on done keeps the goroutine
// from parking on a send nobody will ever receive.
func (s *shell) pump(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if s.debug != nil {
				s.debug.Write(chunk)
			}
			select {
			case s.chunks <- chunk:
			case <-s.done:
				return
			}
		}
		if err != nil {
			close(s.chunks)
			return
		}
	}
}

// readUntil accumulates device output until pattern matches or the
// timeout expires. Output past the match is kept for the next read.
func (s *shell) readUntil(pattern *regexp.Regexp, timeout time.Duration) (string, error) {
	var b strings.Builder
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if pattern.MatchString(b.String()) {
			return b.String(), nil
		}
		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				return b.String(), fmt.Errorf("session closed while waiting for %q", pattern)
			}
			b.Write(chunk)
		case <-deadline.C:
			return b.String(), fmt.Errorf("timeout waiting for %q", pattern)
		}
	}
}

func (s *shell) send(line string) error {
	_, err := io.WriteString(s.stdin, line+"\n")
	if s.debug != nil {
		io.WriteString(s.debug, ">> "+line+"\n")
	}
	return err
}

// run sends one line and reads until the expected prompt, returning the
// response with the command echo and trailing prompt stripped.
func (s *shell) run(cmd string, expect *regexp.Regexp) (string, error) {
	if err := s.send(cmd); err != nil {
		return "", fmt.Errorf("send %q: %w", cmd, err)
	}
	raw, err := s.readUntil(expect, readTimeout)
	if err != nil {
		return raw, err
	}
	return trimEcho(raw, cmd), nil
}

func (s *shell) Enable(secret string) error {
	if err := s.send(s.profile.EnableCommand); err != nil {
		return err
	}
	prompt := regexp.MustCompile(s.profile.PasswordPrompt.String() + "|" + s.profile.PrivPattern.String())
	out, err := s.readUntil(prompt, readTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", device.ErrAuth, err)
	}
	if s.profile.PrivPattern.MatchString(out) {
		return nil // already privileged
	}
	if err := s.send(secret); err != nil {
		return err
	}
	if _, err := s.readUntil(s.profile.PrivPattern, readTimeout); err != nil {
		return fmt.Errorf("%w: enable secret not accepted", device.ErrAuth)
	}
	return nil
}

func (s *shell) SendCommand(cmd string) (string, error) {
	return s.run(cmd, s.profile.PromptPattern)
}

// SendConfigSet enters configuration context once, applies the batch in
// order and exits. The returned transcript covers the whole interaction,
// including the command that caused a rejection.
func (s *shell) SendConfigSet(cmds []string) (string, error) {
	var transcript strings.Builder
	out, err := s.run(s.profile.ConfigEnter, s.profile.ConfigPrompt)
	transcript.WriteString(out)
	if err != nil {
		return transcript.String(), fmt.Errorf("enter config mode: %w", err)
	}
	var execErr error
	for _, cmd := range cmds {
		out, err := s.run(cmd, s.profile.ConfigPrompt)
		transcript.WriteString("\n" + cmd + "\n" + out)
		if err != nil {
			execErr = fmt.Errorf("config command %q: %w", cmd, err)
			break
		}
		if rejected(out) {
			execErr = fmt.Errorf("config command %q rejected: %s", cmd, strings.TrimSpace(out))
			break
		}
	}
	out, err = s.run(s.profile.ConfigExit, s.profile.PromptPattern)
	transcript.WriteString("\n" + out)
	if execErr != nil {
		return transcript.String(), execErr
	}
	if err != nil {
		return transcript.String(), fmt.Errorf("exit config mode: %w", err)
	}
	return transcript.String(), nil
}

func (s *shell) SaveConfig() (string, error) {
	return s.run(s.profile.SaveCommand, s.profile.PromptPattern)
}

func (s *shell) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	if s.debug != nil {
		s.debug.Close()
	}
	s.sess.Close()
	return s.client.Close()
}

// rejected spots the IOS-style error markers in command output.
func rejected(out string) bool {
	for _, marker := range []string{"% Invalid input", "% Incomplete command", "% Ambiguous command"} {
		if strings.Contains(out, marker) {
			return true
		}
	}
	return false
}

func trimEcho(raw, cmd string) string {
	lines := strings.Split(raw, "\n")
	// drop the echoed command at the top and the prompt at the bottom
	if len(lines) > 0 && strings.Contains(lines[0], cmd) {
		lines = lines[1:]
	}
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) != "" &&
		(strings.HasSuffix(strings.TrimSpace(lines[n-1]), ">") || strings.HasSuffix(strings.TrimSpace(lines[n-1]), "#")) {
		lines = lines[:n-1]
	}
	return strings.TrimRight(strings.Join(lines, "\n"), " \r\n")
}

var hostSanitizer = strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")

func sanitizeHost(host string) string {
	return hostSanitizer.Replace(host)
}
