package adb

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Invocation tiers for synchronous execution.
const (
	TierExecOut = "exec-out"
	TierShell   = "shell"
)

type sessionState int

const (
	sessionUninitialized sessionState = iota
	sessionAlive
	sessionDead
)

// shellHandle is one spawned interactive shell process. The session owns at
// most one at a time; replacing it always terminates the prior handle first.
type shellHandle interface {
	Input() io.Writer
	Output() io.Reader
	Terminate()
}

type shellSpawner func() (shellHandle, error)

// SyncRecord describes one completed synchronous execution, for observers
// such as the command history store.
type SyncRecord struct {
	Serial      string
	Command     string
	Tier        string
	TimedOut    bool
	Duration    time.Duration
	StdoutBytes int
	StderrBytes int
}

// Session owns one long-lived interactive adb shell per device connection.
//
// Synchronous commands go through independent one-shot invocations (fast
// exec-out first, plain shell as the universally supported fallback) and
// never touch the interactive subprocess or its output queue. Interactive
// commands are written to the subprocess's stdin; its output is drained by a
// single background goroutine into a FIFO queue read via PollOutputLine.
//
// Close must not be called concurrently with an in-flight ExecuteSync on the
// same session; callers must also serialize their own ExecuteAsync calls.
type Session struct {
	serial string
	run    Runner
	spawn  shellSpawner

	// OnSync, when set before first use, observes every ExecuteSync call.
	OnSync func(SyncRecord)

	mu    sync.Mutex
	state sessionState
	proc  shellHandle

	queueMu sync.Mutex
	queue   []string
}

// NewSession creates a session for the given device and eagerly attempts to
// spawn the interactive shell. Spawn failure is degraded mode, not fatal: the
// session starts dead and the next ExecuteAsync retries once.
func NewSession(serial string, inv *Invoker) *Session {
	s := newSession(serial, inv, func() (shellHandle, error) {
		return inv.spawnShell(serial)
	})
	s.mu.Lock()
	s.startLocked()
	s.mu.Unlock()
	return s
}

func newSession(serial string, run Runner, spawn shellSpawner) *Session {
	return &Session{serial: serial, run: run, spawn: spawn, state: sessionUninitialized}
}

// startLocked replaces the interactive subprocess. Callers hold s.mu.
func (s *Session) startLocked() bool {
	if s.proc != nil {
		s.proc.Terminate()
		s.proc = nil
	}
	h, err := s.spawn()
	if err != nil {
		s.state = sessionDead
		log.Warn().Err(err).Str("serial", s.serial).Msg("interactive shell spawn failed")
		return false
	}
	s.proc = h
	s.state = sessionAlive
	log.Debug().Str("serial", s.serial).Msg("interactive shell started")
	go s.drain(h)
	return true
}

// drain reads the interactive shell's output one line at a time, for the
// lifetime of that subprocess, and appends each line to the queue. It is the
// only reader of the stream. Lines have no length cap; a command dumping a
// huge single line must not kill the session.
func (s *Session) drain(h shellHandle) {
	reader := bufio.NewReaderSize(h.Output(), 64*1024)
	for {
		raw, err := reader.ReadString('\n')
		if err == nil {
			s.enqueue(strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r"))
			continue
		}
		if raw != "" {
			s.enqueue(strings.TrimSuffix(raw, "\r"))
		}
		break
	}
	s.mu.Lock()
	if s.proc == h {
		s.state = sessionDead
	}
	s.mu.Unlock()
	log.Debug().Str("serial", s.serial).Msg("interactive shell output closed")
}

func (s *Session) enqueue(line string) {
	s.queueMu.Lock()
	s.queue = append(s.queue, line)
	s.queueMu.Unlock()
}

// ExecuteSync runs command synchronously and returns its output streams.
// Tier 1 issues the command through exec-out; a zero exit status is final,
// even with empty stdout. Non-zero exit, timeout, or any invocation error
// abandons Tier 1 entirely and reissues the identical command through plain
// shell with the same timeout budget. Output from the two tiers is never
// mixed. A Tier 2 timeout is reported as stderr text; no error crosses this
// boundary.
//
// The call blocks up to timeout per tier; keep it off latency-sensitive
// loops.
func (s *Session) ExecuteSync(ctx context.Context, command string, timeout time.Duration) (string, string) {
	start := time.Now()
	res, err := s.run.Run(ctx, s.serial, timeout, TierExecOut, command)
	if err == nil && res.ExitCode == 0 {
		s.observe(command, TierExecOut, false, start, res)
		return res.Stdout, res.Stderr
	}
	if err != nil {
		log.Debug().Err(err).Str("serial", s.serial).Msg("exec-out failed, falling back to shell")
	} else {
		log.Debug().Int("exit", res.ExitCode).Str("serial", s.serial).Msg("exec-out exited non-zero, falling back to shell")
	}

	start = time.Now()
	res, err = s.run.Run(ctx, s.serial, timeout, TierShell, command)
	switch {
	case err == nil:
		s.observe(command, TierShell, false, start, res)
		return res.Stdout, res.Stderr
	case pkgerrors.Is(err, ErrTimedOut):
		s.observe(command, TierShell, true, start, Result{})
		return "", fmt.Sprintf("command timed out after %s", timeout)
	default:
		return "", err.Error()
	}
}

func (s *Session) observe(command, tier string, timedOut bool, start time.Time, res Result) {
	if s.OnSync == nil {
		return
	}
	s.OnSync(SyncRecord{
		Serial:      s.serial,
		Command:     command,
		Tier:        tier,
		TimedOut:    timedOut,
		Duration:    time.Since(start),
		StdoutBytes: len(res.Stdout),
		StderrBytes: len(res.Stderr),
	})
}

// ExecuteAsync writes command to the interactive shell's stdin and reports
// whether the write succeeded. On a dead session it first attempts exactly
// one respawn; if that also fails the command is not sent and false is
// returned. Never blocks.
func (s *Session) ExecuteAsync(command string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != sessionAlive || s.proc == nil {
		if !s.startLocked() {
			return false
		}
	}
	if _, err := io.WriteString(s.proc.Input(), command+"\n"); err != nil {
		log.Warn().Err(err).Str("serial", s.serial).Msg("interactive shell write failed")
		s.state = sessionDead
		return false
	}
	return true
}

// PollOutputLine pops the oldest undelivered interactive output line. The
// second return is false when the queue is empty. Never blocks; lines come
// out in the exact order the subprocess emitted them, each delivered once.
func (s *Session) PollOutputLine() (string, bool) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if len(s.queue) == 0 {
		return "", false
	}
	line := s.queue[0]
	s.queue = s.queue[1:]
	return line, true
}

// Close marks the session dead and terminates the interactive subprocess,
// ignoring errors if it already exited. Idempotent. Must not race an
// in-flight ExecuteSync on the same session.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = sessionDead
	if s.proc != nil {
		s.proc.Terminate()
		s.proc = nil
	}
}

// execShell is the real interactive subprocess: `adb -s <serial> shell` with
// stdout and stderr merged into one line stream.
type execShell struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   io.ReadCloser
}

func (inv *Invoker) spawnShell(serial string) (shellHandle, error) {
	argv := make([]string, 0, 3)
	if serial != "" {
		argv = append(argv, "-s", serial)
	}
	argv = append(argv, "shell")
	cmd := exec.Command(inv.path(), argv...)
	hideConsole(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, pkgerrors.Wrapf(ErrSpawnFailed, "stdin pipe: %v", err)
	}
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = pw.Close()
		return nil, pkgerrors.Wrapf(ErrSpawnFailed, "start: %v", err)
	}
	go func() {
		_ = cmd.Wait()
		_ = pw.Close()
	}()
	return &execShell{cmd: cmd, stdin: stdin, out: pr}, nil
}

func (p *execShell) Input() io.Writer  { return p.stdin }
func (p *execShell) Output() io.Reader { return p.out }

func (p *execShell) Terminate() {
	_ = p.stdin.Close()
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}
