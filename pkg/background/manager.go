// Package background runs shell commands as tracked processes with bounded
// output buffers, timeouts, and signal escalation.
package background

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/quillagent/quill/pkg/logging"
)

// State is the lifecycle phase of a managed process. Terminal states are
// sticky: once reached they never change.
type State string

const (
	StatePending State = "pending"
	StateRunning State = "running"
	StateExited  State = "exited"
	StateKilled  State = "killed"
	StateTimeout State = "timeout"
)

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateExited || s == StateKilled || s == StateTimeout
}

// killGrace is how long a process gets between SIGTERM and SIGKILL.
const killGrace = 5 * time.Second

// ErrTooManyProcesses is wrapped by Start when the concurrency cap is hit.
var ErrTooManyProcesses = fmt.Errorf("too many background processes")

// Options configures a Manager.
type Options struct {
	MaxConcurrent  int
	DefaultTimeout time.Duration
	MaxBufferBytes int64
	Logger         *logging.Logger
}

// StartOptions configures a single process.
type StartOptions struct {
	Command string
	Label   string
	// Timeout overrides the manager default; zero means use the default.
	Timeout time.Duration
}

// Status is a point-in-time snapshot of a process.
type Status struct {
	ID        string `json:"id"`
	Label     string `json:"label,omitempty"`
	Command   string `json:"command"`
	State     State  `json:"state"`
	PID       int    `json:"pid,omitempty"`
	ExitCode  int    `json:"exit_code"`
	RuntimeMS int64  `json:"runtime_ms"`
}

// Stream selectors for OutputOptions.
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

// OutputOptions selects what Output returns.
type OutputOptions struct {
	// Lines limits a tail read; ignored when SinceLastRead is set.
	Lines int
	// Stream narrows the read to "stdout" or "stderr". Empty reads both.
	Stream string
	// SinceLastRead returns only bytes not yet seen by a previous
	// SinceLastRead call and advances the cursor of each selected stream.
	SinceLastRead bool
}

// Output is the captured stream content for a process.
type Output struct {
	Stdout          string `json:"stdout"`
	Stderr          string `json:"stderr"`
	StdoutTruncated bool   `json:"stdout_truncated"`
	StderrTruncated bool   `json:"stderr_truncated"`
	State           State  `json:"state"`
}

type process struct {
	id         string
	label      string
	command    string
	cmd        *exec.Cmd
	state      State
	finalState State // set by kill/timeout before the waiter observes exit
	exitCode   int
	startedAt  time.Time
	finishedAt time.Time
	stdout     *ringBuffer
	stderr     *ringBuffer
	stdoutPos  int64
	stderrPos  int64
	timer      *time.Timer
	done       chan struct{}
}

func (p *process) runtimeMS() int64 {
	end := p.finishedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(p.startedAt).Milliseconds()
}

// Manager owns the process table. All state transitions happen under mu;
// stream buffers carry their own locks because writers run concurrently.
type Manager struct {
	mu        sync.Mutex
	procs     map[string]*process
	opts      Options
	logger    *logging.Logger
	onStarted func()
	onStopped func()
}

// NewManager creates a Manager with opts, filling unset values with defaults.
func NewManager(opts Options) *Manager {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = 2 * time.Minute
	}
	if opts.MaxBufferBytes <= 0 {
		opts.MaxBufferBytes = 256 * 1024
	}
	return &Manager{
		procs:  make(map[string]*process),
		opts:   opts,
		logger: opts.Logger,
	}
}

// SetGauges registers callbacks fired when a process starts or reaches a
// terminal state, used for metrics wiring.
func (m *Manager) SetGauges(onStarted, onStopped func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStarted = onStarted
	m.onStopped = onStopped
}

// Start launches command under bash and registers it. It fails fast when the
// concurrency cap is reached; a failed start leaves the table unchanged.
func (m *Manager) Start(ctx context.Context, opts StartOptions) (Status, error) {
	if opts.Command == "" {
		return Status{}, fmt.Errorf("command must not be empty")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = m.opts.DefaultTimeout
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	active := 0
	for _, p := range m.procs {
		if !p.state.Terminal() {
			active++
		}
	}
	if active >= m.opts.MaxConcurrent {
		return Status{}, fmt.Errorf("%w: %d of %d slots in use; stop one with bg_kill or wait for it to finish",
			ErrTooManyProcesses, active, m.opts.MaxConcurrent)
	}

	p := &process{
		id:      ulid.Make().String(),
		label:   opts.Label,
		command: opts.Command,
		state:   StatePending,
		stdout:  newRingBuffer(m.opts.MaxBufferBytes),
		stderr:  newRingBuffer(m.opts.MaxBufferBytes),
		done:    make(chan struct{}),
	}
	p.cmd = exec.Command("bash", "-lc", opts.Command)
	p.cmd.Stdout = p.stdout
	p.cmd.Stderr = p.stderr

	if err := p.cmd.Start(); err != nil {
		return Status{}, fmt.Errorf("start %q: %w", opts.Command, err)
	}
	p.state = StateRunning
	p.startedAt = time.Now()
	m.procs[p.id] = p
	if m.onStarted != nil {
		m.onStarted()
	}

	p.timer = time.AfterFunc(timeout, func() { m.terminate(p, StateTimeout, syscall.SIGTERM) })
	go m.wait(p)

	m.logger.Info(logging.CategoryProcess, "process.started", map[string]any{
		"id": p.id, "pid": p.cmd.Process.Pid, "label": p.label,
	})
	return snapshotLocked(p), nil
}

// wait blocks on process exit and records the terminal state exactly once.
func (m *Manager) wait(p *process) {
	err := p.cmd.Wait()

	m.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
	}
	final := p.finalState
	if final == "" {
		final = StateExited
	}
	p.state = final
	p.finishedAt = time.Now()
	p.exitCode = p.cmd.ProcessState.ExitCode()
	if err != nil && p.exitCode == 0 {
		p.exitCode = -1
	}
	close(p.done)
	onStopped := m.onStopped
	m.mu.Unlock()

	if onStopped != nil {
		onStopped()
	}
	m.logger.Info(logging.CategoryProcess, "process.finished", map[string]any{
		"id": p.id, "state": string(final), "exit_code": p.exitCode,
	})
}

// terminate escalates sig -> grace -> SIGKILL, stamping reason as the
// terminal state the waiter will record. No-op on already-terminal processes.
func (m *Manager) terminate(p *process, reason State, sig syscall.Signal) {
	m.mu.Lock()
	if p.state.Terminal() || p.finalState != "" {
		m.mu.Unlock()
		return
	}
	p.finalState = reason
	proc := p.cmd.Process
	m.mu.Unlock()

	if proc == nil {
		return
	}
	if sig <= 0 {
		sig = syscall.SIGTERM
	}
	proc.Signal(sig)
	select {
	case <-p.done:
	case <-time.After(killGrace):
		proc.Kill()
	}
}

// Kill requests termination with sig, defaulting to SIGTERM when sig is zero.
// It returns false without side effects when the process is already terminal,
// true once escalation has been initiated. Concurrent calls are safe; exactly
// one drives the escalation.
func (m *Manager) Kill(id string, sig syscall.Signal) (bool, error) {
	m.mu.Lock()
	p, ok := m.procs[id]
	if !ok {
		m.mu.Unlock()
		return false, fmt.Errorf("process %s not found; list active processes with bg_status", id)
	}
	if p.state.Terminal() {
		m.mu.Unlock()
		return false, nil
	}
	alreadyRequested := p.finalState != ""
	m.mu.Unlock()

	if !alreadyRequested {
		go m.terminate(p, StateKilled, sig)
	}
	return true, nil
}

// Status returns the snapshot for one process.
func (m *Manager) Status(id string) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.procs[id]
	if !ok {
		return Status{}, fmt.Errorf("process %s not found; list active processes with bg_status", id)
	}
	return snapshotLocked(p), nil
}

// List returns snapshots for every tracked process, including terminal ones
// not yet cleaned up.
func (m *Manager) List() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Status, 0, len(m.procs))
	for _, p := range m.procs {
		out = append(out, snapshotLocked(p))
	}
	return out
}

// Output reads captured stream content. SinceLastRead reads advance a cursor
// per selected stream, so repeating the call with no new output returns
// nothing. Stream narrows the read and cursor advance to one stream.
func (m *Manager) Output(id string, opts OutputOptions) (Output, error) {
	wantStdout := opts.Stream == "" || opts.Stream == StreamStdout
	wantStderr := opts.Stream == "" || opts.Stream == StreamStderr
	if !wantStdout && !wantStderr {
		return Output{}, fmt.Errorf("unknown stream %q; use stdout or stderr", opts.Stream)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.procs[id]
	if !ok {
		return Output{}, fmt.Errorf("process %s not found; list active processes with bg_status", id)
	}

	out := Output{State: p.state}
	if wantStdout {
		out.StdoutTruncated = p.stdout.Truncated()
		if opts.SinceLastRead {
			chunk, next := p.stdout.ReadFrom(p.stdoutPos)
			out.Stdout = string(chunk)
			p.stdoutPos = next
		} else {
			out.Stdout = p.stdout.Tail(opts.Lines)
		}
	}
	if wantStderr {
		out.StderrTruncated = p.stderr.Truncated()
		if opts.SinceLastRead {
			chunk, next := p.stderr.ReadFrom(p.stderrPos)
			out.Stderr = string(chunk)
			p.stderrPos = next
		} else {
			out.Stderr = p.stderr.Tail(opts.Lines)
		}
	}
	return out, nil
}

// Cleanup removes a process from the table, terminating it first if needed.
// Termination failures are logged and swallowed; the entry is always removed.
func (m *Manager) Cleanup(id string) {
	m.mu.Lock()
	p, ok := m.procs[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	terminal := p.state.Terminal()
	delete(m.procs, id)
	m.mu.Unlock()

	if !terminal {
		m.terminate(p, StateKilled, syscall.SIGTERM)
		select {
		case <-p.done:
		case <-time.After(killGrace + time.Second):
			m.logger.Warn(logging.CategoryProcess, "process.cleanup_stuck", map[string]any{"id": id})
		}
	}
}

// KillAll terminates every live process in parallel and clears the table.
// Best-effort: individual failures are logged, never returned, and a second
// call on an empty table is a no-op.
func (m *Manager) KillAll(ctx context.Context) {
	m.mu.Lock()
	victims := make([]*process, 0, len(m.procs))
	for id, p := range m.procs {
		victims = append(victims, p)
		delete(m.procs, id)
	}
	m.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for _, p := range victims {
		g.Go(func() error {
			m.mu.Lock()
			terminal := p.state.Terminal()
			m.mu.Unlock()
			if terminal {
				return nil
			}
			m.terminate(p, StateKilled, syscall.SIGTERM)
			select {
			case <-p.done:
			case <-time.After(killGrace + time.Second):
				m.logger.Warn(logging.CategoryProcess, "process.killall_stuck", map[string]any{"id": p.id})
			case <-ctx.Done():
			}
			return nil
		})
	}
	g.Wait()
}

func snapshotLocked(p *process) Status {
	st := Status{
		ID:        p.id,
		Label:     p.label,
		Command:   p.command,
		State:     p.state,
		ExitCode:  p.exitCode,
		RuntimeMS: p.runtimeMS(),
	}
	if p.cmd != nil && p.cmd.Process != nil {
		st.PID = p.cmd.Process.Pid
	}
	return st
}
