// Package gpu holds the hal plumbing shared by framegraph passes: frame
// encoding sessions, synchronous submission and bind group assembly.
package gpu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/wgpu/hal"
)

// Session errors.
var (
	// ErrSessionEnded is returned when a finished session is used again.
	ErrSessionEnded = errors.New("gpu: session has already ended")

	// ErrNilDevice is returned when a session is opened without a device.
	ErrNilDevice = errors.New("gpu: device is nil")
)

// SessionState is the lifecycle state of a Session.
type SessionState int

const (
	// SessionRecording means commands may be recorded.
	SessionRecording SessionState = iota

	// SessionSubmitted means the command buffer was handed to the queue.
	SessionSubmitted

	// SessionDiscarded means recording was abandoned.
	SessionDiscarded
)

// String returns the string representation of SessionState.
func (s SessionState) String() string {
	switch s {
	case SessionRecording:
		return "Recording"
	case SessionSubmitted:
		return "Submitted"
	case SessionDiscarded:
		return "Discarded"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Session records one frame's commands into a single command encoder.
// It is not safe for concurrent use.
type Session struct {
	device  hal.Device
	encoder hal.CommandEncoder
	cmd     hal.CommandBuffer
	state   SessionState
	index   uint64
}

// Begin creates a command encoder and starts recording.
func Begin(device hal.Device, label string) (*Session, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if encoder == nil {
		return nil, fmt.Errorf("create command encoder: %w", ErrNilDevice)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	return &Session{device: device, encoder: encoder}, nil
}

// Encoder returns the underlying command encoder.
func (s *Session) Encoder() hal.CommandEncoder { return s.encoder }

// State returns the session state.
func (s *Session) State() SessionState { return s.state }

// SubmissionIndex returns the queue index of the submitted work, or 0.
func (s *Session) SubmissionIndex() uint64 { return s.index }

// Discard abandons recording. Safe to call more than once.
func (s *Session) Discard() {
	if s.state != SessionRecording {
		return
	}
	s.encoder.DiscardEncoding()
	s.state = SessionDiscarded
}

// Submit ends recording and submits the command buffer to queue.
func (s *Session) Submit(queue hal.Queue) (uint64, error) {
	if s.state != SessionRecording {
		return 0, ErrSessionEnded
	}
	cmdBuf, err := s.encoder.EndEncoding()
	if err != nil {
		s.state = SessionDiscarded
		return 0, fmt.Errorf("end encoding: %w", err)
	}
	idx, err := queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		s.device.FreeCommandBuffer(cmdBuf)
		s.state = SessionDiscarded
		return 0, fmt.Errorf("submit: %w", err)
	}
	s.state = SessionSubmitted
	s.cmd = cmdBuf
	s.index = idx
	slogger().Debug("gpu: frame submitted", "index", idx)
	return idx, nil
}

// Free releases the submitted command buffer. Call it once the submission
// has completed.
func (s *Session) Free() {
	if s.cmd != nil {
		s.device.FreeCommandBuffer(s.cmd)
		s.cmd = nil
	}
}

// pollInterval is the sleep between completion polls in Wait.
const pollInterval = 200 * time.Microsecond

// maxPolls bounds how long Wait polls before falling back to WaitIdle.
const maxPolls = 64

// Wait blocks until the queue reports index as completed. It polls a bounded
// number of times, then falls back to device.WaitIdle. Cancellation of ctx
// is observed between polls.
func Wait(ctx context.Context, device hal.Device, queue hal.Queue, index uint64) error {
	for i := 0; i < maxPolls; i++ {
		if queue.PollCompleted() >= index {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	slogger().Debug("gpu: completion poll exhausted, waiting idle", "index", index)
	if err := device.WaitIdle(); err != nil {
		return fmt.Errorf("wait idle: %w", err)
	}
	return nil
}
