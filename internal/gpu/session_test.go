package gpu

import (
	"context"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice opens a device on the noop backend for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		t.Fatal("no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

func TestSessionStateString(t *testing.T) {
	tests := []struct {
		state SessionState
		want  string
	}{
		{SessionRecording, "Recording"},
		{SessionSubmitted, "Submitted"},
		{SessionDiscarded, "Discarded"},
		{SessionState(9), "Unknown(9)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("SessionState(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}

func TestSessionSubmitAndWait(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	s, err := Begin(device, "frame")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if s.State() != SessionRecording {
		t.Fatalf("State() = %v, want Recording", s.State())
	}

	idx, err := s.Submit(queue)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if idx == 0 || s.SubmissionIndex() != idx {
		t.Errorf("SubmissionIndex() = %d, want %d (non-zero)", s.SubmissionIndex(), idx)
	}
	if err := Wait(context.Background(), device, queue, idx); err != nil {
		t.Errorf("Wait() error = %v", err)
	}

	if _, err := s.Submit(queue); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("second Submit() error = %v, want ErrSessionEnded", err)
	}
}

func TestSessionDiscard(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	s, err := Begin(device, "frame")
	if err != nil {
		t.Fatal(err)
	}
	s.Discard()
	s.Discard()
	if s.State() != SessionDiscarded {
		t.Errorf("State() = %v, want Discarded", s.State())
	}
	if _, err := s.Submit(queue); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("Submit() after Discard error = %v, want ErrSessionEnded", err)
	}
}

func TestBeginNilDevice(t *testing.T) {
	if _, err := Begin(nil, "x"); !errors.Is(err, ErrNilDevice) {
		t.Errorf("Begin(nil) error = %v, want ErrNilDevice", err)
	}
}

// stalledQueue never reports completion.
type stalledQueue struct{ hal.Queue }

func (stalledQueue) PollCompleted() uint64 { return 0 }

func TestWaitFallsBackToWaitIdle(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	if err := Wait(context.Background(), device, stalledQueue{queue}, 5); err != nil {
		t.Errorf("Wait() error = %v, want nil after WaitIdle", err)
	}
}

func TestWaitHonoursCancel(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Wait(ctx, device, stalledQueue{queue}, 5); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
}

func TestSessionFree(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	s, err := Begin(device, "frame")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	s.Free() // nothing submitted yet
	if _, err := s.Submit(queue); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if s.cmd == nil {
		t.Fatal("Submit() did not keep the command buffer")
	}
	s.Free()
	if s.cmd != nil {
		t.Error("Free() kept the command buffer")
	}
	s.Free()
}
