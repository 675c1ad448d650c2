package multiplayer

import "sync"

// Transport delivers encoded frames to one client.
// Send must not block; implementations drop frames they cannot deliver.
type Transport interface {
	Send(frame []byte)
}

// ChannelTransport is a Transport backed by a buffered channel.
// Used by in-process clients such as the SSH front-end.
type ChannelTransport struct {
	frames    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewChannelTransport creates a channel transport.
// bufferSize controls how many frames can be queued before the oldest are dropped.
func NewChannelTransport(bufferSize int) *ChannelTransport {
	if bufferSize < 1 {
		bufferSize = 64
	}
	return &ChannelTransport{
		frames: make(chan []byte, bufferSize),
		done:   make(chan struct{}),
	}
}

// Send queues a frame. If the buffer is full the oldest frame is dropped.
func (t *ChannelTransport) Send(frame []byte) {
	select {
	case <-t.done:
		return
	default:
	}

	select {
	case t.frames <- frame:
	default:
		select {
		case <-t.frames:
		default:
		}
		select {
		case t.frames <- frame:
		default:
		}
	}
}

// Frames returns the channel to receive frames from.
func (t *ChannelTransport) Frames() <-chan []byte {
	return t.frames
}

// Done returns a channel that is closed by Close.
func (t *ChannelTransport) Done() <-chan struct{} {
	return t.done
}

// Close stops further delivery. Safe to call multiple times.
func (t *ChannelTransport) Close() {
	t.closeOnce.Do(func() {
		close(t.done)
	})
}
