// Package signal provides a thread-safe publish/subscribe channel: listeners
// connect callbacks and receive every value emitted on the signal.
package signal

import (
	"sync"

	"go.uber.org/zap"

	"github.com/jzx17/jobpool/internal/errors"
	"github.com/jzx17/jobpool/pkg/logging"
)

// SlotID identifies a connected listener
type SlotID int

// NoID is never returned by Connect, disconnecting it is a no-op
const NoID SlotID = -1

// Receiver is a listener callback
type Receiver[T any] func(T)

type slot[T any] struct {
	id       SlotID
	receiver Receiver[T]
}

// Signal is a registry of listeners notified in registration order.
//
// Emit and SafeEmit hold the registry lock while listeners run: a listener
// must not call Connect, Disconnect or DisconnectAll on the signal that is
// invoking it.
type Signal[T any] struct {
	mu     sync.Mutex
	nextID SlotID
	slots  []slot[T]
	logger *zap.SugaredLogger
}

// New creates a signal logging SafeEmit failures through logger
func New[T any](logger *zap.Logger) *Signal[T] {
	return &Signal[T]{
		logger: logging.Prefixed(logger, "signal", "utils"),
	}
}

// Connect registers receiver and returns its identifier. Identifiers are
// strictly increasing.
func (s *Signal[T]) Connect(receiver Receiver[T]) SlotID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.slots = append(s.slots, slot[T]{id: id, receiver: receiver})

	return id
}

// Disconnect removes the listener registered under id. Unknown identifiers
// and NoID are ignored.
func (s *Signal[T]) Disconnect(id SlotID) {
	if id == NoID {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sl := range s.slots {
		if sl.id == id {
			s.slots = append(s.slots[:i], s.slots[i+1:]...)
			return
		}
	}
}

// DisconnectAll removes every listener
func (s *Signal[T]) DisconnectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots = nil
}

// Len returns the number of connected listeners
func (s *Signal[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.slots)
}

// Emit invokes every listener with value. A panicking listener propagates
// to the caller and the remaining listeners are skipped.
func (s *Signal[T]) Emit(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sl := range s.slots {
		if sl.receiver != nil {
			sl.receiver(value)
		}
	}
}

// SafeEmit invokes every listener with value, recovering each one
// individually. Failures are logged with label as context and never stop
// the remaining listeners. It returns true only if every listener succeeded.
func (s *Signal[T]) SafeEmit(label string, value T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	allGood := true
	for _, sl := range s.slots {
		if sl.receiver == nil {
			continue
		}
		receiver := sl.receiver
		if !errors.Guard(s.log(), label, func() { receiver(value) }) {
			allGood = false
		}
	}

	return allGood
}

func (s *Signal[T]) log() *zap.SugaredLogger {
	if s.logger == nil {
		s.logger = logging.Prefixed(nil, "", "")
	}
	return s.logger
}
