package syncclient

import (
	"sync"
	"time"

	"github.com/mikemainguy/rapierphysicsplugin/config"
	"github.com/mikemainguy/rapierphysicsplugin/physics"
)

// InputSender transmits one locally-generated input action, tagged
// with the batch it was flushed in.
type InputSender interface {
	SendInput(action physics.InputAction, tick uint32, sequence uint64) error
}

// InputManager batches pending local input actions and flushes them
// at a fixed rate, tagging each flush with the current server-tick
// estimate and a monotonic sequence number.
type InputManager struct {
	mu      sync.Mutex
	pending []physics.InputAction

	sequence   uint64
	serverTick func() uint32
	sender     InputSender
	reconciler *Reconciler

	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewInputManager creates an input manager. serverTick should be
// backed by a ClockSync's ServerTick estimate.
func NewInputManager(serverTick func() uint32, sender InputSender, reconciler *Reconciler) *InputManager {
	return &InputManager{serverTick: serverTick, sender: sender, reconciler: reconciler}
}

// Enqueue appends an action to the pending batch, flushed on the next
// tick of the fixed-rate loop.
func (m *InputManager) Enqueue(action physics.InputAction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, action)
}

// Start begins the fixed-rate flush loop. A no-op if already running.
func (m *InputManager) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(stopCh)
}

func (m *InputManager) run(stopCh chan struct{}) {
	defer m.wg.Done()

	rate := config.GetClientInputRateHz()
	if rate <= 0 {
		rate = 60.0
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.flush()
		}
	}
}

func (m *InputManager) flush() {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return
	}
	batch := m.pending
	m.pending = nil
	m.sequence++
	seq := m.sequence
	m.mu.Unlock()

	tick := m.serverTick()
	m.reconciler.TrackInput(PendingInput{Tick: tick, Sequence: seq, Actions: batch})

	for _, action := range batch {
		_ = m.sender.SendInput(action, tick, seq)
	}
}

// Stop halts the flush loop and waits for its goroutine to exit.
// Idempotent.
func (m *InputManager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
}
