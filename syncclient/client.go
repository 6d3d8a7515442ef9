package syncclient

import (
	"sync"
	"time"

	"github.com/mikemainguy/rapierphysicsplugin/config"
	"github.com/mikemainguy/rapierphysicsplugin/physics"
	"github.com/mikemainguy/rapierphysicsplugin/vecmath"
	"github.com/mikemainguy/rapierphysicsplugin/wire"
)

// Transport sends one encoded frame to the room. A *websocket.Conn
// wrapped to write binary messages satisfies this trivially.
type Transport interface {
	Send(frame []byte) error
}

// Listener is notified with the merged, complete body-state map after
// every room_state frame, room_joined, and simulation_started.
type Listener interface {
	OnStateUpdate(bodies map[string]BodyState)
}

// Client is the sync facade: it owns the transport, clock sync,
// reconciler (and therefore the interpolation buffers), and input
// manager for one room connection.
type Client struct {
	mu sync.Mutex

	transport Transport
	clock     *ClockSync

	localIDs   []string
	reconciler *Reconciler
	inputs     *InputManager

	roomID    string
	idToName  map[uint16]string
	fullState map[string]BodyState

	bytesSent     uint64
	bytesReceived uint64

	listeners []Listener

	clockStop chan struct{}
}

// NewClient creates a sync client. localBodyIDs names the bodies this
// client predicts locally (its own avatar, typically); every other
// body id is rendered through interpolation.
func NewClient(transport Transport, localBodyIDs []string) *Client {
	return &Client{
		transport:  transport,
		clock:      NewClockSync(),
		localIDs:   append([]string(nil), localBodyIDs...),
		reconciler: NewReconciler(localBodyIDs),
		idToName:   make(map[uint16]string),
		fullState:  make(map[string]BodyState),
	}
}

// AddListener registers a callback for merged state updates.
func (c *Client) AddListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

func (c *Client) notifyLocked() {
	snapshot := make(map[string]BodyState, len(c.fullState))
	for k, v := range c.fullState {
		snapshot[k] = v
	}
	listeners := c.listeners
	c.mu.Unlock()
	for _, l := range listeners {
		l.OnStateUpdate(snapshot)
	}
	c.mu.Lock()
}

// BytesSent and BytesReceived report cumulative wire traffic.
func (c *Client) BytesSent() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytesSent
}

func (c *Client) BytesReceived() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytesReceived
}

// Clock exposes the underlying clock sync tracker.
func (c *Client) Clock() *ClockSync { return c.clock }

// StartClockSync begins periodic clock_sync_request emission. now
// returns the client's current wall-clock time in milliseconds.
func (c *Client) StartClockSync(now func() float64) {
	c.mu.Lock()
	if c.clockStop != nil {
		c.mu.Unlock()
		return
	}
	c.clockStop = make(chan struct{})
	stop := c.clockStop
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(config.GetClockSyncInterval())
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.sendClockSyncRequest(now())
			}
		}
	}()
}

// StopClockSync halts the periodic clock_sync_request loop.
func (c *Client) StopClockSync() {
	c.mu.Lock()
	stop := c.clockStop
	c.clockStop = nil
	c.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

func (c *Client) sendClockSyncRequest(nowMs float64) {
	frame, err := wire.EncodeMessage(wire.ClockSyncRequest{Type: wire.VerbClockSyncRequest, ClientTimestamp: nowMs})
	if err != nil {
		return
	}
	c.send(frame)
}

func (c *Client) send(frame []byte) {
	if err := c.transport.Send(frame); err != nil {
		return
	}
	c.mu.Lock()
	c.bytesSent += uint64(len(frame))
	c.mu.Unlock()
}

// Enqueue queues a local input action for the next flush.
func (c *Client) Enqueue(action physics.InputAction) {
	c.mu.Lock()
	inputs := c.inputs
	c.mu.Unlock()
	if inputs != nil {
		inputs.Enqueue(action)
	}
}

// SendInput implements InputSender: it encodes and transmits one
// action as a client_input message. tick and sequence are used only
// for local reconciliation bookkeeping, not carried on the wire.
func (c *Client) SendInput(action physics.InputAction, tick uint32, sequence uint64) error {
	frame, err := wire.EncodeMessage(wire.ClientInput{
		Type:  wire.VerbClientInput,
		Input: wire.InputActionFromDomain(action),
	})
	if err != nil {
		return err
	}
	c.send(frame)
	return nil
}

// HandleIncoming decodes one inbound frame and dispatches it, keeping
// byte counters current regardless of message type.
func (c *Client) HandleIncoming(data []byte, nowMs float64) error {
	c.mu.Lock()
	c.bytesReceived += uint64(len(data))
	c.mu.Unlock()

	msg, err := wire.DecodeMessage(data)
	if err != nil {
		return err
	}

	switch m := msg.(type) {
	case *wire.RoomStateFrame:
		c.handleStateFrame(*m, nowMs)
	case *wire.RoomJoined:
		c.handleRoomJoined(m, nowMs)
	case *wire.SimulationStarted:
		c.handleSimulationStarted(m)
	case *wire.ClockSyncResponse:
		c.clock.Sample(m.ClientTimestamp, m.ServerTimestamp, nowMs)
	}
	return nil
}

// handleRoomJoined initializes the full-state map from the snapshot,
// installs the id<->index map, and starts the input manager against a
// server-tick oracle fed by the clock sync.
func (c *Client) handleRoomJoined(m *wire.RoomJoined, nowMs float64) {
	c.mu.Lock()
	c.roomID = m.RoomID
	c.installIDMapLocked(m.BodyIDMap)
	c.resetFullStateLocked(m.Snapshot)
	c.reconciler = NewReconciler(c.localIDs)
	c.notifyLocked()
	c.mu.Unlock()

	c.startInputManager()
}

// handleSimulationStarted clears reconciler and interpolation state,
// reinstalls the id map, and rebuilds the full-state map from the
// fresh snapshot.
func (c *Client) handleSimulationStarted(m *wire.SimulationStarted) {
	c.mu.Lock()
	c.installIDMapLocked(m.BodyIDMap)
	c.resetFullStateLocked(m.Snapshot)
	c.reconciler = NewReconciler(c.localIDs)
	c.notifyLocked()
	c.mu.Unlock()
}

func (c *Client) startInputManager() {
	c.mu.Lock()
	if c.inputs != nil {
		c.inputs.Stop()
	}
	reconciler := c.reconciler
	c.mu.Unlock()

	inputs := NewInputManager(func() uint32 {
		return c.clock.ServerTick(nowMillis(), config.GetTickInterval())
	}, c, reconciler)
	inputs.Start()

	c.mu.Lock()
	c.inputs = inputs
	c.mu.Unlock()
}

func (c *Client) installIDMapLocked(m map[string]uint16) {
	c.idToName = make(map[uint16]string, len(m))
	for name, idx := range m {
		c.idToName[idx] = name
	}
}

func (c *Client) resetFullStateLocked(snap wire.RoomStateSnapshot) {
	c.fullState = make(map[string]BodyState, len(snap.Bodies))
	for _, b := range snap.Bodies {
		c.fullState[b.ID] = BodyState{
			Position:        vecmath.Vector3{X: b.Position.X, Y: b.Position.Y, Z: b.Position.Z},
			Orientation:     vecmath.Quaternion{X: b.Orientation.X, Y: b.Orientation.Y, Z: b.Orientation.Z, W: b.Orientation.W},
			LinearVelocity:  vecmath.Vector3{X: b.LinearVelocity.X, Y: b.LinearVelocity.Y, Z: b.LinearVelocity.Z},
			AngularVelocity: vecmath.Vector3{X: b.AngularVelocity.X, Y: b.AngularVelocity.Y, Z: b.AngularVelocity.Z},
		}
		c.idToName[b.Index] = b.ID
	}
}

// handleStateFrame merges a decoded ROOM_STATE delta (or snapshot)
// into the cached full-state map field by field, per its mask, then
// hands the merged result to the reconciler and to listeners.
func (c *Client) handleStateFrame(frame wire.RoomStateFrame, nowMs float64) {
	c.mu.Lock()

	for _, entry := range frame.Bodies {
		id := entry.ID
		if frame.NumericIDs {
			id = c.idToName[entry.Index]
		}
		if id == "" {
			continue
		}

		cur := c.fullState[id]
		if entry.FieldMask&wire.FieldPosition != 0 {
			cur.Position = entry.Position
		}
		if entry.FieldMask&wire.FieldRotation != 0 {
			cur.Orientation = entry.Orientation
		}
		if entry.FieldMask&wire.FieldLinVel != 0 {
			cur.LinearVelocity = entry.LinearVelocity
		}
		if entry.FieldMask&wire.FieldAngVel != 0 {
			cur.AngularVelocity = entry.AngularVelocity
		}
		c.fullState[id] = cur
	}

	merged := make(map[string]BodyState, len(c.fullState))
	for k, v := range c.fullState {
		merged[k] = v
	}
	reconciler := c.reconciler
	c.notifyLocked()
	c.mu.Unlock()

	reconciler.AbsorbFrame(frame.Tick, nowMs, merged)
}

func nowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}

// Close stops the input manager and clock sync loops.
func (c *Client) Close() {
	c.mu.Lock()
	inputs := c.inputs
	c.mu.Unlock()
	if inputs != nil {
		inputs.Stop()
	}
	c.StopClockSync()
}
