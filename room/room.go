// Package room implements one room's owned state: its physics world,
// client set, per-client input buffers, tick/broadcast cadence, and
// state tracker. A room serializes its tick function and its message
// handlers onto a single mailbox so neither ever interleaves with the
// other, generalizing the lineage's channel-based hub (register/
// unregister/broadcast channels feeding one Run() select loop) to a
// per-room mailbox instead of one process-wide hub.
package room

import (
	"fmt"
	"time"

	"github.com/mikemainguy/rapierphysicsplugin/physics"
	"github.com/mikemainguy/rapierphysicsplugin/vecmath"
	"github.com/mikemainguy/rapierphysicsplugin/wire"
)

// Broadcaster is the room's view of a connected client: a fire-and-
// forget, non-blocking sink. An implementation must not let a slow
// reader stall the caller — dropping a frame is preferable to
// blocking the room's mailbox.
type Broadcaster interface {
	Send(data []byte)
}

// NewWorldFunc constructs a fresh physics.World; injected so the room
// package never depends on a concrete physics engine.
type NewWorldFunc func() physics.World

type command struct {
	fn   func()
	done chan struct{}
}

// Room owns one physics world, its connected clients, and the
// simulation loop driving it.
type Room struct {
	ID string

	newWorld    NewWorldFunc
	world       physics.World
	tracker     *StateTracker
	inputBuffer map[string]*InputBuffer

	initialBodies      []physics.BodyDescriptor
	initialConstraints []physics.ConstraintDescriptor
	gravity            vecmath.Vector3

	tick                 uint32
	ticksSinceBroadcast  int
	broadcastInterval    int
	maxInputBufferTicks  int
	fieldEpsilon         float32
	pendingEvents        []physics.CollisionEvent

	clients map[string]Broadcaster

	simLoop *SimLoop

	mailbox chan command
	closed  chan struct{}
}

// Options bundles a room's tuning constants, so callers don't thread
// the config package into this one.
type Options struct {
	Delta               time.Duration
	MaxCatchUpTicks      int
	BroadcastIntervalTicks int
	MaxInputBufferTicks   int
	FieldEpsilon          float32
}

// New creates a room with the given initial bodies/constraints and
// gravity. The simulation loop is not started until StartSimulation
// is called.
func New(id string, newWorld NewWorldFunc, initialBodies []physics.BodyDescriptor, initialConstraints []physics.ConstraintDescriptor, gravity vecmath.Vector3, opts Options) *Room {
	r := &Room{
		ID:                   id,
		newWorld:             newWorld,
		initialBodies:        initialBodies,
		initialConstraints:   initialConstraints,
		gravity:              gravity,
		broadcastInterval:    opts.BroadcastIntervalTicks,
		maxInputBufferTicks:  opts.MaxInputBufferTicks,
		fieldEpsilon:         opts.FieldEpsilon,
		clients:              make(map[string]Broadcaster),
		inputBuffer:          make(map[string]*InputBuffer),
		mailbox:              make(chan command, 64),
		closed:               make(chan struct{}),
	}
	r.world = newWorld()
	r.tracker = NewStateTracker(opts.FieldEpsilon)
	r.rebuildWorldLocked()
	r.simLoop = NewSimLoop(opts.Delta, opts.MaxCatchUpTicks, func() {
		r.execute(r.tickLocked)
	})

	go r.run()
	return r
}

func (r *Room) run() {
	for {
		select {
		case cmd := <-r.mailbox:
			cmd.fn()
			close(cmd.done)
		case <-r.closed:
			return
		}
	}
}

// execute serializes fn onto the room's mailbox and blocks until it
// has run, unless the room has been destroyed in the meantime.
func (r *Room) execute(fn func()) {
	done := make(chan struct{})
	select {
	case r.mailbox <- command{fn: fn, done: done}:
		select {
		case <-done:
		case <-r.closed:
		}
	case <-r.closed:
	}
}

func (r *Room) rebuildWorldLocked() {
	r.world = r.newWorld()
	r.world.SetGravity(r.gravity)
	for _, b := range r.initialBodies {
		_ = r.world.AddBody(b)
	}
	for _, c := range r.initialConstraints {
		_ = r.world.AddConstraint(c)
	}
}

// tickLocked runs exactly one physics step: drain due input, step,
// drain collision events, advance counters, and broadcast on cadence.
// Must only run on the room's mailbox goroutine.
func (r *Room) tickLocked() {
	for clientID, buf := range r.inputBuffer {
		_ = clientID
		batches := buf.Take(r.tick)
		for _, batch := range batches {
			for _, action := range batch {
				_ = r.world.ApplyAction(action)
			}
		}
	}

	r.world.Step(float32(r.simLoop.delta.Seconds()))

	r.pendingEvents = append(r.pendingEvents, r.world.DrainCollisionEvents()...)

	r.tick++
	r.ticksSinceBroadcast++

	if r.ticksSinceBroadcast >= r.broadcastInterval {
		r.ticksSinceBroadcast = 0
		delta := r.tracker.Delta(r.world, r.tick)
		if len(delta.Bodies) > 0 {
			r.broadcastBinary(wire.EncodeRoomState(delta))
		}
		if len(r.pendingEvents) > 0 {
			r.broadcastCollisionEvents(r.pendingEvents)
			r.pendingEvents = nil
		}
	}
}

func (r *Room) broadcastCollisionEvents(events []physics.CollisionEvent) {
	wireEvents := make([]wire.CollisionEvent, len(events))
	for i, e := range events {
		wireEvents[i] = wire.CollisionEventFromDomain(e)
	}
	msg := wire.CollisionEvents{Type: wire.VerbCollisionEvents, Tick: r.tick, Events: wireEvents}
	if data, err := wire.EncodeMessage(msg); err == nil {
		r.broadcastBinary(data)
	}
}

func (r *Room) broadcastBinary(data []byte) {
	for _, c := range r.clients {
		c.Send(data)
	}
}

func (r *Room) sendTo(clientID string, data []byte) {
	if c, ok := r.clients[clientID]; ok {
		c.Send(data)
	}
}

func snapshotToWire(frame wire.RoomStateFrame) wire.RoomStateSnapshot {
	bodies := make([]wire.SnapshotBody, len(frame.Bodies))
	for i, b := range frame.Bodies {
		bodies[i] = wire.SnapshotBodyFromEntry(b)
	}
	return wire.RoomStateSnapshot{Tick: frame.Tick, TimestampMs: frame.TimestampMs, Bodies: bodies}
}

func (r *Room) idMapLocked() map[string]uint16 {
	m := make(map[string]uint16, len(r.world.BodyIDs()))
	for _, id := range r.world.BodyIDs() {
		m[id] = r.tracker.EnsureBodyIndex(id)
	}
	return m
}

// Join adds a client to the room and returns the data needed to
// reply with room_joined: the full snapshot, current id<->index map,
// and whether the simulation loop is currently running.
func (r *Room) Join(clientID string, b Broadcaster) (wire.RoomStateSnapshot, map[string]uint16, bool) {
	var snapshot wire.RoomStateSnapshot
	var idMap map[string]uint16
	var running bool

	r.execute(func() {
		r.clients[clientID] = b
		r.inputBuffer[clientID] = NewInputBuffer(r.maxInputBufferTicks)
		snapshot = snapshotToWire(r.tracker.Snapshot(r.world, r.tick))
		idMap = r.idMapLocked()
		running = r.simLoop.Running()
	})

	return snapshot, idMap, running
}

// Leave removes a client from the room. If it was the last client,
// the simulation loop is stopped.
func (r *Room) Leave(clientID string) {
	var shouldStop bool

	r.execute(func() {
		delete(r.clients, clientID)
		delete(r.inputBuffer, clientID)
		shouldStop = len(r.clients) == 0 && r.simLoop.Running()
	})

	// Stop outside execute: the sim loop's own tick callback submits
	// through this same mailbox, so calling Stop (which waits for that
	// goroutine to exit) from inside a mailbox command would deadlock.
	if shouldStop {
		r.simLoop.Stop()
	}
}

// ClientCount returns the number of clients currently joined.
func (r *Room) ClientCount() int {
	count := 0
	r.execute(func() { count = len(r.clients) })
	return count
}

// Info is a point-in-time snapshot of a room's introspection fields,
// for the ambient /rooms status endpoint.
type Info struct {
	ID          string
	ClientCount int
	BodyCount   int
	Tick        uint32
}

// Info returns a consistent point-in-time read of the room's id,
// client count, body count, and current tick.
func (r *Room) Info() Info {
	info := Info{ID: r.ID}
	r.execute(func() {
		info.ClientCount = len(r.clients)
		info.BodyCount = len(r.world.BodyIDs())
		info.Tick = r.tick
	})
	return info
}

// BufferInput maps actions to the room's current tick and appends
// them to clientID's input buffer. The current policy maps every
// arriving input to "the tick about to run" rather than honoring a
// client-supplied tick — see DESIGN.md.
func (r *Room) BufferInput(clientID string, actions []physics.InputAction) {
	r.execute(func() {
		buf, ok := r.inputBuffer[clientID]
		if !ok {
			return
		}
		buf.Add(r.tick, InputBatch(actions))
	})
}

// AddBody adds a body to the room's world and broadcasts its
// assigned numeric index to every joined client.
func (r *Room) AddBody(desc physics.BodyDescriptor) (uint16, error) {
	var index uint16
	var err error

	r.execute(func() {
		if r.world.HasBody(desc.ID) {
			err = fmt.Errorf("body %q already exists", desc.ID)
			return
		}
		if addErr := r.world.AddBody(desc); addErr != nil {
			err = addErr
			return
		}
		index = r.tracker.EnsureBodyIndex(desc.ID)

		msg := wire.AddBody{Type: wire.VerbAddBody, Body: wire.BodyDescriptorFromDomain(desc), BodyIndex: index}
		if data, encErr := wire.EncodeMessage(msg); encErr == nil {
			r.broadcastBinary(data)
		}
	})

	return index, err
}

// RemoveBody removes a body from the room's world and broadcasts the
// removal.
func (r *Room) RemoveBody(id string) error {
	var err error

	r.execute(func() {
		if !r.world.HasBody(id) {
			err = fmt.Errorf("body %q does not exist", id)
			return
		}
		if remErr := r.world.RemoveBody(id); remErr != nil {
			err = remErr
			return
		}
		r.tracker.RemoveTracking(id)

		msg := wire.RemoveBody{Type: wire.VerbRemoveBody, BodyID: id}
		if data, encErr := wire.EncodeMessage(msg); encErr == nil {
			r.broadcastBinary(data)
		}
	})

	return err
}

// StartSimulation (re)starts the room: stops the loop if running,
// rebuilds the world from the initial body/constraint list, clears
// every client's input buffer and the state tracker, restarts the
// loop, and broadcasts simulation_started with a fresh snapshot and
// id map.
func (r *Room) StartSimulation() (wire.RoomStateSnapshot, map[string]uint16) {
	var snapshot wire.RoomStateSnapshot
	var idMap map[string]uint16

	// Stop and Start both happen outside execute: the sim loop's tick
	// callback submits through this same mailbox, so calling either
	// from inside a mailbox command would deadlock it against itself.
	if r.simLoop.Running() {
		r.simLoop.Stop()
	}

	r.execute(func() {
		r.rebuildWorldLocked()
		r.tracker.Reset()
		for _, buf := range r.inputBuffer {
			buf.Clear()
		}
		r.tick = 0
		r.ticksSinceBroadcast = 0
		r.pendingEvents = nil

		snapshot = snapshotToWire(r.tracker.Snapshot(r.world, r.tick))
		idMap = r.idMapLocked()

		msg := wire.SimulationStarted{Type: wire.VerbSimulationStarted, Snapshot: snapshot, BodyIDMap: idMap}
		if data, err := wire.EncodeMessage(msg); err == nil {
			r.broadcastBinary(data)
		}
	})

	r.simLoop.Start()

	return snapshot, idMap
}

// Destroy stops the simulation loop and the room's mailbox goroutine.
// Called on explicit room destruction or process shutdown.
func (r *Room) Destroy() {
	if r.simLoop.Running() {
		r.simLoop.Stop()
	}
	select {
	case <-r.closed:
	default:
		close(r.closed)
	}
}
