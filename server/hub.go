// Package server provides the WebSocket transport and room registry
// for the physics synchronization service. RoomManager coordinates
// connection lifecycle and verb dispatch the way the lineage's Hub
// coordinated client registration and broadcast, generalized from one
// process-wide hub to a registry of independently-clocked rooms, each
// owning its own mailbox (see package room).
package server

import (
	"fmt"
	"sync"

	"github.com/mikemainguy/rapierphysicsplugin/config"
	"github.com/mikemainguy/rapierphysicsplugin/logging"
	"github.com/mikemainguy/rapierphysicsplugin/physics"
	"github.com/mikemainguy/rapierphysicsplugin/presets"
	"github.com/mikemainguy/rapierphysicsplugin/room"
	"github.com/mikemainguy/rapierphysicsplugin/vecmath"
	"github.com/mikemainguy/rapierphysicsplugin/wire"
)

// NewWorld constructs the physics.World implementation rooms run
// against. Overridable in tests; defaults to the reference world.
var NewWorld room.NewWorldFunc = func() physics.World { return physics.NewRefWorld() }

// RoomManager owns the room registry and per-connection routing. A
// connection belongs to at most one room at a time.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*room.Room

	clientsMu sync.Mutex
	clients   map[*Client]bool
}

// NewRoomManager creates an empty room registry.
func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms:   make(map[string]*room.Room),
		clients: make(map[*Client]bool),
	}
}

func (m *RoomManager) registerClient(c *Client) {
	m.clientsMu.Lock()
	m.clients[c] = true
	m.clientsMu.Unlock()
}

func (m *RoomManager) handleDisconnect(c *Client) {
	m.clientsMu.Lock()
	delete(m.clients, c)
	m.clientsMu.Unlock()

	if c.roomID != "" {
		if r, ok := m.room(c.roomID); ok {
			r.Leave(c.id)
		}
	}
}

func (m *RoomManager) room(id string) (*room.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// RoomIDs returns the ids of every currently registered room.
func (m *RoomManager) RoomIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	return ids
}

// RoomInfos returns a point-in-time client/body/tick snapshot for
// every currently registered room, for the ambient /rooms
// introspection route.
func (m *RoomManager) RoomInfos() []room.Info {
	m.mu.RLock()
	rooms := make([]*room.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	infos := make([]room.Info, 0, len(rooms))
	for _, r := range rooms {
		infos = append(infos, r.Info())
	}
	return infos
}

func (m *RoomManager) roomOpts() room.Options {
	return room.Options{
		Delta:                  config.GetTickInterval(),
		MaxCatchUpTicks:        config.GetMaxCatchUpTicks(),
		BroadcastIntervalTicks: config.GetBroadcastIntervalTicks(),
		MaxInputBufferTicks:    config.GetMaxInputBufferTicks(),
		FieldEpsilon:           float32(config.GetFieldEpsilon()),
	}
}

func (m *RoomManager) createRoom(msg *wire.CreateRoom) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rooms[msg.RoomID]; exists {
		return fmt.Errorf("room %q already exists", msg.RoomID)
	}

	gravity := vecmath.Vector3{X: 0, Y: -9.81, Z: 0}
	var bodies []physics.BodyDescriptor
	var constraints []physics.ConstraintDescriptor

	if msg.Preset != "" {
		resolved, err := presets.Load(config.GetPresetsDir(), msg.Preset)
		if err != nil {
			return err
		}
		gravity = resolved.Gravity
		bodies = resolved.Bodies
		constraints = resolved.Constraints
	} else {
		if msg.Gravity != nil {
			gravity = vecmath.Vector3{X: msg.Gravity.X, Y: msg.Gravity.Y, Z: msg.Gravity.Z}
		}
		for _, b := range msg.InitialBodies {
			bd, err := b.ToDomain()
			if err != nil {
				return err
			}
			bodies = append(bodies, bd)
		}
		for _, c := range msg.InitialConstraints {
			cd, err := c.ToDomain()
			if err != nil {
				return err
			}
			constraints = append(constraints, cd)
		}
	}

	m.rooms[msg.RoomID] = room.New(msg.RoomID, NewWorld, bodies, constraints, gravity, m.roomOpts())
	logging.Info("room created", map[string]interface{}{"room_id": msg.RoomID, "preset": msg.Preset, "bodies": len(bodies)})
	return nil
}

// Shutdown destroys every registered room. Called on process exit.
func (m *RoomManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.rooms {
		r.Destroy()
		delete(m.rooms, id)
	}
}
