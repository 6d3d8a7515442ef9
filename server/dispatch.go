package server

import (
	"time"

	"github.com/mikemainguy/rapierphysicsplugin/logging"
	"github.com/mikemainguy/rapierphysicsplugin/physics"
	"github.com/mikemainguy/rapierphysicsplugin/wire"
)

// dispatch decodes one inbound frame and routes it to the matching
// verb handler. Decode or handler errors are reported to the sender
// with a wire.Error reply; the connection is never closed for them.
func (m *RoomManager) dispatch(c *Client, raw []byte) {
	decoded, err := wire.DecodeMessage(raw)
	if err != nil {
		m.sendError(c, "Invalid message format")
		return
	}

	switch msg := decoded.(type) {
	case *wire.ClockSyncRequest:
		m.handleClockSync(c, msg)
	case *wire.CreateRoom:
		m.handleCreateRoom(c, msg)
	case *wire.JoinRoom:
		m.handleJoinRoom(c, msg)
	case *wire.LeaveRoom:
		m.handleLeaveRoom(c)
	case *wire.ClientInput:
		m.handleClientInput(c, msg)
	case *wire.AddBody:
		m.handleAddBody(c, msg)
	case *wire.RemoveBody:
		m.handleRemoveBody(c, msg)
	case *wire.StartSimulation:
		m.handleStartSimulation(c)
	default:
		m.sendError(c, "unexpected message for this connection")
	}
}

func (m *RoomManager) sendError(c *Client, message string) {
	if data, err := wire.EncodeMessage(wire.Error{Type: wire.VerbError, Message: message}); err == nil {
		c.Send(data)
	}
}

func (m *RoomManager) handleClockSync(c *Client, msg *wire.ClockSyncRequest) {
	resp := wire.ClockSyncResponse{
		Type:            wire.VerbClockSyncResponse,
		ClientTimestamp: msg.ClientTimestamp,
		ServerTimestamp: float64(time.Now().UnixMilli()),
	}
	if data, err := wire.EncodeMessage(resp); err == nil {
		c.Send(data)
	}
}

func (m *RoomManager) handleCreateRoom(c *Client, msg *wire.CreateRoom) {
	if err := m.createRoom(msg); err != nil {
		m.sendError(c, err.Error())
		return
	}
	if data, err := wire.EncodeMessage(wire.RoomCreated{Type: wire.VerbRoomCreated, RoomID: msg.RoomID}); err == nil {
		c.Send(data)
	}
}

func (m *RoomManager) handleJoinRoom(c *Client, msg *wire.JoinRoom) {
	r, ok := m.room(msg.RoomID)
	if !ok {
		m.sendError(c, "room does not exist")
		return
	}
	if c.roomID != "" {
		m.sendError(c, "already joined a room")
		return
	}

	snapshot, idMap, running := r.Join(c.id, c)
	c.roomID = msg.RoomID

	resp := wire.RoomJoined{
		Type:              wire.VerbRoomJoined,
		RoomID:            msg.RoomID,
		Snapshot:          snapshot,
		ClientID:          c.id,
		SimulationRunning: running,
		BodyIDMap:         idMap,
	}
	if data, err := wire.EncodeMessage(resp); err == nil {
		c.Send(data)
	}

	logging.Info("client joined room", map[string]interface{}{"room_id": msg.RoomID, "client_id": c.id})
}

func (m *RoomManager) handleLeaveRoom(c *Client) {
	if c.roomID == "" {
		return
	}
	if r, ok := m.room(c.roomID); ok {
		r.Leave(c.id)
	}
	c.roomID = ""
}

func (m *RoomManager) handleClientInput(c *Client, msg *wire.ClientInput) {
	if c.roomID == "" {
		return
	}
	r, ok := m.room(c.roomID)
	if !ok {
		return
	}
	action, err := msg.Input.ToDomain()
	if err != nil {
		m.sendError(c, err.Error())
		return
	}
	r.BufferInput(c.id, []physics.InputAction{action})
}

func (m *RoomManager) handleAddBody(c *Client, msg *wire.AddBody) {
	if c.roomID == "" {
		return
	}
	r, ok := m.room(c.roomID)
	if !ok {
		return
	}
	desc, err := msg.Body.ToDomain()
	if err != nil {
		m.sendError(c, err.Error())
		return
	}
	if _, err := r.AddBody(desc); err != nil {
		m.sendError(c, err.Error())
	}
}

func (m *RoomManager) handleRemoveBody(c *Client, msg *wire.RemoveBody) {
	if c.roomID == "" {
		return
	}
	r, ok := m.room(c.roomID)
	if !ok {
		return
	}
	if err := r.RemoveBody(msg.BodyID); err != nil {
		m.sendError(c, err.Error())
	}
}

func (m *RoomManager) handleStartSimulation(c *Client) {
	if c.roomID == "" {
		m.sendError(c, "not in a room")
		return
	}
	r, ok := m.room(c.roomID)
	if !ok {
		return
	}
	r.StartSimulation()
}
