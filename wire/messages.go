package wire

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Verb discriminators, carried in the "type" field of every
// non-ROOM_STATE message.
const (
	VerbClockSyncRequest  = "clock_sync_request"
	VerbClockSyncResponse = "clock_sync_response"
	VerbCreateRoom        = "create_room"
	VerbRoomCreated       = "room_created"
	VerbJoinRoom          = "join_room"
	VerbRoomJoined        = "room_joined"
	VerbLeaveRoom         = "leave_room"
	VerbClientInput       = "client_input"
	VerbAddBody           = "add_body"
	VerbRemoveBody        = "remove_body"
	VerbStartSimulation   = "start_simulation"
	VerbSimulationStarted = "simulation_started"
	VerbBodyEvent         = "body_event"
	VerbCollisionEvents   = "collision_events"
	VerbError             = "error"
)

// ClockSyncRequest asks the peer to echo back wall-clock timestamps.
type ClockSyncRequest struct {
	Type            string  `msgpack:"type" json:"type"`
	ClientTimestamp float64 `msgpack:"clientTimestamp" json:"clientTimestamp"`
}

// ClockSyncResponse echoes the client timestamp alongside the
// server's own wall-clock timestamp.
type ClockSyncResponse struct {
	Type            string  `msgpack:"type" json:"type"`
	ClientTimestamp float64 `msgpack:"clientTimestamp" json:"clientTimestamp"`
	ServerTimestamp float64 `msgpack:"serverTimestamp" json:"serverTimestamp"`
}

// CreateRoom requests a new room. Either InitialBodies or Preset
// (a named preset resolved from the configured presets directory)
// should be supplied.
type CreateRoom struct {
	Type               string           `msgpack:"type" json:"type"`
	RoomID             string           `msgpack:"roomId" json:"roomId"`
	InitialBodies      []BodyDescriptor `msgpack:"initialBodies,omitempty" json:"initialBodies,omitempty"`
	InitialConstraints []ConstraintDescriptor `msgpack:"initialConstraints,omitempty" json:"initialConstraints,omitempty"`
	Gravity            *Vec3            `msgpack:"gravity,omitempty" json:"gravity,omitempty"`
	Preset             string           `msgpack:"preset,omitempty" json:"preset,omitempty"`
}

// RoomCreated confirms room creation.
type RoomCreated struct {
	Type   string `msgpack:"type" json:"type"`
	RoomID string `msgpack:"roomId" json:"roomId"`
}

// JoinRoom requests this connection be added to a named room.
type JoinRoom struct {
	Type   string `msgpack:"type" json:"type"`
	RoomID string `msgpack:"roomId" json:"roomId"`
}

// RoomJoined replies to a successful join with the full snapshot and
// id<->index map.
type RoomJoined struct {
	Type               string            `msgpack:"type" json:"type"`
	RoomID             string            `msgpack:"roomId" json:"roomId"`
	Snapshot           RoomStateSnapshot `msgpack:"snapshot" json:"snapshot"`
	ClientID           string            `msgpack:"clientId" json:"clientId"`
	SimulationRunning  bool              `msgpack:"simulationRunning" json:"simulationRunning"`
	BodyIDMap          map[string]uint16 `msgpack:"bodyIdMap" json:"bodyIdMap"`
}

// RoomStateSnapshot is the JSON/msgpack-friendly snapshot payload
// embedded in room_joined and simulation_started (as opposed to the
// binary ROOM_STATE frame used for steady-state broadcasts).
type RoomStateSnapshot struct {
	Tick        uint32         `msgpack:"tick" json:"tick"`
	TimestampMs float64        `msgpack:"timestampMs" json:"timestampMs"`
	Bodies      []SnapshotBody `msgpack:"bodies" json:"bodies"`
}

// SnapshotBody is one body's full wire-visible state within a
// RoomStateSnapshot.
type SnapshotBody struct {
	ID              string `msgpack:"id" json:"id"`
	Index           uint16 `msgpack:"index" json:"index"`
	Position        Vec3   `msgpack:"position" json:"position"`
	Orientation     Quat   `msgpack:"orientation" json:"orientation"`
	LinearVelocity  Vec3   `msgpack:"linearVelocity" json:"linearVelocity"`
	AngularVelocity Vec3   `msgpack:"angularVelocity" json:"angularVelocity"`
}

// SnapshotBodyFromEntry converts a decoded/encoded BodyEntry (as
// produced by the state tracker, always with FieldAll set for
// snapshots) into a SnapshotBody.
func SnapshotBodyFromEntry(e BodyEntry) SnapshotBody {
	return SnapshotBody{
		ID:              e.ID,
		Index:           e.Index,
		Position:        vec3FromDomain(e.Position),
		Orientation:     quatFromDomain(e.Orientation),
		LinearVelocity:  vec3FromDomain(e.LinearVelocity),
		AngularVelocity: vec3FromDomain(e.AngularVelocity),
	}
}

// LeaveRoom requests this connection be removed from its room.
type LeaveRoom struct {
	Type string `msgpack:"type" json:"type"`
}

// ClientInput carries one input action targeted at the sender's room.
type ClientInput struct {
	Type  string      `msgpack:"type" json:"type"`
	Input InputAction `msgpack:"input" json:"input"`
}

// AddBody requests a body be added to the sender's room (client ->
// server) or announces one was added (server -> client, with
// BodyIndex populated).
type AddBody struct {
	Type      string         `msgpack:"type" json:"type"`
	Body      BodyDescriptor `msgpack:"body" json:"body"`
	BodyIndex uint16         `msgpack:"bodyIndex,omitempty" json:"bodyIndex,omitempty"`
}

// RemoveBody requests (client -> server) or announces (server ->
// client) a body's removal.
type RemoveBody struct {
	Type   string `msgpack:"type" json:"type"`
	BodyID string `msgpack:"bodyId" json:"bodyId"`
}

// StartSimulation requests the room's simulation be (re)started.
type StartSimulation struct {
	Type string `msgpack:"type" json:"type"`
}

// SimulationStarted announces a fresh simulation start or reset.
type SimulationStarted struct {
	Type      string            `msgpack:"type" json:"type"`
	Snapshot  RoomStateSnapshot `msgpack:"snapshot" json:"snapshot"`
	BodyIDMap map[string]uint16 `msgpack:"bodyIdMap" json:"bodyIdMap"`
}

// BodyEvent carries an application-level event tagged to a body,
// distinct from the physics-level CollisionEvents broadcast.
type BodyEvent struct {
	Type      string                 `msgpack:"type" json:"type"`
	BodyID    string                 `msgpack:"bodyId" json:"bodyId"`
	EventType string                 `msgpack:"eventType" json:"eventType"`
	Data      map[string]interface{} `msgpack:"data,omitempty" json:"data,omitempty"`
}

// CollisionEvents broadcasts the collision/trigger transitions drained
// at the end of one tick.
type CollisionEvents struct {
	Type   string           `msgpack:"type" json:"type"`
	Tick   uint32           `msgpack:"tick" json:"tick"`
	Events []CollisionEvent `msgpack:"events" json:"events"`
}

// Error reports a protocol or contract-violation failure; the
// connection continues.
type Error struct {
	Type    string `msgpack:"type" json:"type"`
	Message string `msgpack:"message" json:"message"`
}

type discriminator struct {
	Type string `msgpack:"type" json:"type"`
}

// EncodeMessage serializes a non-ROOM_STATE message with the opcode
// 0x02 msgpack framing. msg must be one of the verb structs declared
// in this file (its Type field is read directly; callers must set it
// to the matching VerbXxx constant).
func EncodeMessage(msg interface{}) ([]byte, error) {
	payload, err := msgpack.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}
	out := make([]byte, 0, len(payload)+1)
	out = append(out, OpcodeMsgpack)
	out = append(out, payload...)
	return out, nil
}

// DecodeMessage decodes an inbound frame. Frames beginning with
// OpcodeRoomState decode to a *RoomStateFrame; frames beginning with
// OpcodeMsgpack decode to the concrete verb struct named by their
// "type" field; any other byte sequence is tried as raw JSON (the
// fallback for older peers), decoded the same way. The returned value
// is always one of the verb struct pointers declared in this file, or
// a *RoomStateFrame.
func DecodeMessage(data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty message")
	}

	switch data[0] {
	case OpcodeRoomState:
		frame, err := DecodeRoomState(data)
		if err != nil {
			return nil, err
		}
		return &frame, nil
	case OpcodeMsgpack:
		return decodeDiscriminated(data[1:], msgpack.Unmarshal)
	default:
		return decodeDiscriminated(data, json.Unmarshal)
	}
}

func decodeDiscriminated(payload []byte, unmarshal func([]byte, interface{}) error) (interface{}, error) {
	var disc discriminator
	if err := unmarshal(payload, &disc); err != nil {
		return nil, fmt.Errorf("invalid message format: %w", err)
	}

	target, err := newVerbStruct(disc.Type)
	if err != nil {
		return nil, err
	}
	if err := unmarshal(payload, target); err != nil {
		return nil, fmt.Errorf("invalid message format: %w", err)
	}
	return target, nil
}

func newVerbStruct(verb string) (interface{}, error) {
	switch verb {
	case VerbClockSyncRequest:
		return &ClockSyncRequest{}, nil
	case VerbClockSyncResponse:
		return &ClockSyncResponse{}, nil
	case VerbCreateRoom:
		return &CreateRoom{}, nil
	case VerbRoomCreated:
		return &RoomCreated{}, nil
	case VerbJoinRoom:
		return &JoinRoom{}, nil
	case VerbRoomJoined:
		return &RoomJoined{}, nil
	case VerbLeaveRoom:
		return &LeaveRoom{}, nil
	case VerbClientInput:
		return &ClientInput{}, nil
	case VerbAddBody:
		return &AddBody{}, nil
	case VerbRemoveBody:
		return &RemoveBody{}, nil
	case VerbStartSimulation:
		return &StartSimulation{}, nil
	case VerbSimulationStarted:
		return &SimulationStarted{}, nil
	case VerbBodyEvent:
		return &BodyEvent{}, nil
	case VerbCollisionEvents:
		return &CollisionEvents{}, nil
	case VerbError:
		return &Error{}, nil
	default:
		return nil, fmt.Errorf("invalid message format: unrecognized verb %q", verb)
	}
}
