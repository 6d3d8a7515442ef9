package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mikemainguy/rapierphysicsplugin/memory"
	"github.com/mikemainguy/rapierphysicsplugin/vecmath"
)

// roomStateHeaderSize is the fixed 16-byte ROOM_STATE header: opcode
// (1) + tick (4) + timestamp (8) + flags (1) + bodyCount (2).
const roomStateHeaderSize = 16

const (
	flagIsDelta    byte = 1 << 0
	flagNumericIDs byte = 1 << 1
)

// BodyEntry is one body's field-masked state within a ROOM_STATE
// frame. Exactly one of ID or Index is meaningful, selected by the
// frame's NumericIDs flag.
type BodyEntry struct {
	ID    string
	Index uint16

	FieldMask byte

	Position        vecmath.Vector3
	Orientation     vecmath.Quaternion
	LinearVelocity  vecmath.Vector3
	AngularVelocity vecmath.Vector3
}

// RoomStateFrame is the decoded form of a ROOM_STATE (opcode 0x01)
// message: either a full snapshot or a delta, tagged with the tick it
// was built at.
type RoomStateFrame struct {
	Tick        uint32
	TimestampMs float64
	IsDelta     bool
	NumericIDs  bool
	Bodies      []BodyEntry
}

// EncodeRoomState serializes a RoomStateFrame into the ROOM_STATE
// binary layout, little-endian throughout. The returned slice is a
// fresh copy safe to retain or send asynchronously; the internal
// scratch buffer is drawn from and returned to a sync.Pool.
func EncodeRoomState(frame RoomStateFrame) []byte {
	buf := memory.GetEncodeBuffer()
	defer memory.PutEncodeBuffer(buf)

	header := make([]byte, roomStateHeaderSize)
	header[0] = OpcodeRoomState
	binary.LittleEndian.PutUint32(header[1:5], frame.Tick)
	binary.LittleEndian.PutUint64(header[5:13], math.Float64bits(frame.TimestampMs))

	flags := byte(0)
	if frame.IsDelta {
		flags |= flagIsDelta
	}
	if frame.NumericIDs {
		flags |= flagNumericIDs
	}
	header[13] = flags
	binary.LittleEndian.PutUint16(header[14:16], uint16(len(frame.Bodies)))

	buf.Write(header)

	var quatScratch [7]byte
	var f32Scratch [4]byte

	for _, entry := range frame.Bodies {
		if frame.NumericIDs {
			var idxBytes [2]byte
			binary.LittleEndian.PutUint16(idxBytes[:], entry.Index)
			buf.Write(idxBytes[:])
		} else {
			idBytes := []byte(entry.ID)
			buf.WriteByte(byte(len(idBytes)))
			buf.Write(idBytes)
		}

		buf.WriteByte(entry.FieldMask)

		if entry.FieldMask&FieldPosition != 0 {
			writeVec3(buf, entry.Position, &f32Scratch)
		}
		if entry.FieldMask&FieldRotation != 0 {
			EncodeQuaternionSmallestThree(entry.Orientation, quatScratch[:])
			buf.Write(quatScratch[:])
		}
		if entry.FieldMask&FieldLinVel != 0 {
			writeVec3(buf, entry.LinearVelocity, &f32Scratch)
		}
		if entry.FieldMask&FieldAngVel != 0 {
			writeVec3(buf, entry.AngularVelocity, &f32Scratch)
		}
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

func writeVec3(buf interface{ Write([]byte) (int, error) }, v vecmath.Vector3, scratch *[4]byte) {
	binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(v.X))
	buf.Write(scratch[:])
	binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(v.Y))
	buf.Write(scratch[:])
	binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(v.Z))
	buf.Write(scratch[:])
}

func readVec3(data []byte, offset int) (vecmath.Vector3, int, error) {
	if offset+12 > len(data) {
		return vecmath.Vector3{}, offset, fmt.Errorf("truncated vector3 at offset %d", offset)
	}
	x := math.Float32frombits(binary.LittleEndian.Uint32(data[offset:]))
	y := math.Float32frombits(binary.LittleEndian.Uint32(data[offset+4:]))
	z := math.Float32frombits(binary.LittleEndian.Uint32(data[offset+8:]))
	return vecmath.Vector3{X: x, Y: y, Z: z}, offset + 12, nil
}

// DecodeRoomState parses a ROOM_STATE frame, including the leading
// opcode byte.
func DecodeRoomState(data []byte) (RoomStateFrame, error) {
	if len(data) < roomStateHeaderSize {
		return RoomStateFrame{}, fmt.Errorf("truncated ROOM_STATE header: %d bytes", len(data))
	}
	if data[0] != OpcodeRoomState {
		return RoomStateFrame{}, fmt.Errorf("not a ROOM_STATE frame: opcode 0x%02x", data[0])
	}

	frame := RoomStateFrame{
		Tick:        binary.LittleEndian.Uint32(data[1:5]),
		TimestampMs: math.Float64frombits(binary.LittleEndian.Uint64(data[5:13])),
	}
	flags := data[13]
	frame.IsDelta = flags&flagIsDelta != 0
	frame.NumericIDs = flags&flagNumericIDs != 0
	bodyCount := binary.LittleEndian.Uint16(data[14:16])

	offset := roomStateHeaderSize
	frame.Bodies = make([]BodyEntry, 0, bodyCount)

	for i := uint16(0); i < bodyCount; i++ {
		var entry BodyEntry

		if frame.NumericIDs {
			if offset+2 > len(data) {
				return RoomStateFrame{}, fmt.Errorf("truncated body index at offset %d", offset)
			}
			entry.Index = binary.LittleEndian.Uint16(data[offset:])
			offset += 2
		} else {
			if offset+1 > len(data) {
				return RoomStateFrame{}, fmt.Errorf("truncated id length at offset %d", offset)
			}
			idLen := int(data[offset])
			offset++
			if offset+idLen > len(data) {
				return RoomStateFrame{}, fmt.Errorf("truncated id at offset %d", offset)
			}
			entry.ID = string(data[offset : offset+idLen])
			offset += idLen
		}

		if offset+1 > len(data) {
			return RoomStateFrame{}, fmt.Errorf("truncated field mask at offset %d", offset)
		}
		entry.FieldMask = data[offset]
		offset++

		var err error
		if entry.FieldMask&FieldPosition != 0 {
			entry.Position, offset, err = readVec3(data, offset)
			if err != nil {
				return RoomStateFrame{}, err
			}
		}
		if entry.FieldMask&FieldRotation != 0 {
			if offset+7 > len(data) {
				return RoomStateFrame{}, fmt.Errorf("truncated quaternion at offset %d", offset)
			}
			entry.Orientation = DecodeQuaternionSmallestThree(data[offset : offset+7])
			offset += 7
		}
		if entry.FieldMask&FieldLinVel != 0 {
			entry.LinearVelocity, offset, err = readVec3(data, offset)
			if err != nil {
				return RoomStateFrame{}, err
			}
		}
		if entry.FieldMask&FieldAngVel != 0 {
			entry.AngularVelocity, offset, err = readVec3(data, offset)
			if err != nil {
				return RoomStateFrame{}, err
			}
		}

		frame.Bodies = append(frame.Bodies, entry)
	}

	return frame, nil
}
