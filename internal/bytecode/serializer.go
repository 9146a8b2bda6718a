package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
)

// Bytecode file format (.mybc)
// ============================
//
// Header (8 bytes):
//   - Magic number: "MYC\x00" (4 bytes)
//   - Version major/minor/patch: uint8 each
//   - Reserved: uint8
//
// Body: the top-level chunk (see writeChunk). Function constants embed
// their chunks recursively, so one file carries the whole program
// graph: instructions, constant pools, source positions, try tables,
// parameter names and local names.
//
// All integers are little-endian; strings are uint32-length-prefixed
// UTF-8. Only null, boolean, number, string and function constants are
// serializable; nothing else can appear in a constant pool.

const (
	// MagicNumber identifies Mythos bytecode files.
	MagicNumber = "MYC\x00"

	// Version of the bytecode format.
	VersionMajor = 1
	VersionMinor = 0
	VersionPatch = 0
)

// Constant pool tags.
const (
	tagNull byte = iota
	tagBool
	tagNumber
	tagString
	tagFunction
)

// SerializerVersion is a bytecode format version triple.
type SerializerVersion struct {
	Major uint8
	Minor uint8
	Patch uint8
}

// String returns the dotted form of the version.
func (v SerializerVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// IsCompatible reports whether this version can read bytecode written
// by another: same major, and no newer minor.
func (v SerializerVersion) IsCompatible(other SerializerVersion) bool {
	if v.Major != other.Major {
		return false
	}
	return other.Minor <= v.Minor
}

// CurrentVersion returns the writer's format version.
func CurrentVersion() SerializerVersion {
	return SerializerVersion{Major: VersionMajor, Minor: VersionMinor, Patch: VersionPatch}
}

// Serializer reads and writes compiled chunks.
type Serializer struct {
	version SerializerVersion
}

// NewSerializer creates a serializer for the current format version.
func NewSerializer() *Serializer {
	return &Serializer{version: CurrentVersion()}
}

// SerializeChunk writes a chunk graph to its binary form.
func (s *Serializer) SerializeChunk(chunk *Chunk) ([]byte, error) {
	if chunk == nil {
		return nil, fmt.Errorf("cannot serialize nil chunk")
	}
	buf := new(bytes.Buffer)
	if err := s.writeHeader(buf); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := s.writeChunk(buf, chunk); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeChunk reads a chunk graph back from its binary form.
func (s *Serializer) DeserializeChunk(data []byte) (*Chunk, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("bytecode too short: %d bytes", len(data))
	}
	buf := bytes.NewReader(data)

	version, err := s.readHeader(buf)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !s.version.IsCompatible(version) {
		return nil, fmt.Errorf("incompatible bytecode version: have %s, file is %s", s.version, version)
	}
	return s.readChunk(buf)
}

func (s *Serializer) writeHeader(w io.Writer) error {
	if _, err := w.Write([]byte(MagicNumber)); err != nil {
		return err
	}
	header := []byte{s.version.Major, s.version.Minor, s.version.Patch, 0}
	_, err := w.Write(header)
	return err
}

func (s *Serializer) readHeader(r io.Reader) (SerializerVersion, error) {
	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return SerializerVersion{}, err
	}
	if string(magic) != MagicNumber {
		return SerializerVersion{}, fmt.Errorf("invalid magic number %q", string(magic))
	}
	rest := make([]byte, 4)
	if _, err := io.ReadFull(r, rest); err != nil {
		return SerializerVersion{}, err
	}
	return SerializerVersion{Major: rest[0], Minor: rest[1], Patch: rest[2]}, nil
}

func (s *Serializer) writeChunk(w io.Writer, chunk *Chunk) error {
	if err := s.writeString(w, chunk.Name); err != nil {
		return err
	}
	if err := s.writeInt32(w, int32(chunk.LocalCount)); err != nil {
		return err
	}
	if err := s.writeStrings(w, chunk.Params); err != nil {
		return err
	}
	if err := s.writeStrings(w, chunk.LocalNames); err != nil {
		return err
	}

	if err := s.writeInt32(w, int32(len(chunk.Code))); err != nil {
		return err
	}
	for _, inst := range chunk.Code {
		if err := binary.Write(w, binary.LittleEndian, uint32(inst)); err != nil {
			return err
		}
	}

	if err := s.writeInt32(w, int32(len(chunk.Constants))); err != nil {
		return err
	}
	for _, constant := range chunk.Constants {
		if err := s.writeConstant(w, constant); err != nil {
			return err
		}
	}

	if err := s.writeInt32(w, int32(len(chunk.Positions))); err != nil {
		return err
	}
	for _, pos := range chunk.Positions {
		if err := s.writeInt32(w, int32(pos.InstructionOffset)); err != nil {
			return err
		}
		if err := s.writeInt32(w, int32(pos.Line)); err != nil {
			return err
		}
		if err := s.writeInt32(w, int32(pos.Column)); err != nil {
			return err
		}
	}

	tryIndices := make([]int, 0, len(chunk.TryInfos()))
	for index := range chunk.TryInfos() {
		tryIndices = append(tryIndices, index)
	}
	sort.Ints(tryIndices)
	if err := s.writeInt32(w, int32(len(tryIndices))); err != nil {
		return err
	}
	for _, index := range tryIndices {
		info := chunk.TryInfos()[index]
		if err := s.writeInt32(w, int32(index)); err != nil {
			return err
		}
		if err := s.writeInt32(w, int32(info.CatchTarget)); err != nil {
			return err
		}
		if err := s.writeInt32(w, int32(info.FinallyTarget)); err != nil {
			return err
		}
		flags := byte(0)
		if info.HasCatch {
			flags |= 1
		}
		if info.HasFinally {
			flags |= 2
		}
		if err := binary.Write(w, binary.LittleEndian, flags); err != nil {
			return err
		}
	}
	return nil
}

func (s *Serializer) readChunk(r io.Reader) (*Chunk, error) {
	name, err := s.readString(r)
	if err != nil {
		return nil, fmt.Errorf("read chunk name: %w", err)
	}
	chunk := NewChunk(name)

	localCount, err := s.readInt32(r)
	if err != nil {
		return nil, err
	}
	chunk.LocalCount = int(localCount)

	if chunk.Params, err = s.readStrings(r); err != nil {
		return nil, err
	}
	if chunk.LocalNames, err = s.readStrings(r); err != nil {
		return nil, err
	}

	codeCount, err := s.readInt32(r)
	if err != nil {
		return nil, err
	}
	chunk.Code = make([]Instruction, codeCount)
	for i := range chunk.Code {
		var raw uint32
		if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
			return nil, err
		}
		chunk.Code[i] = Instruction(raw)
	}

	constCount, err := s.readInt32(r)
	if err != nil {
		return nil, err
	}
	chunk.Constants = make([]Value, constCount)
	for i := range chunk.Constants {
		if chunk.Constants[i], err = s.readConstant(r); err != nil {
			return nil, err
		}
	}

	posCount, err := s.readInt32(r)
	if err != nil {
		return nil, err
	}
	chunk.Positions = make([]PosInfo, posCount)
	for i := range chunk.Positions {
		offset, err := s.readInt32(r)
		if err != nil {
			return nil, err
		}
		line, err := s.readInt32(r)
		if err != nil {
			return nil, err
		}
		column, err := s.readInt32(r)
		if err != nil {
			return nil, err
		}
		chunk.Positions[i] = PosInfo{
			InstructionOffset: int(offset),
			Line:              int(line),
			Column:            int(column),
		}
	}

	tryCount, err := s.readInt32(r)
	if err != nil {
		return nil, err
	}
	for i := int32(0); i < tryCount; i++ {
		index, err := s.readInt32(r)
		if err != nil {
			return nil, err
		}
		catchTarget, err := s.readInt32(r)
		if err != nil {
			return nil, err
		}
		finallyTarget, err := s.readInt32(r)
		if err != nil {
			return nil, err
		}
		var flags byte
		if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
			return nil, err
		}
		chunk.SetTryInfo(int(index), TryInfo{
			CatchTarget:   int(catchTarget),
			FinallyTarget: int(finallyTarget),
			HasCatch:      flags&1 != 0,
			HasFinally:    flags&2 != 0,
		})
	}
	return chunk, nil
}

func (s *Serializer) writeConstant(w io.Writer, value Value) error {
	switch value.Type {
	case ValueNull:
		return binary.Write(w, binary.LittleEndian, tagNull)
	case ValueBool:
		if err := binary.Write(w, binary.LittleEndian, tagBool); err != nil {
			return err
		}
		b := byte(0)
		if value.AsBool() {
			b = 1
		}
		return binary.Write(w, binary.LittleEndian, b)
	case ValueNumber:
		if err := binary.Write(w, binary.LittleEndian, tagNumber); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, math.Float64bits(value.AsNumber()))
	case ValueString:
		if err := binary.Write(w, binary.LittleEndian, tagString); err != nil {
			return err
		}
		return s.writeString(w, value.AsString())
	case ValueFunction:
		fn := value.AsFunction()
		if err := binary.Write(w, binary.LittleEndian, tagFunction); err != nil {
			return err
		}
		if err := s.writeString(w, fn.Name); err != nil {
			return err
		}
		if err := s.writeInt32(w, int32(fn.Arity)); err != nil {
			return err
		}
		if err := s.writeInt32(w, int32(len(fn.UpvalueDefs))); err != nil {
			return err
		}
		for _, def := range fn.UpvalueDefs {
			isLocal := byte(0)
			if def.IsLocal {
				isLocal = 1
			}
			if err := binary.Write(w, binary.LittleEndian, isLocal); err != nil {
				return err
			}
			if err := s.writeInt32(w, int32(def.Index)); err != nil {
				return err
			}
		}
		return s.writeChunk(w, fn.Chunk)
	default:
		return fmt.Errorf("cannot serialize constant of type %s", value.Type)
	}
}

func (s *Serializer) readConstant(r io.Reader) (Value, error) {
	var tag byte
	if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
		return NullValue(), err
	}
	switch tag {
	case tagNull:
		return NullValue(), nil
	case tagBool:
		var b byte
		if err := binary.Read(r, binary.LittleEndian, &b); err != nil {
			return NullValue(), err
		}
		return BoolValue(b != 0), nil
	case tagNumber:
		var bits uint64
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return NullValue(), err
		}
		return NumberValue(math.Float64frombits(bits)), nil
	case tagString:
		str, err := s.readString(r)
		if err != nil {
			return NullValue(), err
		}
		return StringValue(str), nil
	case tagFunction:
		name, err := s.readString(r)
		if err != nil {
			return NullValue(), err
		}
		arity, err := s.readInt32(r)
		if err != nil {
			return NullValue(), err
		}
		defCount, err := s.readInt32(r)
		if err != nil {
			return NullValue(), err
		}
		defs := make([]UpvalueDef, defCount)
		for i := range defs {
			var isLocal byte
			if err := binary.Read(r, binary.LittleEndian, &isLocal); err != nil {
				return NullValue(), err
			}
			index, err := s.readInt32(r)
			if err != nil {
				return NullValue(), err
			}
			defs[i] = UpvalueDef{IsLocal: isLocal != 0, Index: int(index)}
		}
		chunk, err := s.readChunk(r)
		if err != nil {
			return NullValue(), err
		}
		return FunctionValue(&FunctionObject{
			Name:        name,
			Arity:       int(arity),
			UpvalueDefs: defs,
			Chunk:       chunk,
		}), nil
	default:
		return NullValue(), fmt.Errorf("unknown constant tag %d", tag)
	}
}

func (s *Serializer) writeString(w io.Writer, str string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(str))); err != nil {
		return err
	}
	_, err := w.Write([]byte(str))
	return err
}

func (s *Serializer) readString(r io.Reader) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	if length > 1<<24 {
		return "", fmt.Errorf("string length %d too large", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (s *Serializer) writeStrings(w io.Writer, strs []string) error {
	if err := s.writeInt32(w, int32(len(strs))); err != nil {
		return err
	}
	for _, str := range strs {
		if err := s.writeString(w, str); err != nil {
			return err
		}
	}
	return nil
}

func (s *Serializer) readStrings(r io.Reader) ([]string, error) {
	count, err := s.readInt32(r)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	strs := make([]string, count)
	for i := range strs {
		if strs[i], err = s.readString(r); err != nil {
			return nil, err
		}
	}
	return strs, nil
}

func (s *Serializer) writeInt32(w io.Writer, v int32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func (s *Serializer) readInt32(r io.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}
