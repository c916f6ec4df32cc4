package command

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderLen is the project/class/command prefix of every feature payload.
const HeaderLen = 4

var ErrShortFeature = errors.New("command: short feature header")

// Project is the top-level feature namespace byte.
type Project uint8

const (
	ProjectCommon      Project = 0
	ProjectARDrone3    Project = 1
	ProjectMinidrone   Project = 2
	ProjectJumpingSumo Project = 3
)

func (p Project) String() string {
	switch p {
	case ProjectCommon:
		return "common"
	case ProjectARDrone3:
		return "ardrone3"
	case ProjectMinidrone:
		return "minidrone"
	case ProjectJumpingSumo:
		return "jumpingsumo"
	default:
		return fmt.Sprintf("project(%d)", uint8(p))
	}
}

// Feature is one command payload carried inside a frame.
type Feature struct {
	Project Project
	Class   uint8
	Command uint16
	Args    []byte
}

// Len returns the encoded payload size.
func (f Feature) Len() int {
	return HeaderLen + len(f.Args)
}

func (f Feature) Encode() []byte {
	buf := make([]byte, f.Len())
	buf[0] = uint8(f.Project)
	buf[1] = f.Class
	binary.LittleEndian.PutUint16(buf[2:4], f.Command)
	copy(buf[HeaderLen:], f.Args)
	return buf
}

// Decode parses a feature payload. Unknown projects are kept as raw values.
func Decode(b []byte) (Feature, error) {
	if len(b) < HeaderLen {
		return Feature{}, fmt.Errorf("%w: %d bytes", ErrShortFeature, len(b))
	}
	args := make([]byte, len(b)-HeaderLen)
	copy(args, b[HeaderLen:])
	return Feature{
		Project: Project(b[0]),
		Class:   b[1],
		Command: binary.LittleEndian.Uint16(b[2:4]),
		Args:    args,
	}, nil
}

// Equal reports whether both features encode to the same payload.
func (f Feature) Equal(o Feature) bool {
	if f.Project != o.Project || f.Class != o.Class || f.Command != o.Command {
		return false
	}
	if len(f.Args) != len(o.Args) {
		return false
	}
	for i := range f.Args {
		if f.Args[i] != o.Args[i] {
			return false
		}
	}
	return true
}

func (f Feature) String() string {
	return fmt.Sprintf("%s.%d.%d", f.Project, f.Class, f.Command)
}
