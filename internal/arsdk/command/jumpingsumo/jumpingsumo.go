// Package jumpingsumo holds the Jumping Sumo project commands.
package jumpingsumo

import (
	"github.com/danmuck/sumoctl/internal/arsdk/command"
)

// Classes.
const (
	ClassPiloting   uint8 = 0
	ClassAnimations uint8 = 2
)

// Piloting commands.
const (
	CmdPCMD         uint16 = 0
	CmdPosture      uint16 = 1
	CmdAddCapOffset uint16 = 2
)

// Animation commands.
const (
	CmdJumpStop        uint16 = 0
	CmdJumpCancel      uint16 = 1
	CmdJumpLoad        uint16 = 2
	CmdJump            uint16 = 3
	CmdSimpleAnimation uint16 = 4
)

type JumpType uint32

const (
	JumpLong JumpType = 0
	JumpHigh JumpType = 1
)

var jumpNames = []string{"long", "high"}

type PostureType uint32

const (
	PostureStanding PostureType = 0
	PostureJumper   PostureType = 1
	PostureKicker   PostureType = 2
)

var postureNames = []string{"standing", "jumper", "kicker"}

type Anim uint32

const (
	AnimStop          Anim = 0
	AnimSpin          Anim = 1
	AnimTap           Anim = 2
	AnimSlowShake     Anim = 3
	AnimMetronome     Anim = 4
	AnimOndulation    Anim = 5
	AnimSpinJump      Anim = 6
	AnimSpinToPosture Anim = 7
	AnimSpiral        Anim = 8
	AnimSlalom        Anim = 9
)

var animNames = []string{
	"stop", "spin", "tap", "slowshake", "metronome",
	"ondulation", "spinjump", "spintoposture", "spiral", "slalom",
}

func feature(class uint8, cmd uint16, args *command.ArgWriter) command.Feature {
	return command.Feature{
		Project: command.ProjectJumpingSumo,
		Class:   class,
		Command: cmd,
		Args:    args.Bytes(),
	}
}

// PCMD drives the robot. speed and turn are percentages in [-100, 100].
// flag enables the speed/turn values.
func PCMD(flag bool, speed, turn int8) command.Feature {
	var f uint8
	if flag {
		f = 1
	}
	return feature(ClassPiloting, CmdPCMD, new(command.ArgWriter).U8(f).I8(speed).I8(turn))
}

func Posture(p PostureType) command.Feature {
	return feature(ClassPiloting, CmdPosture, new(command.ArgWriter).U32(uint32(p)))
}

func AddCapOffset(offset float32) command.Feature {
	return feature(ClassPiloting, CmdAddCapOffset, new(command.ArgWriter).F32(offset))
}

func JumpStop() command.Feature {
	return feature(ClassAnimations, CmdJumpStop, new(command.ArgWriter))
}

func JumpCancel() command.Feature {
	return feature(ClassAnimations, CmdJumpCancel, new(command.ArgWriter))
}

func JumpLoad() command.Feature {
	return feature(ClassAnimations, CmdJumpLoad, new(command.ArgWriter))
}

func Jump(t JumpType) command.Feature {
	return feature(ClassAnimations, CmdJump, new(command.ArgWriter).U32(uint32(t)))
}

func SimpleAnimation(a Anim) command.Feature {
	return feature(ClassAnimations, CmdSimpleAnimation, new(command.ArgWriter).U32(uint32(a)))
}

// Specs returns the catalogue entries for this project.
func Specs() []command.Spec {
	return []command.Spec{
		{
			ID: "jumpingsumo.piloting.pcmd", Description: "Drive with speed and turn (flag, speed, turn)",
			Project: command.ProjectJumpingSumo, Class: ClassPiloting, Command: CmdPCMD,
			Build: func(p command.Params) (command.Feature, error) {
				speed, err := p.Int("speed", 0, -100, 100)
				if err != nil {
					return command.Feature{}, err
				}
				turn, err := p.Int("turn", 0, -100, 100)
				if err != nil {
					return command.Feature{}, err
				}
				flag := speed != 0 || turn != 0
				return PCMD(flag, int8(speed), int8(turn)), nil
			},
		},
		{
			ID: "jumpingsumo.piloting.posture", Description: "Change posture (type=standing|jumper|kicker)",
			Project: command.ProjectJumpingSumo, Class: ClassPiloting, Command: CmdPosture,
			Build: func(p command.Params) (command.Feature, error) {
				v, err := p.Enum("type", uint32(PostureStanding), postureNames...)
				if err != nil {
					return command.Feature{}, err
				}
				return Posture(PostureType(v)), nil
			},
		},
		{
			ID: "jumpingsumo.piloting.addcapoffset", Description: "Turn by offset radians",
			Project: command.ProjectJumpingSumo, Class: ClassPiloting, Command: CmdAddCapOffset,
			Build: func(p command.Params) (command.Feature, error) {
				v, err := p.Float("offset", 0)
				if err != nil {
					return command.Feature{}, err
				}
				return AddCapOffset(v), nil
			},
		},
		{
			ID: "jumpingsumo.animations.jumpstop", Description: "Stop jump, emergency jump stop",
			Project: command.ProjectJumpingSumo, Class: ClassAnimations, Command: CmdJumpStop,
			Build: func(command.Params) (command.Feature, error) { return JumpStop(), nil },
		},
		{
			ID: "jumpingsumo.animations.jumpcancel", Description: "Cancel jump and come back to previous state",
			Project: command.ProjectJumpingSumo, Class: ClassAnimations, Command: CmdJumpCancel,
			Build: func(command.Params) (command.Feature, error) { return JumpCancel(), nil },
		},
		{
			ID: "jumpingsumo.animations.jumpload", Description: "Prepare the jump",
			Project: command.ProjectJumpingSumo, Class: ClassAnimations, Command: CmdJumpLoad,
			Build: func(command.Params) (command.Feature, error) { return JumpLoad(), nil },
		},
		{
			ID: "jumpingsumo.animations.jump", Description: "Jump (type=long|high)",
			Project: command.ProjectJumpingSumo, Class: ClassAnimations, Command: CmdJump,
			Build: func(p command.Params) (command.Feature, error) {
				v, err := p.Enum("type", uint32(JumpLong), jumpNames...)
				if err != nil {
					return command.Feature{}, err
				}
				return Jump(JumpType(v)), nil
			},
		},
		{
			ID: "jumpingsumo.animations.simpleanimation", Description: "Play a parameterless animation (id=spin|tap|...)",
			Project: command.ProjectJumpingSumo, Class: ClassAnimations, Command: CmdSimpleAnimation,
			Build: func(p command.Params) (command.Feature, error) {
				v, err := p.Enum("id", uint32(AnimStop), animNames...)
				if err != nil {
					return command.Feature{}, err
				}
				return SimpleAnimation(Anim(v)), nil
			},
		},
	}
}
