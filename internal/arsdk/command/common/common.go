// Package common holds the project-independent commands every device accepts.
package common

import (
	"time"

	"github.com/danmuck/sumoctl/internal/arsdk/command"
)

const ClassCommon uint8 = 4

const (
	CmdAllStates   uint16 = 0
	CmdCurrentDate uint16 = 1
	CmdCurrentTime uint16 = 2
)

// Date and time layouts expected by the device.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "T150405-0700"
)

func feature(cmd uint16, args *command.ArgWriter) command.Feature {
	return command.Feature{
		Project: command.ProjectCommon,
		Class:   ClassCommon,
		Command: cmd,
		Args:    args.Bytes(),
	}
}

// AllStates asks the device to report every state.
func AllStates() command.Feature {
	return feature(CmdAllStates, new(command.ArgWriter))
}

func CurrentDate(date string) command.Feature {
	return feature(CmdCurrentDate, new(command.ArgWriter).String(date))
}

func CurrentTime(clock string) command.Feature {
	return feature(CmdCurrentTime, new(command.ArgWriter).String(clock))
}

func Specs() []command.Spec {
	return []command.Spec{
		{
			ID: "common.common.allstates", Description: "Ask for all device states",
			Project: command.ProjectCommon, Class: ClassCommon, Command: CmdAllStates,
			Build: func(command.Params) (command.Feature, error) { return AllStates(), nil },
		},
		{
			ID: "common.common.currentdate", Description: "Set the device date (date=YYYY-MM-DD, default now)",
			Project: command.ProjectCommon, Class: ClassCommon, Command: CmdCurrentDate,
			Build: func(p command.Params) (command.Feature, error) {
				return CurrentDate(p.String("date", time.Now().Format(DateLayout))), nil
			},
		},
		{
			ID: "common.common.currenttime", Description: "Set the device time (time=THHMMSS+HHMM, default now)",
			Project: command.ProjectCommon, Class: ClassCommon, Command: CmdCurrentTime,
			Build: func(p command.Params) (command.Feature, error) {
				return CurrentTime(p.String("time", time.Now().Format(TimeLayout))), nil
			},
		},
	}
}
