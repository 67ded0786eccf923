package control

import "fmt"

// State is the operational state of the panel.
type State int

const (
	SunTracking State = iota
	CleaningWind
	CleaningWater
	Idle
)

var stateNames = [...]string{
	SunTracking:   "SUN_TRACKING",
	CleaningWind:  "CLEANING_WIND",
	CleaningWater: "CLEANING_WATER",
	Idle:          "IDLE",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// ParseState is the inverse of State.String.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return SunTracking, fmt.Errorf("unknown state %q", name)
}
