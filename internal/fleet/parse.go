package fleet

import (
	"encoding/json"

	"iot-fabric/internal/errs"
)

type rawCommand struct {
	Command *string        `json:"command"`
	Action  *string        `json:"action"`
	Params  rawColorParams `json:"params"`
}

type rawColorParams struct {
	R *int `json:"r"`
	G *int `json:"g"`
	B *int `json:"b"`
}

// ParseCommand decodes an inbound bus payload into a Command. Per the
// convention, only the "command" key is accepted;
// a payload using "action" instead is rejected as an input error, never
// silently treated as equivalent.
func ParseCommand(payload []byte) (Command, error) {
	var raw rawCommand
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Command{}, errs.New(errs.Input, "malformed command JSON", err)
	}

	if raw.Command == nil {
		if raw.Action != nil {
			return Command{}, errs.New(errs.Input, `payload used "action" instead of "command"`, nil)
		}
		return Command{}, errs.New(errs.Input, "missing command field", nil)
	}

	switch *raw.Command {
	case "turn_on":
		return Command{Action: ActionTurnOn}, nil
	case "turn_off":
		return Command{Action: ActionTurnOff}, nil
	case "set_color":
		r, g, b, err := raw.Params.channels()
		if err != nil {
			return Command{}, err
		}
		return Command{Action: ActionSetColor, R: r, G: g, B: b}, nil
	default:
		return Command{}, errs.New(errs.Input, "unknown command: "+*raw.Command, nil)
	}
}

func (p rawColorParams) channels() (uint8, uint8, uint8, error) {
	if p.R == nil || p.G == nil || p.B == nil {
		return 0, 0, 0, errs.New(errs.Input, "set_color requires r, g, b params", nil)
	}
	r, err := validChannel(*p.R)
	if err != nil {
		return 0, 0, 0, err
	}
	g, err := validChannel(*p.G)
	if err != nil {
		return 0, 0, 0, err
	}
	b, err := validChannel(*p.B)
	if err != nil {
		return 0, 0, 0, err
	}
	return r, g, b, nil
}

func validChannel(v int) (uint8, error) {
	if v < 0 || v > 255 {
		return 0, errs.New(errs.Input, "color channel out of range [0,255]", nil)
	}
	return uint8(v), nil
}
