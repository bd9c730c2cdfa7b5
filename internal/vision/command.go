package vision

import (
	"encoding/json"

	"iot-fabric/internal/errs"
)

// commandAction is the tagged action carried on the vision command
// topic: {"action": "..."}.
type commandAction int

const (
	actionUnknown commandAction = iota
	actionStartStream
	actionStopStream
	actionRequestToken
	actionSnapshot
)

type rawVisionCommand struct {
	Action *string `json:"action"`
}

func parseCommand(payload []byte) (commandAction, error) {
	var raw rawVisionCommand
	if err := json.Unmarshal(payload, &raw); err != nil {
		return actionUnknown, errs.New(errs.Input, "malformed vision command JSON", err)
	}
	if raw.Action == nil {
		return actionUnknown, errs.New(errs.Input, "missing action field", nil)
	}
	switch *raw.Action {
	case "start_stream":
		return actionStartStream, nil
	case "stop_stream":
		return actionStopStream, nil
	case "request_token":
		return actionRequestToken, nil
	case "snapshot":
		return actionSnapshot, nil
	default:
		return actionUnknown, errs.New(errs.Input, "unknown action: "+*raw.Action, nil)
	}
}
