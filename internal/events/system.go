package events

import "encoding/json"

// System-message payloads stored as the content of MessageSystem rows.
// They use the same snake_case type tagging as the wire events so clients
// can render them with one decoder.

type SystemJoined struct {
	Username string `json:"username"`
}

type SystemLeft struct {
	Username string `json:"username"`
}

type SystemKicked struct {
	Username string `json:"username"`
	By       string `json:"by"`
}

func (e SystemJoined) MarshalJSON() ([]byte, error) {
	type alias SystemJoined
	return tagged("joined", alias(e))
}

func (e SystemLeft) MarshalJSON() ([]byte, error) {
	type alias SystemLeft
	return tagged("left", alias(e))
}

func (e SystemKicked) MarshalJSON() ([]byte, error) {
	type alias SystemKicked
	return tagged("kicked", alias(e))
}

// EncodeSystemMessage renders a system payload to the string stored in the
// message row.
func EncodeSystemMessage(payload json.Marshaler) (string, error) {
	data, err := payload.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}
