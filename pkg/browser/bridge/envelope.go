package bridge

import (
	"encoding/json"
	"fmt"
)

// Envelope is the object the page posts to ResultPath.
// Data holds the primitive's own JSON output as a string.
type Envelope struct {
	Action string `json:"action"`
	Data   string `json:"data"`
	ID     string `json:"id,omitempty"`
}

// DecodeEnvelope parses a posted body. The body is sent as text/plain, so no
// content type is assumed.
func DecodeEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed result envelope: %w", err)
	}
	if env.Action == "" {
		return Envelope{}, fmt.Errorf("malformed result envelope: action is required")
	}
	return env, nil
}

// DecodeData unmarshals the inner payload into v.
func (e Envelope) DecodeData(v any) error {
	if e.Data == "" {
		return fmt.Errorf("%s result carried no data", e.Action)
	}
	if err := json.Unmarshal([]byte(e.Data), v); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", e.Action, err)
	}
	return nil
}
