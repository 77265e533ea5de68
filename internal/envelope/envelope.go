// Package envelope decodes and builds the {success, message, data} wrapper
// the power-service backend puts around every JSON response.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oremus-labs/ol-power-client/internal/apierr"
	"github.com/xeipuuv/gojsonschema"
)

const schemaJSON = `{
  "type": "object",
  "required": ["success"],
  "properties": {
    "success": {"type": "boolean"},
    "message": {"type": ["string", "null"]}
  }
}`

var schema = mustSchema(schemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("envelope: invalid schema: %v", err))
	}
	return s
}

// Envelope is the decoded wire form.
type Envelope struct {
	Success   bool            `json:"success"`
	Message   *string         `json:"message"`
	Data      json.RawMessage `json:"data"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// Parse validates body against the envelope contract. A body that is not JSON
// or lacks a boolean success field is a TransportError.
func Parse(body []byte) (*Envelope, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &apierr.TransportError{Detail: "empty response body"}
	}
	if !json.Valid(body) {
		return nil, &apierr.TransportError{Detail: "response is not JSON"}
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, &apierr.TransportError{Detail: "envelope validation", Cause: err}
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, &apierr.TransportError{Detail: "malformed envelope: " + strings.Join(problems, "; ")}
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &apierr.TransportError{Detail: "decode envelope", Cause: err}
	}
	return &env, nil
}

// Decode unwraps a 2xx body. success=true yields data (nil for JSON null or
// absent data); success=false yields a RemoteError carrying the message.
func Decode(body []byte) (json.RawMessage, error) {
	env, err := Parse(body)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		msg := apierr.MsgRemoteFallback
		if env.Message != nil && strings.TrimSpace(*env.Message) != "" {
			msg = *env.Message
		}
		return nil, &apierr.RemoteError{Message: msg}
	}
	if isNull(env.Data) {
		return nil, nil
	}
	return env.Data, nil
}

// Message extracts a human-readable message from an error body that may or
// may not be an envelope.
func Message(body []byte) (string, bool) {
	var probe struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return "", false
	}
	if msg := strings.TrimSpace(probe.Message); msg != "" {
		return msg, true
	}
	if msg := strings.TrimSpace(probe.Error); msg != "" {
		return msg, true
	}
	return "", false
}

// Unmarshal decodes an unwrapped payload into out. A nil payload leaves out untouched.
func Unmarshal(data json.RawMessage, out any) error {
	if out == nil || isNull(data) {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &apierr.TransportError{Detail: "decode payload", Cause: err}
	}
	return nil
}

func isNull(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Response is the server-side form used by the stub backend.
type Response struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// OK wraps data in a success envelope.
func OK(message string, data any) Response {
	return Response{Success: true, Message: message, Data: data, Timestamp: time.Now().UTC()}
}

// Fail builds a failure envelope.
func Fail(message string) Response {
	return Response{Success: false, Message: message, Timestamp: time.Now().UTC()}
}
