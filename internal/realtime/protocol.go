package realtime

import "encoding/json"

// Wire frame types exchanged with the realtime AI session. Field shapes
// follow the provider's realtime protocol; only the frames this
// coordinator acts on are modeled, everything else is skipped by type.
const (
	frameSessionUpdate = "session.update"
	frameItemCreate    = "conversation.item.create"
	frameItemDelete    = "conversation.item.delete"
	frameResponse      = "response.create"

	frameSessionCreated       = "session.created"
	frameSessionUpdated       = "session.updated"
	frameResponseCreated      = "response.created"
	frameResponseDone         = "response.done"
	frameAssistantTranscript  = "response.audio_transcript.done"
	frameUserTranscript       = "conversation.item.input_audio_transcription.completed"
	frameFunctionCallArgsDone = "response.function_call_arguments.done"
	frameError                = "error"
)

// ToolSchema is one function declaration pushed in a session.update.
type ToolSchema struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// SessionConfig is the mutable remote session state.
type SessionConfig struct {
	Instructions string       `json:"instructions,omitempty"`
	Voice        string       `json:"voice,omitempty"`
	Tools        []ToolSchema `json:"tools,omitempty"`
}

type sessionUpdateFrame struct {
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

type responseCreateFrame struct {
	Type string `json:"type"`
}

// ContentPart is one piece of a conversation item's content.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Item is one remote conversation entry: a message or a function-call
// output keyed back to its correlation ID.
type Item struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`

	// CallID correlates a function_call_output with the originating
	// function-call frame. Not the telephony call ID.
	CallID string `json:"call_id,omitempty"`
	Output string `json:"output,omitempty"`
}

type itemCreateFrame struct {
	Type string `json:"type"`
	Item Item   `json:"item"`
}

type itemDeleteFrame struct {
	Type   string `json:"type"`
	ItemID string `json:"item_id"`
}

// inboundFrame is the superset of fields read off the socket. Decoded
// once, then interpreted by Type.
type inboundFrame struct {
	Type   string `json:"type"`
	ItemID string `json:"item_id,omitempty"`

	// Transcript carries completed assistant or user speech.
	Transcript string `json:"transcript,omitempty"`

	// Function-call completion.
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	Error *protocolError `json:"error,omitempty"`
}

type protocolError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func newFunctionOutput(correlationID string, payload any) (itemCreateFrame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return itemCreateFrame{}, err
	}
	return itemCreateFrame{
		Type: frameItemCreate,
		Item: Item{
			Type:   "function_call_output",
			CallID: correlationID,
			Output: string(raw),
		},
	}, nil
}

func newSystemMessage(text string) itemCreateFrame {
	return itemCreateFrame{
		Type: frameItemCreate,
		Item: Item{
			Type:    "message",
			Role:    "system",
			Content: []ContentPart{{Type: "input_text", Text: text}},
		},
	}
}
