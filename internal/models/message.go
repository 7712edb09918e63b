package models

// InputKind classifies an inbound user action. Step handlers declare which
// kinds they accept; input of any other kind is dropped silently.
type InputKind string

const (
	KindText    InputKind = "text"
	KindFile    InputKind = "file"
	KindCommand InputKind = "command" // button callbacks and slash commands
)

// Action is one inbound user event from the chat platform.
type Action struct {
	UserID      string    `json:"user_id"`
	Kind        InputKind `json:"kind"`
	Text        string    `json:"text"`    // message body, or callback token for KindCommand
	FileID      string    `json:"file_id"` // opaque attachment reference for KindFile
	DisplayName string    `json:"display_name"`
}

// Button is a single actionable control attached to an outbound message.
// Callback is the opaque token delivered back as a KindCommand action.
type Button struct {
	Label    string `json:"label"`
	Callback string `json:"callback"`
}

// Message is one outbound message. Delivery mechanics belong to the
// notification gateway; the core only fills recipient, text and controls.
type Message struct {
	RecipientID string   `json:"recipient_id"`
	Text        string   `json:"text"`
	Buttons     []Button `json:"buttons,omitempty"`
}
