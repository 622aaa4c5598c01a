package types

// Conversation states
type ConversationState string

const (
	StateAwaitingUpload ConversationState = "awaiting_upload"
	StateDocumentReady  ConversationState = "document_ready"
)

const (
	ActionCreateQuiz = "create_quiz"
)

const (
	MessageKindInfo    = "info"
	MessageKindAsk     = "ask_file"
	MessageKindSummary = "summary"
	MessageKindQuiz    = "quiz"
	MessageKindError   = "error"
)

// Action is a button offered alongside a message.
type Action struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// ChatMessage is what the bot sends back to a client.
type ChatMessage struct {
	Kind    string   `json:"kind"`
	Content string   `json:"content"`
	Actions []Action `json:"actions,omitempty"`
	// Partial marks a streamed chunk. The complete message of the same kind
	// follows once generation ends and replaces the chunks.
	Partial bool `json:"partial,omitempty"`
	// Accept and MaxSizeMB are only set on ask_file messages.
	Accept    []string `json:"accept,omitempty"`
	MaxSizeMB int64    `json:"max_size_mb,omitempty"`
}

// Event is something a client did. Exactly one of Upload or Action is set.
type Event struct {
	Upload *Upload
	Action string
}

// StreamHandler receives generated text as it arrives.
type StreamHandler func(response string)
