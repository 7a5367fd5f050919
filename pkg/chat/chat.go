package chat

const (
	ChatRoleUser   = "user"
	ChatRoleAgent  = "assistant" // game master narration
	ChatRoleSystem = "system"
)

// ChatMessage is a single message in the conversation sent to the LLM.
// The role/content shape is shared by every provider API we talk to.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ChatResponse is a completed (non-streaming) LLM response.
type ChatResponse struct {
	Message string `json:"message,omitempty"`
	Tokens  int    `json:"tokens,omitempty"` // output tokens, 0 when the provider omits usage
}

// StreamChunk is one increment of a streaming LLM response.
// Err is set on the final chunk when the stream failed mid-flight.
type StreamChunk struct {
	Text   string
	Tokens int
	Done   bool
	Err    error
}
