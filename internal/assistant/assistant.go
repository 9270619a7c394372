package assistant

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/log"
)

// Apology replaces the reply whenever the backend fails.
const Apology = "Sorry, I could not reach the assistant service. Please try again in a moment."

const maxTranscript = 200

// Role is who wrote a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript line.
type Message struct {
	Role      Role       `json:"role"`
	Text      string     `json:"text"`
	Citations []Citation `json:"citations,omitempty"`
	Failed    bool       `json:"failed,omitempty"`
	At        time.Time  `json:"at"`
}

// Assistant keeps one conversation transcript.
type Assistant struct {
	gen Generator
	now func() time.Time

	mu         sync.Mutex
	transcript []Message
}

func New(gen Generator) *Assistant {
	return &Assistant{gen: gen, now: time.Now}
}

// Ask appends the prompt and the reply to the transcript and returns the
// reply. Backend failures become an apology message; Ask never fails.
func (a *Assistant) Ask(ctx context.Context, prompt string) Message {
	prompt = strings.TrimSpace(prompt)
	a.append(Message{Role: RoleUser, Text: prompt, At: a.now()})

	reply, err := a.gen.Generate(ctx, prompt)
	msg := Message{Role: RoleAssistant, Text: reply.Text, Citations: reply.Citations, At: a.now()}
	if err != nil {
		log.Error("assistant request failed", err, "prompt_len", len(prompt))
		msg = Message{Role: RoleAssistant, Text: Apology, Failed: true, At: a.now()}
	}
	a.append(msg)
	return msg
}

func (a *Assistant) append(m Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transcript = append(a.transcript, m)
	if n := len(a.transcript); n > maxTranscript {
		a.transcript = append([]Message(nil), a.transcript[n-maxTranscript:]...)
	}
}

// Transcript returns a copy of the conversation so far.
func (a *Assistant) Transcript() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Message(nil), a.transcript...)
}

func (a *Assistant) Reset() {
	a.mu.Lock()
	a.transcript = nil
	a.mu.Unlock()
}
