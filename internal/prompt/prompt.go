// Package prompt provides the instruction template rendered before each
// generation call.
//
// A Template declares its slot names up front; Render binds every slot or
// fails with ErrMissingSlot. Rendering is pure — same inputs, byte-identical
// output.
package prompt

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingSlot indicates Render was called without a value for a
// declared slot. This is a programming error, not an expected runtime
// condition; callers surface it instead of retrying.
var ErrMissingSlot = errors.New("missing prompt slot")

// Slot names used by the HR assistant template.
const (
	SlotContext     = "context"
	SlotChatHistory = "chat_history"
	SlotQuestion    = "question"
)

// hrSystemPrompt encodes the assistant's behavioral policy as fixed
// instructional prose preceding the three slots.
const hrSystemPrompt = `
You are an intelligent HR chatbot designed to provide concise, accurate, and meaningful answers to employees' HR-related questions. Your responses should align with company policies, ensure clarity, and maintain a friendly yet professional tone.
Follow these principles:
Accuracy: Always provide factual and policy-compliant information. When unsure, advise users to consult the HR department for clarification.
Clarity: Use plain language and avoid jargon. Your responses should be understandable to all employees, regardless of their familiarity with HR terms.
Conciseness: Deliver brief and to-the-point answers, while ensuring all relevant information is included. Avoid unnecessary details.
Empathy: Acknowledge the user's concerns or feelings when appropriate. Be supportive and approachable.
Confidentiality: Respect privacy and avoid sharing sensitive information unless explicitly authorized.
Limits: If a question is outside your scope or requires human intervention, politely direct the user to the appropriate HR contact or resource.

Context: {context}
Chat History: {chat_history}
Question: {question}

Helpful answer:
`

// Template is a prompt template with named slots written as {slot}.
type Template struct {
	text  string
	slots []string
}

// New creates a Template from text and its declared slot names.
// Every declared slot must appear in the text as {name}.
func New(text string, slots ...string) (*Template, error) {
	for _, s := range slots {
		if !strings.Contains(text, "{"+s+"}") {
			return nil, fmt.Errorf("template text has no {%s} placeholder", s)
		}
	}
	return &Template{text: text, slots: slots}, nil
}

// HRAssistant returns the canonical HR policy assistant template with
// context, chat_history and question slots.
func HRAssistant() *Template {
	t, err := New(hrSystemPrompt, SlotContext, SlotChatHistory, SlotQuestion)
	if err != nil {
		// The constant template always declares its slots.
		panic(fmt.Sprintf("BUG: invalid built-in template: %v", err))
	}
	return t
}

// Slots returns the declared slot names in declaration order.
func (t *Template) Slots() []string {
	out := make([]string, len(t.slots))
	copy(out, t.slots)
	return out
}

// Render binds every declared slot and returns the rendered text.
// A declared slot absent from values yields ErrMissingSlot. Extra keys in
// values are ignored. Empty string is a valid binding — an empty retrieval
// context is not a missing one.
func (t *Template) Render(values map[string]string) (string, error) {
	pairs := make([]string, 0, len(t.slots)*2)
	for _, s := range t.slots {
		v, ok := values[s]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrMissingSlot, s)
		}
		pairs = append(pairs, "{"+s+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(t.text), nil
}
