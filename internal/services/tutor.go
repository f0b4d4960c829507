package services

import (
	"context"
	"strings"
	"time"

	"thinkr/internal/llm"
	"thinkr/internal/models"
)

// tutorSystem keeps the chat assistant inside educational territory.
const tutorSystem = `You are EduGuide, an AI tutor and educational assistant. Your primary role is to help students with educational questions and learning guidance. Follow these rules strictly:

1. Scope of answers: only answer questions related to educational content (science, math, programming, languages, history, literature, etc.). Politely refuse questions outside educational scope (politics, sports, celebrity gossip, financial advice) and respond with: "I'm here to help with educational topics only. Can I assist you with a question related to learning or study?"
2. Answering questions: provide clear, structured explanations. Include examples and step-by-step reasoning where applicable. Encourage deeper understanding rather than just giving the final answer.
3. Topic outlines: if a student asks for a topic outline or study guide, generate a structured outline with main topics, subtopics, and key concepts or formulas, formatted with bullet points or numbered lists.
4. Interactive guidance: ask clarifying questions if the student's query is ambiguous. Offer follow-up exercises to reinforce learning.
5. Tone: friendly, encouraging, and patient. Avoid slang.

Your sole focus is to educate and guide students. Do not generate content outside of educational value.`

// Tutor is the streaming chat assistant. Conversation history lives in the
// caller's session state; the tutor itself is stateless.
type Tutor struct {
	completer llm.Completer
	timeout   time.Duration
}

func NewTutor(completer llm.Completer, timeout time.Duration) *Tutor {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Tutor{completer: completer, timeout: timeout}
}

// Reply streams the assistant's answer to the latest user message through
// fn and returns the full reply text. history must end with the user's
// message.
func (t *Tutor) Reply(ctx context.Context, history []models.ChatMessage, fn func(chunk string) error) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var full strings.Builder
	err := t.completer.Stream(ctx, llm.Request{
		Feature:     "chat",
		System:      tutorSystem,
		Prompt:      renderHistory(history),
		Temperature: 0.7,
	}, func(chunk string) error {
		full.WriteString(chunk)
		if fn != nil {
			return fn(chunk)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return full.String(), nil
}

// renderHistory flattens the conversation into a single prompt so both
// completion backends see the same transcript shape.
func renderHistory(history []models.ChatMessage) string {
	var sb strings.Builder
	for _, msg := range history {
		switch msg.Role {
		case "assistant":
			sb.WriteString("Tutor: ")
		default:
			sb.WriteString("Student: ")
		}
		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")
	}
	sb.WriteString("Tutor:")
	return sb.String()
}
