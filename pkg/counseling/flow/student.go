package flow

import (
	"context"
	"fmt"

	"ai-counseling-be/pkg/counseling"
	"ai-counseling-be/pkg/oracle"
)

// StudentAgent simulates the client during training runs: an oracle-backed
// persona speaking from the roster subject's background.
type StudentAgent struct {
	oracle oracle.Oracle
}

func NewStudentAgent(o oracle.Oracle) *StudentAgent {
	return &StudentAgent{oracle: o}
}

func (s *StudentAgent) Reply(ctx context.Context, state *counseling.SessionState, utterance string) (string, error) {
	prompt := fmt.Sprintf(`You are a student in a counseling session. Stay in character; answer briefly and naturally, the way a real student would, including hesitation where it fits.
%s
Conversation so far:
%s
The counselor just said: %q
Respond with your answer only.`,
		subjectInfoBlock(state),
		transcript(state.RecentDialogue(12)),
		utterance)

	reply, err := s.oracle.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("student reply: %w", err)
	}
	return reply, nil
}
