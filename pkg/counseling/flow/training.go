package flow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"ai-counseling-be/pkg/counseling"
)

// RunTraining drives one full training pass: every roster subject gets a
// complete session, with therapist modalities rotating across students and
// the topic pool and skill memories accumulating as the pass proceeds.
// The params' Client should be a StudentAgent; Roster must be non-empty.
func RunTraining(ctx context.Context, params ControllerParams) (*counseling.SessionState, error) {
	if len(params.Roster) == 0 {
		return nil, fmt.Errorf("training: empty roster")
	}
	controller, err := NewController(params)
	if err != nil {
		return nil, err
	}

	state := counseling.NewSessionState(
		fmt.Sprintf("training_%s", uuid.New().String()[:8]),
		params.Roster[0].Id,
		counseling.ModeTraining,
	)
	return controller.Run(ctx, state)
}
