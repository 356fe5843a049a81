package flow

import (
	"context"

	"ai-counseling-be/pkg/counseling"
)

// ClientReplier produces the client's next utterance in response to what an
// agent just said. Training mode backs it with a simulated student persona;
// live mode bridges it to the API boundary over channels.
type ClientReplier interface {
	Reply(ctx context.Context, state *counseling.SessionState, utterance string) (string, error)
}
