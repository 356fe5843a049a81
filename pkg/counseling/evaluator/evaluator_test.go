package evaluator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"ai-counseling-be/internal/pkg/logger"
	"ai-counseling-be/pkg/counseling"
	"ai-counseling-be/pkg/counseling/evaluator"
	"ai-counseling-be/pkg/oracle"
)

type stubOracle struct {
	response string
	err      error
}

func (s *stubOracle) Generate(ctx context.Context, prompt string, opts ...oracle.Option) (string, error) {
	return s.response, s.err
}

func (s *stubOracle) GenerateStructured(ctx context.Context, prompt string, out any, opts ...oracle.Option) error {
	if s.err != nil {
		return s.err
	}
	return oracle.UnmarshalResponse(s.response, out)
}

func newEvaluator(o oracle.Oracle) *evaluator.Evaluator {
	return evaluator.New(o, counseling.DefaultConfig(), logger.NewNopLogger())
}

func TestScoreTopicParsesJudgment(t *testing.T) {
	e := newEvaluator(&stubOracle{response: `{"relevance": "relevant", "new_topic": ""}`})

	update := e.ScoreTopic(context.Background(), "academic pressure", "I failed another exam and can't sleep")
	assert.Equal(t, "academic pressure", update.Topic)
	assert.Equal(t, counseling.RelevanceRelevant, update.Relevance)
	assert.Equal(t, 2, update.Delta(counseling.DefaultConfig()))
}

func TestScoreTopicSurfacesNewTopic(t *testing.T) {
	e := newEvaluator(&stubOracle{response: `{"relevance": "irrelevant", "new_topic": "family conflict"}`})

	update := e.ScoreTopic(context.Background(), "academic pressure", "my parents keep fighting at home")
	assert.Equal(t, counseling.RelevanceIrrelevant, update.Relevance)
	assert.Equal(t, "family conflict", update.NewTopic)
}

func TestScoreTopicLeavesScoreUnchangedOnOracleFailure(t *testing.T) {
	e := newEvaluator(&stubOracle{err: errors.New("model unavailable")})

	update := e.ScoreTopic(context.Background(), "academic pressure", "whatever")
	assert.Empty(t, update.Relevance)
	assert.Zero(t, update.Delta(counseling.DefaultConfig()))
	assert.Empty(t, update.NewTopic)
}

func TestScoreTopicRejectsUnknownLabel(t *testing.T) {
	e := newEvaluator(&stubOracle{response: `{"relevance": "extremely_relevant"}`})

	update := e.ScoreTopic(context.Background(), "academic pressure", "whatever")
	assert.Empty(t, update.Relevance)
	assert.Zero(t, update.Delta(counseling.DefaultConfig()))
}

func TestStageCompletionIntersectsWithRequirements(t *testing.T) {
	e := newEvaluator(&stubOracle{response: `{"satisfied": ["A", "B", "made-up requirement"]}`})
	stage := counseling.StageConfig{
		Id: counseling.Stage1, Name: "stage", Goal: "goal",
		Requirements: []string{"A", "B", "C"},
		Threshold:    3, MaxTurns: 5,
	}

	satisfied := e.StageCompletion(context.Background(), stage, nil)
	assert.Equal(t, []string{"A", "B"}, satisfied)
}

func TestStageCompletionReportsNothingOnOracleFailure(t *testing.T) {
	e := newEvaluator(&stubOracle{err: errors.New("model unavailable")})
	stage := counseling.StageConfig{Requirements: []string{"A"}}

	assert.Empty(t, e.StageCompletion(context.Background(), stage, nil))
}

func TestProfileCompleteDefaultsToFalse(t *testing.T) {
	e := newEvaluator(&stubOracle{err: errors.New("model unavailable")})
	assert.False(t, e.ProfileComplete(context.Background(), nil))

	e = newEvaluator(&stubOracle{response: `{"complete": true, "reason": "enough context"}`})
	assert.True(t, e.ProfileComplete(context.Background(), nil))
}
