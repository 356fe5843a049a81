package counseling_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-counseling-be/internal/entity"
	"ai-counseling-be/pkg/counseling"
)

func TestEnsureTopicKeepsExistingScore(t *testing.T) {
	s := counseling.NewSessionState("sess-1", "subject-1", counseling.ModeTraining)

	require.True(t, s.EnsureTopic("academic pressure", 5))
	s.AddTopicDelta("academic pressure", 2)

	// Re-adding an existing topic must not reset its score.
	require.False(t, s.EnsureTopic("academic pressure", 5))
	assert.Equal(t, 7, s.TopicScores["academic pressure"])
}

func TestBestTopicTieBreaksOnInsertionOrder(t *testing.T) {
	s := counseling.NewSessionState("sess-1", "subject-1", counseling.ModeTraining)
	s.EnsureTopic("family conflict", 5)
	s.EnsureTopic("sleep problems", 5)
	s.EnsureTopic("academic pressure", 5)

	assert.Equal(t, "family conflict", s.BestTopic())

	s.AddTopicDelta("academic pressure", 2)
	assert.Equal(t, "academic pressure", s.BestTopic())

	// Equal again after the others catch up: first inserted still wins.
	s.AddTopicDelta("family conflict", 2)
	s.AddTopicDelta("sleep problems", 2)
	assert.Equal(t, "family conflict", s.BestTopic())
}

func TestAddTopicDeltaIgnoresUnknownTopic(t *testing.T) {
	s := counseling.NewSessionState("sess-1", "subject-1", counseling.ModeTraining)
	s.AddTopicDelta("never registered", 2)
	assert.Empty(t, s.TopicScores)
}

func TestMarkRequirementsUnions(t *testing.T) {
	s := counseling.NewSessionState("sess-1", "subject-1", counseling.ModeTraining)

	s.MarkRequirements(counseling.Stage1, []string{"A", "B"})
	s.MarkRequirements(counseling.Stage1, []string{"B", "C"})

	assert.Equal(t, []string{"A", "B", "C"}, s.StageCompleted[counseling.Stage1])
}

func TestStageCompleteByThreshold(t *testing.T) {
	cfg := counseling.StageConfig{Threshold: 3, MaxTurns: 5}

	assert.False(t, cfg.Complete(2, []string{"A", "B"}))
	assert.True(t, cfg.Complete(3, []string{"A", "B", "C"}))
}

func TestStageCompleteByTurnBudget(t *testing.T) {
	cfg := counseling.StageConfig{Threshold: 3, MaxTurns: 5}

	// Only one requirement ever satisfied; the turn ceiling forces
	// completion anyway.
	assert.False(t, cfg.Complete(4, []string{"A"}))
	assert.True(t, cfg.Complete(5, []string{"A"}))
}

func TestAdvanceStageIsMonotonic(t *testing.T) {
	s := counseling.NewSessionState("sess-1", "subject-1", counseling.ModeLive)

	s.AdvanceStage(counseling.Stage2)
	assert.Equal(t, counseling.Stage2, s.CurrentStage)

	s.AdvanceStage(counseling.Stage1)
	assert.Equal(t, counseling.Stage2, s.CurrentStage)

	s.AdvanceStage(counseling.StageFinal)
	assert.Equal(t, counseling.StageFinal, s.CurrentStage)
}

func TestImprovement(t *testing.T) {
	pre := map[string]entity.ScaleResult{
		"ghq_20":   {Score: 12},
		"campbell": {Score: 8},
	}
	post := map[string]entity.ScaleResult{
		"ghq_20":   {Score: 7},
		"campbell": {Score: 6},
	}

	assert.Equal(t, 7, counseling.Improvement(pre, post))
	assert.Equal(t, -7, counseling.Improvement(post, pre))
}

func TestRecentDialogueWindow(t *testing.T) {
	s := counseling.NewSessionState("sess-1", "subject-1", counseling.ModeLive)
	for i := 0; i < 20; i++ {
		s.Append(counseling.RoleClient, "turn")
	}

	assert.Len(t, s.RecentDialogue(12), 12)
	assert.Len(t, s.RecentDialogue(0), 20)
}

func TestDefaultConfigStages(t *testing.T) {
	cfg := counseling.DefaultConfig()

	require.Len(t, cfg.Stages, 4)
	for _, st := range cfg.Stages {
		assert.NotEmpty(t, st.Requirements)
		assert.Greater(t, st.MaxTurns, 0)
	}
	assert.Equal(t, 5, cfg.Reward.InitialScore)
	assert.Equal(t, 2, cfg.Delta(counseling.RelevanceRelevant))
	assert.Equal(t, -1, cfg.Delta(counseling.RelevanceIrrelevant))
	assert.Equal(t, 0, cfg.Delta("unknown"))
}
