package flow_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-counseling-be/internal/pkg/logger"
	"ai-counseling-be/internal/repository/contract"
	"ai-counseling-be/internal/repository/implementation"
	memstore "ai-counseling-be/internal/repository/memory"
	"ai-counseling-be/pkg/counseling"
	"ai-counseling-be/pkg/counseling/evaluator"
	"ai-counseling-be/pkg/counseling/flow"
	"ai-counseling-be/pkg/oracle"
)

// scriptedOracle answers each structured prompt shape with deterministic
// JSON so full workflow runs are reproducible.
type scriptedOracle struct {
	mu              sync.Mutex
	completionCalls int
	scaleCalls      int
	// completion maps the nth completion check to the satisfied set.
	completion func(call int) []string
	// scaleScore maps the nth scale scoring call to its severity score.
	scaleScore func(call int) int
	relevance  string
	newTopic   string
}

func (o *scriptedOracle) Generate(ctx context.Context, prompt string, opts ...oracle.Option) (string, error) {
	return "Let's keep talking about that.", nil
}

func (o *scriptedOracle) GenerateStructured(ctx context.Context, prompt string, out any, opts ...oracle.Option) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	respond := func(v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, out)
	}

	switch {
	case strings.Contains(prompt, `"satisfied"`):
		o.completionCalls++
		satisfied := []string{}
		if o.completion != nil {
			satisfied = o.completion(o.completionCalls)
		}
		return respond(map[string]any{"satisfied": satisfied})
	case strings.Contains(prompt, `"relevance"`):
		relevance := o.relevance
		if relevance == "" {
			relevance = counseling.RelevanceRelevant
		}
		return respond(map[string]any{"relevance": relevance, "new_topic": o.newTopic})
	case strings.Contains(prompt, "Has the profiler"):
		return respond(map[string]any{"complete": true})
	case strings.Contains(prompt, `"main_concern"`):
		return respond(map[string]any{
			"main_concern":    "exam anxiety",
			"emotional_state": "tense",
			"background":      "final year student",
			"strengths":       "motivated",
			"core_topic":      "academic pressure",
		})
	case strings.Contains(prompt, "severity scale"):
		o.scaleCalls++
		score := 4
		if o.scaleScore != nil {
			score = o.scaleScore(o.scaleCalls)
		}
		return respond(map[string]any{"score": score, "assessment": "moderate strain"})
	case strings.Contains(prompt, `"therapy_type"`):
		return respond(map[string]any{"therapy_type": "cognitive_behavioral", "reason": "fits"})
	case strings.Contains(prompt, `"diagnoses"`):
		return respond(map[string]any{
			"summary":   "worked through exam anxiety",
			"diagnoses": []string{"adjustment stress"},
			"outcome":   "calmer",
			"plan":      "weekly check-in",
		})
	case strings.Contains(prompt, `"profiler_skills"`):
		return respond(map[string]any{
			"profiler_skills":  []string{"ask about sleep early"},
			"therapist_skills": []string{"tie challenges to recent events"},
		})
	case strings.Contains(prompt, `"features"`):
		return respond(map[string]any{"features": []string{"responds well to concrete examples"}})
	}
	return respond(map[string]any{})
}

type stubClient struct{}

func (stubClient) Reply(ctx context.Context, state *counseling.SessionState, utterance string) (string, error) {
	return "I have been stressed about my exams lately.", nil
}

type stubEmbedder struct{}

func (stubEmbedder) Generate(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.6, 0.8}, nil
}

// memSessionRepo records every per-step save for assertions.
type memSessionRepo struct {
	mu     sync.Mutex
	stages []string
}

func (r *memSessionRepo) Save(ctx context.Context, state *counseling.SessionState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, state.CurrentStage)
	return nil
}

func (r *memSessionRepo) Get(ctx context.Context, sessionId string) (*counseling.SessionState, error) {
	return nil, nil
}

func (r *memSessionRepo) ListForSubject(ctx context.Context, subjectId string) ([]contract.SessionSummary, error) {
	return nil, nil
}

// failingSessionRepo rejects every save, as a repository does when the
// primary store is unreachable.
type failingSessionRepo struct{}

func (failingSessionRepo) Save(ctx context.Context, state *counseling.SessionState) error {
	return errors.New("primary store unreachable")
}

func (failingSessionRepo) Get(ctx context.Context, sessionId string) (*counseling.SessionState, error) {
	return nil, nil
}

func (failingSessionRepo) ListForSubject(ctx context.Context, subjectId string) ([]contract.SessionSummary, error) {
	return nil, nil
}

func singleStageConfig(threshold, maxTurns int) counseling.FlowConfig {
	cfg := counseling.DefaultConfig()
	cfg.Stages = []counseling.StageConfig{{
		Id:           counseling.Stage1,
		Name:         "Identify automatic thoughts",
		Goal:         "surface the automatic thought",
		Requirements: []string{"A", "B", "C"},
		Threshold:    threshold,
		MaxTurns:     maxTurns,
	}}
	return cfg
}

func testParams(o *scriptedOracle, cfg counseling.FlowConfig, caps counseling.Capabilities, roster []flow.Subject) flow.ControllerParams {
	log := logger.NewNopLogger()
	primary := memstore.NewDocumentStore()
	secondary := memstore.NewVectorStore()
	index := memstore.NewVectorIndex()
	embedder := stubEmbedder{}

	return flow.ControllerParams{
		Agents:     flow.NewAgents(o, implementation.NewSkillMemoryRepository(primary, secondary, embedder, log), caps, log),
		Evaluator:  evaluator.New(o, cfg, log),
		Client:     stubClient{},
		Sessions:   &memSessionRepo{},
		Records:    implementation.NewMedicalRecordRepository(primary, secondary, embedder, log),
		Features:   implementation.NewFeatureVectorRepository(primary, secondary, index, embedder, log),
		Skills:     implementation.NewSkillMemoryRepository(primary, secondary, embedder, log),
		Config:     cfg,
		Caps:       caps,
		Modalities: []string{"cognitive_behavioral"},
		Roster:     roster,
		Logger:     log,
	}
}

func TestStageCompletesAtThresholdBeforeTurnBudget(t *testing.T) {
	o := &scriptedOracle{
		completion: func(call int) []string {
			// Turn 1: {A}, turn 2: {A,B}, turn 3: {A,B,C}.
			return []string{"A", "B", "C"}[:min(call, 3)]
		},
	}
	params := testParams(o, singleStageConfig(3, 5), counseling.FullCapabilities(), []flow.Subject{{Id: "student-1"}})

	state, err := flow.RunTraining(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, 3, state.StageTurns[counseling.Stage1])
	assert.True(t, state.StageDone[counseling.Stage1])
	assert.ElementsMatch(t, []string{"A", "B", "C"}, state.StageCompleted[counseling.Stage1])
}

func TestStageForceCompletesAtTurnBudget(t *testing.T) {
	o := &scriptedOracle{
		completion: func(call int) []string { return []string{"A"} },
	}
	params := testParams(o, singleStageConfig(3, 5), counseling.FullCapabilities(), []flow.Subject{{Id: "student-1"}})

	state, err := flow.RunTraining(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, 5, state.StageTurns[counseling.Stage1])
	assert.True(t, state.StageDone[counseling.Stage1])
	assert.Equal(t, []string{"A"}, state.StageCompleted[counseling.Stage1])
}

func TestStageSequenceIsMonotonic(t *testing.T) {
	o := &scriptedOracle{
		completion: func(call int) []string { return []string{"A", "B", "C"} },
	}
	cfg := counseling.DefaultConfig()
	for i := range cfg.Stages {
		cfg.Stages[i].Requirements = []string{"A", "B", "C"}
	}
	params := testParams(o, cfg, counseling.FullCapabilities(), []flow.Subject{{Id: "student-1"}})
	sessions := &memSessionRepo{}
	params.Sessions = sessions

	state, err := flow.RunTraining(context.Background(), params)
	require.NoError(t, err)
	assert.True(t, state.Finalized)

	prev := 0
	for _, stage := range sessions.stages {
		rank := counseling.StageRank(stage)
		assert.GreaterOrEqual(t, rank, prev, "stage sequence regressed at %s", stage)
		prev = rank
	}
	assert.Equal(t, counseling.StageFinal, state.CurrentStage)
}

func TestSessionProducesRecordSkillsAndFeatures(t *testing.T) {
	o := &scriptedOracle{
		completion: func(call int) []string { return []string{"A", "B", "C"} },
	}
	params := testParams(o, singleStageConfig(3, 5), counseling.FullCapabilities(), []flow.Subject{{Id: "student-1"}})

	state, err := flow.RunTraining(context.Background(), params)
	require.NoError(t, err)

	require.NotEmpty(t, state.MedicalRecordId)
	ctx := context.Background()

	record, err := params.Records.Get(ctx, state.MedicalRecordId)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "student-1", record.SubjectId)
	assert.Equal(t, state.ImprovementScore, record.ImprovementScore)

	skills, err := params.Skills.Get(ctx, contract.SkillQuery{OwnerRole: "profiler", Limit: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, skills)

	features, err := params.Features.ListForSubject(ctx, "student-1")
	require.NoError(t, err)
	assert.NotEmpty(t, features)
}

func TestTrainingLoopsOverRosterAndKeepsTopicPool(t *testing.T) {
	o := &scriptedOracle{
		completion: func(call int) []string { return []string{"A", "B", "C"} },
		// Each administration covers three scales: pre-therapy answers score
		// 6, post-therapy answers score 4, for every student.
		scaleScore: func(call int) int {
			if ((call-1)/3)%2 == 0 {
				return 6
			}
			return 4
		},
	}
	roster := []flow.Subject{{Id: "student-1"}, {Id: "student-2"}}
	params := testParams(o, singleStageConfig(3, 5), counseling.FullCapabilities(), roster)

	state, err := flow.RunTraining(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, 1, state.StudentIndex)
	assert.Equal(t, "student-2", state.SubjectId)
	assert.True(t, state.TopicsInitialized)
	// Relevant replies accumulated reward across both students.
	assert.Greater(t, state.TopicScores["academic pressure"], counseling.DefaultConfig().Reward.InitialScore)

	// ImprovementScore is per student; the total spans the whole roster.
	assert.Equal(t, 6, state.ImprovementScore)
	assert.Equal(t, 12, state.TotalImprovement)

	for _, subject := range []string{"student-1", "student-2"} {
		records, err := params.Records.ListForSubject(context.Background(), subject)
		require.NoError(t, err)
		assert.Len(t, records, 1, "subject %s", subject)
	}
}

func TestNoProfilerVariantSkipsPortrait(t *testing.T) {
	o := &scriptedOracle{
		completion: func(call int) []string { return []string{"A", "B", "C"} },
	}
	caps := counseling.Capabilities{Profiler: false, Memory: true}
	params := testParams(o, singleStageConfig(3, 5), caps, []flow.Subject{{Id: "student-1"}})

	state, err := flow.RunTraining(context.Background(), params)
	require.NoError(t, err)

	assert.True(t, state.Finalized)
	assert.Empty(t, state.Portrait)
	assert.Zero(t, state.ProfileTurns)
	// Without a portrait the topic pool seeds from the fallback.
	assert.Contains(t, state.TopicOrder, "general_wellbeing")
}

func TestRunAbortsWhenSessionPersistenceFails(t *testing.T) {
	o := &scriptedOracle{
		completion: func(call int) []string { return []string{"A", "B", "C"} },
	}
	params := testParams(o, singleStageConfig(3, 5), counseling.FullCapabilities(), []flow.Subject{{Id: "student-1"}})
	params.Sessions = failingSessionRepo{}

	state, err := flow.RunTraining(context.Background(), params)
	require.Error(t, err)
	require.NotNil(t, state)
	assert.False(t, state.Finalized)
}

func TestNoMemoryVariantSkipsWorkingMemoryUpdates(t *testing.T) {
	o := &scriptedOracle{
		completion: func(call int) []string { return []string{"A", "B", "C"} },
	}
	caps := counseling.Capabilities{Profiler: true, Memory: false}
	params := testParams(o, singleStageConfig(3, 5), caps, []flow.Subject{{Id: "student-1"}})

	state, err := flow.RunTraining(context.Background(), params)
	require.NoError(t, err)

	assert.True(t, state.Finalized)
	assert.Empty(t, state.SupervisorMemory)

	skills, err := params.Skills.Get(context.Background(), contract.SkillQuery{OwnerRole: "profiler", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, skills)
}

func TestRunnerBridgesPromptsToReplies(t *testing.T) {
	o := &scriptedOracle{
		completion: func(call int) []string { return []string{"A", "B", "C"} },
	}
	cfg := singleStageConfig(1, 3)
	caps := counseling.Capabilities{Profiler: false, Memory: false}
	params := testParams(o, cfg, caps, nil)

	runner := flow.NewRunner()
	params.Client = runner
	controller, err := flow.NewController(params)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	state := counseling.NewSessionState("live-1", "subject-live", counseling.ModeLive)
	runner.Start(ctx, controller, state)

	var final *counseling.SessionState
	for event := range runner.Events() {
		switch event.Type {
		case flow.EventPrompt:
			assert.NotEmpty(t, event.Output)
			require.NoError(t, runner.SubmitReply(ctx, "okay, that makes sense"))
		case flow.EventDone:
			final = event.State
		case flow.EventError:
			t.Fatalf("run failed: %v", event.Err)
		}
	}

	require.NotNil(t, final)
	assert.True(t, final.Finalized)
	assert.Equal(t, counseling.StageFinal, final.CurrentStage)
}

func TestSubmitReplyAfterRunEndReturnsRunEnded(t *testing.T) {
	o := &scriptedOracle{}
	caps := counseling.Capabilities{Profiler: false, Memory: false}
	params := testParams(o, singleStageConfig(1, 3), caps, nil)
	// A failing save ends the run at its first step, before any prompt.
	params.Sessions = failingSessionRepo{}

	runner := flow.NewRunner()
	params.Client = runner
	controller, err := flow.NewController(params)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	runner.Start(ctx, controller, counseling.NewSessionState("live-2", "subject-live", counseling.ModeLive))

	require.ErrorIs(t, runner.SubmitReply(ctx, "hello?"), flow.ErrRunEnded)

	event := <-runner.Events()
	assert.Equal(t, flow.EventError, event.Type)
	assert.Error(t, event.Err)
}
