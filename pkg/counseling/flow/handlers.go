package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ai-counseling-be/internal/entity"
	"ai-counseling-be/pkg/counseling"
)

// fallbackTopic anchors a session when no portrait-derived topic exists,
// e.g. in the no-profiler graph variant.
const fallbackTopic = "general_wellbeing"

func (c *Controller) initialize(ctx context.Context, state *counseling.SessionState) (*counseling.SessionState, error) {
	if state.Mode == counseling.ModeTraining {
		if state.Phase == counseling.PhaseCompleted {
			// Looped back for the next student in the roster.
			state.StudentIndex++
			c.resetForNextSubject(state)
		}
		if state.StudentIndex >= len(c.roster) {
			return state, fmt.Errorf("student index %d out of roster range", state.StudentIndex)
		}
		subject := c.roster[state.StudentIndex]
		state.SubjectId = subject.Id
		state.SubjectInfo = subject.Info
	}
	state.Phase = counseling.PhaseCounseling
	state.CurrentStage = counseling.StageProfiling
	return state, nil
}

// resetForNextSubject clears per-student state while keeping what persists
// across the roster: the topic pool and its one-shot initialization guard.
func (c *Controller) resetForNextSubject(state *counseling.SessionState) {
	state.Dialogue = nil
	state.SharedMemory = map[string]interface{}{}
	state.SupervisorMemory = map[string]interface{}{}
	state.Portrait = map[string]interface{}{}
	state.InitialScales = map[string]entity.ScaleResult{}
	state.FinalScales = map[string]entity.ScaleResult{}
	state.ImprovementScore = 0
	state.StageTurns = map[string]int{}
	state.StageCompleted = map[string][]string{}
	state.StageDone = map[string]bool{}
	state.ProfileTurns = 0
	state.ProfileDone = false
	state.SelectedTherapy = ""
	state.EvaluationResult = ""
	state.MedicalRecordId = ""
	state.Finalized = false
	state.CurrentStage = counseling.StageProfiling
}

func (c *Controller) greet(ctx context.Context, state *counseling.SessionState) (*counseling.SessionState, error) {
	greeting, err := c.agents.Greet(ctx, state)
	if err != nil {
		return state, fmt.Errorf("greet: %w", err)
	}
	state.Append(counseling.RoleTherapist, greeting)

	reply, err := c.client.Reply(ctx, state, greeting)
	if err != nil {
		return state, fmt.Errorf("greet reply: %w", err)
	}
	state.Append(counseling.RoleClient, reply)
	return state, nil
}

func (c *Controller) initialScale(ctx context.Context, state *counseling.SessionState) (*counseling.SessionState, error) {
	results, err := c.administerScales(ctx, state)
	if err != nil {
		return state, fmt.Errorf("initial scales: %w", err)
	}
	state.InitialScales = results
	return state, nil
}

func (c *Controller) finalScale(ctx context.Context, state *counseling.SessionState) (*counseling.SessionState, error) {
	results, err := c.administerScales(ctx, state)
	if err != nil {
		return state, fmt.Errorf("final scales: %w", err)
	}
	state.FinalScales = results
	state.AdvanceStage(counseling.StageFinal)
	return state, nil
}

func (c *Controller) administerScales(ctx context.Context, state *counseling.SessionState) (map[string]entity.ScaleResult, error) {
	results := make(map[string]entity.ScaleResult, len(Scales))
	for _, scale := range Scales {
		question := ScaleQuestion(scale)
		state.Append(counseling.RoleTherapist, question)
		answer, err := c.client.Reply(ctx, state, question)
		if err != nil {
			return nil, fmt.Errorf("scale %s: %w", scale, err)
		}
		state.Append(counseling.RoleClient, answer)
		results[scale] = c.agents.ScoreScale(ctx, scale, answer)
	}
	return results, nil
}

func (c *Controller) profile(ctx context.Context, state *counseling.SessionState) (*counseling.SessionState, error) {
	question, err := c.agents.ProfilerAsk(ctx, state)
	if err != nil {
		return state, fmt.Errorf("profiler: %w", err)
	}
	state.Append(counseling.RoleProfiler, question)

	reply, err := c.client.Reply(ctx, state, question)
	if err != nil {
		return state, fmt.Errorf("profiler reply: %w", err)
	}
	state.Append(counseling.RoleClient, reply)

	state.ProfileTurns++
	if state.ProfileTurns >= c.cfg.ProfileMaxTurns ||
		c.eval.ProfileComplete(ctx, state.RecentDialogue(c.cfg.DialogueWindow)) {
		state.ProfileDone = true
	}
	return state, nil
}

func (c *Controller) createPortrait(ctx context.Context, state *counseling.SessionState) (*counseling.SessionState, error) {
	portrait, err := c.agents.SynthesizePortrait(ctx, state)
	if err != nil {
		c.log.Warn("flow.controller", "portrait synthesis failed, continuing without", map[string]interface{}{
			"session_id": state.SessionId,
			"error":      err.Error(),
		})
		return state, nil
	}
	state.Portrait = portrait
	return state, nil
}

func (c *Controller) selectTherapist(ctx context.Context, state *counseling.SessionState) (*counseling.SessionState, error) {
	if state.Mode == counseling.ModeTraining {
		// Rotate through the configured modalities so each therapist
		// trains on its share of the roster.
		state.SelectedTherapy = c.modalities[state.StudentIndex%len(c.modalities)]
	} else {
		state.SelectedTherapy = c.agents.SelectTherapist(ctx, state, c.modalities)
	}
	return state, nil
}

func (c *Controller) initTopics(ctx context.Context, state *counseling.SessionState) (*counseling.SessionState, error) {
	// One-shot: the topic pool survives roster loop-backs so scores
	// learned on earlier students keep steering selection.
	if !state.TopicsInitialized {
		seed := fallbackTopic
		if t, ok := state.Portrait["core_topic"].(string); ok && t != "" {
			seed = t
		}
		state.EnsureTopic(seed, c.cfg.Reward.InitialScore)
		state.TopicsInitialized = true
	} else if t, ok := state.Portrait["core_topic"].(string); ok && t != "" {
		// A later student may surface a topic the pool has not seen.
		state.EnsureTopic(t, c.cfg.Reward.InitialScore)
	}
	state.CoreTopic = state.BestTopic()
	return state, nil
}

// stageHandler returns the handler driving one therapy stage turn:
// supervisor advice, therapist utterance, client reply, then topic scoring
// and completion evaluation.
func (c *Controller) stageHandler(stage counseling.StageConfig) func(context.Context, *counseling.SessionState) (*counseling.SessionState, error) {
	return func(ctx context.Context, state *counseling.SessionState) (*counseling.SessionState, error) {
		if state.StageTurns[stage.Id] == 0 {
			state.AdvanceStage(stage.Id)
			// Re-select the working topic at each stage boundary.
			state.CoreTopic = state.BestTopic()
		}

		c.agents.SupervisorAdvise(ctx, state, stage)

		utterance, err := c.agents.TherapistSpeak(ctx, state, stage)
		if err != nil {
			return state, fmt.Errorf("therapist (%s): %w", stage.Id, err)
		}
		state.Append(counseling.RoleTherapist, utterance)

		reply, err := c.client.Reply(ctx, state, utterance)
		if err != nil {
			return state, fmt.Errorf("client reply (%s): %w", stage.Id, err)
		}
		state.Append(counseling.RoleClient, reply)

		update := c.eval.ScoreTopic(ctx, state.CoreTopic, reply)
		state.AddTopicDelta(update.Topic, update.Delta(c.cfg))
		if update.NewTopic != "" {
			state.EnsureTopic(update.NewTopic, c.cfg.Reward.InitialScore)
		}

		satisfied := c.eval.StageCompletion(ctx, stage, state.RecentDialogue(c.cfg.DialogueWindow))
		state.MarkRequirements(stage.Id, satisfied)

		state.StageTurns[stage.Id]++
		if stage.Complete(state.StageTurns[stage.Id], state.StageCompleted[stage.Id]) {
			state.SetStageDone(stage.Id)
		}
		return state, nil
	}
}

func (c *Controller) evaluate(ctx context.Context, state *counseling.SessionState) (*counseling.SessionState, error) {
	state.ImprovementScore = counseling.Improvement(state.InitialScales, state.FinalScales)
	state.TotalImprovement += state.ImprovementScore

	evaluation := c.agents.EvaluateSession(ctx, state)
	state.EvaluationResult = evaluation.Summary
	state.SharedMemory["diagnoses"] = evaluation.Diagnoses
	state.SharedMemory["outcome"] = evaluation.Outcome
	state.SharedMemory["plan"] = evaluation.Plan
	return state, nil
}

func (c *Controller) updateSkills(ctx context.Context, state *counseling.SessionState) (*counseling.SessionState, error) {
	if c.skills == nil {
		return state, nil
	}
	extraction := c.agents.ExtractSkills(ctx, state)
	for _, content := range extraction.ProfilerSkills {
		skill := entity.SkillMemory{
			Id:        uuid.New().String(),
			Content:   content,
			OwnerRole: entity.OwnerProfiler,
			CreatedAt: time.Now(),
		}
		if err := c.skills.Put(ctx, &skill); err != nil {
			c.log.Warn("flow.controller", "profiler skill not persisted", map[string]interface{}{
				"session_id": state.SessionId,
				"error":      err.Error(),
			})
		}
	}
	for _, content := range extraction.TherapistSkills {
		skill := entity.SkillMemory{
			Id:          uuid.New().String(),
			Content:     content,
			OwnerRole:   entity.OwnerTherapist,
			TherapyType: state.SelectedTherapy,
			CreatedAt:   time.Now(),
		}
		if err := c.skills.Put(ctx, &skill); err != nil {
			c.log.Warn("flow.controller", "therapist skill not persisted", map[string]interface{}{
				"session_id": state.SessionId,
				"error":      err.Error(),
			})
		}
	}
	return state, nil
}

func (c *Controller) saveRecord(ctx context.Context, state *counseling.SessionState) (*counseling.SessionState, error) {
	if c.records == nil {
		return state, nil
	}
	diagnoses, _ := state.SharedMemory["diagnoses"].([]string)
	record := entity.MedicalRecord{
		TherapyType:    state.SelectedTherapy,
		Diagnoses:      diagnoses,
		Plan:           map[string]interface{}{"follow_up": state.SharedMemory["plan"]},
		ProcessSummary: state.EvaluationResult,
		Outcome: map[string]interface{}{
			"result":            state.SharedMemory["outcome"],
			"improvement_score": state.ImprovementScore,
		},
		PreScales:        state.InitialScales,
		PostScales:       state.FinalScales,
		ImprovementScore: state.ImprovementScore,
	}
	recordId, err := c.records.Create(ctx, state.SubjectId, &record)
	if err != nil {
		return state, fmt.Errorf("save record: %w", err)
	}
	state.MedicalRecordId = recordId

	if c.features != nil {
		for _, feature := range c.agents.ExtractFeatures(ctx, state) {
			if _, err := c.features.Create(ctx, state.SubjectId, feature, recordId); err != nil {
				c.log.Warn("flow.controller", "feature vector not persisted", map[string]interface{}{
					"session_id": state.SessionId,
					"error":      err.Error(),
				})
			}
		}
	}
	return state, nil
}

func (c *Controller) finalize(ctx context.Context, state *counseling.SessionState) (*counseling.SessionState, error) {
	state.Phase = counseling.PhaseCompleted
	state.Finalized = true
	return state, nil
}

func (c *Controller) done(ctx context.Context, state *counseling.SessionState) (*counseling.SessionState, error) {
	return state, nil
}
