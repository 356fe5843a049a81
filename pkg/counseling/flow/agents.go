package flow

import (
	"context"
	"fmt"
	"strings"

	"ai-counseling-be/internal/entity"
	"ai-counseling-be/internal/pkg/logger"
	"ai-counseling-be/internal/repository/contract"
	"ai-counseling-be/pkg/counseling"
	"ai-counseling-be/pkg/oracle"
)

// Scale identifiers administered before and after therapy.
const (
	ScaleGeneralHealth = "ghq_20"
	ScaleWellbeing     = "campbell_wellbeing"
	ScaleStress        = "cpss"
)

// Scales lists every administered scale in order.
var Scales = []string{ScaleGeneralHealth, ScaleWellbeing, ScaleStress}

var scaleQuestions = map[string]string{
	ScaleGeneralHealth: "Over the past few weeks, how has your general health been: sleep, concentration, feeling under strain, ability to face problems?",
	ScaleWellbeing:     "Taking your life as a whole right now, how satisfied or dissatisfied do you feel with it?",
	ScaleStress:        "In the last month, how often have you felt unable to control the important things in your life, or felt difficulties piling up too high to overcome?",
}

// Agents holds the oracle-backed counseling roles. Skill retrieval is only
// consulted when the memory capability is on.
type Agents struct {
	oracle oracle.Oracle
	skills contract.SkillMemoryRepository
	caps   counseling.Capabilities
	log    logger.ILogger
}

func NewAgents(o oracle.Oracle, skills contract.SkillMemoryRepository, caps counseling.Capabilities, log logger.ILogger) *Agents {
	return &Agents{oracle: o, skills: skills, caps: caps, log: log}
}

func (a *Agents) retrieveSkills(ctx context.Context, q contract.SkillQuery) string {
	if !a.caps.Memory || a.skills == nil {
		return ""
	}
	skills, err := a.skills.Get(ctx, q)
	if err != nil {
		a.log.Warn("flow.agents", "skill retrieval failed, continuing without", map[string]interface{}{
			"owner_role": q.OwnerRole,
			"error":      err.Error(),
		})
		return ""
	}
	if len(skills) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Techniques from past sessions:\n")
	for _, skill := range skills {
		fmt.Fprintf(&b, "- %s\n", skill.Content)
	}
	return b.String()
}

// Greet opens the session.
func (a *Agents) Greet(ctx context.Context, state *counseling.SessionState) (string, error) {
	prompt := fmt.Sprintf(`You are a school counselor opening a session with a student client.
%s
Greet them warmly in one or two sentences and invite them to share what brings them here.`,
		subjectInfoBlock(state))
	return a.oracle.Generate(ctx, prompt)
}

// ProfilerAsk produces the next information-gathering question.
func (a *Agents) ProfilerAsk(ctx context.Context, state *counseling.SessionState) (string, error) {
	techniques := a.retrieveSkills(ctx, contract.SkillQuery{
		OwnerRole: entity.OwnerProfiler,
		QueryText: state.LastClientUtterance(),
		Limit:     3,
	})
	prompt := fmt.Sprintf(`You are the profiler in a counseling session, gathering what is needed to understand the client: their situation, main concern, and emotional state.
%s%s
Dialogue so far:
%s
Ask the single most useful next question. Respond with the question only.`,
		subjectInfoBlock(state), techniques,
		transcript(state.RecentDialogue(12)))
	return a.oracle.Generate(ctx, prompt)
}

// SynthesizePortrait condenses the profiling dialogue into a portrait.
func (a *Agents) SynthesizePortrait(ctx context.Context, state *counseling.SessionState) (map[string]interface{}, error) {
	prompt := fmt.Sprintf(`Summarize the client from this profiling dialogue.

%s
Respond as JSON: {"main_concern": "...", "emotional_state": "...", "background": "...", "strengths": "...", "core_topic": "<the single concern therapy should center on>"}`,
		transcript(state.Dialogue))

	var portrait map[string]interface{}
	if err := a.oracle.GenerateStructured(ctx, prompt, &portrait); err != nil {
		return nil, err
	}
	return portrait, nil
}

type scaleJudgment struct {
	Score      int    `json:"score"`
	Assessment string `json:"assessment"`
}

// ScaleQuestion returns the question text administered for a scale.
func ScaleQuestion(scale string) string {
	return scaleQuestions[scale]
}

// ScoreScale converts the client's free-text answer into a scale result.
// Lower scores denote a better state. On oracle failure a neutral midpoint
// is recorded so the session can proceed.
func (a *Agents) ScoreScale(ctx context.Context, scale, answer string) entity.ScaleResult {
	prompt := fmt.Sprintf(`A client answered a screening question.
Question: %s
Answer: %q

Rate the answer on a 0-10 severity scale where 0 means no distress and 10 means severe distress, with a one-sentence assessment.
Respond as JSON: {"score": <0-10>, "assessment": "..."}`,
		scaleQuestions[scale], answer)

	judgment, ok := oracle.StructuredOrDefault(ctx, a.oracle, prompt, scaleJudgment{Score: 5, Assessment: "not assessed"})
	if !ok {
		a.log.Warn("flow.agents", "scale scoring degraded to midpoint", map[string]interface{}{"scale": scale})
	}
	if judgment.Score < 0 {
		judgment.Score = 0
	}
	if judgment.Score > 10 {
		judgment.Score = 10
	}
	return entity.ScaleResult{Score: judgment.Score, Assessment: judgment.Assessment}
}

type therapistChoice struct {
	TherapyType string `json:"therapy_type"`
	Reason      string `json:"reason"`
}

// SelectTherapist picks the modality best suited to the portrait. Falls
// back to the first configured modality.
func (a *Agents) SelectTherapist(ctx context.Context, state *counseling.SessionState, modalities []string) string {
	if len(modalities) == 1 {
		return modalities[0]
	}
	prompt := fmt.Sprintf(`Given this client portrait, pick the best-suited therapy modality from: %s.

Portrait: %v

Respond as JSON: {"therapy_type": "<one of the listed modalities>", "reason": "..."}`,
		strings.Join(modalities, ", "), state.Portrait)

	choice, _ := oracle.StructuredOrDefault(ctx, a.oracle, prompt, therapistChoice{TherapyType: modalities[0]})
	for _, m := range modalities {
		if choice.TherapyType == m {
			return m
		}
	}
	return modalities[0]
}

// SupervisorAdvise reviews the recent exchange and leaves guidance for the
// therapist in the supervisor memory. In the without-memory variant all
// working memories stay in their initial state, so nothing is written.
func (a *Agents) SupervisorAdvise(ctx context.Context, state *counseling.SessionState, stage counseling.StageConfig) {
	if !a.caps.Memory {
		return
	}
	prompt := fmt.Sprintf(`You supervise a counseling session in the stage %q (goal: %s). Working topic: %q.

Recent dialogue:
%s
In one or two sentences, advise the therapist on what to do next.`,
		stage.Name, stage.Goal, state.CoreTopic,
		transcript(state.RecentDialogue(8)))

	advice, err := a.oracle.Generate(ctx, prompt)
	if err != nil {
		a.log.Warn("flow.agents", "supervisor advice unavailable", map[string]interface{}{
			"stage": stage.Id,
			"error": err.Error(),
		})
		return
	}
	state.SupervisorMemory[stage.Id] = advice
}

// TherapistSpeak produces the therapist's next utterance for a stage.
func (a *Agents) TherapistSpeak(ctx context.Context, state *counseling.SessionState, stage counseling.StageConfig) (string, error) {
	techniques := a.retrieveSkills(ctx, contract.SkillQuery{
		OwnerRole:   entity.OwnerTherapist,
		TherapyType: state.SelectedTherapy,
		QueryText:   state.CoreTopic,
		Limit:       3,
	})
	advice, _ := state.SupervisorMemory[stage.Id].(string)
	if advice != "" {
		advice = "Supervisor's advice: " + advice + "\n"
	}
	prompt := fmt.Sprintf(`You are a therapist in the stage %q (goal: %s). Working topic: %q.
%s%s%s
Dialogue so far:
%s
Say the single most helpful next thing to the client. Respond with the utterance only.`,
		stage.Name, stage.Goal, state.CoreTopic,
		subjectInfoBlock(state), techniques, advice,
		transcript(state.RecentDialogue(12)))
	return a.oracle.Generate(ctx, prompt)
}

type sessionEvaluation struct {
	Summary   string   `json:"summary"`
	Diagnoses []string `json:"diagnoses"`
	Outcome   string   `json:"outcome"`
	Plan      string   `json:"plan"`
}

// EvaluateSession produces the closing evaluation used to build the record.
func (a *Agents) EvaluateSession(ctx context.Context, state *counseling.SessionState) sessionEvaluation {
	prompt := fmt.Sprintf(`Evaluate this completed counseling session. Working topic: %q.

%s
Respond as JSON: {"summary": "<process summary>", "diagnoses": ["..."], "outcome": "<how the client is leaving>", "plan": "<follow-up plan>"}`,
		state.CoreTopic, transcript(state.Dialogue))

	evaluation, ok := oracle.StructuredOrDefault(ctx, a.oracle, prompt, sessionEvaluation{
		Summary: "session completed without closing evaluation",
		Outcome: "unknown",
	})
	if !ok {
		a.log.Warn("flow.agents", "session evaluation degraded to defaults", map[string]interface{}{
			"session_id": state.SessionId,
		})
	}
	return evaluation
}

type skillExtraction struct {
	ProfilerSkills  []string `json:"profiler_skills"`
	TherapistSkills []string `json:"therapist_skills"`
}

// ExtractSkills distills reusable techniques from the finished session.
func (a *Agents) ExtractSkills(ctx context.Context, state *counseling.SessionState) skillExtraction {
	prompt := fmt.Sprintf(`From this finished counseling session, distill reusable techniques: what worked when gathering information, and what worked therapeutically. Working topic: %q, improvement score: %d.

%s
Respond as JSON: {"profiler_skills": ["<technique>", ...], "therapist_skills": ["<technique>", ...]}`,
		state.CoreTopic, state.ImprovementScore, transcript(state.Dialogue))

	extraction, _ := oracle.StructuredOrDefault(ctx, a.oracle, prompt, skillExtraction{})
	return extraction
}

type featureExtraction struct {
	Features []string `json:"features"`
}

// ExtractFeatures distills the client's notable characteristics for the
// feature-vector store.
func (a *Agents) ExtractFeatures(ctx context.Context, state *counseling.SessionState) []string {
	prompt := fmt.Sprintf(`From this counseling session, list up to three short factual characteristics of the client worth remembering across sessions.

%s
Respond as JSON: {"features": ["<characteristic>", ...]}`,
		transcript(state.Dialogue))

	extraction, _ := oracle.StructuredOrDefault(ctx, a.oracle, prompt, featureExtraction{})
	return extraction.Features
}

func subjectInfoBlock(state *counseling.SessionState) string {
	if len(state.SubjectInfo) == 0 {
		return ""
	}
	return fmt.Sprintf("Client background: %v\n", state.SubjectInfo)
}

func transcript(dialogue []counseling.DialogueTurn) string {
	var b strings.Builder
	for _, turn := range dialogue {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
	}
	return b.String()
}
