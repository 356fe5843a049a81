// Package evaluator wraps oracle judgments into the typed decisions the
// workflow consumes: topic relevance scoring, stage-completion checks, and
// profiling sufficiency. Every judgment degrades to a neutral default when
// the oracle fails, so a flaky model never aborts a session.
package evaluator

import (
	"context"
	"fmt"
	"strings"

	"ai-counseling-be/internal/pkg/logger"
	"ai-counseling-be/pkg/counseling"
	"ai-counseling-be/pkg/oracle"
)

type Evaluator struct {
	oracle oracle.Oracle
	cfg    counseling.FlowConfig
	log    logger.ILogger
}

func New(o oracle.Oracle, cfg counseling.FlowConfig, log logger.ILogger) *Evaluator {
	return &Evaluator{oracle: o, cfg: cfg, log: log}
}

// ScoreUpdate is one relevance judgment over the client's latest utterance.
// NewTopic is set when the utterance surfaced a topic not yet tracked.
type ScoreUpdate struct {
	Topic     string `json:"topic"`
	Relevance string `json:"relevance"`
	NewTopic  string `json:"new_topic,omitempty"`
}

// Delta translates the judgment into its additive score change.
func (u ScoreUpdate) Delta(cfg counseling.FlowConfig) int {
	return cfg.Delta(u.Relevance)
}

// ScoreTopic judges how relevant the client's latest utterance is to the
// given topic. On oracle failure the judgment carries no relevance label,
// which the reward table maps to a zero delta: the score stays unchanged.
func (e *Evaluator) ScoreTopic(ctx context.Context, topic, utterance string) ScoreUpdate {
	prompt := fmt.Sprintf(`You observe a counseling conversation. The working topic is %q.
The client just said: %q

Judge how relevant the client's utterance is to the working topic. If the utterance clearly surfaces a different concern worth tracking, name it.

Respond as JSON: {"topic": %q, "relevance": "relevant" | "slightly_relevant" | "irrelevant", "new_topic": "<concern or empty>"}`, topic, utterance, topic)

	def := ScoreUpdate{Topic: topic}
	update, ok := oracle.StructuredOrDefault(ctx, e.oracle, prompt, def)
	if !ok {
		e.log.Warn("evaluator", "topic scoring degraded, leaving score unchanged", map[string]interface{}{
			"topic": topic,
		})
		return def
	}
	update.Topic = topic
	if !validRelevance(update.Relevance) {
		// An unrecognized label is as good as no judgment: clear it so the
		// reward table maps it to a zero delta.
		update.Relevance = ""
	}
	return update
}

func validRelevance(label string) bool {
	switch label {
	case counseling.RelevanceRelevant, counseling.RelevanceSlightlyRelevant, counseling.RelevanceIrrelevant:
		return true
	}
	return false
}

type completionJudgment struct {
	Satisfied []string `json:"satisfied"`
}

// StageCompletion reports which of a stage's requirements the recent
// dialogue satisfies. The result is intersected with the configured
// requirement set, so a hallucinated item can never count toward the
// threshold. On oracle failure no new requirements are reported.
func (e *Evaluator) StageCompletion(ctx context.Context, stage counseling.StageConfig, dialogue []counseling.DialogueTurn) []string {
	prompt := fmt.Sprintf(`You observe a counseling conversation during the stage %q (goal: %s).

Requirements for this stage:
%s

Recent dialogue:
%s

List exactly which requirements the dialogue satisfies so far, quoting each satisfied requirement verbatim.
Respond as JSON: {"satisfied": ["<requirement>", ...]}`,
		stage.Name, stage.Goal,
		bulleted(stage.Requirements),
		transcript(dialogue))

	judgment, ok := oracle.StructuredOrDefault(ctx, e.oracle, prompt, completionJudgment{})
	if !ok {
		e.log.Warn("evaluator", "stage completion check degraded, reporting nothing satisfied", map[string]interface{}{
			"stage": stage.Id,
		})
		return nil
	}

	allowed := make(map[string]struct{}, len(stage.Requirements))
	for _, req := range stage.Requirements {
		allowed[req] = struct{}{}
	}
	satisfied := make([]string, 0, len(judgment.Satisfied))
	for _, req := range judgment.Satisfied {
		if _, ok := allowed[req]; ok {
			satisfied = append(satisfied, req)
		}
	}
	return satisfied
}

type profileJudgment struct {
	Complete bool   `json:"complete"`
	Reason   string `json:"reason"`
}

// ProfileComplete judges whether the profiling dialogue has gathered enough
// to synthesize a portrait. Defaults to false; the profiling loop's turn
// budget bounds the session regardless.
func (e *Evaluator) ProfileComplete(ctx context.Context, dialogue []counseling.DialogueTurn) bool {
	prompt := fmt.Sprintf(`You observe the information-gathering phase of a counseling session.

Dialogue so far:
%s

Has the profiler gathered enough about the client's situation, main concern, and emotional state to write a profile?
Respond as JSON: {"complete": true | false, "reason": "<short reason>"}`,
		transcript(dialogue))

	judgment, _ := oracle.StructuredOrDefault(ctx, e.oracle, prompt, profileJudgment{})
	return judgment.Complete
}

func bulleted(items []string) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return b.String()
}

func transcript(dialogue []counseling.DialogueTurn) string {
	var b strings.Builder
	for _, turn := range dialogue {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
	}
	return b.String()
}
