package counseling

import (
	"encoding/json"
	"fmt"
	"os"
)

// StageConfig describes one therapy stage: its guidance for the therapist,
// the requirement set tracked for completion, and its turn budget.
type StageConfig struct {
	Id           string   `json:"id"`
	Name         string   `json:"name"`
	Goal         string   `json:"goal"`
	Requirements []string `json:"requirements"`
	// Threshold is the number of distinct satisfied requirements that
	// completes the stage before the turn budget runs out.
	Threshold int `json:"threshold"`
	MaxTurns  int `json:"max_turns"`
}

// Complete reports whether a stage is done given its accumulated turn count
// and completed requirement set.
func (c StageConfig) Complete(turns int, completed []string) bool {
	return turns >= c.MaxTurns || len(completed) >= c.Threshold
}

// RewardConfig controls reward-driven topic selection.
type RewardConfig struct {
	InitialScore int `json:"initial_score"`
	// Deltas maps a relevance label to the additive score change.
	Deltas map[string]int `json:"deltas"`
}

// Relevance labels produced by the scoring evaluator.
const (
	RelevanceRelevant         = "relevant"
	RelevanceSlightlyRelevant = "slightly_relevant"
	RelevanceIrrelevant       = "irrelevant"
)

// FlowConfig bundles the stage roster, the reward table, and the profiling
// loop budget.
type FlowConfig struct {
	Stages          []StageConfig `json:"stages"`
	Reward          RewardConfig  `json:"reward"`
	ProfileMaxTurns int           `json:"profile_max_turns"`
	// DialogueWindow bounds how many recent turns evaluators see.
	DialogueWindow int `json:"dialogue_window"`
}

// Stage returns the config for a stage id, or false when unknown.
func (c FlowConfig) Stage(id string) (StageConfig, bool) {
	for _, s := range c.Stages {
		if s.Id == id {
			return s, true
		}
	}
	return StageConfig{}, false
}

// Delta translates a relevance label into its score change. Unknown labels
// contribute nothing.
func (c FlowConfig) Delta(relevance string) int {
	return c.Reward.Deltas[relevance]
}

// DefaultConfig is the built-in cognitive-behavioral stage roster.
func DefaultConfig() FlowConfig {
	return FlowConfig{
		Stages: []StageConfig{
			{
				Id:   Stage1,
				Name: "Identify automatic thoughts",
				Goal: "Help the client notice the automatic thoughts that arise in the situations they describe.",
				Requirements: []string{
					"client describes a concrete triggering situation",
					"client names the automatic thought in that situation",
					"client reports the emotion tied to the thought",
				},
				Threshold: 3,
				MaxTurns:  5,
			},
			{
				Id:   Stage2,
				Name: "Spot thinking traps",
				Goal: "Guide the client to recognize the cognitive distortions behind their automatic thoughts.",
				Requirements: []string{
					"client identifies at least one distortion pattern",
					"client links the distortion to a recent automatic thought",
					"client acknowledges the distortion is a habit, not a fact",
				},
				Threshold: 3,
				MaxTurns:  5,
			},
			{
				Id:   Stage3,
				Name: "Challenge automatic thoughts",
				Goal: "Work with the client to examine the evidence for and against their automatic thoughts.",
				Requirements: []string{
					"client lists evidence supporting the thought",
					"client lists evidence against the thought",
					"client weighs both sides aloud",
				},
				Threshold: 3,
				MaxTurns:  5,
			},
			{
				Id:   Stage4,
				Name: "Return to realistic thinking",
				Goal: "Support the client in replacing distorted thoughts with balanced alternatives.",
				Requirements: []string{
					"client states a balanced alternative thought",
					"client rates belief in the alternative",
					"client commits to practicing the alternative",
				},
				Threshold: 3,
				MaxTurns:  5,
			},
		},
		Reward: RewardConfig{
			InitialScore: 5,
			Deltas: map[string]int{
				RelevanceRelevant:         2,
				RelevanceSlightlyRelevant: 1,
				RelevanceIrrelevant:       -1,
			},
		},
		ProfileMaxTurns: 5,
		DialogueWindow:  12,
	}
}

// LoadConfig reads a stage configuration file, falling back to defaults for
// any section the file leaves empty.
func LoadConfig(path string) (FlowConfig, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read stage config: %w", err)
	}
	var loaded FlowConfig
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return cfg, fmt.Errorf("parse stage config: %w", err)
	}
	if len(loaded.Stages) > 0 {
		cfg.Stages = loaded.Stages
	}
	if loaded.Reward.InitialScore != 0 {
		cfg.Reward.InitialScore = loaded.Reward.InitialScore
	}
	if len(loaded.Reward.Deltas) > 0 {
		cfg.Reward.Deltas = loaded.Reward.Deltas
	}
	if loaded.ProfileMaxTurns > 0 {
		cfg.ProfileMaxTurns = loaded.ProfileMaxTurns
	}
	if loaded.DialogueWindow > 0 {
		cfg.DialogueWindow = loaded.DialogueWindow
	}
	return cfg, nil
}
