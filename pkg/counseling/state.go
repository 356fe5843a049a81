package counseling

import (
	"time"

	"ai-counseling-be/internal/entity"
)

// Role identifies the speaker of a dialogue turn.
type Role string

const (
	RoleSystem     Role = "system"
	RoleProfiler   Role = "profiler"
	RoleTherapist  Role = "therapist"
	RoleSupervisor Role = "supervisor"
	RoleClient     Role = "client"
)

// Mode selects how client replies are produced: from a simulated student
// persona (training) or from the API boundary (live).
type Mode string

const (
	ModeTraining Mode = "training"
	ModeLive     Mode = "live"
)

// Stage identifiers in workflow order.
const (
	StageProfiling = "profiling"
	Stage1         = "stage_1"
	Stage2         = "stage_2"
	Stage3         = "stage_3"
	Stage4         = "stage_4"
	StageFinal     = "final"
)

// TherapyStages lists the four therapy stages in order.
var TherapyStages = []string{Stage1, Stage2, Stage3, Stage4}

var stageRank = map[string]int{
	StageProfiling: 0,
	Stage1:         1,
	Stage2:         2,
	Stage3:         3,
	Stage4:         4,
	StageFinal:     5,
}

// StageRank returns the position of a stage in the monotonic ordering.
func StageRank(stage string) int {
	return stageRank[stage]
}

// Phase values for the session lifecycle.
const (
	PhaseInitial    = "initial"
	PhaseCounseling = "counseling"
	PhaseCompleted  = "completed"
)

// DialogueTurn is one (speaker, utterance) pair. The dialogue log is
// append-only and never reordered or deduplicated.
type DialogueTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SessionState is the single mutable record threaded through a workflow run.
// It is mutated exclusively by node handlers in sequence, persisted after
// every step, and becomes immutable once the terminal node is reached.
type SessionState struct {
	SessionId string `json:"session_id"`
	SubjectId string `json:"subject_id"`
	Mode      Mode   `json:"mode"`
	Phase     string `json:"phase"`

	Dialogue []DialogueTurn `json:"dialogue"`

	// Working memories are opaque to the engine; only role handlers read
	// and write them.
	SharedMemory     map[string]interface{} `json:"shared_memory"`
	SupervisorMemory map[string]interface{} `json:"supervisor_memory"`
	Portrait         map[string]interface{} `json:"portrait"`

	SubjectInfo map[string]interface{} `json:"subject_info,omitempty"`

	InitialScales    map[string]entity.ScaleResult `json:"initial_scales"`
	FinalScales      map[string]entity.ScaleResult `json:"final_scales"`
	ImprovementScore int                           `json:"improvement_score"`
	// TotalImprovement accumulates every subject's improvement score across
	// a training pass; ImprovementScore is reset per subject.
	TotalImprovement int `json:"total_improvement"`

	CurrentStage   string              `json:"current_stage"`
	StageTurns     map[string]int      `json:"stage_turns"`
	StageCompleted map[string][]string `json:"stage_completed"`
	StageDone      map[string]bool     `json:"stage_done"`

	ProfileTurns int  `json:"profile_turns"`
	ProfileDone  bool `json:"profile_done"`

	CoreTopic   string         `json:"core_topic"`
	TopicScores map[string]int `json:"topic_scores"`
	// TopicOrder tracks insertion order so argmax tie-breaking is
	// deterministic: the first-inserted topic wins.
	TopicOrder []string `json:"topic_order"`

	// One-shot guard: once topics are initialized, re-entering the init
	// node (training mode loops back per student) must not wipe them.
	TopicsInitialized bool `json:"topics_initialized"`

	SelectedTherapy  string `json:"selected_therapy"`
	EvaluationResult string `json:"evaluation_result,omitempty"`
	MedicalRecordId  string `json:"medical_record_id,omitempty"`

	// Training-mode roster position.
	StudentIndex int `json:"student_index"`

	Finalized bool      `json:"finalized"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSessionState creates a fresh state for one subject.
func NewSessionState(sessionId, subjectId string, mode Mode) *SessionState {
	now := time.Now()
	return &SessionState{
		SessionId:        sessionId,
		SubjectId:        subjectId,
		Mode:             mode,
		Phase:            PhaseInitial,
		SharedMemory:     map[string]interface{}{},
		SupervisorMemory: map[string]interface{}{},
		Portrait:         map[string]interface{}{},
		InitialScales:    map[string]entity.ScaleResult{},
		FinalScales:      map[string]entity.ScaleResult{},
		CurrentStage:     StageProfiling,
		StageTurns:       map[string]int{},
		StageCompleted:   map[string][]string{},
		StageDone:        map[string]bool{},
		TopicScores:      map[string]int{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Append adds one turn to the dialogue log.
func (s *SessionState) Append(role Role, content string) {
	s.Dialogue = append(s.Dialogue, DialogueTurn{Role: role, Content: content})
}

// LastClientUtterance returns the most recent client turn, or "".
func (s *SessionState) LastClientUtterance() string {
	for i := len(s.Dialogue) - 1; i >= 0; i-- {
		if s.Dialogue[i].Role == RoleClient {
			return s.Dialogue[i].Content
		}
	}
	return ""
}

// RecentDialogue returns the last n turns, bounding the prompt window.
func (s *SessionState) RecentDialogue(n int) []DialogueTurn {
	if n <= 0 || len(s.Dialogue) <= n {
		return s.Dialogue
	}
	return s.Dialogue[len(s.Dialogue)-n:]
}

// EnsureTopic inserts a topic at the configured initial score. Existing
// topics are left untouched; scores change only through AddTopicDelta.
func (s *SessionState) EnsureTopic(topic string, initialScore int) bool {
	if topic == "" {
		return false
	}
	if _, ok := s.TopicScores[topic]; ok {
		return false
	}
	s.TopicScores[topic] = initialScore
	s.TopicOrder = append(s.TopicOrder, topic)
	return true
}

// AddTopicDelta applies an additive reward delta to an existing topic.
func (s *SessionState) AddTopicDelta(topic string, delta int) {
	if _, ok := s.TopicScores[topic]; !ok {
		return
	}
	s.TopicScores[topic] += delta
}

// BestTopic returns the highest-scoring topic. Ties break deterministically
// in favor of the first-inserted topic.
func (s *SessionState) BestTopic() string {
	best := ""
	bestScore := 0
	for _, topic := range s.TopicOrder {
		score, ok := s.TopicScores[topic]
		if !ok {
			continue
		}
		if best == "" || score > bestScore {
			best = topic
			bestScore = score
		}
	}
	if best == "" {
		return s.CoreTopic
	}
	return best
}

// MarkRequirements unions newly satisfied requirements into a stage's
// accumulated completed set. The set grows monotonically and is never reset.
func (s *SessionState) MarkRequirements(stage string, satisfied []string) {
	existing := s.StageCompleted[stage]
	for _, req := range satisfied {
		found := false
		for _, have := range existing {
			if have == req {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, req)
		}
	}
	s.StageCompleted[stage] = existing
}

// SetStageDone latches a stage's completion flag. Once true it is never
// reset within the same session.
func (s *SessionState) SetStageDone(stage string) {
	s.StageDone[stage] = true
}

// AdvanceStage moves the current stage forward. Transitions are strictly
// monotonic; an attempt to move backwards is ignored.
func (s *SessionState) AdvanceStage(stage string) {
	if StageRank(stage) >= StageRank(s.CurrentStage) {
		s.CurrentStage = stage
	}
}

// Improvement computes the aggregate improvement score. Lower scale values
// denote a better state, so the result is positive when the session helped.
func Improvement(pre, post map[string]entity.ScaleResult) int {
	sum := func(m map[string]entity.ScaleResult) int {
		total := 0
		for _, r := range m {
			total += r.Score
		}
		return total
	}
	return sum(pre) - sum(post)
}
