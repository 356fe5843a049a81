package dto

import "time"

type StartSessionRequest struct {
	SubjectId string `json:"subject_id"`
}

// SessionEventResponse is what a live session surfaces to the client: either
// an agent utterance awaiting a reply, or the terminal status of the run.
type SessionEventResponse struct {
	SessionId string `json:"session_id"`
	Status    string `json:"status"` // "awaiting_reply", "completed", "failed"
	Utterance string `json:"utterance,omitempty"`
	Stage     string `json:"stage,omitempty"`
}

type SubmitReplyRequest struct {
	Content string `json:"content"`
}

type SessionDetailResponse struct {
	SessionId        string            `json:"session_id"`
	SubjectId        string            `json:"subject_id"`
	Mode             string            `json:"mode"`
	Phase            string            `json:"phase"`
	CurrentStage     string            `json:"current_stage"`
	CoreTopic        string            `json:"core_topic,omitempty"`
	SelectedTherapy  string            `json:"selected_therapy,omitempty"`
	ImprovementScore int               `json:"improvement_score"`
	Finalized        bool              `json:"finalized"`
	MedicalRecordId  string            `json:"medical_record_id,omitempty"`
	Dialogue         []DialogueTurnDTO `json:"dialogue"`
}

type DialogueTurnDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SessionSummaryResponse struct {
	SessionId    string    `json:"session_id"`
	SubjectId    string    `json:"subject_id"`
	Mode         string    `json:"mode"`
	CurrentStage string    `json:"current_stage"`
	Finalized    bool      `json:"finalized"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type StartTrainingRequest struct {
	RosterPath string `json:"roster_path,omitempty"`
}

type TrainingResultResponse struct {
	SessionId     string `json:"session_id"`
	Students      int    `json:"students"`
	FinalStage    string `json:"final_stage"`
	Finalized     bool   `json:"finalized"`
	TotalImproved int    `json:"total_improved"`
}

// PublishEmbedSkillMessage requests deferred embedding generation for a
// skill stored without a vector.
type PublishEmbedSkillMessage struct {
	Collection string `json:"collection"`
	SkillId    string `json:"skill_id"`
}
