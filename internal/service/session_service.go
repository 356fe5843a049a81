package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"ai-counseling-be/internal/dto"
	"ai-counseling-be/internal/pkg/logger"
	"ai-counseling-be/internal/repository/contract"
	"ai-counseling-be/pkg/counseling"
	"ai-counseling-be/pkg/counseling/flow"
)

const (
	sessionTTL             = 30 * time.Minute
	sessionCleanupInterval = 10 * time.Minute
)

type ISessionService interface {
	StartSession(ctx context.Context, req *dto.StartSessionRequest) (*dto.SessionEventResponse, error)
	SubmitReply(ctx context.Context, sessionId string, req *dto.SubmitReplyRequest) (*dto.SessionEventResponse, error)
	GetSession(ctx context.Context, sessionId string) (*dto.SessionDetailResponse, error)
	ListSessions(ctx context.Context, subjectId string) ([]dto.SessionSummaryResponse, error)
}

// liveSession ties a runner to the cancel func bounding its run goroutine.
type liveSession struct {
	runner *flow.Runner
	cancel context.CancelFunc
}

// sessionService drives live sessions. Each run executes in its own
// goroutine behind a flow.Runner; the registry maps session ids to runners
// for the duration of the conversation. Evicted or deleted entries cancel
// their run.
type sessionService struct {
	baseParams flow.ControllerParams
	sessions   contract.SessionRepository
	runners    *cache.Cache
	log        logger.ILogger
}

func NewSessionService(
	baseParams flow.ControllerParams,
	sessions contract.SessionRepository,
	log logger.ILogger,
) ISessionService {
	registry := cache.New(sessionTTL, sessionCleanupInterval)
	registry.OnEvicted(func(_ string, v interface{}) {
		if ls, ok := v.(*liveSession); ok {
			ls.cancel()
		}
	})
	return &sessionService{
		baseParams: baseParams,
		sessions:   sessions,
		runners:    registry,
		log:        log,
	}
}

func (s *sessionService) StartSession(ctx context.Context, req *dto.StartSessionRequest) (*dto.SessionEventResponse, error) {
	if req.SubjectId == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "subject_id is required")
	}

	sessionId := fmt.Sprintf("live_%s", uuid.New().String()[:12])
	runner := flow.NewRunner()

	params := s.baseParams
	params.Client = runner
	controller, err := flow.NewController(params)
	if err != nil {
		return nil, err
	}

	state := counseling.NewSessionState(sessionId, req.SubjectId, counseling.ModeLive)

	// The run outlives this request; it ends on its own terminal node or
	// when the registry entry is evicted.
	runCtx, cancel := context.WithTimeout(context.Background(), sessionTTL)
	runner.Start(runCtx, controller, state)
	s.runners.Set(sessionId, &liveSession{runner: runner, cancel: cancel}, cache.DefaultExpiration)

	return s.awaitEvent(ctx, sessionId, runner)
}

func (s *sessionService) SubmitReply(ctx context.Context, sessionId string, req *dto.SubmitReplyRequest) (*dto.SessionEventResponse, error) {
	if req.Content == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "content is required")
	}
	cached, found := s.runners.Get(sessionId)
	if !found {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found or expired")
	}
	ls := cached.(*liveSession)

	if err := ls.runner.SubmitReply(ctx, req.Content); err != nil {
		if errors.Is(err, flow.ErrRunEnded) {
			// The run timed out or was evicted; drop the stale entry.
			s.runners.Delete(sessionId)
			return nil, fiber.NewError(fiber.StatusGone, "session already ended")
		}
		return nil, err
	}
	return s.awaitEvent(ctx, sessionId, ls.runner)
}

// awaitEvent blocks until the run surfaces its next prompt or terminates.
func (s *sessionService) awaitEvent(ctx context.Context, sessionId string, runner *flow.Runner) (*dto.SessionEventResponse, error) {
	select {
	case event, ok := <-runner.Events():
		if !ok {
			s.runners.Delete(sessionId)
			return &dto.SessionEventResponse{SessionId: sessionId, Status: "completed"}, nil
		}
		switch event.Type {
		case flow.EventPrompt:
			return &dto.SessionEventResponse{
				SessionId: sessionId,
				Status:    "awaiting_reply",
				Utterance: event.Output,
				Stage:     event.State.CurrentStage,
			}, nil
		case flow.EventDone:
			s.runners.Delete(sessionId)
			return &dto.SessionEventResponse{
				SessionId: sessionId,
				Status:    "completed",
				Stage:     event.State.CurrentStage,
			}, nil
		default:
			s.runners.Delete(sessionId)
			s.log.Error("service.session", "live run failed", map[string]interface{}{
				"session_id": sessionId,
				"error":      event.Err.Error(),
			})
			return nil, fiber.NewError(fiber.StatusInternalServerError, "session error, please retry")
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *sessionService) GetSession(ctx context.Context, sessionId string) (*dto.SessionDetailResponse, error) {
	state, err := s.sessions.Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	dialogue := make([]dto.DialogueTurnDTO, len(state.Dialogue))
	for i, turn := range state.Dialogue {
		dialogue[i] = dto.DialogueTurnDTO{Role: string(turn.Role), Content: turn.Content}
	}
	return &dto.SessionDetailResponse{
		SessionId:        state.SessionId,
		SubjectId:        state.SubjectId,
		Mode:             string(state.Mode),
		Phase:            state.Phase,
		CurrentStage:     state.CurrentStage,
		CoreTopic:        state.CoreTopic,
		SelectedTherapy:  state.SelectedTherapy,
		ImprovementScore: state.ImprovementScore,
		Finalized:        state.Finalized,
		MedicalRecordId:  state.MedicalRecordId,
		Dialogue:         dialogue,
	}, nil
}

func (s *sessionService) ListSessions(ctx context.Context, subjectId string) ([]dto.SessionSummaryResponse, error) {
	summaries, err := s.sessions.ListForSubject(ctx, subjectId)
	if err != nil {
		return nil, err
	}
	responses := make([]dto.SessionSummaryResponse, len(summaries))
	for i, summary := range summaries {
		responses[i] = dto.SessionSummaryResponse{
			SessionId:    summary.SessionId,
			SubjectId:    summary.SubjectId,
			Mode:         summary.Mode,
			CurrentStage: summary.CurrentStage,
			Finalized:    summary.Finalized,
			UpdatedAt:    summary.UpdatedAt,
		}
	}
	return responses, nil
}
