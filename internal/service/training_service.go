package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"

	"ai-counseling-be/internal/dto"
	"ai-counseling-be/internal/pkg/logger"
	"ai-counseling-be/pkg/counseling/flow"
	"ai-counseling-be/pkg/oracle"
)

type ITrainingService interface {
	RunTraining(ctx context.Context, req *dto.StartTrainingRequest) (*dto.TrainingResultResponse, error)
}

// trainingService runs full roster passes with a simulated student client.
type trainingService struct {
	baseParams        flow.ControllerParams
	oracle            oracle.Oracle
	defaultRosterPath string
	log               logger.ILogger
}

func NewTrainingService(
	baseParams flow.ControllerParams,
	o oracle.Oracle,
	defaultRosterPath string,
	log logger.ILogger,
) ITrainingService {
	return &trainingService{
		baseParams:        baseParams,
		oracle:            o,
		defaultRosterPath: defaultRosterPath,
		log:               log,
	}
}

func (s *trainingService) RunTraining(ctx context.Context, req *dto.StartTrainingRequest) (*dto.TrainingResultResponse, error) {
	rosterPath := req.RosterPath
	if rosterPath == "" {
		rosterPath = s.defaultRosterPath
	}
	roster, err := loadRoster(rosterPath)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	params := s.baseParams
	params.Client = flow.NewStudentAgent(s.oracle)
	params.Roster = roster

	s.log.Info("service.training", "training pass starting", map[string]interface{}{
		"students": len(roster),
	})

	state, err := flow.RunTraining(ctx, params)
	if err != nil {
		s.log.Error("service.training", "training pass failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, fiber.NewError(fiber.StatusInternalServerError, "session error, please retry")
	}

	return &dto.TrainingResultResponse{
		SessionId:     state.SessionId,
		Students:      len(roster),
		FinalStage:    state.CurrentStage,
		Finalized:     state.Finalized,
		TotalImproved: state.TotalImprovement,
	}, nil
}

func loadRoster(path string) ([]flow.Subject, error) {
	if path == "" {
		return nil, fmt.Errorf("no training roster configured")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	var roster []flow.Subject
	if err := json.Unmarshal(raw, &roster); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	if len(roster) == 0 {
		return nil, fmt.Errorf("roster is empty")
	}
	return roster, nil
}
