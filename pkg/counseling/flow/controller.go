package flow

import (
	"context"
	"fmt"

	"ai-counseling-be/internal/pkg/logger"
	"ai-counseling-be/internal/repository/contract"
	"ai-counseling-be/pkg/counseling"
	"ai-counseling-be/pkg/counseling/evaluator"
	"ai-counseling-be/pkg/graph"
)

// Workflow node ids.
const (
	NodeInitialize      = "initialize"
	NodeGreet           = "greet"
	NodeInitialScale    = "initial_scale"
	NodeProfile         = "profile"
	NodeCreatePortrait  = "create_portrait"
	NodeSelectTherapist = "select_therapist"
	NodeInitTopics      = "init_topics"
	NodeFinalScale      = "final_scale"
	NodeEvaluate        = "evaluate"
	NodeUpdateSkills    = "update_skills"
	NodeSaveRecord      = "save_record"
	NodeFinalize        = "finalize"
	NodeDone            = "done"
)

// Subject is one client in the training roster.
type Subject struct {
	Id   string                 `json:"id"`
	Info map[string]interface{} `json:"info"`
}

// Controller builds and drives the counseling workflow graph. One
// Controller serves one session run; it holds no cross-session state.
type Controller struct {
	agents   *Agents
	eval     *evaluator.Evaluator
	client   ClientReplier
	sessions contract.SessionRepository
	records  contract.MedicalRecordRepository
	features contract.FeatureVectorRepository
	skills   contract.SkillMemoryRepository

	cfg        counseling.FlowConfig
	caps       counseling.Capabilities
	modalities []string
	roster     []Subject
	log        logger.ILogger
}

// ControllerParams bundles the controller's dependencies.
type ControllerParams struct {
	Agents     *Agents
	Evaluator  *evaluator.Evaluator
	Client     ClientReplier
	Sessions   contract.SessionRepository
	Records    contract.MedicalRecordRepository
	Features   contract.FeatureVectorRepository
	Skills     contract.SkillMemoryRepository
	Config     counseling.FlowConfig
	Caps       counseling.Capabilities
	Modalities []string
	Roster     []Subject
	Logger     logger.ILogger
}

func NewController(p ControllerParams) (*Controller, error) {
	if p.Agents == nil || p.Evaluator == nil || p.Client == nil {
		return nil, fmt.Errorf("flow controller: agents, evaluator, and client are required")
	}
	if len(p.Modalities) == 0 {
		return nil, fmt.Errorf("flow controller: at least one therapy modality is required")
	}
	return &Controller{
		agents:     p.Agents,
		eval:       p.Evaluator,
		client:     p.Client,
		sessions:   p.Sessions,
		records:    p.Records,
		features:   p.Features,
		skills:     p.Skills,
		cfg:        p.Config,
		caps:       p.Caps,
		modalities: p.Modalities,
		roster:     p.Roster,
		log:        p.Logger,
	}, nil
}

// Build assembles the workflow graph for the controller's capabilities.
// Disabled segments are absent from the topology, not bypassed at run time.
func (c *Controller) Build() (*graph.Graph[*counseling.SessionState], error) {
	g := graph.New(
		graph.WithStepHook[*counseling.SessionState](c.persistStep),
	)

	nodes := map[string]graph.Handler[*counseling.SessionState]{
		NodeInitialize:      c.initialize,
		NodeGreet:           c.greet,
		NodeInitialScale:    c.initialScale,
		NodeSelectTherapist: c.selectTherapist,
		NodeInitTopics:      c.initTopics,
		NodeFinalScale:      c.finalScale,
		NodeEvaluate:        c.evaluate,
		NodeSaveRecord:      c.saveRecord,
		NodeFinalize:        c.finalize,
		NodeDone:            c.done,
	}
	if c.caps.Profiler {
		nodes[NodeProfile] = c.profile
		nodes[NodeCreatePortrait] = c.createPortrait
	}
	if c.caps.Memory {
		nodes[NodeUpdateSkills] = c.updateSkills
	}
	for _, stage := range c.cfg.Stages {
		nodes[stage.Id] = c.stageHandler(stage)
	}
	for id, handler := range nodes {
		if err := g.AddNode(id, handler); err != nil {
			return nil, err
		}
	}

	if err := g.SetEntry(NodeInitialize); err != nil {
		return nil, err
	}
	if err := g.AddEdge(NodeInitialize, NodeGreet); err != nil {
		return nil, err
	}

	if c.caps.Profiler {
		if err := g.AddEdge(NodeGreet, NodeInitialScale); err != nil {
			return nil, err
		}
		if err := g.AddEdge(NodeInitialScale, NodeProfile); err != nil {
			return nil, err
		}
		if err := g.AddConditionalEdge(NodeProfile, c.profileBranch, map[graph.Branch]string{
			graph.BranchContinue: NodeProfile,
			graph.BranchAdvance:  NodeCreatePortrait,
		}); err != nil {
			return nil, err
		}
		if err := g.AddEdge(NodeCreatePortrait, NodeSelectTherapist); err != nil {
			return nil, err
		}
	} else {
		if err := g.AddEdge(NodeGreet, NodeInitialScale); err != nil {
			return nil, err
		}
		if err := g.AddEdge(NodeInitialScale, NodeSelectTherapist); err != nil {
			return nil, err
		}
	}

	if err := g.AddEdge(NodeSelectTherapist, NodeInitTopics); err != nil {
		return nil, err
	}
	if len(c.cfg.Stages) == 0 {
		return nil, fmt.Errorf("flow controller: no therapy stages configured")
	}
	if err := g.AddEdge(NodeInitTopics, c.cfg.Stages[0].Id); err != nil {
		return nil, err
	}
	for i, stage := range c.cfg.Stages {
		next := NodeFinalScale
		if i+1 < len(c.cfg.Stages) {
			next = c.cfg.Stages[i+1].Id
		}
		if err := g.AddConditionalEdge(stage.Id, c.stageBranch(stage), map[graph.Branch]string{
			graph.BranchContinue: stage.Id,
			graph.BranchAdvance:  next,
		}); err != nil {
			return nil, err
		}
	}

	if err := g.AddEdge(NodeFinalScale, NodeEvaluate); err != nil {
		return nil, err
	}
	afterEvaluate := NodeSaveRecord
	if c.caps.Memory {
		afterEvaluate = NodeUpdateSkills
		if err := g.AddEdge(NodeUpdateSkills, NodeSaveRecord); err != nil {
			return nil, err
		}
	}
	if err := g.AddEdge(NodeEvaluate, afterEvaluate); err != nil {
		return nil, err
	}
	if err := g.AddEdge(NodeSaveRecord, NodeFinalize); err != nil {
		return nil, err
	}

	// Training processes the whole roster in one run, looping back per
	// student. A live session ends after its single subject.
	if err := g.AddConditionalEdge(NodeFinalize, c.rosterBranch, map[graph.Branch]string{
		graph.BranchContinue: NodeInitialize,
		graph.BranchAdvance:  NodeDone,
	}); err != nil {
		return nil, err
	}

	if err := g.Compile(); err != nil {
		return nil, err
	}
	return g, nil
}

// Run builds the graph and drives one session to completion.
func (c *Controller) Run(ctx context.Context, state *counseling.SessionState) (*counseling.SessionState, error) {
	g, err := c.Build()
	if err != nil {
		return state, err
	}
	return g.Run(ctx, state)
}

func (c *Controller) persistStep(ctx context.Context, node string, state *counseling.SessionState) error {
	if c.sessions == nil {
		return nil
	}
	if err := c.sessions.Save(ctx, state); err != nil {
		// A session update that cannot be durably written aborts the run;
		// continuing would accumulate progress that exists only in memory.
		c.log.Error("flow.controller", "step persistence failed", map[string]interface{}{
			"node":       node,
			"session_id": state.SessionId,
			"error":      err.Error(),
		})
		return fmt.Errorf("persist session at %s: %w", node, err)
	}
	return nil
}

func (c *Controller) profileBranch(state *counseling.SessionState) graph.Branch {
	if state.ProfileDone {
		return graph.BranchAdvance
	}
	return graph.BranchContinue
}

func (c *Controller) stageBranch(stage counseling.StageConfig) graph.Predicate[*counseling.SessionState] {
	return func(state *counseling.SessionState) graph.Branch {
		if state.StageDone[stage.Id] {
			return graph.BranchAdvance
		}
		return graph.BranchContinue
	}
}

func (c *Controller) rosterBranch(state *counseling.SessionState) graph.Branch {
	if state.Mode == counseling.ModeTraining && state.StudentIndex+1 < len(c.roster) {
		return graph.BranchContinue
	}
	return graph.BranchAdvance
}
