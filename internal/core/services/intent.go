package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/intentflow/internal/core/domain"
	"github.com/custodia-labs/intentflow/internal/core/ports/driven"
	"github.com/custodia-labs/intentflow/internal/core/ports/driving"
	"github.com/custodia-labs/intentflow/internal/diml"
	"github.com/custodia-labs/intentflow/internal/logger"
)

// Ensure IntentService implements the interface.
var _ driving.IntentService = (*IntentService)(nil)

// IntentService orchestrates the planner, the store and the DIML codec.
// It holds no locks of its own: two concurrent operations on one intent may
// interleave, and the last write wins.
type IntentService struct {
	store   driven.Store
	planner driven.Planner

	newID func() string
	now   func() time.Time
}

// NewIntentService creates a new intent service.
// planner may be nil; operations that need it fail with domain.ErrLLMUnavailable.
func NewIntentService(store driven.Store, planner driven.Planner) *IntentService {
	return &IntentService{
		store:   store,
		planner: planner,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// fail logs and wraps err with the operation name.
func fail(op string, err error, attrs ...any) error {
	attrs = append(attrs, logger.Op(op), logger.Err(err))
	if errors.Is(err, domain.ErrNotFound) {
		logger.Debug("operation failed", attrs...)
	} else {
		logger.Warn("operation failed", attrs...)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// CreateIntent decomposes raw text into a draft intent and stores it.
func (s *IntentService) CreateIntent(ctx context.Context, rawIntent string) (*domain.Intent, error) {
	const op = "create intent"
	if strings.TrimSpace(rawIntent) == "" {
		return nil, fail(op, fmt.Errorf("%w: raw intent is empty", domain.ErrInvalidInput))
	}
	if s.planner == nil {
		return nil, fail(op, domain.ErrLLMUnavailable)
	}

	outline, err := s.planner.Outline(ctx, rawIntent)
	if err != nil {
		return nil, fail(op, err)
	}
	if outline == nil {
		return nil, fail(op, fmt.Errorf("%w: empty outline", domain.ErrMalformedOutput))
	}

	subGoals := make([]domain.SubGoal, 0, len(outline.SubGoals))
	for _, desc := range outline.SubGoals {
		subGoals = append(subGoals, domain.SubGoal{
			ID:          s.newID(),
			Description: desc,
			Status:      domain.SubGoalPending,
		})
	}

	now := s.now().UTC()
	intent := &domain.Intent{
		IntentID:  s.newID(),
		RawIntent: rawIntent,
		MainGoal: domain.MainGoal{
			Objective:   outline.Objective,
			Constraints: []domain.Constraint{},
			Priority:    domain.PriorityMedium,
		},
		SubGoals:  subGoals,
		Status:    domain.IntentDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.SaveIntent(ctx, intent); err != nil {
		return nil, fail(op, err)
	}
	logger.Info("intent created", logger.IntentID(intent.IntentID), logger.Count(len(subGoals)))
	return intent, nil
}

// GetIntent retrieves an intent by ID.
func (s *IntentService) GetIntent(ctx context.Context, id string) (*domain.Intent, error) {
	intent, err := s.store.GetIntent(ctx, id)
	if err != nil {
		return nil, fail("get intent", err, logger.IntentID(id))
	}
	return intent, nil
}

// RefineIntent merges an update into a draft intent. Only draft intents
// can be refined and the result stays in draft. Sub-goals without an ID
// get one, and a missing priority or sub-goal status takes its default.
func (s *IntentService) RefineIntent(
	ctx context.Context, id string, update domain.IntentUpdate,
) (*domain.Intent, error) {
	const op = "refine intent"

	update, err := s.normaliseUpdate(update)
	if err != nil {
		return nil, fail(op, err, logger.IntentID(id))
	}

	intent, err := s.store.GetIntent(ctx, id)
	if err != nil {
		return nil, fail(op, err, logger.IntentID(id))
	}
	if !intent.Status.CanTransitionTo(domain.IntentDraft) {
		return nil, fail(op, fmt.Errorf("%w: intent is %s", domain.ErrInvalidTransition, intent.Status),
			logger.IntentID(id))
	}

	draft := domain.IntentDraft
	update.Status = &draft

	refined, err := s.store.UpdateIntent(ctx, id, update)
	if err != nil {
		return nil, fail(op, err, logger.IntentID(id))
	}
	logger.Info("intent refined", logger.IntentID(id))
	return refined, nil
}

func (s *IntentService) normaliseUpdate(update domain.IntentUpdate) (domain.IntentUpdate, error) {
	if update.MainGoal != nil {
		goal := *update.MainGoal
		if goal.Priority == "" {
			goal.Priority = domain.PriorityMedium
		}
		if !goal.Priority.IsValid() {
			return update, fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidInput, goal.Priority)
		}
		for _, c := range goal.Constraints {
			if err := c.Validate(); err != nil {
				return update, err
			}
		}
		update.MainGoal = &goal
	}

	if update.SubGoals != nil {
		subGoals := make([]domain.SubGoal, len(update.SubGoals))
		for i, sg := range update.SubGoals {
			if sg.ID == "" {
				sg.ID = s.newID()
			}
			if sg.Status == "" {
				sg.Status = domain.SubGoalPending
			}
			if !sg.Status.IsValid() {
				return update, fmt.Errorf("%w: unknown sub-goal status %q", domain.ErrInvalidInput, sg.Status)
			}
			subGoals[i] = sg
		}
		update.SubGoals = subGoals
	}
	return update, nil
}

// FinalizeIntent moves a draft intent to finalized. Finalizing an already
// finalized intent returns it unchanged.
func (s *IntentService) FinalizeIntent(ctx context.Context, id string) (*domain.Intent, error) {
	const op = "finalize intent"

	intent, err := s.store.GetIntent(ctx, id)
	if err != nil {
		return nil, fail(op, err, logger.IntentID(id))
	}
	if intent.Status == domain.IntentFinalized {
		return intent, nil
	}
	if !intent.Status.CanTransitionTo(domain.IntentFinalized) {
		return nil, fail(op, fmt.Errorf("%w: intent is %s", domain.ErrInvalidTransition, intent.Status),
			logger.IntentID(id))
	}

	finalized := domain.IntentFinalized
	intent, err = s.store.UpdateIntent(ctx, id, domain.IntentUpdate{Status: &finalized})
	if err != nil {
		return nil, fail(op, err, logger.IntentID(id))
	}
	logger.Info("intent finalized", logger.IntentID(id))
	return intent, nil
}

// DeleteIntent removes an intent and its flows.
func (s *IntentService) DeleteIntent(ctx context.Context, id string) error {
	if err := s.store.DeleteIntent(ctx, id); err != nil {
		return fail("delete intent", err, logger.IntentID(id))
	}
	logger.Info("intent deleted", logger.IntentID(id))
	return nil
}

// GenerateFlows asks the planner for flows for an intent and stores them.
// Every flow is checked before anything is written, and a failed save
// restores the flows already written, so either all flows are stored or
// none are.
func (s *IntentService) GenerateFlows(ctx context.Context, intentID string) ([]domain.Flow, error) {
	const op = "generate flows"
	if s.planner == nil {
		return nil, fail(op, domain.ErrLLMUnavailable, logger.IntentID(intentID))
	}

	intent, err := s.store.GetIntent(ctx, intentID)
	if err != nil {
		return nil, fail(op, err, logger.IntentID(intentID))
	}

	generated, err := s.planner.GenerateFlows(ctx, intent.RawIntent)
	if err != nil {
		return nil, fail(op, err, logger.IntentID(intentID))
	}

	flows, previous, err := s.prepareFlows(ctx, intent, generated)
	if err != nil {
		return nil, fail(op, err, logger.IntentID(intentID))
	}

	for i := range flows {
		if err := s.store.SaveFlow(ctx, &flows[i]); err != nil {
			saveErr := fmt.Errorf("save flow %s: %w", flows[i].ID, err)
			return nil, fail(op, errors.Join(saveErr, s.rollback(ctx, flows[:i], previous[:i])),
				logger.IntentID(intentID))
		}
	}

	logger.Info("flows generated", logger.IntentID(intentID), logger.Count(len(flows)))
	return flows, nil
}

// prepareFlows fills in missing ids, intent ids and creation times, and
// snapshots any stored version of each flow for rollback.
func (s *IntentService) prepareFlows(
	ctx context.Context, intent *domain.Intent, generated []domain.Flow,
) ([]domain.Flow, []*domain.Flow, error) {
	flows := make([]domain.Flow, len(generated))
	previous := make([]*domain.Flow, len(generated))
	seen := make(map[string]bool, len(generated))
	now := s.now().UTC()

	for i := range generated {
		flow := generated[i].Clone()
		if flow.ID == "" {
			flow.ID = s.newID()
		}
		if seen[flow.ID] {
			return nil, nil, fmt.Errorf("%w: duplicate flow id %s", domain.ErrMalformedOutput, flow.ID)
		}
		seen[flow.ID] = true

		switch flow.IntentID {
		case "":
			flow.IntentID = intent.IntentID
		case intent.IntentID:
		default:
			return nil, nil, fmt.Errorf("%w: flow %s names intent %s", domain.ErrMalformedOutput,
				flow.ID, flow.IntentID)
		}
		if flow.Metadata.Created.IsZero() {
			flow.Metadata.Created = now
		}

		prev, err := s.store.GetFlow(ctx, flow.ID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			return nil, nil, fmt.Errorf("snapshot flow %s: %w", flow.ID, err)
		case prev.IntentID != intent.IntentID:
			return nil, nil, fmt.Errorf("%w: flow id %s belongs to intent %s", domain.ErrMalformedOutput,
				flow.ID, prev.IntentID)
		default:
			previous[i] = prev
		}
		flows[i] = flow
	}
	return flows, previous, nil
}

// rollback undoes saved flows in reverse order, restoring the previous
// version where one existed. It returns every failure joined.
func (s *IntentService) rollback(ctx context.Context, saved []domain.Flow, previous []*domain.Flow) error {
	var errs []error
	for i := len(saved) - 1; i >= 0; i-- {
		var err error
		if previous[i] != nil {
			err = s.store.SaveFlow(ctx, previous[i])
		} else {
			err = s.store.DeleteFlow(ctx, saved[i].ID)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("rollback flow %s: %w", saved[i].ID, err))
		}
	}
	return errors.Join(errs...)
}

// GetFlow retrieves a flow by ID.
func (s *IntentService) GetFlow(ctx context.Context, id string) (*domain.Flow, error) {
	flow, err := s.store.GetFlow(ctx, id)
	if err != nil {
		return nil, fail("get flow", err, logger.FlowID(id))
	}
	return flow, nil
}

// ListFlows returns the flows of an intent in generation order.
func (s *IntentService) ListFlows(ctx context.Context, intentID string) ([]domain.Flow, error) {
	flows, err := s.store.GetFlowsByIntentID(ctx, intentID)
	if err != nil {
		return nil, fail("list flows", err, logger.IntentID(intentID))
	}
	return flows, nil
}

// DeleteFlow removes a flow.
func (s *IntentService) DeleteFlow(ctx context.Context, id string) error {
	if err := s.store.DeleteFlow(ctx, id); err != nil {
		return fail("delete flow", err, logger.FlowID(id))
	}
	return nil
}

// DescribeFlow returns the natural-language description of a flow.
func (s *IntentService) DescribeFlow(ctx context.Context, id string) (string, error) {
	const op = "describe flow"
	flow, err := s.store.GetFlow(ctx, id)
	if err != nil {
		return "", fail(op, err, logger.FlowID(id))
	}
	if strings.TrimSpace(flow.NaturalLanguageDescription) == "" {
		return "", fail(op, domain.ErrNoDescription, logger.FlowID(id))
	}
	return flow.NaturalLanguageDescription, nil
}

// ExportDIML returns a stored flow as formatted DIML.
func (s *IntentService) ExportDIML(ctx context.Context, id string) (string, error) {
	const op = "export DIML"
	flow, err := s.store.GetFlow(ctx, id)
	if err != nil {
		return "", fail(op, err, logger.FlowID(id))
	}
	text, err := diml.Export(flow)
	if err != nil {
		return "", fail(op, err, logger.FlowID(id))
	}
	return text, nil
}

// GenerateDIML asks the planner to render a stored flow. The planner's
// text is only returned once it passes DIML validation.
func (s *IntentService) GenerateDIML(ctx context.Context, id string) (string, error) {
	const op = "generate DIML"
	if s.planner == nil {
		return "", fail(op, domain.ErrLLMUnavailable, logger.FlowID(id))
	}

	flow, err := s.store.GetFlow(ctx, id)
	if err != nil {
		return "", fail(op, err, logger.FlowID(id))
	}

	text, err := s.planner.RenderDIML(ctx, flow)
	if err != nil {
		return "", fail(op, err, logger.FlowID(id))
	}
	text = strings.TrimSpace(text)
	if res := diml.Validate(text); !res.Valid {
		return "", fail(op, fmt.Errorf("%w: %s", domain.ErrMalformedOutput, strings.Join(res.Errors, "; ")),
			logger.FlowID(id))
	}
	return text, nil
}

// ImportDIML decodes DIML and stores the resulting flow.
func (s *IntentService) ImportDIML(ctx context.Context, text string) (*domain.Flow, error) {
	const op = "import DIML"
	flow, err := diml.Decode(text)
	if err != nil {
		return nil, fail(op, err)
	}
	if err := s.store.SaveFlow(ctx, flow); err != nil {
		return nil, fail(op, err, logger.FlowID(flow.ID))
	}
	logger.Info("flow imported", logger.FlowID(flow.ID), logger.IntentID(flow.IntentID))
	return flow, nil
}

// ValidateDIML reports the structural problems of a DIML document.
func (s *IntentService) ValidateDIML(text string) diml.ValidationResult {
	return diml.Validate(text)
}
