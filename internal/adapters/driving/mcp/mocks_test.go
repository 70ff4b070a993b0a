package mcp

import (
	"context"

	"github.com/custodia-labs/intentflow/internal/core/domain"
	"github.com/custodia-labs/intentflow/internal/core/ports/driving"
	"github.com/custodia-labs/intentflow/internal/diml"
)

var _ driving.IntentService = (*mockIntentService)(nil)

// mockIntentService is a mock implementation of driving.IntentService.
// Lookups miss with domain.ErrNotFound unless err is set.
type mockIntentService struct {
	intents     map[string]*domain.Intent
	flows       map[string]*domain.Flow
	generated   []domain.Flow
	description string
	dimlText    string
	validation  diml.ValidationResult
	err         error

	lastRaw    string
	lastUpdate domain.IntentUpdate
	imported   string
}

func newMockIntentService() *mockIntentService {
	return &mockIntentService{
		intents: make(map[string]*domain.Intent),
		flows:   make(map[string]*domain.Flow),
	}
}

func (m *mockIntentService) intent(id string) (*domain.Intent, error) {
	if m.err != nil {
		return nil, m.err
	}
	in, ok := m.intents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return in, nil
}

func (m *mockIntentService) flow(id string) (*domain.Flow, error) {
	if m.err != nil {
		return nil, m.err
	}
	f, ok := m.flows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return f, nil
}

func (m *mockIntentService) CreateIntent(_ context.Context, raw string) (*domain.Intent, error) {
	m.lastRaw = raw
	if m.err != nil {
		return nil, m.err
	}
	in := &domain.Intent{IntentID: "i-new", RawIntent: raw, Status: domain.IntentDraft}
	m.intents[in.IntentID] = in
	return in, nil
}

func (m *mockIntentService) GetIntent(_ context.Context, id string) (*domain.Intent, error) {
	return m.intent(id)
}

func (m *mockIntentService) RefineIntent(
	_ context.Context,
	id string,
	update domain.IntentUpdate,
) (*domain.Intent, error) {
	m.lastUpdate = update
	in, err := m.intent(id)
	if err != nil {
		return nil, err
	}
	out := update.Apply(*in)
	return &out, nil
}

func (m *mockIntentService) FinalizeIntent(_ context.Context, id string) (*domain.Intent, error) {
	in, err := m.intent(id)
	if err != nil {
		return nil, err
	}
	out := in.Clone()
	out.Status = domain.IntentFinalized
	return &out, nil
}

func (m *mockIntentService) DeleteIntent(_ context.Context, id string) error {
	_, err := m.intent(id)
	return err
}

func (m *mockIntentService) GenerateFlows(_ context.Context, intentID string) ([]domain.Flow, error) {
	if _, err := m.intent(intentID); err != nil {
		return nil, err
	}
	return m.generated, nil
}

func (m *mockIntentService) GetFlow(_ context.Context, id string) (*domain.Flow, error) {
	return m.flow(id)
}

func (m *mockIntentService) ListFlows(_ context.Context, intentID string) ([]domain.Flow, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Flow
	for _, f := range m.flows {
		if f.IntentID == intentID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (m *mockIntentService) DeleteFlow(_ context.Context, id string) error {
	_, err := m.flow(id)
	return err
}

func (m *mockIntentService) DescribeFlow(_ context.Context, id string) (string, error) {
	if _, err := m.flow(id); err != nil {
		return "", err
	}
	if m.description == "" {
		return "", domain.ErrNoDescription
	}
	return m.description, nil
}

func (m *mockIntentService) ExportDIML(_ context.Context, id string) (string, error) {
	if _, err := m.flow(id); err != nil {
		return "", err
	}
	return m.dimlText, nil
}

func (m *mockIntentService) GenerateDIML(ctx context.Context, id string) (string, error) {
	return m.ExportDIML(ctx, id)
}

func (m *mockIntentService) ImportDIML(_ context.Context, text string) (*domain.Flow, error) {
	m.imported = text
	if m.err != nil {
		return nil, m.err
	}
	f := &domain.Flow{ID: "f-imported", IntentID: "i1"}
	m.flows[f.ID] = f
	return f, nil
}

func (m *mockIntentService) ValidateDIML(string) diml.ValidationResult {
	return m.validation
}
