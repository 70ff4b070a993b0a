package services

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/custodia-labs/intentflow/internal/core/domain"
	"github.com/custodia-labs/intentflow/internal/core/ports/driven"
)

var errStoreDown = errors.New("store down")

// fakePlanner returns canned answers.
type fakePlanner struct {
	outline    *driven.IntentOutline
	outlineErr error
	flows      []domain.Flow
	flowsErr   error
	diml       string
	dimlErr    error

	lastRaw string
}

func (p *fakePlanner) Outline(_ context.Context, rawIntent string) (*driven.IntentOutline, error) {
	p.lastRaw = rawIntent
	return p.outline, p.outlineErr
}

func (p *fakePlanner) GenerateFlows(_ context.Context, rawIntent string) ([]domain.Flow, error) {
	p.lastRaw = rawIntent
	return p.flows, p.flowsErr
}

func (p *fakePlanner) RenderDIML(_ context.Context, _ *domain.Flow) (string, error) {
	return p.diml, p.dimlErr
}

// flakyStore fails the nth SaveFlow call once armed.
type flakyStore struct {
	driven.Store
	failAt int32
	saves  atomic.Int32
}

func (s *flakyStore) SaveFlow(ctx context.Context, flow *domain.Flow) error {
	if s.failAt > 0 && s.saves.Add(1) == s.failAt {
		return errStoreDown
	}
	return s.Store.SaveFlow(ctx, flow)
}
