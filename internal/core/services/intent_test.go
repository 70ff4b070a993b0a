package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/intentflow/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/intentflow/internal/adapters/driven/storage/storetest"
	"github.com/custodia-labs/intentflow/internal/core/domain"
	"github.com/custodia-labs/intentflow/internal/core/ports/driven"
	"github.com/custodia-labs/intentflow/internal/diml"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestIntentService(store driven.Store, planner driven.Planner) *IntentService {
	svc := NewIntentService(store, planner)
	n := 0
	svc.newID = func() string {
		n++
		return "id-" + string(rune('a'+n-1))
	}
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestNewIntentService(t *testing.T) {
	svc := NewIntentService(memory.NewStore(), nil)
	require.NotNil(t, svc)
	assert.NotNil(t, svc.newID)
	assert.NotNil(t, svc.now)
}

func TestIntentService_CreateIntent(t *testing.T) {
	store := memory.NewStore()
	planner := &fakePlanner{outline: &driven.IntentOutline{
		Objective: "Trip to Paris",
		SubGoals:  []string{"book flights", "book hotel"},
	}}
	svc := newTestIntentService(store, planner)
	ctx := context.Background()

	intent, err := svc.CreateIntent(ctx, "plan a trip to Paris")
	require.NoError(t, err)

	assert.Equal(t, "plan a trip to Paris", planner.lastRaw)
	assert.Equal(t, "plan a trip to Paris", intent.RawIntent)
	assert.Equal(t, "Trip to Paris", intent.MainGoal.Objective)
	assert.Equal(t, domain.PriorityMedium, intent.MainGoal.Priority)
	assert.NotNil(t, intent.MainGoal.Constraints)
	assert.Equal(t, domain.IntentDraft, intent.Status)
	assert.Equal(t, fixedNow, intent.CreatedAt)
	assert.Equal(t, fixedNow, intent.UpdatedAt)
	require.Len(t, intent.SubGoals, 2)
	for _, sg := range intent.SubGoals {
		assert.NotEmpty(t, sg.ID)
		assert.Equal(t, domain.SubGoalPending, sg.Status)
	}
	assert.Equal(t, "book flights", intent.SubGoals[0].Description)

	stored, err := store.GetIntent(ctx, intent.IntentID)
	require.NoError(t, err)
	assert.Equal(t, intent, stored)
}

func TestIntentService_CreateIntent_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("blank text", func(t *testing.T) {
		svc := newTestIntentService(memory.NewStore(), &fakePlanner{})
		_, err := svc.CreateIntent(ctx, "   ")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("no planner", func(t *testing.T) {
		svc := newTestIntentService(memory.NewStore(), nil)
		_, err := svc.CreateIntent(ctx, "plan a trip")
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})

	t.Run("planner failure", func(t *testing.T) {
		svc := newTestIntentService(memory.NewStore(), &fakePlanner{outlineErr: domain.ErrMalformedOutput})
		_, err := svc.CreateIntent(ctx, "plan a trip")
		assert.ErrorIs(t, err, domain.ErrMalformedOutput)
		assert.True(t, strings.HasPrefix(err.Error(), "create intent: "))
	})

	t.Run("nil outline", func(t *testing.T) {
		svc := newTestIntentService(memory.NewStore(), &fakePlanner{})
		_, err := svc.CreateIntent(ctx, "plan a trip")
		assert.ErrorIs(t, err, domain.ErrMalformedOutput)
	})
}

func TestIntentService_GetIntent_NotFound(t *testing.T) {
	svc := newTestIntentService(memory.NewStore(), nil)
	_, err := svc.GetIntent(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIntentService_RefineIntent(t *testing.T) {
	store := memory.NewStore()
	svc := newTestIntentService(store, nil)
	ctx := context.Background()
	require.NoError(t, store.SaveIntent(ctx, storetest.NewIntent("i1")))

	goal := domain.MainGoal{Objective: "Trip to Rome"}
	refined, err := svc.RefineIntent(ctx, "i1", domain.IntentUpdate{
		MainGoal: &goal,
		SubGoals: []domain.SubGoal{{Description: "book train"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Trip to Rome", refined.MainGoal.Objective)
	assert.Equal(t, domain.PriorityMedium, refined.MainGoal.Priority)
	require.Len(t, refined.SubGoals, 1)
	assert.NotEmpty(t, refined.SubGoals[0].ID)
	assert.Equal(t, domain.SubGoalPending, refined.SubGoals[0].Status)
	assert.Equal(t, domain.IntentDraft, refined.Status)
	assert.Equal(t, "plan a trip to Paris", refined.RawIntent)
	assert.True(t, refined.UpdatedAt.After(refined.CreatedAt))
}

func TestIntentService_RefineIntent_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		svc := newTestIntentService(memory.NewStore(), nil)
		_, err := svc.RefineIntent(ctx, "missing", domain.IntentUpdate{})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("finalized intent", func(t *testing.T) {
		store := memory.NewStore()
		intent := storetest.NewIntent("i1")
		intent.Status = domain.IntentFinalized
		require.NoError(t, store.SaveIntent(ctx, intent))

		svc := newTestIntentService(store, nil)
		_, err := svc.RefineIntent(ctx, "i1", domain.IntentUpdate{})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("invalid priority", func(t *testing.T) {
		store := memory.NewStore()
		require.NoError(t, store.SaveIntent(ctx, storetest.NewIntent("i1")))

		svc := newTestIntentService(store, nil)
		_, err := svc.RefineIntent(ctx, "i1", domain.IntentUpdate{
			MainGoal: &domain.MainGoal{Objective: "x", Priority: "urgent"},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("invalid constraint", func(t *testing.T) {
		store := memory.NewStore()
		require.NoError(t, store.SaveIntent(ctx, storetest.NewIntent("i1")))

		svc := newTestIntentService(store, nil)
		_, err := svc.RefineIntent(ctx, "i1", domain.IntentUpdate{
			MainGoal: &domain.MainGoal{
				Objective:   "x",
				Constraints: []domain.Constraint{{Type: "dates", Value: []string{"a"}}},
			},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("invalid sub-goal status", func(t *testing.T) {
		store := memory.NewStore()
		require.NoError(t, store.SaveIntent(ctx, storetest.NewIntent("i1")))

		svc := newTestIntentService(store, nil)
		_, err := svc.RefineIntent(ctx, "i1", domain.IntentUpdate{
			SubGoals: []domain.SubGoal{{ID: "sg", Status: "done"}},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestIntentService_FinalizeIntent(t *testing.T) {
	store := memory.NewStore()
	svc := newTestIntentService(store, nil)
	ctx := context.Background()
	require.NoError(t, store.SaveIntent(ctx, storetest.NewIntent("i1")))

	finalized, err := svc.FinalizeIntent(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentFinalized, finalized.Status)

	again, err := svc.FinalizeIntent(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, finalized, again)

	_, err = svc.RefineIntent(ctx, "i1", domain.IntentUpdate{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestIntentService_FinalizeIntent_InvalidTransition(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	intent := storetest.NewIntent("i1")
	intent.Status = domain.IntentCompleted
	require.NoError(t, store.SaveIntent(ctx, intent))

	svc := newTestIntentService(store, nil)
	_, err := svc.FinalizeIntent(ctx, "i1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestIntentService_DeleteIntent(t *testing.T) {
	store := memory.NewStore()
	svc := newTestIntentService(store, nil)
	ctx := context.Background()
	require.NoError(t, store.SaveIntent(ctx, storetest.NewIntent("i1")))
	require.NoError(t, store.SaveFlow(ctx, storetest.NewFlow("f1", "i1")))

	require.NoError(t, svc.DeleteIntent(ctx, "i1"))

	_, err := svc.GetIntent(ctx, "i1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.GetFlow(ctx, "f1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, svc.DeleteIntent(ctx, "i1"))
}

func TestIntentService_GenerateFlows(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.SaveIntent(ctx, storetest.NewIntent("i1")))

	first := *storetest.NewFlow("", "")
	first.Metadata.Created = time.Time{}
	second := *storetest.NewFlow("f2", "i1")
	planner := &fakePlanner{flows: []domain.Flow{first, second}}
	svc := newTestIntentService(store, planner)

	flows, err := svc.GenerateFlows(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, flows, 2)

	assert.Equal(t, "plan a trip to Paris", planner.lastRaw)
	assert.NotEmpty(t, flows[0].ID)
	assert.Equal(t, "i1", flows[0].IntentID)
	assert.Equal(t, fixedNow, flows[0].Metadata.Created)
	assert.Equal(t, "f2", flows[1].ID)
	assert.Equal(t, second.Metadata.Created, flows[1].Metadata.Created)

	listed, err := svc.ListFlows(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, flows, listed)
}

func TestIntentService_GenerateFlows_Errors(t *testing.T) {
	ctx := context.Background()
	setup := func(t *testing.T, planner driven.Planner) (*memory.Store, *IntentService) {
		t.Helper()
		store := memory.NewStore()
		require.NoError(t, store.SaveIntent(ctx, storetest.NewIntent("i1")))
		return store, newTestIntentService(store, planner)
	}

	t.Run("no planner", func(t *testing.T) {
		_, svc := setup(t, nil)
		_, err := svc.GenerateFlows(ctx, "i1")
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})

	t.Run("intent not found", func(t *testing.T) {
		_, svc := setup(t, &fakePlanner{})
		_, err := svc.GenerateFlows(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("planner failure", func(t *testing.T) {
		_, svc := setup(t, &fakePlanner{flowsErr: domain.ErrMalformedOutput})
		_, err := svc.GenerateFlows(ctx, "i1")
		assert.ErrorIs(t, err, domain.ErrMalformedOutput)
	})

	t.Run("foreign intent id", func(t *testing.T) {
		store, svc := setup(t, &fakePlanner{flows: []domain.Flow{
			*storetest.NewFlow("f1", "i1"),
			*storetest.NewFlow("f2", "other"),
		}})
		_, err := svc.GenerateFlows(ctx, "i1")
		assert.ErrorIs(t, err, domain.ErrMalformedOutput)

		flows, err := store.GetFlowsByIntentID(ctx, "i1")
		require.NoError(t, err)
		assert.Empty(t, flows)
	})

	t.Run("duplicate flow ids", func(t *testing.T) {
		_, svc := setup(t, &fakePlanner{flows: []domain.Flow{
			*storetest.NewFlow("f1", "i1"),
			*storetest.NewFlow("f1", "i1"),
		}})
		_, err := svc.GenerateFlows(ctx, "i1")
		assert.ErrorIs(t, err, domain.ErrMalformedOutput)
	})

	t.Run("id owned by another intent", func(t *testing.T) {
		store, svc := setup(t, &fakePlanner{flows: []domain.Flow{*storetest.NewFlow("f1", "")}})
		require.NoError(t, store.SaveFlow(ctx, storetest.NewFlow("f1", "i2")))

		_, err := svc.GenerateFlows(ctx, "i1")
		assert.ErrorIs(t, err, domain.ErrMalformedOutput)

		flow, err := store.GetFlow(ctx, "f1")
		require.NoError(t, err)
		assert.Equal(t, "i2", flow.IntentID)
	})

	t.Run("empty answer", func(t *testing.T) {
		_, svc := setup(t, &fakePlanner{flows: nil})
		flows, err := svc.GenerateFlows(ctx, "i1")
		require.NoError(t, err)
		assert.Empty(t, flows)
	})
}

func TestIntentService_GenerateFlows_RollsBackOnSaveFailure(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	require.NoError(t, mem.SaveIntent(ctx, storetest.NewIntent("i1")))

	old := storetest.NewFlow("f1", "i1")
	old.NaturalLanguageDescription = "old"
	require.NoError(t, mem.SaveFlow(ctx, old))

	replacement := *storetest.NewFlow("f1", "i1")
	replacement.NaturalLanguageDescription = "new"
	planner := &fakePlanner{flows: []domain.Flow{
		replacement,
		*storetest.NewFlow("f2", "i1"),
		*storetest.NewFlow("f3", "i1"),
	}}

	store := &flakyStore{Store: mem, failAt: 3}
	svc := newTestIntentService(store, planner)

	_, err := svc.GenerateFlows(ctx, "i1")
	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)

	restored, err := mem.GetFlow(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "old", restored.NaturalLanguageDescription)

	_, err = mem.GetFlow(ctx, "f2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = mem.GetFlow(ctx, "f3")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	flows, err := mem.GetFlowsByIntentID(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "f1", flows[0].ID)
}

func TestIntentService_FlowQueries(t *testing.T) {
	store := memory.NewStore()
	svc := newTestIntentService(store, nil)
	ctx := context.Background()
	require.NoError(t, store.SaveFlow(ctx, storetest.NewFlow("f1", "i1")))

	flow, err := svc.GetFlow(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "f1", flow.ID)

	_, err = svc.GetFlow(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	flows, err := svc.ListFlows(ctx, "unknown")
	require.NoError(t, err)
	assert.NotNil(t, flows)
	assert.Empty(t, flows)

	require.NoError(t, svc.DeleteFlow(ctx, "f1"))
	_, err = svc.GetFlow(ctx, "f1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIntentService_DescribeFlow(t *testing.T) {
	store := memory.NewStore()
	svc := newTestIntentService(store, nil)
	ctx := context.Background()

	described := storetest.NewFlow("f1", "i1")
	require.NoError(t, store.SaveFlow(ctx, described))
	blank := storetest.NewFlow("f2", "i1")
	blank.NaturalLanguageDescription = "  "
	require.NoError(t, store.SaveFlow(ctx, blank))

	desc, err := svc.DescribeFlow(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, described.NaturalLanguageDescription, desc)

	_, err = svc.DescribeFlow(ctx, "f2")
	assert.ErrorIs(t, err, domain.ErrNoDescription)

	_, err = svc.DescribeFlow(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIntentService_ExportDIML(t *testing.T) {
	store := memory.NewStore()
	svc := newTestIntentService(store, nil)
	ctx := context.Background()
	require.NoError(t, store.SaveFlow(ctx, storetest.NewFlow("f1", "i1")))

	text, err := svc.ExportDIML(ctx, "f1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, diml.Declaration))
	assert.True(t, svc.ValidateDIML(text).Valid)

	_, err = svc.ExportDIML(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIntentService_GenerateDIML(t *testing.T) {
	ctx := context.Background()
	valid, err := diml.Encode(storetest.NewFlow("f1", "i1"))
	require.NoError(t, err)

	t.Run("valid answer", func(t *testing.T) {
		store := memory.NewStore()
		require.NoError(t, store.SaveFlow(ctx, storetest.NewFlow("f1", "i1")))
		svc := newTestIntentService(store, &fakePlanner{diml: "\n" + valid + "\n"})

		text, err := svc.GenerateDIML(ctx, "f1")
		require.NoError(t, err)
		assert.Equal(t, valid, text)
	})

	t.Run("invalid answer", func(t *testing.T) {
		store := memory.NewStore()
		require.NoError(t, store.SaveFlow(ctx, storetest.NewFlow("f1", "i1")))
		svc := newTestIntentService(store, &fakePlanner{diml: "<flow/>"})

		_, err := svc.GenerateDIML(ctx, "f1")
		assert.ErrorIs(t, err, domain.ErrMalformedOutput)
		assert.Contains(t, err.Error(), diml.MsgMissingRoot)
	})

	t.Run("no planner", func(t *testing.T) {
		svc := newTestIntentService(memory.NewStore(), nil)
		_, err := svc.GenerateDIML(ctx, "f1")
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})

	t.Run("flow not found", func(t *testing.T) {
		svc := newTestIntentService(memory.NewStore(), &fakePlanner{diml: valid})
		_, err := svc.GenerateDIML(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestIntentService_ImportDIML(t *testing.T) {
	store := memory.NewStore()
	svc := newTestIntentService(store, nil)
	ctx := context.Background()

	text, err := diml.Export(storetest.NewFlow("f1", "i1"))
	require.NoError(t, err)

	imported, err := svc.ImportDIML(ctx, text)
	require.NoError(t, err)
	assert.Equal(t, "f1", imported.ID)
	assert.Equal(t, "i1", imported.IntentID)

	flows, err := store.GetFlowsByIntentID(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "find flights", flows[0].Steps[0].Action.Query)

	_, err = svc.ImportDIML(ctx, "<deepFlow/>")
	assert.ErrorIs(t, err, domain.ErrInvalidDIML)
}

func TestIntentService_ValidateDIML(t *testing.T) {
	svc := newTestIntentService(memory.NewStore(), nil)

	res := svc.ValidateDIML("<deepFlow id=\"f1\"/>")
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, diml.MsgMissingIntent)
}
