//go:build !integration

package usecase

import (
	"context"
	"errors"
	"testing"

	"telegram-channel-subscription/internal/domain"
)

func TestCatalogUseCase_RegisterAndSetPlans(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()

	if _, err := e.catalog.RegisterChannel(ctx, testChannel, "Premium", testAdmin); err != nil {
		t.Fatalf("RegisterChannel: %v", err)
	}
	cat, err := e.catalog.SetPlans(ctx, testChannel, map[int]string{90: "250", 30: "99"})
	if err != nil {
		t.Fatalf("SetPlans: %v", err)
	}
	if len(cat) != 2 || cat[0].Minutes != 30 {
		t.Fatalf("expected ordered catalog, got %+v", cat)
	}

	p, err := e.catalog.GetPlan(ctx, testChannel, 90)
	if err != nil || p.Price != "250" {
		t.Errorf("GetPlan(90) = %+v, %v", p, err)
	}
	if _, err := e.catalog.GetPlan(ctx, testChannel, 60); !errors.Is(err, domain.ErrPlanNotFound) {
		t.Errorf("expected ErrPlanNotFound, got %v", err)
	}
	if _, err := e.catalog.GetPlan(ctx, -1, 30); !errors.Is(err, domain.ErrChannelNotFound) {
		t.Errorf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestCatalogUseCase_SetPlansReplacesWholeCatalog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()
	_, _ = e.catalog.RegisterChannel(ctx, testChannel, "Premium", testAdmin)
	_, _ = e.catalog.SetPlans(ctx, testChannel, map[int]string{30: "99", 90: "250"})

	if _, err := e.catalog.SetPlans(ctx, testChannel, map[int]string{60: "150"}); err != nil {
		t.Fatalf("SetPlans: %v", err)
	}
	plans, _ := e.catalog.ListPlans(ctx, testChannel)
	if len(plans) != 1 || plans[0].Minutes != 60 {
		t.Errorf("expected only the 60 minute plan, got %+v", plans)
	}
}

func TestCatalogUseCase_InvalidInputLeavesCatalogUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()
	_, _ = e.catalog.RegisterChannel(ctx, testChannel, "Premium", testAdmin)
	_, _ = e.catalog.SetPlans(ctx, testChannel, map[int]string{30: "99"})

	for _, in := range []map[int]string{{}, {0: "1"}, {30: ""}, {30: "5", -1: "5"}, {200000000: "5"}} {
		if _, err := e.catalog.SetPlans(ctx, testChannel, in); !errors.Is(err, domain.ErrInvalidFormat) {
			t.Errorf("SetPlans(%v): expected ErrInvalidFormat, got %v", in, err)
		}
	}
	plans, _ := e.catalog.ListPlans(ctx, testChannel)
	if len(plans) != 1 || plans[0].Price != "99" {
		t.Errorf("catalog changed after invalid input: %+v", plans)
	}
}

func TestCatalogUseCase_ReRegisterKeepsPlans(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv()
	_, _ = e.catalog.RegisterChannel(ctx, testChannel, "Old name", testAdmin)
	_, _ = e.catalog.SetPlans(ctx, testChannel, map[int]string{30: "99"})

	ch, err := e.catalog.RegisterChannel(ctx, testChannel, "New name", 2222)
	if err != nil {
		t.Fatalf("RegisterChannel: %v", err)
	}
	if ch.Name != "New name" || ch.AdminID != 2222 {
		t.Errorf("expected last write to win for name/admin, got %+v", ch)
	}
	if len(ch.Plans) != 1 {
		t.Errorf("expected plans to survive re-registration, got %+v", ch.Plans)
	}
	owned, _ := e.catalog.ListChannels(ctx, 2222)
	if len(owned) != 1 {
		t.Errorf("expected channel listed under new admin, got %d", len(owned))
	}
}
