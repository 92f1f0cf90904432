package engine

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/location"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/resolver"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/tz"
)

// DayView explains how a single date is resolved, without generating slots.
type DayView struct {
	Provider        model.Provider
	Plan            resolver.DayPlan
	Timezone        string
	LocationDisplay string
}

// Day resolves the windows, zone and location of a single date for a provider.
func (e *Engine) Day(ctx context.Context, providerID string, date tz.Date) (DayView, error) {
	const op = "engine.Day"

	ctx, span := e.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("provider.id", providerID),
		attribute.String("date", date.String()),
	))
	defer span.End()

	view, err := e.day(ctx, strings.TrimSpace(providerID), date)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return DayView{}, fmt.Errorf("%s: %w", op, err)
	}
	return view, nil
}

func (e *Engine) day(ctx context.Context, providerID string, date tz.Date) (DayView, error) {
	if providerID == "" {
		return DayView{}, fmt.Errorf("%w: provider id is required", ErrInvalidQuery)
	}
	if date.IsZero() {
		return DayView{}, fmt.Errorf("%w: date is required", ErrInvalidQuery)
	}

	provider, err := e.repo.Provider(ctx, providerID)
	if err != nil {
		return DayView{}, err
	}
	provider = provider.Normalize()

	var snap resolver.Snapshot
	var locations []model.ProviderLocation
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Templates, err = e.repo.Templates(gctx, providerID)
		return wrap("templates", err)
	})
	g.Go(func() (err error) {
		snap.Assignments, err = e.repo.Assignments(gctx, providerID, date, date)
		return wrap("assignments", err)
	})
	g.Go(func() (err error) {
		snap.Schedules, err = e.repo.AdvancedSchedules(gctx, providerID, date, date)
		return wrap("advanced schedules", err)
	})
	g.Go(func() (err error) {
		locations, err = e.repo.Locations(gctx, providerID)
		return wrap("locations", err)
	})
	if err := g.Wait(); err != nil {
		return DayView{}, err
	}

	plan := resolver.New(snap, e.tz.FallbackName()).Resolve(date)
	_, zone := e.tz.Load(plan.Timezone)
	return DayView{
		Provider:        provider,
		Plan:            plan,
		Timezone:        zone,
		LocationDisplay: location.NewAnnotator(locations).Display(date),
	}, nil
}
