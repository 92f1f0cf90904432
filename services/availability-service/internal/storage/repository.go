package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/slotwise/libs/db"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/engine"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/tz"
)

// Repository reads the availability model from Postgres. Every query is
// read-only.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ engine.Repository = (*Repository)(nil)

func (r *Repository) Provider(ctx context.Context, providerID string) (model.Provider, error) {
	const op = "storage.Provider"

	var (
		p         model.Provider
		durations []int32
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, default_duration, buffer_minutes, advance_booking_days,
			allowed_durations, service_types
		FROM providers
		WHERE id = $1::uuid
	`, providerID).Scan(&p.ID, &p.Name, &p.DefaultDuration, &p.BufferMinutes, &p.AdvanceBookingDays,
		&durations, &p.ServiceTypes)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Provider{}, engine.ErrProviderNotFound
	}
	if err != nil {
		return model.Provider{}, fmt.Errorf("%s: %w", op, err)
	}
	for _, d := range durations {
		p.AllowedDurations = append(p.AllowedDurations, int(d))
	}
	return p, nil
}

func (r *Repository) Templates(ctx context.Context, providerID string) ([]model.AvailabilityTemplate, error) {
	const op = "storage.Templates"

	rows, err := r.pool.Query(ctx, `
		SELECT id::text, provider_id::text, name, timezone, is_default, is_active, created_at
		FROM availability_templates
		WHERE provider_id = $1::uuid
		ORDER BY created_at, id
	`, providerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	templates, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.AvailabilityTemplate, error) {
		var t model.AvailabilityTemplate
		err := row.Scan(&t.ID, &t.ProviderID, &t.Name, &t.Timezone, &t.IsDefault, &t.IsActive, &t.CreatedAt)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err = r.pool.Query(ctx, `
		SELECT w.template_id::text, w.weekday, to_char(w.start_time, 'HH24:MI'), to_char(w.end_time, 'HH24:MI')
		FROM template_windows w
		JOIN availability_templates t ON t.id = w.template_id
		WHERE t.provider_id = $1::uuid
		ORDER BY w.template_id, w.weekday, w.start_time
	`, providerID)
	if err != nil {
		return nil, fmt.Errorf("%s: windows: %w", op, err)
	}
	defer rows.Close()

	byID := make(map[string]int, len(templates))
	for i, t := range templates {
		byID[t.ID] = i
	}
	for rows.Next() {
		var (
			templateID string
			weekday    int16
			start, end string
		)
		if err := rows.Scan(&templateID, &weekday, &start, &end); err != nil {
			return nil, fmt.Errorf("%s: windows: %w", op, err)
		}
		w, err := parseWindow(start, end)
		if err != nil {
			return nil, fmt.Errorf("%s: template %s: %w", op, templateID, err)
		}
		if i, ok := byID[templateID]; ok {
			templates[i].Windows = append(templates[i].Windows, model.RecurringWindow{Weekday: time.Weekday(weekday), Window: w})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: windows: %w", op, err)
	}
	return templates, nil
}

func (r *Repository) Assignments(ctx context.Context, providerID string, from, to tz.Date) ([]model.TemplateAssignment, error) {
	const op = "storage.Assignments"

	rows, err := r.pool.Query(ctx, `
		SELECT id::text, provider_id::text, template_id::text, start_date, end_date, created_at
		FROM template_assignments
		WHERE provider_id = $1::uuid
			AND start_date <= $3::date
			AND (end_date IS NULL OR end_date >= $2::date)
	`, providerID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.TemplateAssignment, error) {
		var (
			a     model.TemplateAssignment
			start time.Time
			end   *time.Time
		)
		if err := row.Scan(&a.ID, &a.ProviderID, &a.TemplateID, &start, &end, &a.CreatedAt); err != nil {
			return a, err
		}
		a.StartDate = tz.DateOf(start)
		a.EndDate = optionalDate(end)
		return a, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *Repository) AdvancedSchedules(ctx context.Context, providerID string, from, to tz.Date) ([]model.AdvancedSchedule, error) {
	const op = "storage.AdvancedSchedules"

	rows, err := r.pool.Query(ctx, `
		SELECT s.id::text, s.provider_id::text, s.schedule_date, s.timezone, s.created_at,
			to_char(w.start_time, 'HH24:MI'), to_char(w.end_time, 'HH24:MI')
		FROM advanced_schedules s
		LEFT JOIN advanced_schedule_windows w ON w.schedule_id = s.id
		WHERE s.provider_id = $1::uuid
			AND s.schedule_date BETWEEN $2::date AND $3::date
		ORDER BY s.schedule_date, s.id, w.start_time
	`, providerID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []model.AdvancedSchedule
	index := map[string]int{}
	for rows.Next() {
		var (
			s          model.AdvancedSchedule
			date       time.Time
			start, end *string
		)
		if err := rows.Scan(&s.ID, &s.ProviderID, &date, &s.Timezone, &s.CreatedAt, &start, &end); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		i, ok := index[s.ID]
		if !ok {
			s.Date = tz.DateOf(date)
			out = append(out, s)
			i = len(out) - 1
			index[s.ID] = i
		}
		// A schedule without windows closes its date.
		if start == nil || end == nil {
			continue
		}
		w, err := parseWindow(*start, *end)
		if err != nil {
			return nil, fmt.Errorf("%s: schedule %s: %w", op, s.ID, err)
		}
		out[i].Windows = append(out[i].Windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *Repository) CalendarEvents(ctx context.Context, providerID string, from, to time.Time) ([]model.CalendarEvent, error) {
	const op = "storage.CalendarEvents"

	rows, err := r.pool.Query(ctx, `
		SELECT id::text, provider_id::text, COALESCE(connection_id::text, ''), title, start_time, end_time,
			status, location, allow_bookings, max_bookings, current_bookings, service_types
		FROM calendar_events
		WHERE provider_id = $1::uuid
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time, id
	`, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.CalendarEvent, error) {
		var e model.CalendarEvent
		err := row.Scan(&e.ID, &e.ProviderID, &e.ConnectionID, &e.Title, &e.Start, &e.End,
			&e.Status, &e.Location, &e.AllowBookings, &e.MaxBookings, &e.CurrentBookings, &e.ServiceTypes)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *Repository) Bookings(ctx context.Context, providerID string, from, to time.Time) ([]model.Booking, error) {
	const op = "storage.Bookings"

	rows, err := r.pool.Query(ctx, `
		SELECT id::text, provider_id::text, COALESCE(calendar_event_id::text, ''), scheduled_at, duration_minutes, status
		FROM bookings
		WHERE provider_id = $1::uuid
			AND scheduled_at < $3
			AND scheduled_at + make_interval(mins => duration_minutes) > $2
		ORDER BY scheduled_at, id
	`, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Booking, error) {
		var b model.Booking
		err := row.Scan(&b.ID, &b.ProviderID, &b.CalendarEventID, &b.ScheduledAt, &b.DurationMinutes, &b.Status)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *Repository) Locations(ctx context.Context, providerID string) ([]model.ProviderLocation, error) {
	const op = "storage.Locations"

	rows, err := r.pool.Query(ctx, `
		SELECT id::text, provider_id::text, city, state_province, country, description, start_date, end_date, is_default
		FROM provider_locations
		WHERE provider_id = $1::uuid
	`, providerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ProviderLocation, error) {
		var (
			l          model.ProviderLocation
			start, end *time.Time
		)
		if err := row.Scan(&l.ID, &l.ProviderID, &l.City, &l.StateProvince, &l.Country, &l.Description, &start, &end, &l.IsDefault); err != nil {
			return l, err
		}
		l.StartDate = optionalDate(start)
		l.EndDate = optionalDate(end)
		return l, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *Repository) StaleConnections(ctx context.Context, olderThan time.Time) ([]model.CalendarConnection, error) {
	const op = "storage.StaleConnections"

	rows, err := r.pool.Query(ctx, `
		SELECT id::text, provider_id::text, platform, last_synced_at
		FROM calendar_connections
		WHERE is_active AND (last_synced_at IS NULL OR last_synced_at < $1)
		ORDER BY last_synced_at NULLS FIRST, id
		LIMIT 500
	`, olderThan)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.CalendarConnection, error) {
		var c model.CalendarConnection
		err := row.Scan(&c.ID, &c.ProviderID, &c.Platform, &c.LastSyncedAt)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func parseWindow(start, end string) (model.Window, error) {
	s, err := tz.ParseClock(start)
	if err != nil {
		return model.Window{}, err
	}
	e, err := tz.ParseClock(end)
	if err != nil {
		return model.Window{}, err
	}
	return model.Window{Start: s, End: e}, nil
}

func optionalDate(t *time.Time) *tz.Date {
	if t == nil {
		return nil
	}
	d := tz.DateOf(*t)
	return &d
}
