package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/engine"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/model"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type providerDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

type locationDTO struct {
	Display string `json:"display"`
}

type slotDTO struct {
	ID                string      `json:"id"`
	StartTime         string      `json:"startTime"`
	EndTime           string      `json:"endTime"`
	Duration          int         `json:"duration"`
	Location          locationDTO `json:"location"`
	AvailableServices []string    `json:"availableServices"`
	SlotsRemaining    int         `json:"slotsRemaining"`
	Type              string      `json:"type"`
	CalendarEventID   string      `json:"calendarEventId,omitempty"`
}

type slotsResponse struct {
	Success    bool        `json:"success"`
	Provider   providerDTO `json:"provider"`
	StartDate  string      `json:"startDate"`
	DaysAhead  int         `json:"daysAhead"`
	TotalSlots int         `json:"totalSlots"`
	Slots      []slotDTO   `json:"slots"`
}

type windowDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type dayResponse struct {
	Success               bool        `json:"success"`
	Provider              providerDTO `json:"provider"`
	Date                  string      `json:"date"`
	Source                string      `json:"source"`
	TemplateID            string      `json:"templateId,omitempty"`
	AssignmentID          string      `json:"assignmentId,omitempty"`
	ScheduleID            string      `json:"scheduleId,omitempty"`
	UsingAdvancedSchedule bool        `json:"usingAdvancedSchedule"`
	Timezone              string      `json:"timezone"`
	Windows               []windowDTO `json:"windows"`
	Location              locationDTO `json:"location"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Success: false, Error: msg})
}

func toSlotsResponse(res engine.Result) slotsResponse {
	slots := make([]slotDTO, 0, len(res.Slots))
	for _, s := range res.Slots {
		slots = append(slots, toSlotDTO(s))
	}
	return slotsResponse{
		Success:    true,
		Provider:   providerDTO{ID: res.Provider.ID, Name: res.Provider.Name, Timezone: res.Timezone},
		StartDate:  res.StartDate.String(),
		DaysAhead:  res.DaysAhead,
		TotalSlots: len(slots),
		Slots:      slots,
	}
}

func toSlotDTO(s model.GeneratedSlot) slotDTO {
	services := s.AvailableServices
	if services == nil {
		services = []string{}
	}
	return slotDTO{
		ID:                s.ID,
		StartTime:         s.Start.UTC().Format(time.RFC3339),
		EndTime:           s.End.UTC().Format(time.RFC3339),
		Duration:          s.DurationMinutes,
		Location:          locationDTO{Display: s.LocationDisplay},
		AvailableServices: services,
		SlotsRemaining:    s.RemainingCapacity,
		Type:              string(s.Source),
		CalendarEventID:   s.CalendarEventID,
	}
}

func toDayResponse(v engine.DayView) dayResponse {
	windows := make([]windowDTO, 0, len(v.Plan.Windows))
	for _, w := range v.Plan.Windows {
		windows = append(windows, windowDTO{Start: w.Start.String(), End: w.End.String()})
	}
	return dayResponse{
		Success:               true,
		Provider:              providerDTO{ID: v.Provider.ID, Name: v.Provider.Name, Timezone: v.Timezone},
		Date:                  v.Plan.Date.String(),
		Source:                string(v.Plan.Source),
		TemplateID:            v.Plan.TemplateID,
		AssignmentID:          v.Plan.AssignmentID,
		ScheduleID:            v.Plan.ScheduleID,
		UsingAdvancedSchedule: v.Plan.UsingAdvancedSchedule,
		Timezone:              v.Timezone,
		Windows:               windows,
		Location:              locationDTO{Display: v.LocationDisplay},
	}
}
