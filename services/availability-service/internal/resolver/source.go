package resolver

import "github.com/md-rashed-zaman/slotwise/services/availability-service/internal/model"

type Kind string

const (
	KindAdvancedSchedule Kind = "advanced_schedule"
	KindAssignment       Kind = "assignment"
	KindDefaultTemplate  Kind = "default_template"
	KindNone             Kind = "none"
)

// Source is the single authoritative availability source for a date. It is
// one of AdvancedScheduleSource, AssignmentSource, DefaultTemplateSource or
// NoSource.
type Source interface {
	Kind() Kind
	isSource()
}

type AdvancedScheduleSource struct {
	Schedule model.AdvancedSchedule
}

type AssignmentSource struct {
	Assignment model.TemplateAssignment
	Template   model.AvailabilityTemplate
}

type DefaultTemplateSource struct {
	Template model.AvailabilityTemplate
}

type NoSource struct{}

func (AdvancedScheduleSource) Kind() Kind { return KindAdvancedSchedule }
func (AssignmentSource) Kind() Kind       { return KindAssignment }
func (DefaultTemplateSource) Kind() Kind  { return KindDefaultTemplate }
func (NoSource) Kind() Kind               { return KindNone }

func (AdvancedScheduleSource) isSource() {}
func (AssignmentSource) isSource()       {}
func (DefaultTemplateSource) isSource()  {}
func (NoSource) isSource()               {}
