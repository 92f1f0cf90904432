package model

import "github.com/md-rashed-zaman/slotwise/services/availability-service/internal/tz"

type ProviderLocation struct {
	ID            string
	ProviderID    string
	City          string
	StateProvince string
	Country       string
	Description   string
	StartDate     *tz.Date
	EndDate       *tz.Date
	IsDefault     bool
}
