package dto

import "time"

type UpdateScheduleRequest struct {
	TimeZone  string `json:"time_zone" binding:"required"`
	Frequency string `json:"frequency" binding:"required,oneof=daily weekdays weekly"`
	Time      string `json:"time" binding:"required"`
}

type ScheduleResponse struct {
	TimeZone           string     `json:"time_zone"`
	Frequency          string     `json:"frequency"`
	Time               string     `json:"time"`
	Paused             bool       `json:"paused"`
	OnboardingComplete bool       `json:"onboarding_complete"`
	NextDeliveryAt     *time.Time `json:"next_delivery_at"`
	LastDeliveryAt     *time.Time `json:"last_delivery_at"`
}
