package dto

import "github.com/noah-isme/sma-notify-api/internal/models"

// AlertListResponse is the list payload consumed by the notification feed.
// unread_count covers the whole filtered visibility set, not just this page.
type AlertListResponse struct {
	Alerts      []models.Alert `json:"alerts"`
	Total       int            `json:"total"`
	Page        int            `json:"page"`
	PerPage     int            `json:"per_page"`
	TotalPages  int            `json:"total_pages"`
	UnreadCount int            `json:"unread_count"`
}

// AlertActionResponse confirms a single-alert lifecycle action.
type AlertActionResponse struct {
	Message string `json:"message"`
	AlertID string `json:"alert_id"`
}

// BulkAlertActionResponse confirms a bulk lifecycle action.
type BulkAlertActionResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// UnreadCountResponse carries the badge counter for polling clients.
type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}
