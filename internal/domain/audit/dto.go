package audit

import "github.com/cmlabs-hris/geofence-attendance/internal/pkg/validator"

type AuditFilter struct {
	ActorID   *string `json:"actor_id,omitempty"`
	Action    *string `json:"action,omitempty"`
	StartDate *string `json:"start_date,omitempty" validate:"omitempty,yyyymmdd"`
	EndDate   *string `json:"end_date,omitempty" validate:"omitempty,yyyymmdd"`

	// Pagination
	Page  int `json:"page" validate:"gte=0"`
	Limit int `json:"limit" validate:"gte=0,lte=100"`
}

func (f *AuditFilter) Validate() error {
	if err := validator.Struct(f); err != nil {
		return err
	}
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit == 0 {
		f.Limit = 50
	}
	return nil
}

type EntryResponse struct {
	ID        string         `json:"id"`
	ActorID   string         `json:"actor_id"`
	ActorName *string        `json:"actor_name,omitempty"`
	Action    string         `json:"action"`
	Target    string         `json:"target"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt string         `json:"created_at"`
}

type ListAuditResponse struct {
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
	Entries    []EntryResponse `json:"entries"`
}
