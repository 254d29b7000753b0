package models

import "time"

type Workgroup struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type WorkgroupMember struct {
	ID          string    `json:"id"`
	WorkgroupID string    `json:"workgroup_id"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}
