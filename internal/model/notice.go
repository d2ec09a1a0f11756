package model

import "time"

// Notice is a site announcement (공지사항) managed from the admin console.
// CreatedBy and UpdatedBy record the admin that performed the change.
type Notice struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	Published bool      `json:"published" db:"published"`
	Pinned    bool      `json:"pinned" db:"pinned"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	UpdatedBy string    `json:"updated_by" db:"updated_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Setting is a single key/value site setting (maintenance banner, contact
// address and similar).
type Setting struct {
	Key       string    `json:"key" db:"setting_key"`
	Value     string    `json:"value" db:"value"`
	UpdatedBy string    `json:"updated_by" db:"updated_by"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
