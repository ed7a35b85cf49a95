package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the single headline document per account. Section entries
// (education, projects, skills, experience) hang off the account, not
// the profile row, so they can be edited independently.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	FullName  string    `json:"full_name"`
	Headline  string    `json:"headline"`
	Summary   string    `json:"summary"`
	Location  string    `json:"location"`
	Website   string    `json:"website"`
	UpdatedAt time.Time `json:"updated_at"`
}

type EducationEntry struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	School    string    `json:"school"`
	Degree    string    `json:"degree"`
	Field     string    `json:"field"`
	StartYear int       `json:"start_year"`
	EndYear   *int      `json:"end_year,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ProjectEntry struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type SkillEntry struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Name      string    `json:"name"`
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ExperienceEntry struct {
	ID          uuid.UUID  `json:"id"`
	AccountID   uuid.UUID  `json:"account_id"`
	Company     string     `json:"company"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
