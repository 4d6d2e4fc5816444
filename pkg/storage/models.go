// Package storage persists the site catalog, flows, users and execution
// history in sqlite through gorm.
package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/navigator-hub/flow-runner/pkg/core"
)

// StringList stores a []string as a JSON text column so history rows can
// be filtered with a LIKE over the serialized array.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		if len(v) == 0 {
			*l = nil
			return nil
		}
		return json.Unmarshal(v, (*[]string)(l))
	case string:
		if v == "" {
			*l = nil
			return nil
		}
		return json.Unmarshal([]byte(v), (*[]string)(l))
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
}

// Category groups sites in the catalog.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;index;not null" json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Tag is a free-form label attached to sites.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;index;not null" json:"name"`
	Color     *string   `gorm:"size:20" json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Site is one target website flows run against.
type Site struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:200;index;not null" json:"name"`
	URL         string    `gorm:"size:1024;not null" json:"url"`
	Description *string   `json:"description"`
	CategoryID  *uint     `json:"category_id"`
	SortOrder   int       `json:"sort_order"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Tags     []Tag     `gorm:"many2many:site_tag_links" json:"tags"`
}

// User is an API account. The password hash never serializes.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	HashedPassword string    `gorm:"size:255;not null" json:"-"`
	FullName       *string   `gorm:"size:200" json:"full_name"`
	IsActive       bool      `json:"is_active"`
	IsSuperuser    bool      `json:"is_superuser"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Flow is one configured automation: the step DSL plus the browser and
// scheduling settings it runs with.
type Flow struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	SiteID         uint            `gorm:"index;not null" json:"site_id"`
	Name           string          `gorm:"size:200;not null" json:"name"`
	Description    *string         `json:"description"`
	CronExpression *string         `gorm:"size:100" json:"cron_expression"`
	IsActive       bool            `json:"is_active"`
	DSL            string          `gorm:"type:text;not null" json:"dsl"`
	LastStatus     core.FlowStatus `gorm:"size:20" json:"last_status"`

	Headless        bool    `json:"headless"`
	BrowserKind     string  `gorm:"size:50" json:"browser_kind"`
	BrowserPath     *string `gorm:"size:1024" json:"browser_path"`
	UseAttachedMode bool    `json:"use_attached_mode"`
	DebugPort       int     `gorm:"default:9222" json:"debug_port"`
	ProfileDir      *string `gorm:"size:1024" json:"profile_dir"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Site *Site `gorm:"foreignKey:SiteID" json:"site,omitempty"`
}

// ExecutionRecord is one finished (or aborted) run of a flow.
type ExecutionRecord struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	FlowID          uint            `gorm:"index;not null" json:"flow_id"`
	Status          core.FlowStatus `gorm:"size:20" json:"status"`
	StartedAt       time.Time       `gorm:"index" json:"started_at"`
	FinishedAt      *time.Time      `json:"finished_at"`
	DurationMs      *int64          `json:"duration_ms"`
	Log             string          `gorm:"type:text" json:"log"`
	ResultPayload   string          `gorm:"type:text" json:"result_payload"`
	ErrorMessage    string          `gorm:"type:text" json:"error_message"`
	ScreenshotFiles StringList      `gorm:"type:text" json:"screenshot_files"`
	ErrorKinds      StringList      `gorm:"type:text" json:"error_kinds"`
	CreatedAt       time.Time       `json:"created_at"`
}
