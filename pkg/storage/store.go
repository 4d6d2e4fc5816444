package storage

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/navigator-hub/flow-runner/pkg/core"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// Store wraps the database handle with the queries the API, scheduler and
// supervisor need.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the sqlite database at path.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// AutoMigrate creates or updates the schema for every model.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&Category{},
		&Tag{},
		&Site{},
		&User{},
		&Flow{},
		&ExecutionRecord{},
	)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories() ([]Category, error) {
	var out []Category
	err := s.db.Order("name").Find(&out).Error
	return out, err
}

// UpsertCategory creates the category or, when it exists, updates its
// description if one is given.
func (s *Store) UpsertCategory(name string, description *string) (*Category, error) {
	var cat Category
	err := s.db.Where("name = ?", name).First(&cat).Error
	if errors.Is(err, ErrNotFound) {
		cat = Category{Name: name, Description: description}
		if err := s.db.Create(&cat).Error; err != nil {
			return nil, err
		}
		return &cat, nil
	}
	if err != nil {
		return nil, err
	}
	if description != nil {
		cat.Description = description
	}
	if err := s.db.Save(&cat).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

// DeleteCategory removes the category and detaches its sites.
func (s *Store) DeleteCategory(id uint) error {
	res := s.db.Delete(&Category{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return s.db.Model(&Site{}).Where("category_id = ?", id).Update("category_id", nil).Error
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags() ([]Tag, error) {
	var out []Tag
	err := s.db.Order("name").Find(&out).Error
	return out, err
}

// UpsertTag creates the tag or, when it exists, updates its color if one
// is given.
func (s *Store) UpsertTag(name string, color *string) (*Tag, error) {
	var tag Tag
	err := s.db.Where("name = ?", name).First(&tag).Error
	if errors.Is(err, ErrNotFound) {
		tag = Tag{Name: name, Color: color}
		if err := s.db.Create(&tag).Error; err != nil {
			return nil, err
		}
		return &tag, nil
	}
	if err != nil {
		return nil, err
	}
	if color != nil {
		tag.Color = color
	}
	if err := s.db.Save(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// DeleteTag removes the tag and its site links.
func (s *Store) DeleteTag(id uint) error {
	res := s.db.Delete(&Tag{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return s.db.Exec("DELETE FROM site_tag_links WHERE tag_id = ?", id).Error
}

// ListSites returns a page of sites with tags and category preloaded.
func (s *Store) ListSites(offset, limit int) ([]Site, error) {
	var out []Site
	err := s.db.Preload("Tags").Preload("Category").
		Order("sort_order, id").
		Offset(offset).Limit(limit).
		Find(&out).Error
	return out, err
}

// GetSite loads one site with tags and category preloaded.
func (s *Store) GetSite(id uint) (*Site, error) {
	var site Site
	if err := s.db.Preload("Tags").Preload("Category").First(&site, id).Error; err != nil {
		return nil, err
	}
	return &site, nil
}

// CreateSite inserts the site and attaches the given tags.
func (s *Store) CreateSite(site *Site, tagIDs []uint) (*Site, error) {
	tags, err := s.resolveTags(tagIDs)
	if err != nil {
		return nil, err
	}
	site.Tags = tags
	if err := s.db.Create(site).Error; err != nil {
		return nil, err
	}
	return s.GetSite(site.ID)
}

// UpdateSite saves the site fields. A nil tagIDs keeps the current tags,
// a non-nil one replaces them.
func (s *Store) UpdateSite(site *Site, tagIDs []uint) (*Site, error) {
	if err := s.db.Omit(clause.Associations).Save(site).Error; err != nil {
		return nil, err
	}
	if tagIDs != nil {
		tags, err := s.resolveTags(tagIDs)
		if err != nil {
			return nil, err
		}
		assoc := s.db.Model(site).Association("Tags")
		if len(tags) == 0 {
			if err := assoc.Clear(); err != nil {
				return nil, err
			}
		} else if err := assoc.Replace(tags); err != nil {
			return nil, err
		}
	}
	return s.GetSite(site.ID)
}

// DeleteSite removes the site and its tag links.
func (s *Store) DeleteSite(id uint) error {
	res := s.db.Delete(&Site{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return s.db.Exec("DELETE FROM site_tag_links WHERE site_id = ?", id).Error
}

func (s *Store) resolveTags(ids []uint) ([]Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tags []Tag
	err := s.db.Where("id IN ?", ids).Find(&tags).Error
	return tags, err
}

// ListFlows returns a page of flows.
func (s *Store) ListFlows(offset, limit int) ([]Flow, error) {
	var out []Flow
	err := s.db.Order("id").Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}

// GetFlow loads one flow.
func (s *Store) GetFlow(id uint) (*Flow, error) {
	var flow Flow
	if err := s.db.First(&flow, id).Error; err != nil {
		return nil, err
	}
	return &flow, nil
}

// CreateFlow inserts the flow.
func (s *Store) CreateFlow(flow *Flow) error {
	return s.db.Omit(clause.Associations).Create(flow).Error
}

// UpdateFlow saves all flow fields.
func (s *Store) UpdateFlow(flow *Flow) error {
	return s.db.Omit(clause.Associations).Save(flow).Error
}

// DeleteFlow removes the flow.
func (s *Store) DeleteFlow(id uint) error {
	res := s.db.Delete(&Flow{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFlowStatus updates only the flow's last execution status.
func (s *Store) SetFlowStatus(id uint, status core.FlowStatus) error {
	return s.db.Model(&Flow{}).Where("id = ?", id).Update("last_status", status).Error
}

// ListScheduledFlows returns the active flows that carry a cron expression.
func (s *Store) ListScheduledFlows() ([]Flow, error) {
	var out []Flow
	err := s.db.
		Where("is_active = ? AND cron_expression IS NOT NULL AND cron_expression <> ''", true).
		Order("id").
		Find(&out).Error
	return out, err
}

// SaveRecord inserts one execution history row.
func (s *Store) SaveRecord(rec *ExecutionRecord) error {
	return s.db.Create(rec).Error
}

// ListHistory returns a page of history records, newest first. A non-empty
// errorKind keeps only records whose error kinds contain it.
func (s *Store) ListHistory(offset, limit int, errorKind string) ([]ExecutionRecord, error) {
	var out []ExecutionRecord
	err := s.historyQuery(errorKind).
		Order("started_at DESC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	return out, err
}

// ListFlowHistory returns a page of one flow's history, newest first.
func (s *Store) ListFlowHistory(flowID uint, offset, limit int, errorKind string) ([]ExecutionRecord, error) {
	var out []ExecutionRecord
	err := s.historyQuery(errorKind).
		Where("flow_id = ?", flowID).
		Order("started_at DESC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	return out, err
}

// CountHistory returns the total number of history records matching the
// optional error kind filter.
func (s *Store) CountHistory(errorKind string) (int64, error) {
	var n int64
	err := s.historyQuery(errorKind).Count(&n).Error
	return n, err
}

// GetHistory loads one history record.
func (s *Store) GetHistory(id uint) (*ExecutionRecord, error) {
	var rec ExecutionRecord
	if err := s.db.First(&rec, id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteHistory removes one history record.
func (s *Store) DeleteHistory(id uint) error {
	res := s.db.Delete(&ExecutionRecord{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) historyQuery(errorKind string) *gorm.DB {
	q := s.db.Model(&ExecutionRecord{})
	if errorKind != "" {
		// Error kinds are stored as a JSON array; match the quoted value.
		q = q.Where("error_kinds LIKE ?", `%"`+errorKind+`"%`)
	}
	return q
}

// GetUserByEmail loads one user by email.
func (s *Store) GetUserByEmail(email string) (*User, error) {
	var user User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser loads one user by id.
func (s *Store) GetUser(id uint) (*User, error) {
	var user User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts the user.
func (s *Store) CreateUser(user *User) error {
	return s.db.Create(user).Error
}

// CountUsers returns the number of registered users.
func (s *Store) CountUsers() (int64, error) {
	var n int64
	err := s.db.Model(&User{}).Count(&n).Error
	return n, err
}
