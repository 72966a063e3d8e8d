package services

import (
	"errors"
	"strings"

	"github.com/dinetap/dinein-app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Tab rows live in two storage shapes, a migration artifact: the current
// top-level `tabs` table and the legacy business-scoped `business_tabs`
// table. One repository interface covers both; only path resolution differs.
const (
	TabShapePrimary = "tabs"
	TabShapeLegacy  = "business_tabs"

	// Legacy rows sometimes embed the token in a composite id.
	compositeTabIDSeparator = "::"
)

// lockForUpdate turns subsequent reads on tx into locking reads under mysql.
// InnoDB's repeatable-read snapshot is taken at the transaction's first
// SELECT, so a plain read inside a check-then-write cannot see rows a
// concurrent writer committed after that point; FOR UPDATE reads the latest
// committed version instead. sqlite serializes writers on its own and
// rejects the clause.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "mysql" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// SplitCompositeTabID unpacks a legacy "<tabID>::<token>" composite id.
// The token part is empty for plain ids.
func SplitCompositeTabID(id string) (tabID, token string) {
	if i := strings.Index(id, compositeTabIDSeparator); i >= 0 {
		return id[:i], id[i+len(compositeTabIDSeparator):]
	}
	return id, ""
}

// TabRepository fetches and persists tabs for one storage shape.
type TabRepository interface {
	Shape() string
	Find(tx *gorm.DB, businessID, tabID string) (*models.Tab, error)
	FindOpenByTable(tx *gorm.DB, businessID, tableID string, statuses ...string) ([]models.Tab, error)
	Save(tx *gorm.DB, tab *models.Tab) error
}

type shapedTabRepo struct {
	shape string
}

func (r *shapedTabRepo) Shape() string { return r.shape }

func (r *shapedTabRepo) Find(tx *gorm.DB, businessID, tabID string) (*models.Tab, error) {
	q := tx.Table(r.shape).Where("tab_id = ?", tabID)
	if r.shape == TabShapeLegacy {
		// Legacy rows are only addressable inside their business scope.
		q = q.Where("business_id = ?", businessID)
	}

	var tab models.Tab
	if err := q.First(&tab).Error; err != nil {
		return nil, err
	}
	tab.StorageShape = r.shape
	return &tab, nil
}

func (r *shapedTabRepo) FindOpenByTable(tx *gorm.DB, businessID, tableID string, statuses ...string) ([]models.Tab, error) {
	var tabs []models.Tab
	err := tx.Table(r.shape).
		Where("business_id = ? AND table_id = ? AND status IN ?", businessID, tableID, statuses).
		Find(&tabs).Error
	if err != nil {
		return nil, err
	}
	for i := range tabs {
		tabs[i].StorageShape = r.shape
	}
	return tabs, nil
}

func (r *shapedTabRepo) Save(tx *gorm.DB, tab *models.Tab) error {
	if tab.StorageShape == "" {
		tab.StorageShape = r.shape
	}
	if tab.ID == 0 {
		return tx.Table(tab.StorageShape).Create(tab).Error
	}
	return tx.Table(tab.StorageShape).Save(tab).Error
}

// TabStore is the lookup-fallback chain over the two shapes: primary first,
// legacy second. Writes go back to whichever shape the row was loaded from.
type TabStore struct {
	repos []TabRepository
}

func NewTabStore() *TabStore {
	return &TabStore{
		repos: []TabRepository{
			&shapedTabRepo{shape: TabShapePrimary},
			&shapedTabRepo{shape: TabShapeLegacy},
		},
	}
}

// Find walks the shape chain and returns the first hit. The id may be a
// legacy composite id; the embedded token, when present, is returned so the
// caller can use it for validation.
func (s *TabStore) Find(tx *gorm.DB, businessID, id string) (*models.Tab, string, error) {
	tabID, embeddedToken := SplitCompositeTabID(id)

	for _, repo := range s.repos {
		tab, err := repo.Find(tx, businessID, tabID)
		if err == nil {
			return tab, embeddedToken, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", wrapInternal(err)
		}
	}

	return nil, embeddedToken, E(KindNotFound, "tab %s not found", tabID)
}

// FindOpenByTable merges open tabs at a table from both shapes.
func (s *TabStore) FindOpenByTable(tx *gorm.DB, businessID, tableID string, statuses ...string) ([]models.Tab, error) {
	var all []models.Tab
	for _, repo := range s.repos {
		tabs, err := repo.FindOpenByTable(tx, businessID, tableID, statuses...)
		if err != nil {
			return nil, wrapInternal(err)
		}
		all = append(all, tabs...)
	}
	return all, nil
}

// Save persists a tab into the shape it came from; new tabs always go to the
// primary shape.
func (s *TabStore) Save(tx *gorm.DB, tab *models.Tab) error {
	if tab.StorageShape == "" {
		tab.StorageShape = TabShapePrimary
	}
	for _, repo := range s.repos {
		if repo.Shape() == tab.StorageShape {
			if err := repo.Save(tx, tab); err != nil {
				return wrapInternal(err)
			}
			return nil
		}
	}
	return E(KindInternal, "unknown tab storage shape %q", tab.StorageShape)
}
