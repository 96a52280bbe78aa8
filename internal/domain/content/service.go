package content

import (
	"context"
	"regexp"
	"strings"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vetrina-server-go/internal/domain/eventbus"
	"vetrina-server-go/internal/platform/errors"
	"vetrina-server-go/internal/platform/logging"
	"vetrina-server-go/internal/platform/storage"
)

// Service owns the durable content state: one row per section key plus the
// ordered catalog. Every successful mutation publishes on the content bus so
// the read cache drops its slots.
type Service struct {
	db     *gorm.DB
	bus    evbus.Bus
	logger *logging.Logger
	now    func() time.Time
}

type Options struct {
	DB     *gorm.DB
	Bus    evbus.Bus
	Logger *logging.Logger
}

func NewService(opts Options) *Service {
	bus := opts.Bus
	if bus == nil {
		bus = eventbus.Get()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		db:     opts.DB,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) publishChanged() {
	s.bus.Publish(eventbus.TopicContentChanged)
}

// Sections returns every stored section keyed by section key.
func (s *Service) Sections(ctx context.Context) (map[string]map[string]interface{}, error) {
	var rows []storage.ContentSection
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "content.sections", "load sections", err)
	}

	out := make(map[string]map[string]interface{}, len(rows))
	for _, row := range rows {
		doc := map[string]interface{}{}
		if len(row.Data) > 0 {
			if err := sonic.Unmarshal(row.Data, &doc); err != nil {
				return nil, errors.Wrap(errors.KindStorage, "content.sections", "decode section "+row.Key, err)
			}
		}
		out[row.Key] = doc
	}
	return out, nil
}

// UpsertSection replaces the document stored under key. Free-text values are
// sanitized before persistence.
func (s *Service) UpsertSection(ctx context.Context, key string, doc map[string]interface{}) error {
	const op = "content.upsert_section"
	if !ValidSectionKey(key) {
		return errors.New(errors.KindValidation, op, "unknown section key: "+key)
	}
	if doc == nil {
		return errors.New(errors.KindValidation, op, "empty section body")
	}

	SanitizeDocument(doc)
	raw, err := sonic.Marshal(doc)
	if err != nil {
		return errors.Wrap(errors.KindValidation, op, "encode section body", err)
	}

	section := storage.ContentSection{
		Key:       key,
		Data:      datatypes.JSON(raw),
		UpdatedAt: s.now(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&section).Error
	if err != nil {
		return errors.Wrap(errors.KindStorage, op, "persist section", err)
	}

	s.publishChanged()
	return nil
}

// Item is the decoded catalog row returned to callers.
type Item struct {
	ID        uint                   `json:"id"`
	Slug      string                 `json:"slug"`
	SortOrder int                    `json:"sort_order"`
	Data      map[string]interface{} `json:"data"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func decodeItem(row storage.CatalogItem) (Item, error) {
	doc := map[string]interface{}{}
	if len(row.Data) > 0 {
		if err := sonic.Unmarshal(row.Data, &doc); err != nil {
			return Item{}, err
		}
	}
	return Item{
		ID:        row.ID,
		Slug:      row.Slug,
		SortOrder: row.SortOrder,
		Data:      doc,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// Items returns the catalog in display order. Ties on sort_order break by id.
func (s *Service) Items(ctx context.Context) ([]Item, error) {
	const op = "content.items"
	var rows []storage.CatalogItem
	if err := s.db.WithContext(ctx).Order("sort_order, id").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, "load catalog", err)
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		item, err := decodeItem(row)
		if err != nil {
			return nil, errors.Wrap(errors.KindStorage, op, "decode item "+row.Slug, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// ItemBySlug returns a single catalog item, KindNotFound when absent.
func (s *Service) ItemBySlug(ctx context.Context, slug string) (Item, error) {
	const op = "content.item_by_slug"
	var row storage.CatalogItem
	err := s.db.WithContext(ctx).Where("slug = ?", slug).Take(&row).Error
	if err == gorm.ErrRecordNotFound {
		return Item{}, errors.New(errors.KindNotFound, op, "no item with slug "+slug)
	}
	if err != nil {
		return Item{}, errors.Wrap(errors.KindStorage, op, "load item", err)
	}

	item, err := decodeItem(row)
	if err != nil {
		return Item{}, errors.Wrap(errors.KindStorage, op, "decode item", err)
	}
	return item, nil
}

var slugStrip = regexp.MustCompile(`[^a-z0-9-]+`)

// NormalizeSlug lowercases, hyphenates whitespace and strips everything that
// is not url-safe. The canonical form is returned to the caller so optimistic
// mirrors can correct themselves.
func NormalizeSlug(slug string) string {
	slug = strings.ToLower(strings.TrimSpace(slug))
	slug = strings.Join(strings.Fields(slug), "-")
	slug = slugStrip.ReplaceAllString(slug, "")
	return strings.Trim(slug, "-")
}

// CreateItem appends a catalog item at the end of the current order.
func (s *Service) CreateItem(ctx context.Context, slug string, doc map[string]interface{}) (Item, error) {
	const op = "content.create_item"
	slug = NormalizeSlug(slug)
	if slug == "" {
		return Item{}, errors.New(errors.KindValidation, op, "empty slug")
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	SanitizeDocument(doc)

	raw, err := sonic.Marshal(doc)
	if err != nil {
		return Item{}, errors.Wrap(errors.KindValidation, op, "encode item body", err)
	}

	var row storage.CatalogItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&storage.CatalogItem{}).Where("slug = ?", slug).Count(&taken).Error; err != nil {
			return errors.Wrap(errors.KindStorage, op, "check slug", err)
		}
		if taken > 0 {
			return errors.New(errors.KindConflict, op, "slug already in use: "+slug)
		}

		var maxOrder int
		if err := tx.Model(&storage.CatalogItem{}).
			Select("COALESCE(MAX(sort_order), -1)").
			Scan(&maxOrder).Error; err != nil {
			return errors.Wrap(errors.KindStorage, op, "read max sort order", err)
		}

		row = storage.CatalogItem{
			Slug:      slug,
			SortOrder: maxOrder + 1,
			Data:      datatypes.JSON(raw),
			UpdatedAt: s.now(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return errors.Wrap(errors.KindStorage, op, "insert item", err)
		}
		return nil
	})
	if err != nil {
		return Item{}, err
	}

	s.publishChanged()
	return decodeItemOrStorage(op, row)
}

// UpdateItem replaces an item's document and, when slug is non-empty, its
// slug. KindConflict when the new slug belongs to another item.
func (s *Service) UpdateItem(ctx context.Context, id uint, slug string, doc map[string]interface{}) (Item, error) {
	const op = "content.update_item"
	if doc == nil {
		return Item{}, errors.New(errors.KindValidation, op, "empty item body")
	}
	SanitizeDocument(doc)

	raw, err := sonic.Marshal(doc)
	if err != nil {
		return Item{}, errors.Wrap(errors.KindValidation, op, "encode item body", err)
	}

	var row storage.CatalogItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&row, id).Error; err == gorm.ErrRecordNotFound {
			return errors.New(errors.KindNotFound, op, "no such catalog item")
		} else if err != nil {
			return errors.Wrap(errors.KindStorage, op, "load item", err)
		}

		if slug != "" {
			slug = NormalizeSlug(slug)
			if slug == "" {
				return errors.New(errors.KindValidation, op, "invalid slug")
			}
			var taken int64
			if err := tx.Model(&storage.CatalogItem{}).
				Where("slug = ? AND id <> ?", slug, id).
				Count(&taken).Error; err != nil {
				return errors.Wrap(errors.KindStorage, op, "check slug", err)
			}
			if taken > 0 {
				return errors.New(errors.KindConflict, op, "slug already in use: "+slug)
			}
			row.Slug = slug
		}

		row.Data = datatypes.JSON(raw)
		row.UpdatedAt = s.now()
		if err := tx.Save(&row).Error; err != nil {
			return errors.Wrap(errors.KindStorage, op, "persist item", err)
		}
		return nil
	})
	if err != nil {
		return Item{}, err
	}

	s.publishChanged()
	return decodeItemOrStorage(op, row)
}

// DeleteItem removes a catalog item. KindNotFound when id is unknown.
func (s *Service) DeleteItem(ctx context.Context, id uint) error {
	const op = "content.delete_item"
	res := s.db.WithContext(ctx).Delete(&storage.CatalogItem{}, id)
	if res.Error != nil {
		return errors.Wrap(errors.KindStorage, op, "delete item", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.New(errors.KindNotFound, op, "no such catalog item")
	}

	s.publishChanged()
	return nil
}

// Reorder rewrites sort_order to list position, atomically. An id missing
// from the database aborts the whole transaction. Ids absent from the list
// keep their old positions; callers are expected to send the full current
// id set.
func (s *Service) Reorder(ctx context.Context, ids []uint) error {
	const op = "content.reorder"
	if len(ids) == 0 {
		return errors.New(errors.KindValidation, op, "empty order list")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for position, id := range ids {
			res := tx.Model(&storage.CatalogItem{}).
				Where("id = ?", id).
				Updates(map[string]interface{}{
					"sort_order": position,
					"updated_at": s.now(),
				})
			if res.Error != nil {
				return errors.Wrap(errors.KindStorage, op, "update sort order", res.Error)
			}
			if res.RowsAffected == 0 {
				return errors.New(errors.KindValidation, op, "unknown catalog item in order list")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publishChanged()
	return nil
}

// Reset wipes all sections and catalog items and reseeds the defaults.
func (s *Service) Reset(ctx context.Context) error {
	const op = "content.reset"
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&storage.ContentSection{}).Error; err != nil {
			return errors.Wrap(errors.KindStorage, op, "clear sections", err)
		}
		if err := tx.Where("1 = 1").Delete(&storage.CatalogItem{}).Error; err != nil {
			return errors.Wrap(errors.KindStorage, op, "clear catalog", err)
		}

		now := s.now()
		for key, doc := range DefaultSections() {
			raw, err := sonic.Marshal(doc)
			if err != nil {
				return errors.Wrap(errors.KindStorage, op, "encode default section", err)
			}
			section := storage.ContentSection{
				Key:       key,
				Data:      datatypes.JSON(raw),
				UpdatedAt: now,
			}
			if err := tx.Create(&section).Error; err != nil {
				return errors.Wrap(errors.KindStorage, op, "seed section "+key, err)
			}
		}
		for position, seed := range DefaultCatalogItems() {
			raw, err := sonic.Marshal(seed.Data)
			if err != nil {
				return errors.Wrap(errors.KindStorage, op, "encode default item", err)
			}
			item := storage.CatalogItem{
				Slug:      seed.Slug,
				SortOrder: position,
				Data:      datatypes.JSON(raw),
				UpdatedAt: now,
			}
			if err := tx.Create(&item).Error; err != nil {
				return errors.Wrap(errors.KindStorage, op, "seed item "+seed.Slug, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publishChanged()
	return nil
}

// Seed writes defaults only when the store is completely empty, so a fresh
// install serves real content without clobbering operator edits.
func (s *Service) Seed(ctx context.Context) error {
	var sections, items int64
	if err := s.db.WithContext(ctx).Model(&storage.ContentSection{}).Count(&sections).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "content.seed", "count sections", err)
	}
	if err := s.db.WithContext(ctx).Model(&storage.CatalogItem{}).Count(&items).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "content.seed", "count catalog", err)
	}
	if sections > 0 || items > 0 {
		return nil
	}
	return s.Reset(ctx)
}

// FullPayload is the merged public document: every section plus the ordered
// catalog. Served through the read cache.
func (s *Service) FullPayload(ctx context.Context) (interface{}, error) {
	sections, err := s.Sections(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.Items(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"sections": sections,
		"products": items,
	}, nil
}

// ItemsPayload is the catalog-only public document.
func (s *Service) ItemsPayload(ctx context.Context) (interface{}, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"products": items}, nil
}

func decodeItemOrStorage(op string, row storage.CatalogItem) (Item, error) {
	item, err := decodeItem(row)
	if err != nil {
		return Item{}, errors.Wrap(errors.KindStorage, op, "decode item", err)
	}
	return item, nil
}
