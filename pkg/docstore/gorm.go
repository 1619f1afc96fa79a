package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Document 所有集合共用一张表，字段以 JSON 形式存储
type Document struct {
	Seq        uint64         `gorm:"primaryKey;autoIncrement" json:"-"`
	Collection string         `gorm:"size:64;not null;uniqueIndex:idx_collection_doc" json:"collection"`
	DocID      string         `gorm:"column:doc_id;size:64;not null;uniqueIndex:idx_collection_doc" json:"id"`
	Data       datatypes.JSON `gorm:"not null" json:"data"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

func (Document) TableName() string {
	return "documents"
}

type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Migrate() error {
	return s.DB.AutoMigrate(&Document{})
}

func (s *GormStore) Get(ctx context.Context, collection, id string) (*Record, error) {
	var doc Document
	err := s.DB.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toRecord()
}

func (s *GormStore) List(ctx context.Context, collection string, q Query) ([]Record, error) {
	query := s.DB.WithContext(ctx).Where("collection = ?", collection)
	for _, f := range q.Filters {
		query = query.Where(datatypes.JSONQuery("data").Equals(f.Value, f.Field))
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var docs []Document
	if err := query.Order("seq asc").Find(&docs).Error; err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(docs))
	for i := range docs {
		rec, err := docs[i].toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

func (s *GormStore) Create(ctx context.Context, collection, id string, fields map[string]any) (*Record, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Collection: collection,
		DocID:      id,
		Data:       datatypes.JSON(data),
	}
	if err := s.DB.WithContext(ctx).Create(doc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return doc.toRecord()
}

func (s *GormStore) Update(ctx context.Context, collection, id string, fields map[string]any) (*Record, error) {
	var updated *Record
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc Document
		err := tx.Where("collection = ? AND doc_id = ?", collection, id).First(&doc).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		current := map[string]any{}
		if len(doc.Data) > 0 {
			if err := json.Unmarshal(doc.Data, &current); err != nil {
				return err
			}
		}
		for k, v := range fields {
			current[k] = v
		}

		data, err := json.Marshal(current)
		if err != nil {
			return err
		}
		doc.Data = datatypes.JSON(data)
		if err := tx.Save(&doc).Error; err != nil {
			return err
		}

		updated, err = doc.toRecord()
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (d *Document) toRecord() (*Record, error) {
	fields := map[string]any{}
	if len(d.Data) > 0 {
		if err := json.Unmarshal(d.Data, &fields); err != nil {
			return nil, err
		}
	}
	return &Record{
		ID:         d.DocID,
		Collection: d.Collection,
		Fields:     fields,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}, nil
}
