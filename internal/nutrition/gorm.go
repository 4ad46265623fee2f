package nutrition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nutrilog/internal/food"
	"nutrilog/internal/ledger"
)

// Record is the Postgres row behind GormStore. Each part of the document is
// a JSONB column.
type Record struct {
	UserID        uint64                                         `gorm:"primaryKey;autoIncrement:false"`
	Goals         datatypes.JSONType[ledger.Goals]               `gorm:"type:jsonb;not null"`
	DailyLogs     datatypes.JSONType[map[string]ledger.DailyLog] `gorm:"type:jsonb;not null"`
	FavoriteFoods datatypes.JSONSlice[food.Item]                 `gorm:"type:jsonb;not null"`
	UpdatedAt     time.Time                                      `gorm:"index;not null;default:now()"`
}

func (Record) TableName() string { return "nutrition_documents" }

type GormStore struct {
	DB *gorm.DB
}

func (s *GormStore) Load(ctx context.Context, userID uint64) (Document, error) {
	var rec Record
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("nutrition: load document: %w", err)
	}
	return Document{
		Goals:         rec.Goals.Data(),
		DailyLogs:     rec.DailyLogs.Data(),
		FavoriteFoods: []food.Item(rec.FavoriteFoods),
		UpdatedAt:     rec.UpdatedAt,
	}, nil
}

// Save upserts the whole document; the previous row is overwritten.
func (s *GormStore) Save(ctx context.Context, userID uint64, doc Document) error {
	rec := Record{
		UserID:        userID,
		Goals:         datatypes.NewJSONType(doc.Goals),
		DailyLogs:     datatypes.NewJSONType(doc.DailyLogs),
		FavoriteFoods: datatypes.JSONSlice[food.Item](doc.FavoriteFoods),
		UpdatedAt:     doc.UpdatedAt,
	}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"goals", "daily_logs", "favorite_foods", "updated_at"}),
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("nutrition: save document: %w", err)
	}
	return nil
}
