package adapters

import (
	"time"

	"crypto_backend/internal/feature/registry/domain/entity"
)

// CoinModel は tracked_coins テーブルの行を表すGORMモデルです。
// メタデータはJSONカラムにシリアライズされます。
type CoinModel struct {
	ID          uint           `gorm:"primaryKey"`
	Symbol      string         `gorm:"size:20;not null;uniqueIndex:idx_tracked_coins_symbol"`
	Name        string         `gorm:"size:255;not null"`
	ExternalID  *string        `gorm:"column:external_id;size:255;uniqueIndex:idx_tracked_coins_external_id"`
	Metadata    map[string]any `gorm:"serializer:json;type:json"`
	Note        *string        `gorm:"type:text"`
	LastUpdated time.Time      `gorm:"not null"`
}

func (CoinModel) TableName() string {
	return "tracked_coins"
}

func toModel(e *entity.TrackedCoin) CoinModel {
	md := e.Metadata.Clone()
	return CoinModel{
		ID:          e.ID,
		Symbol:      e.Symbol,
		Name:        e.Name,
		ExternalID:  e.ExternalID,
		Metadata:    md,
		Note:        e.Note,
		LastUpdated: e.LastUpdated,
	}
}

func toEntity(m CoinModel) entity.TrackedCoin {
	md := entity.Metadata(m.Metadata)
	if md == nil {
		md = entity.Metadata{}
	}
	return entity.TrackedCoin{
		ID:          m.ID,
		Symbol:      m.Symbol,
		Name:        m.Name,
		ExternalID:  m.ExternalID,
		Metadata:    md,
		Note:        m.Note,
		LastUpdated: m.LastUpdated,
	}
}
