package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type KbChunk struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CollectionId   string          `gorm:"type:varchar(255);not null;index"`
	Content        string          `gorm:"type:text"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text uses 768 dimensions
	ChunkIndex     int             `gorm:"default:0"` // 0-based index for ordering
	Source         string          `gorm:"type:varchar(512)"`
	Metadata       datatypes.JSON  `gorm:"type:jsonb"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
}

func (KbChunk) TableName() string {
	return "kb_chunks"
}
