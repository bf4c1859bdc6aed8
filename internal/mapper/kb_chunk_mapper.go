package mapper

import (
	"encoding/json"

	"ai-teaching-be/internal/entity"
	"ai-teaching-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type KbChunkMapper struct{}

func NewKbChunkMapper() *KbChunkMapper {
	return &KbChunkMapper{}
}

func (m *KbChunkMapper) ToModel(e *entity.KbChunk) *model.KbChunk {
	var meta datatypes.JSON
	if len(e.Metadata) > 0 {
		if data, err := json.Marshal(e.Metadata); err == nil {
			meta = data
		}
	}

	return &model.KbChunk{
		Id:             e.Id,
		CollectionId:   e.CollectionId,
		Content:        e.Content,
		EmbeddingValue: pgvector.NewVector(e.Embedding),
		ChunkIndex:     e.ChunkIndex,
		Source:         e.Source,
		Metadata:       meta,
		CreatedAt:      e.CreatedAt,
	}
}

func (m *KbChunkMapper) ToEntity(mod *model.KbChunk) *entity.KbChunk {
	var meta map[string]string
	if len(mod.Metadata) > 0 {
		_ = json.Unmarshal(mod.Metadata, &meta)
	}

	return &entity.KbChunk{
		Id:           mod.Id,
		CollectionId: mod.CollectionId,
		Content:      mod.Content,
		Embedding:    mod.EmbeddingValue.Slice(),
		ChunkIndex:   mod.ChunkIndex,
		Source:       mod.Source,
		Metadata:     meta,
		CreatedAt:    mod.CreatedAt,
	}
}
