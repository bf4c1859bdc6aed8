package implementation

import (
	"context"

	"ai-teaching-be/internal/entity"
	"ai-teaching-be/internal/mapper"
	"ai-teaching-be/internal/model"
	"ai-teaching-be/internal/repository/contract"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type KbChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.KbChunkMapper
}

func NewKbChunkRepository(db *gorm.DB) contract.KbChunkRepository {
	return &KbChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewKbChunkMapper(),
	}
}

var _ contract.KbChunkRepository = &KbChunkRepositoryImpl{}

func (r *KbChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.KbChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	models := make([]*model.KbChunk, len(chunks))
	for i, c := range chunks {
		models[i] = r.mapper.ToModel(c)
	}

	return r.db.WithContext(ctx).CreateInBatches(models, 100).Error
}

func (r *KbChunkRepositoryImpl) DeleteByCollection(ctx context.Context, collectionId string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("collection_id = ?", collectionId).
		Delete(&model.KbChunk{})
	return result.RowsAffected, result.Error
}

func (r *KbChunkRepositoryImpl) FindAllByCollection(ctx context.Context, collectionId string) ([]*entity.KbChunk, error) {
	var models []*model.KbChunk
	err := r.db.WithContext(ctx).
		Where("collection_id = ?", collectionId).
		Order("chunk_index ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	chunks := make([]*entity.KbChunk, len(models))
	for i, m := range models {
		chunks[i] = r.mapper.ToEntity(m)
	}
	return chunks, nil
}

func (r *KbChunkRepositoryImpl) CountByCollection(ctx context.Context, collectionId string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.KbChunk{}).
		Where("collection_id = ?", collectionId).
		Count(&count).Error
	return count, err
}

func (r *KbChunkRepositoryImpl) ListCollections(ctx context.Context, prefix string) ([]string, error) {
	var ids []string
	query := r.db.WithContext(ctx).
		Model(&model.KbChunk{}).
		Distinct("collection_id")
	if prefix != "" {
		query = query.Where("collection_id LIKE ?", prefix+"%")
	}
	err := query.Order("collection_id ASC").Pluck("collection_id", &ids).Error
	return ids, err
}

func (r *KbChunkRepositoryImpl) SearchNearest(ctx context.Context, collectionId string, embedding []float32, limit int) ([]*contract.ScoredKbChunk, error) {
	queryVector := pgvector.NewVector(embedding)

	var results []struct {
		model.KbChunk
		Distance float64
	}

	err := r.db.WithContext(ctx).
		Model(&model.KbChunk{}).
		Select("kb_chunks.*, embedding_value <=> ? AS distance", queryVector).
		Where("collection_id = ?", collectionId).
		Order(gorm.Expr("embedding_value <=> ?", queryVector)).
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredKbChunk, len(results))
	for i, res := range results {
		chunk := res.KbChunk
		scored[i] = &contract.ScoredKbChunk{
			Chunk:    r.mapper.ToEntity(&chunk),
			Distance: res.Distance,
		}
	}
	return scored, nil
}
