package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"ai-teaching-be/internal/dto"
	"ai-teaching-be/internal/pkg/logger"
	"ai-teaching-be/pkg/cache"
	"ai-teaching-be/pkg/events"
	"ai-teaching-be/pkg/extract"
	pktNats "ai-teaching-be/pkg/nats"
	"ai-teaching-be/pkg/rag/scope"
	"ai-teaching-be/pkg/vectorstore"

	"github.com/gofiber/fiber/v2"
)

type IKnowledgeService interface {
	Upload(ctx context.Context, userId string, req *dto.UploadKnowledgeRequest, files []*multipart.FileHeader) (*dto.UploadKnowledgeResponse, error)
	DeleteCollection(ctx context.Context, userId string, req *dto.DeleteCollectionRequest) (*dto.DeleteCollectionResponse, error)
	ListCollections(ctx context.Context, userId string) (*dto.ListCollectionsResponse, error)
}

type knowledgeService struct {
	basePath         string
	store            vectorstore.Store
	retrievalCache   cache.RetrievalCache
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
	log              logger.ILogger
}

func NewKnowledgeService(
	basePath string,
	store vectorstore.Store,
	retrievalCache cache.RetrievalCache,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IKnowledgeService {
	return &knowledgeService{
		basePath:         basePath,
		store:            store,
		retrievalCache:   retrievalCache,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		log:              log,
	}
}

func scopeFromParams(userId, role, courseId, lessonId, purpose string) scope.Scope {
	p := scope.Purpose(purpose)
	if purpose == "" {
		p = scope.PurposeCourseMaterial
	}
	return scope.Scope{
		OwnerID:  userId,
		Role:     scope.Role(role),
		CourseID: courseId,
		LessonID: lessonId,
		Purpose:  p,
	}
}

func (s *knowledgeService) Upload(ctx context.Context, userId string, req *dto.UploadKnowledgeRequest, files []*multipart.FileHeader) (*dto.UploadKnowledgeResponse, error) {
	paths, err := scope.Resolve(scopeFromParams(userId, req.Role, req.CourseId, req.LessonId, req.Purpose))
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "no files uploaded")
	}

	destDir := filepath.Join(s.basePath, paths.RawFilesDir)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	var saved []string
	var names []string
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		if !extract.IsSupported(name) {
			return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unsupported file type: %s", name))
		}

		dest := filepath.Join(destDir, name)
		if err := saveUpload(fh, dest); err != nil {
			return nil, fmt.Errorf("failed to save %s: %w", name, err)
		}
		saved = append(saved, dest)
		names = append(names, name)
	}

	msg := dto.IngestKnowledgeMessage{
		CollectionId: paths.CollectionID,
		OwnerId:      userId,
		FilePaths:    saved,
	}
	msgJson, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	if err := s.publisherService.Publish(ctx, msgJson); err != nil {
		return nil, fmt.Errorf("failed to queue ingestion: %w", err)
	}

	s.log.Info("knowledge", "Queued files for ingestion", map[string]interface{}{
		"collection_id": paths.CollectionID,
		"files":         names,
	})

	return &dto.UploadKnowledgeResponse{
		CollectionId: paths.CollectionID,
		Files:        names,
		Queued:       len(saved),
	}, nil
}

func saveUpload(fh *multipart.FileHeader, dest string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}

func (s *knowledgeService) DeleteCollection(ctx context.Context, userId string, req *dto.DeleteCollectionRequest) (*dto.DeleteCollectionResponse, error) {
	paths, err := scope.Resolve(scopeFromParams(userId, req.Role, req.CourseId, req.LessonId, req.Purpose))
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteCollection(ctx, paths.CollectionID); err != nil && err != vectorstore.ErrCollectionNotFound {
		return nil, err
	}

	s.retrievalCache.FlushCollection(paths.CollectionID)

	if err := os.RemoveAll(filepath.Join(s.basePath, paths.RawFilesDir)); err != nil {
		s.log.Warn("knowledge", "Failed to remove raw files", map[string]interface{}{
			"collection_id": paths.CollectionID,
			"error":         err.Error(),
		})
	}

	if s.eventPublisher != nil {
		evt := events.NewKnowledgeDeleted(paths.CollectionID, userId)
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.log.Warn("knowledge", "Failed to publish knowledge deleted event", map[string]interface{}{
				"collection_id": paths.CollectionID,
				"error":         err.Error(),
			})
		}
	}

	s.log.Info("knowledge", "Collection deleted", map[string]interface{}{
		"collection_id": paths.CollectionID,
	})

	return &dto.DeleteCollectionResponse{CollectionId: paths.CollectionID}, nil
}

func (s *knowledgeService) ListCollections(ctx context.Context, userId string) (*dto.ListCollectionsResponse, error) {
	ids, err := s.store.ListCollections(ctx, "kb_"+userId+"_")
	if err != nil {
		return nil, err
	}

	infos := make([]dto.CollectionInfo, 0, len(ids))
	for _, id := range ids {
		docs, err := s.store.GetAll(ctx, id)
		if err != nil {
			if err == vectorstore.ErrCollectionNotFound {
				continue
			}
			return nil, err
		}
		infos = append(infos, dto.CollectionInfo{
			CollectionId: id,
			ChunkCount:   int64(len(docs)),
		})
	}

	return &dto.ListCollectionsResponse{Collections: infos}, nil
}
