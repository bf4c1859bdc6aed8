package service

import (
	"context"
	"fmt"
	"path/filepath"

	"ai-teaching-be/internal/dto"
	"ai-teaching-be/internal/pkg/logger"
	"ai-teaching-be/pkg/rag/contextmgr"
	"ai-teaching-be/pkg/rag/generate"
	"ai-teaching-be/pkg/rag/history"
	"ai-teaching-be/pkg/rag/prompt"
	"ai-teaching-be/pkg/rag/retriever"
	"ai-teaching-be/pkg/rag/scope"

	"github.com/gofiber/fiber/v2"
)

const (
	// Returned verbatim when retrieval finds nothing relevant.
	answerNotFound = "抱歉，我在当前知识库中没有找到与您问题相关的信息。请尝试重新表述您的问题，或者检查是否选择了正确的课程和课时。"
	// Returned verbatim when generation or retrieval breaks.
	answerError = "抱歉，处理您的问题时出现了错误，请稍后重试。"

	defaultExerciseCount = 5
	defaultOutlineWords  = 500
)

type IAssistantService interface {
	QA(ctx context.Context, userId string, req *dto.QARequest) (*dto.QAResponse, error)
	Search(ctx context.Context, userId string, req *dto.SearchRequest) (*dto.SearchResponse, error)
	Exercise(ctx context.Context, userId string, req *dto.ExerciseRequest) (*dto.ExerciseResponse, error)
	Outline(ctx context.Context, userId string, req *dto.OutlineRequest) (*dto.OutlineResponse, error)
	Chat(ctx context.Context, userId string, req *dto.ChatRequest) (*dto.ChatResponse, error)
}

type assistantService struct {
	basePath     string
	retriever    *retriever.Retriever
	contexts     *contextmgr.Store
	orchestrator *generate.Orchestrator
	historyStore *history.Store
	log          logger.ILogger
}

func NewAssistantService(
	basePath string,
	ret *retriever.Retriever,
	contexts *contextmgr.Store,
	orchestrator *generate.Orchestrator,
	historyStore *history.Store,
	log logger.ILogger,
) IAssistantService {
	return &assistantService{
		basePath:     basePath,
		retriever:    ret,
		contexts:     contexts,
		orchestrator: orchestrator,
		historyStore: historyStore,
		log:          log,
	}
}

func promptHistory(turns []contextmgr.Turn) []prompt.HistoryTurn {
	out := make([]prompt.HistoryTurn, len(turns))
	for i, t := range turns {
		out[i] = prompt.HistoryTurn{Query: t.Query, Answer: t.Answer}
	}
	return out
}

func (s *assistantService) QA(ctx context.Context, userId string, req *dto.QARequest) (*dto.QAResponse, error) {
	paths, err := scope.Resolve(scopeFromParams(userId, req.Role, req.CourseId, req.LessonId, req.Purpose))
	if err != nil {
		return nil, err
	}

	mode := retriever.ModeHybrid
	if req.UseKeyword != nil && !*req.UseKeyword {
		mode = retriever.ModeVector
	}
	result := s.retriever.RetrieveTopK(ctx, paths.CollectionID, req.Query, mode, req.TopK)

	switch result.Outcome {
	case retriever.OutcomeNotFound:
		return &dto.QAResponse{Answer: answerNotFound, Found: false, SessionId: req.SessionId}, nil

	case retriever.OutcomeFailure:
		s.log.Error("assistant", "Retrieval failed", map[string]interface{}{
			"collection_id": paths.CollectionID,
			"error":         result.Err.Error(),
		})
		return &dto.QAResponse{Answer: answerError, Found: false, SessionId: req.SessionId}, nil
	}

	docs := make([]string, len(result.Documents))
	for i, d := range result.Documents {
		docs[i] = d.Content
	}

	var turns []contextmgr.Turn
	if req.UseContext == nil || *req.UseContext {
		turns = s.contexts.RelevantHistory(req.SessionId, req.Query)
	}
	promptStr := prompt.QA(req.Query, docs, promptHistory(turns))

	answer, err := s.orchestrator.Generate(ctx, promptStr)
	if err != nil {
		s.log.Error("assistant", "Generation failed", map[string]interface{}{
			"session_id": req.SessionId,
			"error":      err.Error(),
		})
		return &dto.QAResponse{Answer: answerError, Found: true, SessionId: req.SessionId}, nil
	}

	s.contexts.Update(req.SessionId, req.Query, answer, docs)
	s.saveDialogue(userId, req.SessionId, req.Role, "qa", req.Query, answer)

	return &dto.QAResponse{Answer: answer, Found: true, SessionId: req.SessionId}, nil
}

func (s *assistantService) Search(ctx context.Context, userId string, req *dto.SearchRequest) (*dto.SearchResponse, error) {
	paths, err := scope.Resolve(scopeFromParams(userId, req.Role, req.CourseId, req.LessonId, req.Purpose))
	if err != nil {
		return nil, err
	}

	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}

	scored, err := s.retriever.SearchScored(ctx, paths.CollectionID, req.Query, topK)
	if err != nil {
		return nil, err
	}

	hits := make([]dto.SearchHit, len(scored))
	for i, d := range scored {
		hits[i] = dto.SearchHit{
			Content: d.Content,
			Score:   d.Score,
			Source:  d.Metadata["source"],
		}
	}
	return &dto.SearchResponse{Hits: hits}, nil
}

func (s *assistantService) Exercise(ctx context.Context, userId string, req *dto.ExerciseRequest) (*dto.ExerciseResponse, error) {
	content, err := s.lessonContent(ctx, userId, req.Role, req.CourseId, req.LessonId)
	if err != nil {
		return nil, err
	}

	count := req.Count
	if count <= 0 {
		count = defaultExerciseCount
	}

	promptStr := prompt.Exercise(content, req.Difficulty, count)
	exercises, err := s.orchestrator.Generate(ctx, promptStr)
	if err != nil {
		return nil, fmt.Errorf("exercise generation failed: %w", err)
	}

	return &dto.ExerciseResponse{Exercises: exercises}, nil
}

func (s *assistantService) Outline(ctx context.Context, userId string, req *dto.OutlineRequest) (*dto.OutlineResponse, error) {
	content, err := s.lessonContent(ctx, userId, req.Role, req.CourseId, req.LessonId)
	if err != nil {
		return nil, err
	}

	maxWords := req.MaxWords
	if maxWords <= 0 {
		maxWords = defaultOutlineWords
	}

	promptStr := prompt.Outline(content, maxWords)
	outline, err := s.orchestrator.Generate(ctx, promptStr)
	if err != nil {
		return nil, fmt.Errorf("outline generation failed: %w", err)
	}

	return &dto.OutlineResponse{Outline: outline}, nil
}

func (s *assistantService) Chat(ctx context.Context, userId string, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	turns := s.contexts.History(req.SessionId)
	promptStr := prompt.Chat(req.Query, promptHistory(turns))

	answer, err := s.orchestrator.Generate(ctx, promptStr)
	if err != nil {
		s.log.Error("assistant", "Chat generation failed", map[string]interface{}{
			"session_id": req.SessionId,
			"error":      err.Error(),
		})
		return &dto.ChatResponse{Answer: answerError, SessionId: req.SessionId}, nil
	}

	s.contexts.Update(req.SessionId, req.Query, answer, nil)
	s.saveDialogue(userId, req.SessionId, req.Role, "chat", req.Query, answer)

	return &dto.ChatResponse{Answer: answer, SessionId: req.SessionId}, nil
}

// lessonContent loads the full lesson text, preferring the vector collection
// and falling back to the raw uploaded files.
func (s *assistantService) lessonContent(ctx context.Context, userId, role, courseId, lessonId string) (string, error) {
	paths, err := scope.Resolve(scopeFromParams(userId, role, courseId, lessonId, ""))
	if err != nil {
		return "", err
	}

	content, err := s.retriever.GetLessonContent(ctx, paths.CollectionID, filepath.Join(s.basePath, paths.RawFilesDir))
	if err != nil {
		return "", err
	}
	if content == "" {
		return "", fiber.NewError(fiber.StatusNotFound, "no lesson content available")
	}
	return content, nil
}

func (s *assistantService) saveDialogue(userId, sessionId, role, task, query, answer string) {
	_, err := s.historyStore.Save(history.Record{
		UserID:    userId,
		SessionID: sessionId,
		UserType:  role,
		Task:      task,
		Query:     query,
		Answer:    answer,
	})
	if err != nil {
		s.log.Warn("assistant", "Failed to persist dialogue", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}
}
