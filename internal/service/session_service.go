package service

import (
	"context"

	"ai-teaching-be/internal/dto"
	"ai-teaching-be/pkg/rag/contextmgr"
	"ai-teaching-be/pkg/rag/history"
)

type ISessionService interface {
	ListDialogues(ctx context.Context, userId, sessionId, role string, limit int) (*dto.ListDialoguesResponse, error)
	ListSessions(ctx context.Context, userId, role string) (*dto.ListSessionsResponse, error)
	ClearSession(ctx context.Context, userId, sessionId, role string) (*dto.ClearSessionResponse, error)
}

type sessionService struct {
	historyStore *history.Store
	contexts     *contextmgr.Store
}

func NewSessionService(historyStore *history.Store, contexts *contextmgr.Store) ISessionService {
	return &sessionService{
		historyStore: historyStore,
		contexts:     contexts,
	}
}

func (s *sessionService) ListDialogues(_ context.Context, userId, sessionId, role string, limit int) (*dto.ListDialoguesResponse, error) {
	records, err := s.historyStore.List(userId, sessionId, role == "teacher", limit)
	if err != nil {
		return nil, err
	}

	items := make([]dto.DialogueItem, len(records))
	for i, rec := range records {
		items[i] = dto.DialogueItem{
			SessionId: rec.SessionID,
			Task:      rec.Task,
			Query:     rec.Query,
			Answer:    rec.Answer,
			Timestamp: rec.Timestamp,
		}
	}

	return &dto.ListDialoguesResponse{SessionId: sessionId, Dialogues: items}, nil
}

func (s *sessionService) ListSessions(_ context.Context, userId, role string) (*dto.ListSessionsResponse, error) {
	sessions, err := s.historyStore.Sessions(userId, role == "teacher")
	if err != nil {
		return nil, err
	}
	return &dto.ListSessionsResponse{Sessions: sessions}, nil
}

func (s *sessionService) ClearSession(_ context.Context, userId, sessionId, role string) (*dto.ClearSessionResponse, error) {
	removed, err := s.historyStore.Clear(userId, sessionId, role == "teacher")
	if err != nil {
		return nil, err
	}

	// In-memory conversation context goes with the stored dialogues.
	s.contexts.Clear(sessionId)

	return &dto.ClearSessionResponse{SessionId: sessionId, Removed: removed}, nil
}
