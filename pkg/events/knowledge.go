package events

import "time"

const (
	TypeKnowledgeUpdated = "KNOWLEDGE_UPDATED"
	TypeKnowledgeDeleted = "KNOWLEDGE_DELETED"
)

// NewKnowledgeUpdated signals that documents were ingested into a collection.
// Subscribers use it to invalidate retrieval caches for that collection.
func NewKnowledgeUpdated(collectionID, ownerID string, chunkCount int, files []string) Event {
	return BaseEvent{
		Type: TypeKnowledgeUpdated,
		Data: map[string]interface{}{
			"collection_id": collectionID,
			"owner_id":      ownerID,
			"chunk_count":   chunkCount,
			"files":         files,
		},
		OccurredAt: time.Now(),
	}
}

// NewKnowledgeDeleted signals that a collection was removed.
func NewKnowledgeDeleted(collectionID, ownerID string) Event {
	return BaseEvent{
		Type: TypeKnowledgeDeleted,
		Data: map[string]interface{}{
			"collection_id": collectionID,
			"owner_id":      ownerID,
		},
		OccurredAt: time.Now(),
	}
}
