package dto

// IngestKnowledgeMessage is the queue payload that hands uploaded files to
// the ingestion worker. Paths are absolute and already saved to disk.
type IngestKnowledgeMessage struct {
	CollectionId string   `json:"collection_id"`
	OwnerId      string   `json:"owner_id"`
	FilePaths    []string `json:"file_paths"`
}
