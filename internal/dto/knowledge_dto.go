package dto

// UploadKnowledgeRequest carries the multipart form fields next to the file.
// Files go to the namespace derived from role/course/lesson/purpose.
type UploadKnowledgeRequest struct {
	Role     string `form:"role" validate:"required,oneof=teacher student"`
	CourseId string `form:"course_id"`
	LessonId string `form:"lesson_id"`
	Purpose  string `form:"purpose" validate:"omitempty,oneof=course_material ask_upload"`
}

type UploadKnowledgeResponse struct {
	CollectionId string   `json:"collection_id"`
	Files        []string `json:"files"`
	Queued       int      `json:"queued"`
}

type DeleteCollectionRequest struct {
	Role     string `json:"role" validate:"required,oneof=teacher student"`
	CourseId string `json:"course_id"`
	LessonId string `json:"lesson_id"`
	Purpose  string `json:"purpose" validate:"omitempty,oneof=course_material ask_upload"`
}

type DeleteCollectionResponse struct {
	CollectionId string `json:"collection_id"`
}

type CollectionInfo struct {
	CollectionId string `json:"collection_id"`
	ChunkCount   int64  `json:"chunk_count"`
}

type ListCollectionsResponse struct {
	Collections []CollectionInfo `json:"collections"`
}
