package dto

// QARequest asks a question against the caller's knowledge namespace.
// SessionId groups turns into one conversation for history-aware prompts.
// UseKeyword and UseContext default to true when omitted.
type QARequest struct {
	Query      string `json:"query" validate:"required"`
	SessionId  string `json:"session_id" validate:"required"`
	Role       string `json:"role" validate:"required,oneof=teacher student"`
	CourseId   string `json:"course_id"`
	LessonId   string `json:"lesson_id"`
	Purpose    string `json:"purpose" validate:"omitempty,oneof=course_material ask_upload"`
	TopK       int    `json:"top_k" validate:"omitempty,min=1,max=50"`
	UseKeyword *bool  `json:"use_keyword"`
	UseContext *bool  `json:"use_context"`
}

type QAResponse struct {
	Answer    string `json:"answer"`
	Found     bool   `json:"found"`
	SessionId string `json:"session_id"`
}

type SearchRequest struct {
	Query    string `json:"query" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=teacher student"`
	CourseId string `json:"course_id"`
	LessonId string `json:"lesson_id"`
	Purpose  string `json:"purpose" validate:"omitempty,oneof=course_material ask_upload"`
	TopK     int    `json:"top_k" validate:"omitempty,min=1,max=50"`
}

type SearchHit struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Source  string  `json:"source,omitempty"`
}

type SearchResponse struct {
	Hits []SearchHit `json:"hits"`
}

type ExerciseRequest struct {
	Role       string `json:"role" validate:"required,oneof=teacher student"`
	CourseId   string `json:"course_id" validate:"required"`
	LessonId   string `json:"lesson_id"`
	Count      int    `json:"count" validate:"omitempty,min=1,max=20"`
	Difficulty string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

type ExerciseResponse struct {
	Exercises string `json:"exercises"`
}

type OutlineRequest struct {
	Role     string `json:"role" validate:"required,oneof=teacher student"`
	CourseId string `json:"course_id" validate:"required"`
	LessonId string `json:"lesson_id"`
	MaxWords int    `json:"max_words" validate:"omitempty,min=50,max=2000"`
}

type OutlineResponse struct {
	Outline string `json:"outline"`
}

// ChatRequest is free conversation without knowledge retrieval.
type ChatRequest struct {
	Query     string `json:"query" validate:"required"`
	SessionId string `json:"session_id" validate:"required"`
	Role      string `json:"role" validate:"required,oneof=teacher student"`
}

type ChatResponse struct {
	Answer    string `json:"answer"`
	SessionId string `json:"session_id"`
}
