package dto

import "time"

type DialogueItem struct {
	SessionId string    `json:"session_id"`
	Task      string    `json:"task"`
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

type ListDialoguesResponse struct {
	SessionId string         `json:"session_id"`
	Dialogues []DialogueItem `json:"dialogues"`
}

type ListSessionsResponse struct {
	Sessions []string `json:"sessions"`
}

type ClearSessionResponse struct {
	SessionId string `json:"session_id"`
	Removed   int    `json:"removed"`
}
