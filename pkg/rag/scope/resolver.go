package scope

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Role identifies the owner type of a knowledge namespace.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Purpose identifies what a scope's material is for.
type Purpose string

const (
	// PurposeCourseMaterial is teaching material bound to a course/lesson.
	PurposeCourseMaterial Purpose = "course_material"
	// PurposeAskUpload is a user-uploaded file the user wants to ask about.
	PurposeAskUpload Purpose = "ask_upload"
)

// ErrInvalidScope is returned when the parameter combination cannot identify
// a valid knowledge namespace. Surfaced to callers as a client error.
var ErrInvalidScope = errors.New("invalid scope")

// Scope identifies one isolated retrieval namespace. It is built fresh from
// request parameters on every call and never persisted; only the derived
// path and collection id are durable.
type Scope struct {
	OwnerID  string
	Role     Role
	CourseID string
	LessonID string
	Purpose  Purpose
}

// Paths holds the identifiers derived from a Scope.
type Paths struct {
	// RawFilesDir is where uploaded source files for this scope live,
	// relative to the knowledge base root. Directory creation is the
	// caller's responsibility.
	RawFilesDir string

	// CollectionID addresses the vector collection for this scope.
	CollectionID string
}

// Resolve derives the storage path and collection identifier for a scope.
// It is a pure function: equal scopes always yield equal identifiers, and
// the collection naming below is the ONLY place in the codebase where the
// format is spelled out. Ingestion, search and deletion must all go through
// here — independently rebuilt collection names silently orphan data.
func Resolve(s Scope) (Paths, error) {
	if err := Validate(s); err != nil {
		return Paths{}, err
	}

	return Paths{
		RawFilesDir:  rawFilesDir(s),
		CollectionID: CollectionID(s),
	}, nil
}

// Validate checks the parameter combination without deriving anything.
func Validate(s Scope) error {
	if s.OwnerID == "" {
		return fmt.Errorf("%w: owner id is required", ErrInvalidScope)
	}
	if s.Role != RoleTeacher && s.Role != RoleStudent {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidScope, s.Role)
	}
	if s.Purpose != PurposeCourseMaterial && s.Purpose != PurposeAskUpload {
		return fmt.Errorf("%w: unknown purpose %q", ErrInvalidScope, s.Purpose)
	}
	if s.Role == RoleTeacher && s.Purpose == PurposeCourseMaterial && s.CourseID == "" {
		return fmt.Errorf("%w: teacher course material requires a course id", ErrInvalidScope)
	}
	// Lesson-level material is only addressable inside a course.
	if s.LessonID != "" && s.CourseID == "" {
		return fmt.Errorf("%w: lesson id given without a course id", ErrInvalidScope)
	}
	return nil
}

// CollectionID builds the collection identifier:
//
//	kb_{owner}_{course or "student"}_{lesson or "default"}[_ask]
//
// The owner's role is deliberately NOT part of the id, so a teacher and a
// student sharing the same owner id would collide. Owner ids are unique
// across roles upstream, so this is accepted.
func CollectionID(s Scope) string {
	course := s.CourseID
	if course == "" {
		course = "student"
	}
	lesson := s.LessonID
	if lesson == "" {
		lesson = "default"
	}
	id := fmt.Sprintf("kb_%s_%s_%s", s.OwnerID, course, lesson)
	if s.Purpose == PurposeAskUpload {
		id += "_ask"
	}
	return id
}

// rawFilesDir mirrors the upload layout: Teachers/<user>/<course>/<lesson>
// for course material, <user>/ask for ask-uploads, Students/<user> otherwise.
func rawFilesDir(s Scope) string {
	base := "Students"
	if s.Role == RoleTeacher {
		base = "Teachers"
	}

	if s.Purpose == PurposeAskUpload {
		return filepath.Join(base, s.OwnerID, "ask")
	}

	parts := []string{base, s.OwnerID}
	if s.CourseID != "" {
		parts = append(parts, s.CourseID)
	}
	if s.LessonID != "" {
		parts = append(parts, s.LessonID)
	}
	return filepath.Join(parts...)
}
