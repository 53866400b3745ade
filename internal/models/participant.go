package models

import (
	"fmt"

	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

// ParticipantKind tags who is being enrolled.
type ParticipantKind string

const (
	ParticipantStudent ParticipantKind = "STUDENT"
	ParticipantChild   ParticipantKind = "CHILD"
)

// Participant is either a student user or a dependent child registered through a parent.
// Build it with StudentParticipant or ChildParticipant.
type Participant struct {
	Kind      ParticipantKind `json:"kind"`
	StudentID string          `json:"student_id,omitempty"`
	ParentID  string          `json:"parent_id,omitempty"`
	ChildID   string          `json:"child_id,omitempty"`
}

// StudentParticipant returns a participant for a student user.
func StudentParticipant(studentID string) Participant {
	return Participant{Kind: ParticipantStudent, StudentID: studentID}
}

// ChildParticipant returns a participant for a child registered by a parent.
func ChildParticipant(parentID, childID string) Participant {
	return Participant{Kind: ParticipantChild, ParentID: parentID, ChildID: childID}
}

// ParticipantFromColumns decodes the nullable participant columns of a pending enrollment.
// Valid combinations are (parent AND child, no student) or (student, no parent, no child).
func ParticipantFromColumns(parentID, studentID, childID *string) (Participant, error) {
	parent, student, child := present(parentID), present(studentID), present(childID)
	switch {
	case parent && child && !student:
		return ChildParticipant(*parentID, *childID), nil
	case student && !parent && !child:
		return StudentParticipant(*studentID), nil
	default:
		return Participant{}, appErrors.Clone(appErrors.ErrInvariant, "select either a parent and child together or a student alone")
	}
}

// Validate checks that exactly the identifiers required by the kind are populated.
func (p Participant) Validate() error {
	switch p.Kind {
	case ParticipantStudent:
		if p.StudentID != "" && p.ParentID == "" && p.ChildID == "" {
			return nil
		}
	case ParticipantChild:
		if p.ParentID != "" && p.ChildID != "" && p.StudentID == "" {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrInvariant, "select either a parent and child together or a student alone")
}

// Columns encodes the participant into nullable parent, student and child columns.
func (p Participant) Columns() (parentID, studentID, childID *string) {
	switch p.Kind {
	case ParticipantStudent:
		return nil, optional(p.StudentID), nil
	case ParticipantChild:
		return optional(p.ParentID), nil, optional(p.ChildID)
	}
	return nil, nil, nil
}

func (p Participant) String() string {
	switch p.Kind {
	case ParticipantStudent:
		return fmt.Sprintf("student %s", p.StudentID)
	case ParticipantChild:
		return fmt.Sprintf("child %s", p.ChildID)
	}
	return "Unknown"
}

func present(v *string) bool {
	return v != nil && *v != ""
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
