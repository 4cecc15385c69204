package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is a scheduled coaching event, unrelated to the auth session.

type SessionSummary struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	Capacity    int        `json:"capacity"`
	CoachID     *uuid.UUID `json:"coach_id,omitempty"`
	CoachName   string     `json:"coach_name,omitempty"`
}

type CoachInfo struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

type SessionDetail struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	Capacity    int        `json:"capacity"`
	Coach       CoachInfo  `json:"coach"`
	CreatedAt   time.Time  `json:"created_at"`
}

type SessionCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type RateSessionRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment,omitempty"`
}

type CreateSessionRequest struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description,omitempty"`
	StartAt     time.Time  `json:"start_at" validate:"required"`
	Capacity    int        `json:"capacity" validate:"required,min=1"`
	EndAt       *time.Time `json:"end_at,omitempty"`
}

// SessionUserStatus describes the current account's relation to a session.
type SessionUserStatus string

const (
	SessionStatusOwner  SessionUserStatus = "owner"
	SessionStatusJoined SessionUserStatus = "joined"
	SessionStatusOpen   SessionUserStatus = "open"
	SessionStatusEnded  SessionUserStatus = "ended"
)
