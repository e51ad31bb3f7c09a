package model

import (
	"time"

	"github.com/google/uuid"
)

// State is a conversation state.
type State string

const (
	StateSelectType           State = "SELECT_TYPE"
	StateEnterAmount          State = "ENTER_AMOUNT"
	StateSelectCategory       State = "SELECT_CATEGORY"
	StateEnterDescription     State = "ENTER_DESCRIPTION"
	StateEnterDate            State = "ENTER_DATE"
	StateAwaitingConfirmation State = "AWAITING_CONFIRMATION"
	StateConfirmed            State = "CONFIRMED"
	StateCancelled            State = "CANCELLED"
)

// Terminal reports whether no further input is accepted in s.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateCancelled
}

// Session is the in-progress transaction of one user.
type Session struct {
	ID        string
	UserID    int64
	State     State
	Record    Record
	Filled    []Field // fields written so far, in step order
	StartedAt time.Time
	UpdatedAt time.Time
}

// NewSession returns an empty session at the entry state.
func NewSession(userID int64, now time.Time) Session {
	return Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		State:     StateSelectType,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Has reports whether f has been filled.
func (s Session) Has(f Field) bool {
	for _, x := range s.Filled {
		if x == f {
			return true
		}
	}
	return false
}

// Complete reports whether every field has been filled.
func (s Session) Complete() bool {
	for _, f := range Fields {
		if !s.Has(f) {
			return false
		}
	}
	return true
}

// Clone returns a copy that shares no mutable memory with s.
func (s Session) Clone() Session {
	c := s
	c.Filled = append([]Field(nil), s.Filled...)
	return c
}
