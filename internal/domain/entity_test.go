package domain_test

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"chat-backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestSession_SetTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", domain.DefaultSessionTitle},
		{"whitespace", "   \t", domain.DefaultSessionTitle},
		{"trimmed", "  Trip planning ", "Trip planning"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s domain.Session
			s.SetTitle(tt.input)
			assert.Equal(t, tt.want, s.Title)
		})
	}
}

func TestNormalizeTitle_TruncatesRunes(t *testing.T) {
	long := strings.Repeat("日", domain.MaxTitleRunes+10)
	got := domain.NormalizeTitle(long)
	assert.Equal(t, domain.MaxTitleRunes, utf8.RuneCountInString(got))
}

func TestSortSessionsByActivity(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sessions := []*domain.Session{
		{ID: "old", UpdatedAt: base},
		{ID: "missing"},
		{ID: "new", UpdatedAt: base.Add(time.Hour)},
		{ID: "mid", UpdatedAt: base.Add(time.Minute)},
	}
	domain.SortSessionsByActivity(sessions)

	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"new", "mid", "old", "missing"}, ids)
}

func TestSortMessagesChronologically_TiesBySeq(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	messages := []*domain.Message{
		{ID: "c", CreatedAt: ts, Seq: 3},
		{ID: "a", CreatedAt: ts, Seq: 1},
		{ID: "z"},
		{ID: "d", CreatedAt: ts.Add(time.Second), Seq: 2},
		{ID: "b", CreatedAt: ts, Seq: 2},
	}
	domain.SortMessagesChronologically(messages)

	ids := make([]string, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"z", "a", "b", "c", "d"}, ids)
}

func TestValidationError_IsErrValidation(t *testing.T) {
	err := domain.NewValidationError("title", "must not be empty")
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, "title: must not be empty", err.Error())
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, domain.RoleUser.Valid())
	assert.True(t, domain.RoleAssistant.Valid())
	assert.True(t, domain.RoleSystem.Valid())
	assert.False(t, domain.Role("tool").Valid())
}
