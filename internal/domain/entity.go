package domain

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

const (
	DefaultSessionTitle = "New chat"
	MaxTitleRunes       = 120
)

// Session 会话实体, owned by exactly one user.
type Session struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SetTitle trims and truncates title, falling back to DefaultSessionTitle
// when nothing is left.
func (s *Session) SetTitle(title string) {
	title = NormalizeTitle(title)
	if title == "" {
		title = DefaultSessionTitle
	}
	s.Title = title
}

// NormalizeTitle trims surrounding whitespace and caps the title at
// MaxTitleRunes.
func NormalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) > MaxTitleRunes {
		title = string([]rune(title)[:MaxTitleRunes])
	}
	return title
}

// Message is one turn of a session. Seq is the storage insertion order and
// breaks ties between equal timestamps.
type Message struct {
	ID        string
	SessionID string
	UserID    string
	Role      Role
	Content   string
	CreatedAt time.Time
	Seq       uint64
}

// SortSessionsByActivity orders sessions most recently active first. A zero
// UpdatedAt sorts as the oldest possible value.
func SortSessionsByActivity(sessions []*Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// SortMessagesChronologically orders messages by timestamp, then by
// insertion sequence. A zero CreatedAt sorts first.
func SortMessagesChronologically(messages []*Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		a, b := messages[i], messages[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Seq < b.Seq
	})
}
