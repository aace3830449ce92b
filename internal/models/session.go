package models

import "time"

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Transcript bounds. Older turns are dropped first so a stored session stays well under the
// 1 MB memcached item limit.
const (
	MaxTranscriptTurns = 100
	MaxTranscriptBytes = 512 << 10
)

// ChatTurn is one message of a conversation.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is the per-visitor state: the city they asked about, its weather and the chat so far.
type Session struct {
	ID         string         `json:"id"`
	City       string         `json:"city,omitempty"`
	Weather    *WeatherRecord `json:"weather,omitempty"`
	Transcript []ChatTurn     `json:"transcript,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// HasCity reports whether a city lookup has succeeded for this session.
func (s *Session) HasCity() bool {
	return s != nil && s.City != "" && s.Weather != nil
}

// SetCity replaces city and weather together and starts a fresh transcript.
func (s *Session) SetCity(city string, weather WeatherRecord) {
	w := weather
	s.City = city
	s.Weather = &w
	s.Transcript = nil
	s.UpdatedAt = time.Now()
}

// Append adds a turn to the transcript, dropping the oldest turns beyond MaxTranscriptTurns
// or MaxTranscriptBytes. The newest turn is always kept.
func (s *Session) Append(role, content string) {
	s.Transcript = append(s.Transcript, ChatTurn{Role: role, Content: content})
	s.trimTranscript()
	s.UpdatedAt = time.Now()
}

func (s *Session) trimTranscript() {
	size := 0
	keep := 0
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		size += len(s.Transcript[i].Content)
		if keep > 0 && (keep == MaxTranscriptTurns || size > MaxTranscriptBytes) {
			break
		}
		keep++
	}
	if drop := len(s.Transcript) - keep; drop > 0 {
		s.Transcript = append([]ChatTurn(nil), s.Transcript[drop:]...)
	}
}

// ClearTranscript drops all chat turns but keeps city and weather.
func (s *Session) ClearTranscript() {
	s.Transcript = nil
	s.UpdatedAt = time.Now()
}
