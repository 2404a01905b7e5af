package messaging

import "time"

// EventType - вид события прогресса истории.
type EventType string

const (
	EventNodeEntered       EventType = "node_entered"
	EventTokenCollected    EventType = "token_collected"
	EventJudgmentCompleted EventType = "judgment_completed"
	EventChapterComplete   EventType = "chapter_complete"
	EventGameSaved         EventType = "game_saved"
	EventGameLoaded        EventType = "game_loaded"
)

// StoryEvent публикуется в очередь после операций игровой сессии.
type StoryEvent struct {
	Type       EventType      `json:"type"`
	SessionID  string         `json:"session_id"`
	PlayerID   string         `json:"player_id"`
	ChapterID  string         `json:"chapter_id"`
	NodeID     string         `json:"node_id"`
	Token      string         `json:"token,omitempty"`       // категория жетона для token_collected
	SaveToken  string         `json:"save_token,omitempty"`  // для game_saved / game_loaded
	Passed     *bool          `json:"passed,omitempty"`      // для judgment_completed
	Provenance string         `json:"provenance,omitempty"`  // для judgment_completed
	Scores     map[string]int `json:"scores,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
