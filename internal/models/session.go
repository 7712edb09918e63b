package models

// Session is the per-user record of dialogue progress: which flow the user
// is in, the current step, and the field values collected so far. Sessions
// live in memory only; losing one on restart just means the user starts the
// dialogue again.
type Session struct {
	UserID string            `json:"user_id"`
	Flow   string            `json:"flow"`
	Step   string            `json:"step"`
	Fields map[string]string `json:"fields"`
}
