package models

// FileEvent represents a change to a watched configuration file
type FileEvent struct {
	Type string `json:"type"` // "create", "modify", "delete"
	Path string `json:"path"`
}
