package domain

import "errors"

var (
	// ErrDuplicatePrompt means a prompt already exists for the user's delivery window.
	ErrDuplicatePrompt = errors.New("prompt already exists for this delivery window")
	ErrDuplicateEntry  = errors.New("entry already recorded for this message")
	ErrInvalidStatus   = errors.New("prompt status can only move forward")
	ErrPromptNotFound  = errors.New("prompt not found")
	ErrEntryNotFound   = errors.New("entry not found")
	ErrEmptyEntry      = errors.New("entry body is empty")
)

// Models lists the tables owned by the journal feature.
func Models() []interface{} {
	return []interface{}{&Prompt{}, &JournalEntry{}, &EntryAnalysis{}, &Topic{}, &EntryTopic{}, &EmailMessage{}}
}
