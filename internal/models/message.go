package models

// Message is a single private message relayed between two identities.
// The pair (Sender, Timestamp) uniquely identifies a message across the
// whole system and is the deduplication key used by every consumer. ID
// is a server-assigned ULID kept for storage and wire convenience; it
// never participates in deduplication.
type Message struct {
	ID         string `json:"id"`
	Sender     string `json:"sender"`
	Recipient  string `json:"recipient"`
	Content    string `json:"content"`
	Translated string `json:"translated_content,omitempty"`
	Timestamp  int64  `json:"timestamp"` // Unix ms, canonical once assigned
}

// Key returns the deduplication key for the message.
func (m Message) Key() MessageKey {
	return MessageKey{Sender: m.Sender, Timestamp: m.Timestamp}
}

// MessageKey identifies a message by (sender, timestamp).
type MessageKey struct {
	Sender    string
	Timestamp int64
}
