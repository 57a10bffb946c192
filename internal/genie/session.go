package genie

import "sync"

// Handle identifies one asynchronous Genie job.
type Handle struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// Session tracks the live conversation for one top-level flow. A new top-level question
// resets it; a follow-up keeps the conversation and replaces the message id.
type Session struct {
	mu             sync.Mutex
	SpaceID        string
	conversationID string
	messageID      string
}

// NewSession returns an empty session bound to a Genie space.
func NewSession(spaceID string) *Session {
	return &Session{SpaceID: spaceID}
}

// Reset discards the current conversation.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = ""
	s.messageID = ""
}

// Begin records a freshly started conversation.
func (s *Session) Begin(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = h.ConversationID
	s.messageID = h.MessageID
}

// Follow replaces the latest message id within the current conversation.
func (s *Session) Follow(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageID = messageID
}

// Active reports whether a conversation is open.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID != ""
}

// Handle returns the current conversation and latest message.
func (s *Session) Handle() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Handle{ConversationID: s.conversationID, MessageID: s.messageID}
}
