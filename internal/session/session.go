// Package session keeps the conversation state a UI renders. It consumes assistant
// events and guards against duplicate submissions of the same flow.
package session

import (
	"errors"
	"sync"

	"ledgerchat/internal/assistant"
	"ledgerchat/internal/logging"
	"ledgerchat/internal/types"
)

// ErrRequestInFlight rejects a second submission of a flow that is still running.
var ErrRequestInFlight = errors.New("a request of this kind is already in progress")

// Session is one conversation. It implements assistant.Observer.
type Session struct {
	mu       sync.RWMutex
	messages []types.ChatMessage
	inFlight map[assistant.Flow]bool

	mindMap      *types.MindMapNode
	mindMapError string
}

// New creates an empty session.
func New() *Session {
	return &Session{inFlight: make(map[assistant.Flow]bool)}
}

// Begin claims flow for one request. Distinct flows may run concurrently; a second
// request of the same flow fails with ErrRequestInFlight until release is called.
func (s *Session) Begin(flow assistant.Flow) (release func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight[flow] {
		return nil, ErrRequestInFlight
	}
	s.inFlight[flow] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.inFlight, flow)
		})
	}, nil
}

// InFlight reports whether flow is running.
func (s *Session) InFlight(flow assistant.Flow) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight[flow]
}

// OnEvent applies an assistant event. Chat starts append the user's message and a
// loading placeholder; results and failures replace the placeholder in place.
func (s *Session) OnEvent(e assistant.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e.Flow {
	case assistant.FlowChat:
		s.applyChatLocked(e)
	case assistant.FlowMindMap:
		s.applyMindMapLocked(e)
	}
}

func (s *Session) applyChatLocked(e assistant.Event) {
	switch e.Kind {
	case assistant.EventRequestStarted:
		s.messages = append(s.messages,
			types.ChatMessage{
				ID:        e.RequestID + "-user",
				Sender:    types.SenderUser,
				Text:      e.Query,
				Timestamp: e.Message.Timestamp,
			},
			e.Message,
		)
	case assistant.EventResultReceived, assistant.EventRequestFailed:
		for i := range s.messages {
			if s.messages[i].ID == e.RequestID {
				s.messages[i] = e.Message
				return
			}
		}
		// Cleared while in flight.
		logging.SessionDebug("no placeholder for request %s, dropping %s", e.RequestID, e.Kind)
	}
}

func (s *Session) applyMindMapLocked(e assistant.Event) {
	switch e.Kind {
	case assistant.EventRequestStarted:
		s.mindMapError = ""
	case assistant.EventResultReceived:
		s.mindMap = e.MindMap
		s.mindMapError = ""
	case assistant.EventRequestFailed:
		s.mindMapError = e.Message.Text
	}
}

// Messages returns a copy of the conversation log.
func (s *Session) Messages() []types.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.ChatMessage{}, s.messages...)
}

// MindMap returns the last generated tree and the last failure notice, if any.
func (s *Session) MindMap() (*types.MindMapNode, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mindMap, s.mindMapError
}

// Clear drops the conversation log and the mind map. In-flight guards are kept.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.mindMap = nil
	s.mindMapError = ""
	logging.Session("conversation cleared")
}
