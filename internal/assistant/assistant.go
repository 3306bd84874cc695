// Package assistant runs the three AI flows of ledgerchat: chat, follow-up suggestions
// and mind map generation. Each flow assembles a request from a knowledge-base snapshot,
// sends it through the retrying executor and normalizes the response.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ledgerchat/internal/articulation"
	"ledgerchat/internal/config"
	"ledgerchat/internal/llm"
	"ledgerchat/internal/logging"
	"ledgerchat/internal/prompt"
	"ledgerchat/internal/types"

	"github.com/google/uuid"
)

var (
	ErrEmptyQuery        = errors.New("query must not be empty")
	ErrNoMindMapData     = errors.New("no mind map data returned")
	ErrInvalidComplexity = errors.New("invalid complexity")
)

// Executor sends a request under a retry policy. *llm.Executor implements it.
type Executor interface {
	Execute(ctx context.Context, policy llm.Policy, req *llm.Request) (*llm.Response, error)
}

// Policies holds the retry budget of each flow.
type Policies struct {
	Chat        llm.Policy
	Suggestions llm.Policy
	MindMap     llm.Policy
}

// PoliciesFromConfig converts the retry config section.
func PoliciesFromConfig(cfg config.RetryConfig) Policies {
	return Policies{
		Chat:        llm.PolicyFromConfig(cfg.Chat),
		Suggestions: llm.PolicyFromConfig(cfg.Suggestions),
		MindMap:     llm.PolicyFromConfig(cfg.MindMap),
	}
}

// Service runs the flows and notifies observers.
type Service struct {
	exec         Executor
	policies     Policies
	defaultModel string

	mu        sync.RWMutex
	observers []Observer

	now   func() time.Time
	newID func() string
}

// New creates a Service. defaultModel is used when a request names no model.
func New(exec Executor, policies Policies, defaultModel string) *Service {
	return &Service{
		exec:         exec,
		policies:     policies,
		defaultModel: defaultModel,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// Subscribe registers an observer for every later request.
func (s *Service) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *Service) emit(e Event) {
	s.mu.RLock()
	observers := append([]Observer(nil), s.observers...)
	s.mu.RUnlock()

	for _, o := range observers {
		o.OnEvent(e)
	}
}

func (s *Service) model(requested string) string {
	if m := strings.TrimSpace(requested); m != "" {
		return m
	}
	return s.defaultModel
}

// =============================================================================
// CHAT
// =============================================================================

// ChatRequest is one user message with its knowledge-base context.
type ChatRequest struct {
	Query   string
	Model   string
	Context types.KnowledgeBaseContext
}

// Chat answers a query. Observers see a loading placeholder first, then either the
// model's answer or a system-attributed failure notice under the same message ID.
// Failures are also returned.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (types.ChatMessage, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return types.ChatMessage{}, ErrEmptyQuery
	}

	id := s.newID()
	s.emit(Event{
		Kind:      EventRequestStarted,
		Flow:      FlowChat,
		RequestID: id,
		Query:     query,
		Message:   types.ChatMessage{ID: id, Sender: types.SenderModel, Timestamp: s.now(), IsLoading: true},
	})

	model := s.model(req.Model)
	logging.Assistant("chat %s: model=%s urls=%d docs=%d", id, model, len(req.Context.URLs), len(req.Context.Documents))

	call := prompt.Assemble(prompt.Input{
		Query:     query,
		URLs:      req.Context.URLs,
		Documents: req.Context.Documents,
		Company:   req.Context.ActiveCompany,
		Model:     model,
	})
	call.Operation = string(FlowChat)

	resp, err := s.exec.Execute(ctx, s.policies.Chat, call)
	if err == nil {
		answer := articulation.Extract(resp)
		if answer.Text != "" {
			msg := types.ChatMessage{
				ID:         id,
				Sender:     types.SenderModel,
				Text:       answer.Text,
				Timestamp:  s.now(),
				URLContext: answer.URLContext,
			}
			s.emit(Event{Kind: EventResultReceived, Flow: FlowChat, RequestID: id, Message: msg})
			return msg, nil
		}
		err = articulation.ErrEmptyResponse
	}

	logging.AssistantWarn("chat %s failed: %v", id, err)
	msg := types.ChatMessage{ID: id, Sender: types.SenderSystem, Text: FailureMessage(err), Timestamp: s.now()}
	s.emit(Event{Kind: EventRequestFailed, Flow: FlowChat, RequestID: id, Message: msg, Err: err})
	return msg, fmt.Errorf("chat: %w", err)
}

// FailureMessage is the user-facing text for a failed request.
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, llm.ErrMissingCredential):
		return "The AI service is not configured: no API key is set."
	case llm.IsRateLimit(err):
		return "The AI service quota was exceeded. Please wait a moment and try again."
	case llm.IsModelNotFound(err):
		return "The selected AI model is unavailable right now. Please try another model."
	case errors.Is(err, ErrNoMindMapData):
		return "The AI service returned no mind map data for these sources."
	case errors.Is(err, articulation.ErrEmptyResponse):
		return "The AI service returned an empty answer. Please try again."
	default:
		return fmt.Sprintf("Something went wrong while contacting the AI service: %v", err)
	}
}

// =============================================================================
// SUGGESTIONS
// =============================================================================

// OperationSuggestions labels suggestion calls for usage accounting.
const OperationSuggestions = "suggestions"

// PlaceholderSuggestions are shown when no URL is loaded.
var PlaceholderSuggestions = []string{
	"Which expenses are tax deductible for my company?",
	"What are the VAT filing deadlines this quarter?",
	"How should I record an incoming invoice?",
	"Which documents do I need for the annual fiscal declaration?",
}

// Suggestions proposes follow-up questions about urls. Without URLs it returns the
// placeholders and makes no call. It never fails: errors yield an empty list.
func (s *Service) Suggestions(ctx context.Context, urls []string, model string) []string {
	if len(urls) == 0 {
		return append([]string{}, PlaceholderSuggestions...)
	}

	call := prompt.Assemble(prompt.Input{
		Query: prompt.SuggestionsPrompt,
		URLs:  urls,
		Model: s.model(model),
		JSON:  true,
	})
	call.Operation = OperationSuggestions

	resp, err := s.exec.Execute(ctx, s.policies.Suggestions, call)
	if err != nil {
		logging.AssistantWarn("suggestions unavailable: %v", err)
		return []string{}
	}

	var payload struct {
		Suggestions []any `json:"suggestions"`
	}
	if err := articulation.DecodeJSON(resp.Text, &payload); err != nil {
		logging.AssistantWarn("suggestions response not usable: %v", err)
		return []string{}
	}
	return articulation.SanitizeSuggestions(payload.Suggestions)
}

// =============================================================================
// MIND MAP
// =============================================================================

// MindMapRequest asks for a topic tree of the knowledge base.
type MindMapRequest struct {
	Complexity string
	Model      string
	Context    types.KnowledgeBaseContext
}

// MindMap generates a topic tree. Call errors propagate; an empty, unparsable or
// unlabeled result fails with ErrNoMindMapData.
func (s *Service) MindMap(ctx context.Context, req MindMapRequest) (*types.MindMapNode, error) {
	complexity, err := types.ParseComplexity(req.Complexity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidComplexity, err)
	}

	id := s.newID()
	s.emit(Event{
		Kind:      EventRequestStarted,
		Flow:      FlowMindMap,
		RequestID: id,
		Message:   types.ChatMessage{ID: id, Sender: types.SenderModel, Timestamp: s.now(), IsLoading: true},
	})

	model := s.model(req.Model)
	logging.Assistant("mind map %s: model=%s complexity=%s", id, model, complexity)

	root, err := s.generateMindMap(ctx, complexity, model, req.Context)
	if err != nil {
		logging.AssistantWarn("mind map %s failed: %v", id, err)
		msg := types.ChatMessage{ID: id, Sender: types.SenderSystem, Text: FailureMessage(err), Timestamp: s.now()}
		s.emit(Event{Kind: EventRequestFailed, Flow: FlowMindMap, RequestID: id, Message: msg, Err: err})
		return nil, err
	}

	s.emit(Event{Kind: EventResultReceived, Flow: FlowMindMap, RequestID: id, MindMap: root})
	return root, nil
}

func (s *Service) generateMindMap(ctx context.Context, complexity types.Complexity, model string, kb types.KnowledgeBaseContext) (*types.MindMapNode, error) {
	call := prompt.Assemble(prompt.Input{
		Query:     prompt.MindMapPrompt(complexity),
		URLs:      kb.URLs,
		Documents: kb.Documents,
		Company:   kb.ActiveCompany,
		Model:     model,
		JSON:      true,
	})
	call.Operation = string(FlowMindMap)

	resp, err := s.exec.Execute(ctx, s.policies.MindMap, call)
	if err != nil {
		return nil, fmt.Errorf("mind map: %w", err)
	}

	var root types.MindMapNode
	if err := articulation.DecodeJSON(resp.Text, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMindMapData, err)
	}
	if strings.TrimSpace(root.Label) == "" {
		return nil, fmt.Errorf("%w: root has no label", ErrNoMindMapData)
	}
	return &root, nil
}
