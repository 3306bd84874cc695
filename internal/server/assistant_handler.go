package server

import (
	"errors"

	"ledgerchat/internal/assistant"
	"ledgerchat/internal/mindmap"
	"ledgerchat/internal/types"

	"github.com/gofiber/fiber/v2"
)

type chatParams struct {
	Query string `json:"query" validate:"required"`
	Model string `json:"model"`
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var params chatParams
	if err := s.bind(c, &params); err != nil {
		return err
	}

	release, err := s.session.Begin(assistant.FlowChat)
	if err != nil {
		return err
	}
	defer release()

	msg, err := s.assistant.Chat(c.UserContext(), assistant.ChatRequest{
		Query:   params.Query,
		Model:   params.Model,
		Context: s.store.Snapshot(),
	})
	if err != nil {
		if errors.Is(err, assistant.ErrEmptyQuery) {
			return err
		}
		return NewError(fiber.StatusBadGateway, msg.Text)
	}
	return c.JSON(msg)
}

func (s *Server) handleMessages(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"messages": s.session.Messages()})
}

func (s *Server) handleClearMessages(c *fiber.Ctx) error {
	s.session.Clear()
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleSuggestions(c *fiber.Ctx) error {
	urls := s.store.Snapshot().URLs
	return c.JSON(fiber.Map{
		"suggestions": s.assistant.Suggestions(c.UserContext(), urls, c.Query("model")),
	})
}

type mindMapParams struct {
	Complexity string `json:"complexity" validate:"omitempty,oneof=simple moderate complex"`
	Model      string `json:"model"`
}

type mindMapResponse struct {
	Root  *types.MindMapNode `json:"root"`
	Graph mindmap.Graph      `json:"graph"`
	Stats mindmap.Stats      `json:"stats"`
}

func (s *Server) handleMindMap(c *fiber.Ctx) error {
	var params mindMapParams
	if err := s.bind(c, &params); err != nil {
		return err
	}

	release, err := s.session.Begin(assistant.FlowMindMap)
	if err != nil {
		return err
	}
	defer release()

	root, err := s.assistant.MindMap(c.UserContext(), assistant.MindMapRequest{
		Complexity: params.Complexity,
		Model:      params.Model,
		Context:    s.store.Snapshot(),
	})
	if err != nil {
		if errors.Is(err, assistant.ErrInvalidComplexity) {
			return err
		}
		return NewError(fiber.StatusBadGateway, assistant.FailureMessage(err))
	}

	return c.JSON(mindMapResponse{
		Root:  root,
		Graph: mindmap.Layout(root),
		Stats: mindmap.Summarize(root),
	})
}

func (s *Server) handleUsage(c *fiber.Ctx) error {
	return c.JSON(s.usage.Stats())
}
