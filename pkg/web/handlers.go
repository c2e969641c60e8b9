package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/junolabs/go-juno/pkg/hub"
)

// ToolInfo describes an available tool for the dashboard's trigger panel.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// handleStatus returns the agent's current state.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return c.JSON(s.state)
}

// handleListTools returns the registered tools.
func (s *Server) handleListTools(c *fiber.Ctx) error {
	if s.ListTools == nil {
		return c.JSON([]ToolInfo{})
	}
	return c.JSON(s.ListTools())
}

// TriggerToolRequest is the request body for triggering a tool.
type TriggerToolRequest struct {
	Args string `json:"args"` // raw JSON arguments
}

// handleTriggerTool triggers a tool manually.
func (s *Server) handleTriggerTool(c *fiber.Ctx) error {
	name := c.Params("name")

	var req TriggerToolRequest
	if err := c.BodyParser(&req); err != nil {
		req.Args = "{}"
	}

	if s.OnToolTrigger == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "tool trigger not configured",
		})
	}

	result, err := s.OnToolTrigger(name, req.Args)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	s.AddLog("tool", "Manual: "+name+" -> "+result)

	return c.JSON(fiber.Map{
		"tool":   name,
		"result": result,
	})
}

// handleInterrupt stops the agent mid-response.
func (s *Server) handleInterrupt(c *fiber.Ctx) error {
	if s.OnInterrupt == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "interrupt not configured",
		})
	}
	s.OnInterrupt()
	s.AddLog("info", "Interrupted from dashboard")
	return c.JSON(fiber.Map{"interrupted": true})
}

// handleGetLogs returns recent log entries.
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return c.JSON(s.logs)
}

// handleGetConversation returns the recent conversation.
func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	s.conversationMu.RLock()
	defer s.conversationMu.RUnlock()
	return c.JSON(s.conversation)
}

// handleStatusWS streams state changes. The current state is sent first so
// new clients render immediately.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	s.stateMu.RLock()
	c.WriteJSON(s.state)
	s.stateMu.RUnlock()

	client := hub.NewClient(s.statusHub, c)
	client.Run()
}

// handleLogsWS streams log entries, replaying the buffer on connect.
func (s *Server) handleLogsWS(c *websocket.Conn) {
	s.logsMu.RLock()
	for _, entry := range s.logs {
		c.WriteJSON(entry)
	}
	s.logsMu.RUnlock()

	client := hub.NewClient(s.logHub, c)
	client.Run()
}

// handleConversationWS streams transcript updates, replaying the buffer on
// connect.
func (s *Server) handleConversationWS(c *websocket.Conn) {
	s.conversationMu.RLock()
	for _, entry := range s.conversation {
		c.WriteJSON(entry)
	}
	s.conversationMu.RUnlock()

	client := hub.NewClient(s.conversationHub, c)
	client.Run()
}
