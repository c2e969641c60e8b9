// Package web provides a real-time dashboard for Juno: connection and turn
// status, the live conversation transcript, structured logs, and manual tool
// triggers. It implements the transcript sink consumed by the realtime layer.
package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/junolabs/go-juno/internal/log"
	"github.com/junolabs/go-juno/pkg/hub"
)

// AgentState is the dashboard's view of the agent.
type AgentState struct {
	Provider     string `json:"provider"`
	Connected    bool   `json:"connected"`
	SessionReady bool   `json:"session_ready"`
	TurnState    string `json:"turn_state"` // listening, thinking, speaking
	Model        string `json:"model"`
	LastError    string `json:"last_error,omitempty"`
}

// LogEntry is one log line for the dashboard.
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, tool, speech, error
	Message string `json:"message"`
}

// ConversationEntry is one transcript bubble.
type ConversationEntry struct {
	Time    string `json:"time"`
	Role    string `json:"role"` // user, assistant
	Message string `json:"message"`
}

const (
	maxLogEntries          = 500
	maxConversationEntries = 100
)

// Server is the dashboard server.
type Server struct {
	app  *fiber.App
	port string

	state   AgentState
	stateMu sync.RWMutex

	logs   []LogEntry
	logsMu sync.RWMutex

	conversation   []ConversationEntry
	conversationMu sync.RWMutex

	statusHub       *hub.Hub
	logHub          *hub.Hub
	conversationHub *hub.Hub

	// OnToolTrigger runs a tool from the dashboard's manual trigger panel.
	OnToolTrigger func(name string, argsJSON string) (string, error)

	// OnInterrupt stops the agent mid-response from the dashboard.
	OnInterrupt func()

	// ListTools supplies the tool panel contents.
	ListTools func() []ToolInfo
}

// NewServer creates a dashboard server on the given port.
func NewServer(port string) *Server {
	s := &Server{
		port:            port,
		logs:            make([]LogEntry, 0, maxLogEntries),
		conversation:    make([]ConversationEntry, 0, maxConversationEntries),
		statusHub:       hub.New("status"),
		logHub:          hub.New("logs"),
		conversationHub: hub.New("conversation"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Juno Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// Static files
	app.Static("/", "./web")

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/tools", s.handleListTools)
	api.Post("/tools/:name", s.handleTriggerTool)
	api.Post("/interrupt", s.handleInterrupt)
	api.Get("/logs", s.handleGetLogs)
	api.Get("/conversation", s.handleGetConversation)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))
	app.Get("/ws/conversation", websocket.New(s.handleConversationWS))

	s.app = app
	return s
}

// Start starts the web server and its broadcast hubs. Blocks.
func (s *Server) Start() error {
	log.Info("web: dashboard listening", "port", s.port)

	go s.statusHub.Run()
	go s.logHub.Run()
	go s.conversationHub.Run()

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("web: server error", "err", err)
		}
	}()
}

// UpdateState mutates the agent state under lock and broadcasts the result.
func (s *Server) UpdateState(update func(*AgentState)) {
	s.stateMu.Lock()
	update(&s.state)
	state := s.state
	s.stateMu.Unlock()

	s.statusHub.BroadcastJSON(state)
}

// AddLog adds a log entry and broadcasts it.
func (s *Server) AddLog(logType, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    logType,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogEntries {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	s.logHub.BroadcastJSON(entry)
}

// AddMessage starts a new transcript bubble. Part of the transcript sink
// consumed by the realtime dispatcher.
func (s *Server) AddMessage(role, text string) {
	entry := ConversationEntry{
		Time:    time.Now().Format("15:04:05"),
		Role:    role,
		Message: text,
	}

	s.conversationMu.Lock()
	s.conversation = append(s.conversation, entry)
	if len(s.conversation) > maxConversationEntries {
		s.conversation = s.conversation[1:]
	}
	entry = s.conversation[len(s.conversation)-1]
	s.conversationMu.Unlock()

	s.conversationHub.BroadcastJSON(entry)
}

// AppendToLastMessage extends the current bubble.
func (s *Server) AppendToLastMessage(text string) {
	s.mutateLastMessage(func(cur string) string { return cur + text })
}

// UpdateLastMessage replaces the current bubble's text.
func (s *Server) UpdateLastMessage(text string) {
	s.mutateLastMessage(func(string) string { return text })
}

func (s *Server) mutateLastMessage(f func(string) string) {
	s.conversationMu.Lock()
	if len(s.conversation) == 0 {
		s.conversationMu.Unlock()
		return
	}
	last := &s.conversation[len(s.conversation)-1]
	last.Message = f(last.Message)
	entry := *last
	s.conversationMu.Unlock()

	s.conversationHub.BroadcastJSON(entry)
}

// Shutdown gracefully stops the web server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
