package http

import (
	"net/http"

	"github.com/dkeye/Relay/internal/app/orch"
	"github.com/dkeye/Relay/internal/config"
	"github.com/gin-gonic/gin"
)

// Handlers serves the plain REST endpoints next to the WebSocket relays.
type Handlers struct {
	Cfg    *config.Config
	Chat   *orch.Orchestrator
	Stream *orch.Orchestrator
}

type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:      "ok",
		Connections: h.Chat.Conns.Count() + h.Stream.Conns.Count(),
	})
}

func (h *Handlers) ICEServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"iceServers": h.Cfg.WebRTC().ICEServers})
}

func (h *Handlers) Rooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.Chat.Rooms.List()})
}

func (h *Handlers) Streams(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"streams": h.Stream.Streams.List()})
}
