package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/catsite05/novelvoice/application/ports/inbound"
	"github.com/catsite05/novelvoice/application/ports/outbound"
	"github.com/catsite05/novelvoice/domain"
	"github.com/catsite05/novelvoice/infrastructure/gin_interface/dto"
	"github.com/catsite05/novelvoice/middleware"
)

type GenerationController interface {
	StartGeneration(c *gin.Context)
	TaskStatus(c *gin.Context)
	CancelTask(c *gin.Context)
	TaskEvents(c *gin.Context)
	Playlist(c *gin.Context)
	MediaSegment(c *gin.Context)
	RegisterRoutes(g *gin.Engine)
}

type generationController struct {
	logger  outbound.LoggerPort
	manager inbound.GenerationManagerPort
}

func NewGenerationController(logger outbound.LoggerPort, manager inbound.GenerationManagerPort) GenerationController {
	return &generationController{
		logger:  logger,
		manager: manager,
	}
}

// StartGeneration kicks off a new task. The pipeline outlives the request, so
// it runs under a background context rather than the request's.
func (g *generationController) StartGeneration(c *gin.Context) {
	var req dto.StartGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if err := c.AbortWithError(http.StatusBadRequest, err); err != nil {
			g.logger.Error(err, "failed to abort with error")
		}
		return
	}

	taskID, err := g.manager.Start(context.Background(), inbound.StartGenerationParams{
		ActorID:   req.ActorID,
		ContentID: req.ContentID,
		Text:      req.Text,
	})
	if err != nil {
		if err := c.AbortWithError(http.StatusInternalServerError, err); err != nil {
			g.logger.Error(err, "failed to abort with error")
		}
		return
	}

	c.JSON(http.StatusAccepted, dto.StartGenerationResponse{TaskID: taskID})
}

func (g *generationController) TaskStatus(c *gin.Context) {
	status, err := g.manager.Status(c.Param("id"))
	if err != nil {
		g.abortNotFound(c, err)
		return
	}

	res := dto.TaskStatusResponse{TaskStatus: status}
	if state, err := g.manager.Streaming(c.Param("id")); err == nil {
		res.Playlist = dto.PlaylistInfo{
			Segments: len(state.Segments()),
			Duration: state.TotalDuration(),
		}
	}
	c.JSON(http.StatusOK, res)
}

func (g *generationController) CancelTask(c *gin.Context) {
	if err := g.manager.Cancel(c.Param("id")); err != nil {
		g.abortNotFound(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": c.Param("id")})
}

// TaskEvents streams status snapshots over SSE until the task settles or the
// client goes away. The final snapshot is always sent.
func (g *generationController) TaskEvents(c *gin.Context) {
	taskID := c.Param("id")
	if _, err := g.manager.Status(taskID); err != nil {
		g.abortNotFound(c, err)
		return
	}

	clientGone := c.Request.Context().Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		status, err := g.manager.Status(taskID)
		if err != nil {
			return
		}
		if !g.writeEvent(c, status) {
			return
		}
		if status.Stage.Terminal() {
			return
		}

		select {
		case <-ticker.C:
		case <-clientGone:
			return
		}
	}
}

func (g *generationController) writeEvent(c *gin.Context, status domain.TaskStatus) bool {
	payload, err := json.Marshal(status)
	if err != nil {
		g.logger.Error(err, "failed to marshal task status event")
		return false
	}
	if _, err := c.Writer.WriteString("data: " + string(payload) + "\n\n"); err != nil {
		return false
	}
	c.Writer.Flush()
	return true
}

// Playlist renders the task's current media playlist. While the task runs
// the playlist has no end marker, so players keep polling for new segments.
func (g *generationController) Playlist(c *gin.Context) {
	state, err := g.manager.Streaming(c.Param("id"))
	if err != nil {
		g.abortNotFound(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "application/vnd.apple.mpegurl", []byte(state.Render()))
}

func (g *generationController) MediaSegment(c *gin.Context) {
	state, err := g.manager.Streaming(c.Param("id"))
	if err != nil {
		g.abortNotFound(c, err)
		return
	}

	name := c.Param("name")
	if name != filepath.Base(name) || !strings.HasSuffix(name, ".ts") {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	c.File(filepath.Join(state.Dir(), name))
}

func (g *generationController) abortNotFound(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrTaskNotFound) {
		status = http.StatusNotFound
	}
	if err := c.AbortWithError(status, err); err != nil {
		g.logger.Error(err, "failed to abort with error")
	}
}

func (g *generationController) RegisterRoutes(router *gin.Engine) {
	router.POST("/generate", g.StartGeneration)
	router.GET("/tasks/:id/status", g.TaskStatus)
	router.POST("/tasks/:id/cancel", g.CancelTask)
	router.GET("/tasks/:id/events", middleware.SSEMiddleware(), g.TaskEvents)
	router.GET("/tasks/:id/playlist.m3u8", g.Playlist)
	router.GET("/tasks/:id/segments/:name", g.MediaSegment)
}
