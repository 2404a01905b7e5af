package admin

import (
	"context"
	"errors"
	"net/http"

	"story-engine/internal/judgment"
	"story-engine/internal/story"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Judge - то, что админке нужно от движка оценки для пробных прогонов.
type Judge interface {
	Classify(ctx context.Context, c *story.Challenge, input string) judgment.Result
	ClassifyLocal(c *story.Challenge, input string) judgment.Result
	RemoteEnabled() bool
}

// StoryHandler отдает авторские инструменты: обзор истории, узлы, проверку документа
// и пробную оценку ответов.
type StoryHandler struct {
	graph     *story.Graph
	storyPath string
	judge     Judge
	logger    *zap.Logger
}

// NewStoryHandler. storyPath перечитывается при каждой проверке, чтобы автор видел
// правки без перезапуска.
func NewStoryHandler(graph *story.Graph, storyPath string, judge Judge, logger *zap.Logger) *StoryHandler {
	return &StoryHandler{
		graph:     graph,
		storyPath: storyPath,
		judge:     judge,
		logger:    logger.Named("StoryHandler"),
	}
}

func (h *StoryHandler) RegisterRoutes(router gin.IRouter) {
	storyGroup := router.Group("/story")
	{
		storyGroup.GET("", h.getStory)
		storyGroup.GET("/chapters/:chapterID/nodes/:nodeID", h.getNode)
		storyGroup.GET("/validation", h.validate)
	}
	router.POST("/judge/dry-run", h.dryRun)
}

type chapterSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	NodeCount int    `json:"nodeCount"`
}

type storySummary struct {
	Title     string           `json:"title"`
	Start     story.NodeRef    `json:"start"`
	NodeCount int              `json:"nodeCount"`
	Chapters  []chapterSummary `json:"chapters"`
}

type nodeResponse struct {
	Branch string      `json:"branch"`
	Node   *story.Node `json:"node"`
}

type validationResponse struct {
	Valid       bool            `json:"valid"`
	Problems    []string        `json:"problems"`
	Unreachable []story.NodeRef `json:"unreachable"`
}

// DryRunRequest - пробная оценка ответа на испытание узла.
type DryRunRequest struct {
	ChapterID string `json:"chapterId" binding:"required"`
	NodeID    string `json:"nodeId" binding:"required"`
	Input     string `json:"input" binding:"required,max=2000"`
	UseRemote bool   `json:"useRemote"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (h *StoryHandler) getStory(c *gin.Context) {
	resp := storySummary{
		Title:     h.graph.Title(),
		Start:     h.graph.Start(),
		NodeCount: h.graph.NodeCount(),
	}
	for _, id := range h.graph.ChapterIDs() {
		ch, ok := h.graph.Chapter(id)
		if !ok {
			continue
		}
		resp.Chapters = append(resp.Chapters, chapterSummary{ID: id, Title: ch.Title, NodeCount: len(ch.Nodes)})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *StoryHandler) getNode(c *gin.Context) {
	node, err := h.graph.GetNode(c.Param("chapterID"), c.Param("nodeID"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, nodeResponse{Branch: node.Branch().Kind.String(), Node: node})
}

func (h *StoryHandler) validate(c *gin.Context) {
	resp := validationResponse{Problems: []string{}, Unreachable: []story.NodeRef{}}

	g, err := story.Load(h.storyPath)
	if err != nil {
		var verr *story.ValidationError
		if !errors.As(err, &verr) {
			if errors.Is(err, story.ErrInvalidStory) {
				resp.Problems = append(resp.Problems, err.Error())
				c.JSON(http.StatusOK, resp)
				return
			}
			h.logger.Error("Failed to read story document", zap.String("path", h.storyPath), zap.Error(err))
			c.JSON(http.StatusInternalServerError, errorResponse{Message: "failed to read story document"})
			return
		}
		for _, p := range verr.Problems {
			resp.Problems = append(resp.Problems, p.String())
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	resp.Valid = true
	if unreachable := g.Unreachable(); len(unreachable) > 0 {
		resp.Unreachable = unreachable
	}
	c.JSON(http.StatusOK, resp)
}

func (h *StoryHandler) dryRun(c *gin.Context) {
	var req DryRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
		return
	}

	node, err := h.graph.GetNode(req.ChapterID, req.NodeID)
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse{Message: err.Error()})
		return
	}
	if node.Challenge == nil {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Message: "node has no judgment challenge"})
		return
	}

	var res judgment.Result
	if req.UseRemote {
		res = h.judge.Classify(c.Request.Context(), node.Challenge, req.Input)
	} else {
		res = h.judge.ClassifyLocal(node.Challenge, req.Input)
	}
	h.logger.Info("Dry-run judgment",
		zap.String("node", node.Ref().String()),
		zap.Bool("use_remote", req.UseRemote),
		zap.Bool("passed", res.Passed),
		zap.String("provenance", string(res.Provenance)),
	)
	c.JSON(http.StatusOK, res)
}
