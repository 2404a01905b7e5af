package handler

import (
	"errors"
	"net/http"

	"story-engine/internal/savestore"
	"story-engine/internal/service"
	"story-engine/internal/story"
	"story-engine/internal/traversal"
	sharedMiddleware "story-engine/shared/middleware"
	sharedModels "story-engine/shared/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// WebSocketServer поднимает соединение игрока до WebSocket.
type WebSocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, playerID uuid.UUID) error
}

// GameHandler обслуживает игровой API.
type GameHandler struct {
	service  service.GameService
	verifier sharedMiddleware.TokenVerifier
	ws       WebSocketServer
	logger   *zap.Logger
}

func NewGameHandler(s service.GameService, verifier sharedMiddleware.TokenVerifier, ws WebSocketServer, logger *zap.Logger) *GameHandler {
	return &GameHandler{
		service:  s,
		verifier: verifier,
		ws:       ws,
		logger:   logger.Named("GameHandler"),
	}
}

// RegisterRoutes регистрирует маршруты игрового API.
func (h *GameHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	auth := sharedMiddleware.EchoPlayerAuth(h.verifier, h.logger)

	sessions := e.Group("/sessions", auth)
	{
		sessions.POST("", h.newGame)
		sessions.GET("/:id", h.getSession)
		sessions.DELETE("/:id", h.endSession)
		sessions.POST("/:id/advance", h.advance)
		sessions.POST("/:id/choices", h.selectChoice)
		sessions.POST("/:id/answers", h.submitAnswer)
		sessions.POST("/:id/resolve-failure", h.resolveFailure)
		sessions.POST("/:id/saves", h.save)
		sessions.POST("/:id/load", h.load)
	}

	if h.ws != nil {
		e.GET("/ws", h.serveWS, auth)
	}
}

func (h *GameHandler) newGame(c echo.Context) error {
	playerID, err := playerFromContext(c)
	if err != nil {
		return err
	}
	id, snap, err := h.service.NewGame(c.Request().Context(), playerID)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, newSessionResponse(id.String(), snap))
}

func (h *GameHandler) getSession(c echo.Context) error {
	playerID, sessionID, err := h.ids(c)
	if err != nil {
		return err
	}
	snap, err := h.service.GetSession(c.Request().Context(), playerID, sessionID)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, newSessionResponse(sessionID.String(), snap))
}

func (h *GameHandler) endSession(c echo.Context) error {
	playerID, sessionID, err := h.ids(c)
	if err != nil {
		return err
	}
	if err := h.service.EndSession(c.Request().Context(), playerID, sessionID); err != nil {
		return h.handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *GameHandler) advance(c echo.Context) error {
	playerID, sessionID, err := h.ids(c)
	if err != nil {
		return err
	}
	snap, err := h.service.Advance(c.Request().Context(), playerID, sessionID)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, newSessionResponse(sessionID.String(), snap))
}

func (h *GameHandler) selectChoice(c echo.Context) error {
	playerID, sessionID, err := h.ids(c)
	if err != nil {
		return err
	}
	var req SelectChoiceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	snap, err := h.service.SelectChoice(c.Request().Context(), playerID, sessionID, *req.Index)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, newSessionResponse(sessionID.String(), snap))
}

func (h *GameHandler) submitAnswer(c echo.Context) error {
	playerID, sessionID, err := h.ids(c)
	if err != nil {
		return err
	}
	var req SubmitAnswerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	res, snap, err := h.service.SubmitAnswer(c.Request().Context(), playerID, sessionID, req.Input)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, AnswerResponse{Result: res, Session: newSessionResponse(sessionID.String(), snap)})
}

func (h *GameHandler) resolveFailure(c echo.Context) error {
	playerID, sessionID, err := h.ids(c)
	if err != nil {
		return err
	}
	snap, err := h.service.ResolveFailure(c.Request().Context(), playerID, sessionID)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, newSessionResponse(sessionID.String(), snap))
}

func (h *GameHandler) save(c echo.Context) error {
	playerID, sessionID, err := h.ids(c)
	if err != nil {
		return err
	}
	token, err := h.service.Save(c.Request().Context(), playerID, sessionID)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, SaveResponse{Token: token})
}

func (h *GameHandler) load(c echo.Context) error {
	playerID, sessionID, err := h.ids(c)
	if err != nil {
		return err
	}
	var req LoadRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}
	snap, err := h.service.Load(c.Request().Context(), playerID, sessionID, req.Token)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, newSessionResponse(sessionID.String(), snap))
}

func (h *GameHandler) serveWS(c echo.Context) error {
	playerID, err := playerFromContext(c)
	if err != nil {
		return err
	}
	if err := h.ws.ServeWS(c.Response(), c.Request(), playerID); err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.String("player_id", playerID.String()), zap.Error(err))
	}
	return nil
}

func (h *GameHandler) ids(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	playerID, err := playerFromContext(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	return playerID, sessionID, nil
}

func playerFromContext(c echo.Context) (uuid.UUID, error) {
	id, ok := sharedModels.PlayerIDFromContext(c.Request().Context())
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "player is not authenticated")
	}
	return id, nil
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if c.Echo().Validator != nil {
		return c.Validate(req)
	}
	return nil
}

// handleServiceError переводит ошибки домена в HTTP-коды.
func (h *GameHandler) handleServiceError(c echo.Context, err error) error {
	var status int
	var msg string

	switch {
	case errors.Is(err, traversal.ErrEmptyInput),
		errors.Is(err, traversal.ErrInvalidChoice):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrForbidden):
		status, msg = http.StatusForbidden, "session belongs to another player"
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, savestore.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, traversal.ErrInvalidPhase),
		errors.Is(err, traversal.ErrJudgmentInFlight),
		errors.Is(err, traversal.ErrStaleJudgment):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, savestore.ErrCorruptSave):
		status, msg = http.StatusUnprocessableEntity, "save data is corrupt"
	case errors.Is(err, story.ErrNodeNotFound):
		h.logger.Error("Story data defect", zap.Error(err))
		status, msg = http.StatusInternalServerError, "story data is inconsistent"
	default:
		h.logger.Error("Unhandled service error", zap.Error(err))
		status, msg = http.StatusInternalServerError, "internal server error"
	}
	return c.JSON(status, APIError{Message: msg})
}
