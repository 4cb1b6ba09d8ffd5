package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quillchat/quill/internal/auth"
	"github.com/quillchat/quill/internal/llm"
	"github.com/quillchat/quill/internal/models"
)

const historyLimit = 50

const userIDKey = "userID"

// ChatCompleter produces an assistant reply for a user message.
type ChatCompleter interface {
	Complete(ctx context.Context, message string) (string, error)
}

// TurnStore persists and lists chat turns.
type TurnStore interface {
	InsertTurn(ctx context.Context, turn models.Turn) error
	RecentTurns(ctx context.Context, userID string, limit int) ([]models.Turn, error)
}

type Handler struct {
	authService *auth.Service
	turns       TurnStore
	completer   ChatCompleter
	logger      *zap.SugaredLogger
}

func NewHandler(authService *auth.Service, turns TurnStore, completer ChatCompleter, logger *zap.SugaredLogger) *Handler {
	return &Handler{authService: authService, turns: turns, completer: completer, logger: logger}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.POST("/register", h.handleRegister)
	router.POST("/login", h.handleLogin)

	chatGroup := router.Group("/chat")
	chatGroup.Use(h.requireAuth)
	chatGroup.POST("", h.handleChat)
	chatGroup.GET("/history", h.handleHistory)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *Handler) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	result, err := h.authService.Register(c.Request.Context(), auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailInvalid), errors.Is(err, auth.ErrPasswordTooWeak):
			writeError(c, http.StatusBadRequest, err.Error(), err)
		case errors.Is(err, auth.ErrEmailExists):
			writeError(c, http.StatusConflict, err.Error(), err)
		default:
			h.logger.Errorw("register failed", "error", err)
			writeError(c, http.StatusInternalServerError, "failed to register user", err)
		}
		return
	}

	c.JSON(http.StatusCreated, newAuthResponse(result))
}

func (h *Handler) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(c, http.StatusUnauthorized, err.Error(), err)
		default:
			h.logger.Errorw("login failed", "error", err)
			writeError(c, http.StatusInternalServerError, "failed to login", err)
		}
		return
	}

	c.JSON(http.StatusOK, newAuthResponse(result))
}

// requireAuth validates the bearer token and stashes the user id on the context.
func (h *Handler) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}

	claims, err := h.authService.VerifyToken(strings.TrimSpace(token))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	c.Set(userIDKey, claims.Subject)
	c.Next()
}

func (h *Handler) handleChat(c *gin.Context) {
	userID := c.GetString(userIDKey)

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeError(c, http.StatusBadRequest, "message is required", errMissingMessage)
		return
	}

	ctx := c.Request.Context()

	reply, err := h.completer.Complete(ctx, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrNotConfigured):
			writeError(c, http.StatusServiceUnavailable, "completion api not configured", err)
		case errors.Is(err, llm.ErrTimeout):
			writeError(c, http.StatusGatewayTimeout, "completion api timed out", err)
		default:
			h.logger.Errorw("completion failed", "user_id", userID, "error", err)
			writeError(c, http.StatusBadGateway, "failed to get completion", err)
		}
		return
	}

	turn := models.Turn{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   req.Message,
		Response:  reply,
		Timestamp: time.Now().UTC(),
	}

	if err := h.turns.InsertTurn(ctx, turn); err != nil {
		h.logger.Errorw("persist turn failed", "user_id", userID, "error", err)
		writeError(c, http.StatusInternalServerError, "failed to save chat message", err)
		return
	}

	c.JSON(http.StatusOK, turnJSON(turn))
}

func (h *Handler) handleHistory(c *gin.Context) {
	userID := c.GetString(userIDKey)

	turns, err := h.turns.RecentTurns(c.Request.Context(), userID, historyLimit)
	if err != nil {
		h.logger.Errorw("load history failed", "user_id", userID, "error", err)
		writeError(c, http.StatusInternalServerError, "failed to load history", err)
		return
	}

	payload := make([]gin.H, 0, len(turns))
	for _, turn := range turns {
		payload = append(payload, turnJSON(turn))
	}

	c.JSON(http.StatusOK, payload)
}

var errMissingMessage = errors.New("message is required")

func turnJSON(turn models.Turn) gin.H {
	return gin.H{
		"id":        turn.ID,
		"message":   turn.Message,
		"response":  turn.Response,
		"timestamp": turn.Timestamp.Format(time.RFC3339),
	}
}

func newAuthResponse(result *auth.AuthResult) gin.H {
	return gin.H{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt.Format(time.RFC3339),
		"user": gin.H{
			"id":        result.User.ID,
			"email":     result.User.Email,
			"createdAt": result.User.CreatedAt.Format(time.RFC3339),
		},
	}
}

func writeError(c *gin.Context, status int, message string, err error) {
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}
