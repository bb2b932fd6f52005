package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"account-service/internal/service"
	"account-service/internal/token"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users  service.UserService
	tokens *token.Service
	logger *logrus.Logger
}

func NewHandler(users service.UserService, tokens *token.Service, logger *logrus.Logger) *Handler {
	return &Handler{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.Use(requestLogger(h.logger))

	api := router.Group("/api")
	{
		api.POST("/auth/signup", h.signup)
		api.POST("/auth/login", h.login)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		users := api.Group("/users", h.requireAuth())
		{
			users.GET("", h.listUsers)
			users.GET("/:id", h.getUser)
			users.PUT("/:id", h.updateUser)
			users.DELETE("/:id", h.deleteUser)
		}
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	NewUsername string `json:"new_username"`
	NewPassword string `json:"new_password"`
}

type userResponse struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	MemberSince string `json:"member_since"`
}

func (h *Handler) signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.users.CreateUser(c.Request.Context(), service.CreateUserCommand{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.serverError(c, err)
		return
	}
	if !result.Success {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": result.Message})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": result.Message,
		"token":   result.Token,
		"user":    userToResponse(result.User),
	})
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.users.AuthenticateUser(c.Request.Context(), service.AuthenticateUserQuery{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.serverError(c, err)
		return
	}
	if !result.Success {
		status := http.StatusUnauthorized
		if result.Message == "Username and password are required" {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"success": false, "message": result.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": result.Message,
		"token":   result.Token,
		"user":    userToResponse(result.User),
	})
}

func (h *Handler) listUsers(c *gin.Context) {
	result, err := h.users.GetAllUsers(c.Request.Context(), service.GetAllUsersQuery{})
	if err != nil {
		h.serverError(c, err)
		return
	}

	resp := make([]userResponse, len(result.Users))
	for i := range result.Users {
		resp[i] = *userToResponse(&result.Users[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	result, err := h.users.GetUserByID(c.Request.Context(), service.GetUserByIDQuery{UserID: id})
	if err != nil {
		h.serverError(c, err)
		return
	}
	if !result.Success {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": result.Message})
		return
	}

	c.JSON(http.StatusOK, userToResponse(result.User))
}

func (h *Handler) updateUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.users.UpdateUser(c.Request.Context(), service.UpdateUserCommand{
		UserID:      id,
		NewUsername: req.NewUsername,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		h.serverError(c, err)
		return
	}
	if !result.Success {
		status := http.StatusBadRequest
		if result.Message == "User not found!" {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"success": false, "message": result.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": result.Message,
		"user":    userToResponse(result.User),
	})
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	result, err := h.users.DeleteUser(c.Request.Context(), service.DeleteUserCommand{UserID: id})
	if err != nil {
		h.serverError(c, err)
		return
	}
	if !result.Success {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": result.Message})
		return
	}

	if claims, ok := claimsFromContext(c); ok {
		h.logger.WithFields(logrus.Fields{
			"actor_id":   claims.UserID,
			"deleted_id": id,
		}).Info("user deleted")
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": result.Message})
}

func (h *Handler) serverError(c *gin.Context, err error) {
	h.logger.WithFields(logrus.Fields{
		"path":  c.Request.URL.Path,
		"error": err.Error(),
	}).Error("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

func userToResponse(user *service.UserSummary) *userResponse {
	if user == nil {
		return nil
	}
	return &userResponse{
		ID:          user.ID,
		Username:    user.Username,
		MemberSince: user.MemberSince.Format(time.RFC3339),
	}
}
