package handler

import (
	"net/http"

	"chatterbox/backend/internal/apperr"
	"chatterbox/backend/internal/auth"
	"chatterbox/backend/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerRequest struct {
	Name         string         `json:"name" binding:"required"`
	Email        string         `json:"email" binding:"required,email"`
	Password     string         `json:"password" binding:"required,min=6"`
	ProfileImage models.FileRef `json:"profileImage"`
}

// Register creates a user account and logs it in.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.Validation("name, email and password are required"))
		return
	}

	existing, err := h.Store.FindUserByEmail(req.Email)
	if err != nil {
		h.fail(c, apperr.Upstream("failed to check email", err))
		return
	}
	if existing != nil {
		h.fail(c, apperr.Conflict("a user with this email already exists"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.fail(c, apperr.Upstream("failed to hash password", err))
		return
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hash,
		Avatar:   req.ProfileImage,
	}
	if err := h.Store.CreateUser(user); err != nil {
		h.fail(c, apperr.Upstream("failed to create user", err))
		return
	}

	token, err := h.Auth.GenerateToken(user.ID)
	if err != nil {
		h.fail(c, apperr.Upstream("failed to create token", err))
		return
	}

	h.Log.Info("user registered", zap.String("user_id", user.ID))
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Account created.",
		"user":    user,
		"token":   token,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and issues a token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.Validation("email and password are required"))
		return
	}

	user, err := h.Store.FindUserByEmail(req.Email)
	if err != nil {
		h.fail(c, apperr.Upstream("failed to look up user", err))
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials."})
		return
	}

	ok, err := auth.ComparePassword(req.Password, user.Password)
	if err != nil || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials."})
		return
	}

	token, err := h.Auth.GenerateToken(user.ID)
	if err != nil {
		h.fail(c, apperr.Upstream("failed to create token", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged in.",
		"user":    user,
		"token":   token,
	})
}

// SearchUsers matches other users by name or email keyword.
func (h *Handler) SearchUsers(c *gin.Context) {
	keyword := c.Query("search")
	if keyword == "" {
		c.JSON(http.StatusOK, gin.H{"success": true, "users": []models.User{}})
		return
	}

	users, err := h.Store.SearchUsers(keyword, actor(c))
	if err != nil {
		h.fail(c, apperr.Upstream("failed to search users", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": users})
}

// OnlineUsers lists the IDs of users with at least one live channel.
func (h *Handler) OnlineUsers(c *gin.Context) {
	ids, err := h.Store.OnlineUsers()
	if err != nil {
		h.fail(c, apperr.Upstream("failed to fetch online users", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "online": ids})
}

type updateProfileRequest struct {
	Name         string          `json:"name"`
	About        *string         `json:"about"`
	ProfileImage *models.FileRef `json:"profileImage"`
}

// UpdateProfile updates the actor's display name, about text or
// avatar.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.Validation("invalid profile payload"))
		return
	}

	user, err := h.Store.FindUserByID(actor(c))
	if err != nil {
		h.fail(c, apperr.Upstream("failed to look up user", err))
		return
	}
	if user == nil {
		h.fail(c, apperr.NotFound("user not found"))
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.About != nil {
		user.About = *req.About
	}
	if req.ProfileImage != nil {
		user.Avatar = *req.ProfileImage
	}

	if err := h.Store.SaveUser(user); err != nil {
		h.fail(c, apperr.Upstream("failed to update user", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile updated.", "user": user})
}

// UpdateWallpaper sets the actor's chat background preference.
func (h *Handler) UpdateWallpaper(c *gin.Context) {
	var wallpaper models.FileRef
	if err := c.ShouldBindJSON(&wallpaper); err != nil {
		h.fail(c, apperr.Validation("invalid wallpaper payload"))
		return
	}

	user, err := h.Store.FindUserByID(actor(c))
	if err != nil {
		h.fail(c, apperr.Upstream("failed to look up user", err))
		return
	}
	if user == nil {
		h.fail(c, apperr.NotFound("user not found"))
		return
	}

	user.Wallpaper = wallpaper
	if err := h.Store.SaveUser(user); err != nil {
		h.fail(c, apperr.Upstream("failed to update wallpaper", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Wallpaper updated.", "user": user})
}
