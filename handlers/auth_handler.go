package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nextyou21/planner-backend/db"
	"github.com/nextyou21/planner-backend/docstore"
	"github.com/nextyou21/planner-backend/middleware"
	"github.com/nextyou21/planner-backend/models"
	"github.com/nextyou21/planner-backend/session"
	"github.com/nextyou21/planner-backend/syncengine"
	"github.com/nextyou21/planner-backend/utils"
	"go.uber.org/zap"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
	Contact  string `json:"contact"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register creates the account and seeds its planner document so the first
// sign-in always finds one in pending state.
func Register(docs *docstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := middleware.ValidateStruct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		hash, err := utils.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}

		user := models.User{
			Email:        req.Email,
			FullName:     req.FullName,
			Contact:      req.Contact,
			PasswordHash: hash,
			Role:         models.RoleUser,
		}
		if err := db.DB.Create(&user).Error; err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}

		if err := docs.SetMerge(user.ID, nil); err != nil {
			utils.Logger.Warn("seed_document_failed", zap.Uint("user_id", user.ID), zap.Error(err))
		}

		token, err := utils.GenerateToken(user.ID, user.Email, user.Role)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"token": token,
			"user":  user,
		})
	}
}

func Login(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := middleware.ValidateStruct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := db.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}

		if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}

		token, err := utils.GenerateToken(user.ID, user.Email, user.Role)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		sessions.SignIn(session.FromUser(user))
		utils.Logger.Info("user_signed_in", zap.Uint("user_id", user.ID))

		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"user":  user,
		})
	}
}

// Logout tears down the session: the sign-out notification drops the user's
// sync engine and clears the landing flag.
func Logout(sessions *session.Manager, engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		sessions.SignOut(user.ID)
		engines.Drop(user.ID)
		utils.Logger.Info("user_signed_out", zap.Uint("user_id", user.ID))

		c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
	}
}

func Profile() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// Landing flag: whether this account has pressed "get started" before.

func GetLanding(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"started": sessions.HasStarted(user.ID)})
	}
}

func StartLanding(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if err := sessions.SetStarted(user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to persist flag"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"started": true})
	}
}
