package controllers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"civicx-be/config"
	"civicx-be/models"
	"civicx-be/pkg/resp"
	"civicx-be/services"
	authUtils "civicx-be/utils"
)

type AuthController struct {
	users services.UserStore
	cfg   config.Config
}

func NewAuthController(users services.UserStore, cfg config.Config) *AuthController {
	return &AuthController{users: users, cfg: cfg}
}

// Register handles user registration. Supplying the configured officials
// signup code yields an official account; everyone else is a citizen.
func (ac *AuthController) Register(c *gin.Context) {
	var input struct {
		Name       string `json:"name" binding:"required,max=50"`
		Email      string `json:"email" binding:"required,email"`
		Phone      string `json:"phone" binding:"max=20"`
		Password   string `json:"password" binding:"required,min=6"`
		SignupCode string `json:"signupCode"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	taken, err := ac.users.EmailTaken(ctx, input.Email)
	if err != nil {
		log.Println("Error checking existing user:", err)
		resp.Error(c, err)
		return
	}
	if taken {
		resp.BadRequest(c, "User with this email already exists")
		return
	}

	role := models.RoleCitizen
	if ac.cfg.OfficialSignupCode != "" && input.SignupCode == ac.cfg.OfficialSignupCode {
		role = models.RoleOfficial
	}

	user := models.User{
		ID:        primitive.NewObjectID(),
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		Password:  input.Password,
		Role:      role,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := user.HashPassword(); err != nil {
		log.Println("Error hashing password:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	if err := ac.users.Insert(ctx, &user); err != nil {
		log.Println("Error inserting user:", err)
		resp.Error(c, err)
		return
	}

	resp.Created(c, gin.H{
		"id":        user.ID,
		"name":      user.Name,
		"email":     user.Email,
		"role":      user.Role,
		"createdAt": user.CreatedAt,
	})
}

// Login handles user login and sets the auth_token cookie.
func (ac *AuthController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}

	user, err := ac.users.FindByEmail(c.Request.Context(), input.Email)
	if err != nil {
		resp.Unauthorized(c, "Invalid credentials")
		return
	}

	if !user.ComparePassword(input.Password) {
		resp.Unauthorized(c, "Invalid credentials")
		return
	}

	token, err := authUtils.GenerateToken(ac.cfg.JWTSecret, user.ID.Hex(), user.Role)
	if err != nil {
		log.Println("Error generating token:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	domain := ac.cfg.Domain
	// For production, don't set domain to allow cross-origin cookies
	if ac.cfg.Environment == "production" {
		domain = ""
	}

	cookie := &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		MaxAge:   3600, // 1 hour
		Path:     "/",
		Domain:   domain,
		Secure:   ac.cfg.Environment == "production",
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	}
	http.SetCookie(c.Writer, cookie)

	resp.OK(c, gin.H{
		"id":        user.ID,
		"name":      user.Name,
		"email":     user.Email,
		"role":      user.Role,
		"createdAt": user.CreatedAt,
	})
}

// Me retrieves the authenticated user's profile.
func (ac *AuthController) Me(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		resp.Unauthorized(c, "User not authenticated")
		return
	}

	objectID, err := primitive.ObjectIDFromHex(userID.(string))
	if err != nil {
		resp.BadRequest(c, "Invalid user ID")
		return
	}

	user, err := ac.users.FindByID(c.Request.Context(), objectID)
	if err != nil {
		resp.Error(c, err)
		return
	}

	resp.OK(c, gin.H{
		"id":        user.ID,
		"name":      user.Name,
		"email":     user.Email,
		"phone":     user.Phone,
		"role":      user.Role,
		"createdAt": user.CreatedAt,
	})
}

// Logout clears the auth_token cookie.
func (ac *AuthController) Logout(c *gin.Context) {
	c.SetCookie("auth_token", "", -1, "/", ac.cfg.Domain, ac.cfg.Environment == "production", true)
	resp.OK(c, gin.H{"message": "Logged out successfully"})
}
