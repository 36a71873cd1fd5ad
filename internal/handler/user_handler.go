package handler

import (
	"net/http"

	"playmatch/tags/internal/database"
	"playmatch/tags/internal/models"
	"playmatch/tags/internal/tagging"
	"playmatch/tags/pkg/jwt"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// region --- DTOs ---

// RegisterInput defines the structure for user registration. Interests are
// queued on the new user and attached once it has been saved.
type RegisterInput struct {
	Nickname  string   `json:"nickname" binding:"required" example:"testuser"`
	Email     string   `json:"email" binding:"required,email" example:"test@example.com"`
	Password  string   `json:"password" binding:"required,min=8" example:"password123"`
	Interests []string `json:"interests" example:"RPG,Co-op"`
}

// LoginInput defines the structure for user login.
type LoginInput struct {
	Login    string `json:"login" binding:"required" example:"testuser"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// PrivateUserResponse defines the structure for the authenticated user's own profile.
type PrivateUserResponse struct {
	ID        uint          `json:"id" example:"1"`
	Nickname  string        `json:"nickname" example:"testuser"`
	Email     string        `json:"email" example:"test@example.com"`
	Role      string        `json:"role" example:"user"`
	Interests []TagResponse `json:"interests"`
}

// endregion

// region --- Auth Handlers ---

// RegisterUser godoc
// @Summary      Register a new user
// @Description  Creates a new user and returns an authentication token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body RegisterInput true "Registration Info"
// @Success      201  {object}  map[string]string "{"token": "..."}"
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/register [post]
func RegisterUser(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	var taken int64
	if err := database.DB.Model(&models.User{}).Scopes(byLogin(input.Nickname, input.Email)).Count(&taken).Error; err != nil {
		respondError(c, err, "Failed to check nickname and email")
		return
	}
	if taken > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Nickname or email already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, err, "Failed to hash password")
		return
	}

	user := models.User{
		Nickname:     input.Nickname,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
	}
	// Interests are queued on the unsaved user and attached in the same
	// transaction once the insert has assigned an id.
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		tags := database.Tags.WithTx(tx)
		if err := tags.SetTags(ctx, &user, tagging.Names(input.Interests...)); err != nil {
			return err
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tags.OnIdentityAssigned(ctx, &user)
	})
	if err != nil {
		respondError(c, err, "Failed to create user")
		return
	}

	respondWithToken(c, http.StatusCreated, user.ID)
}

// LoginUser godoc
// @Summary      Log in a user
// @Description  Authenticates a user with nickname/email and password, and returns a new token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginInput true "Login Info"
// @Success      200  {object}  map[string]string "{"token": "..."}"
// @Failure      400  {object}  ErrorResponse "Invalid input"
// @Failure      401  {object}  ErrorResponse "Invalid credentials"
// @Failure      404  {object}  ErrorResponse "User not found"
// @Failure      500  {object}  ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func LoginUser(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	err := database.DB.Scopes(byLogin(input.Login, input.Login)).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	case err != nil:
		respondError(c, err, "Failed to load user")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	respondWithToken(c, http.StatusOK, user.ID)
}

// byLogin matches users by nickname or email.
func byLogin(nickname, email string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("nickname = ? OR email = ?", nickname, email)
	}
}

func respondWithToken(c *gin.Context, status int, userID uint) {
	token, err := jwt.GenerateToken(userID)
	if err != nil {
		respondError(c, err, "Failed to generate token")
		return
	}
	c.JSON(status, gin.H{"token": token})
}

// endregion

// region --- User Handlers ---

// currentUser loads the authenticated user. It writes the error response
// itself and returns false when the user cannot be used.
func currentUser(c *gin.Context) (*models.User, bool) {
	var user models.User
	err := database.DB.First(&user, c.GetUint("userID")).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return nil, false
	case err != nil:
		respondError(c, err, "Failed to load user")
		return nil, false
	}
	return &user, true
}

// GetMe godoc
// @Summary      Get current user's profile
// @Description  Retrieves the profile and interests of the currently authenticated user.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  PrivateUserResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "User not found"
// @Router       /users/me [get]
func GetMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	interests, err := database.Tags.Tags(c.Request.Context(), user)
	if err != nil {
		respondError(c, err, "Failed to load interests")
		return
	}

	c.JSON(http.StatusOK, PrivateUserResponse{
		ID:        user.ID,
		Nickname:  user.Nickname,
		Email:     user.Email,
		Role:      user.Role,
		Interests: newTagResponses(interests),
	})
}

// GetMyTags godoc
// @Summary      List current user's tags
// @Description  Lists the tags attached to the authenticated user, optionally only those of one type.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        type query string false "Tag type; empty selects untyped tags"
// @Success      200  {array}   TagResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /users/me/tags [get]
func GetMyTags(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	tags, err := database.Tags.Tags(c.Request.Context(), user, queryTypeOption(c, "type")...)
	if err != nil {
		respondError(c, err, "Failed to load tags")
		return
	}
	c.JSON(http.StatusOK, newTagResponses(tags))
}

// SyncMyTags godoc
// @Summary      Replace current user's tags
// @Description  Syncs the authenticated user's tags to exactly the given list. With a type, only tags of that type are replaced.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body TagsInput true "Desired tags"
// @Success      200  {object}  SyncResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse "Tag type conflict"
// @Router       /users/me/tags [put]
func SyncMyTags(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var input TagsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	refs, err := input.refs(ctx)
	if err != nil {
		respondError(c, err, "Failed to resolve tags")
		return
	}

	var changes tagging.Changes
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		changes, err = database.Tags.WithTx(tx).Sync(ctx, user, refs, input.options()...)
		return err
	})
	if err != nil {
		respondError(c, err, "Failed to sync tags")
		return
	}

	tags, err := database.Tags.Tags(ctx, user)
	if err != nil {
		respondError(c, err, "Failed to load tags")
		return
	}
	c.JSON(http.StatusOK, SyncResponse{
		Attached: nonNil(changes.Attached),
		Detached: nonNil(changes.Detached),
		Tags:     newTagResponses(tags),
	})
}

func nonNil(ids []uint) []uint {
	if ids == nil {
		return []uint{}
	}
	return ids
}

// endregion
