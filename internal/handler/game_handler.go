package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"playmatch/tags/internal/database"
	"playmatch/tags/internal/hub"
	"playmatch/tags/internal/models"
	"playmatch/tags/internal/tagging"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// region --- DTOs ---

type GameInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	SteamURL    string `json:"steam_url"`
	TagsInput
}

type GameResponse struct {
	ID          uint          `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	SteamURL    string        `json:"steam_url"`
	Tags        []TagResponse `json:"tags"`
}

func newGameResponse(game models.Game) GameResponse {
	return GameResponse{
		ID:          game.ID,
		Name:        game.Name,
		Description: game.Description,
		SteamURL:    game.SteamURL,
		Tags:        newTagResponses(game.Tags),
	}
}

// PaginatedGameResponse defines the structure for a paginated list of games.
type PaginatedGameResponse struct {
	Data []GameResponse `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

// SyncResponse reports which tag IDs a sync attached and detached.
type SyncResponse struct {
	Attached []uint        `json:"attached"`
	Detached []uint        `json:"detached"`
	Tags     []TagResponse `json:"tags"`
}

// endregion

// loadGame resolves the :id path parameter. It writes the error response
// itself and returns false when the game cannot be used.
func loadGame(c *gin.Context, db *gorm.DB) (*models.Game, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return nil, false
	}

	var game models.Game
	if err := db.First(&game, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		} else {
			respondError(c, err, "Failed to load game")
		}
		return nil, false
	}
	return &game, true
}

func withTags(ctx context.Context, game *models.Game) error {
	tags, err := database.Tags.Tags(ctx, game)
	if err != nil {
		return err
	}
	game.Tags = tags
	return nil
}

// region --- Admin Handlers ---

// CreateGame godoc
// @Summary      Create a new game
// @Description  Creates a new game. Tags are queued until the game has an ID and then attached.
// @Tags         admin-games
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body GameInput true "Game Info"
// @Success      201  {object}  GameResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Admin access required"
// @Failure      409  {object}  ErrorResponse "Tag type conflict"
// @Router       /admin/games [post]
func CreateGame(c *gin.Context) {
	var input GameInput
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

	game := models.Game{
		Name:        input.Name,
		Description: input.Description,
		SteamURL:    input.SteamURL,
	}
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		tags := database.Tags.WithTx(tx)
		if err := tags.SetTags(ctx, &game, refs, input.options()...); err != nil {
			return err
		}
		if err := tx.Create(&game).Error; err != nil {
			return err
		}
		return tags.OnIdentityAssigned(ctx, &game)
	})
	if err != nil {
		respondError(c, err, "Failed to create game")
		return
	}

	if err := withTags(ctx, &game); err != nil {
		respondError(c, err, "Failed to load tags")
		return
	}
	c.JSON(http.StatusCreated, newGameResponse(game))
}

// UpdateGame godoc
// @Summary      Update a game
// @Description  Updates a game's details. When tags are given, the game's tags are synced to exactly that list.
// @Tags         admin-games
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int       true  "Game ID"
// @Param        input body      GameInput true  "New Game Info"
// @Success      200   {object}  GameResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse "Admin access required"
// @Failure      404   {object}  ErrorResponse "Game not found"
// @Failure      409   {object}  ErrorResponse "Tag type conflict"
// @Router       /admin/games/{id} [put]
func UpdateGame(c *gin.Context) {
	game, ok := loadGame(c, database.DB)
	if !ok {
		return
	}

	var input GameInput
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

	game.Name = input.Name
	game.Description = input.Description
	game.SteamURL = input.SteamURL

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(game).Error; err != nil {
			return err
		}
		if !input.present() {
			return nil
		}
		_, err := database.Tags.WithTx(tx).Sync(ctx, game, refs, input.options()...)
		return err
	})
	if err != nil {
		respondError(c, err, "Failed to update game")
		return
	}

	if err := withTags(ctx, game); err != nil {
		respondError(c, err, "Failed to load tags")
		return
	}
	c.JSON(http.StatusOK, newGameResponse(*game))
}

// DeleteGame godoc
// @Summary      Delete a game
// @Description  Detaches all of the game's tags and deletes it.
// @Tags         admin-games
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Game ID"
// @Success      200 {object} map[string]string "{"message": "Game deleted"}"
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse "Admin access required"
// @Failure      404 {object} ErrorResponse "Game not found"
// @Router       /admin/games/{id} [delete]
func DeleteGame(c *gin.Context) {
	game, ok := loadGame(c, database.DB)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := database.Tags.WithTx(tx).OnBeforeDelete(ctx, game); err != nil {
			return err
		}
		return tx.Delete(game).Error
	})
	if err != nil {
		respondError(c, err, "Failed to delete game")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Game deleted"})
}

// AttachGameTags godoc
// @Summary      Attach tags to a game
// @Description  Adds tags to a game, creating unknown names. Existing tags are kept.
// @Tags         admin-games
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int       true  "Game ID"
// @Param        input body      TagsInput true  "Tags to attach"
// @Success      200   {array}   TagResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse "Game or tag not found"
// @Failure      409   {object}  ErrorResponse "Tag type conflict"
// @Router       /admin/games/{id}/tags [post]
func AttachGameTags(c *gin.Context) {
	changeGameTags(c, func(ctx context.Context, game *models.Game, refs []tagging.Ref, opts []tagging.Option) error {
		return database.Tags.Attach(ctx, game, refs, opts...)
	})
}

// DetachGameTags godoc
// @Summary      Detach tags from a game
// @Description  Removes tags from a game. Unknown names are ignored.
// @Tags         admin-games
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int       true  "Game ID"
// @Param        input body      TagsInput true  "Tags to detach"
// @Success      200   {array}   TagResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse "Game or tag not found"
// @Failure      409   {object}  ErrorResponse "Tag type conflict"
// @Router       /admin/games/{id}/tags [delete]
func DetachGameTags(c *gin.Context) {
	changeGameTags(c, func(ctx context.Context, game *models.Game, refs []tagging.Ref, opts []tagging.Option) error {
		return database.Tags.Detach(ctx, game, refs, opts...)
	})
}

func changeGameTags(c *gin.Context, apply func(context.Context, *models.Game, []tagging.Ref, []tagging.Option) error) {
	game, ok := loadGame(c, database.DB)
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
	if err := apply(ctx, game, refs, input.options()); err != nil {
		respondError(c, err, "Failed to change tags")
		return
	}

	tags, err := database.Tags.Tags(ctx, game)
	if err != nil {
		respondError(c, err, "Failed to load tags")
		return
	}
	c.JSON(http.StatusOK, newTagResponses(tags))
}

// endregion

// region --- Public Handlers ---

// GetGameByID godoc
// @Summary      Get a single game by ID
// @Description  Retrieves details for a single game, including its tags.
// @Tags         games
// @Produce      json
// @Param        id path int true "Game ID"
// @Success      200 {object} GameResponse
// @Failure      404 {object} ErrorResponse "Game not found"
// @Router       /games/{id} [get]
func GetGameByID(c *gin.Context) {
	game, ok := loadGame(c, database.DB)
	if !ok {
		return
	}
	if err := withTags(c.Request.Context(), game); err != nil {
		respondError(c, err, "Failed to load tags")
		return
	}
	c.JSON(http.StatusOK, newGameResponse(*game))
}

// GetGameTags godoc
// @Summary      List a game's tags
// @Description  Lists the tags attached to a game, optionally only those of one type.
// @Tags         games
// @Produce      json
// @Param        id   path  int    true   "Game ID"
// @Param        type query string false  "Tag type; empty selects untyped tags"
// @Success      200 {array}  TagResponse
// @Failure      404 {object} ErrorResponse "Game not found"
// @Router       /games/{id}/tags [get]
func GetGameTags(c *gin.Context) {
	game, ok := loadGame(c, database.DB)
	if !ok {
		return
	}
	tags, err := database.Tags.Tags(c.Request.Context(), game, queryTypeOption(c, "type")...)
	if err != nil {
		respondError(c, err, "Failed to load tags")
		return
	}
	c.JSON(http.StatusOK, newTagResponses(tags))
}

// GetGames godoc
// @Summary      Get a list of games
// @Description  Retrieves a paginated list of games, optionally filtered by name and tag membership.
// @Tags         games
// @Produce      json
// @Param        q        query     string  false  "Search query for game name"
// @Param        tags     query     string  false  "Comma-separated list of tag names"
// @Param        match    query     string  false  "all (default) or any"
// @Param        any_type query     bool    false  "Resolve tag names regardless of type"
// @Param        tag_type query     string  false  "Tag type the names belong to; empty selects untyped tags"
// @Param        page     query     int     false  "Page number" default(1)
// @Param        limit    query     int     false  "Items per page" default(10)
// @Success      200 {object} PaginatedGameResponse
// @Failure      400 {object} ErrorResponse
// @Router       /games [get]
func GetGames(c *gin.Context) {
	page, limit := pageParams(c)
	ctx := c.Request.Context()

	dbQuery := database.DB.Model(&models.Game{})

	// Filter by name
	if searchQuery := c.Query("q"); searchQuery != "" {
		dbQuery = dbQuery.Where(`LOWER(games.name) LIKE ? ESCAPE '\'`, tagging.ContainsPattern(strings.ToLower(searchQuery)))
	}

	// Filter by tags
	if names := splitCommaSeparated(c.Query("tags")); len(names) > 0 {
		scope, err := tagScope(c, names)
		if err != nil {
			respondError(c, err, "Failed to resolve tags")
			return
		}
		dbQuery = scope(dbQuery)
	}

	result, err := Paginate[models.Game](dbQuery, page, limit)
	if err != nil {
		respondError(c, err, "Failed to retrieve games")
		return
	}

	ids := make([]uint, 0, len(result.Data))
	for _, game := range result.Data {
		ids = append(ids, game.ID)
	}
	tagsByGame, err := database.Tags.TagsByTaggable(ctx, models.GameTaggableType, ids)
	if err != nil {
		respondError(c, err, "Failed to load tags")
		return
	}

	response := make([]GameResponse, 0, len(result.Data))
	for _, game := range result.Data {
		game.Tags = tagsByGame[game.ID]
		response = append(response, newGameResponse(game))
	}

	c.JSON(http.StatusOK, NewPaginatedResponse(response, result.Meta.TotalItems, page, limit))
}

// tagScope builds the tag membership filter described by the query string.
func tagScope(c *gin.Context, names []string) (tagging.Scope, error) {
	ctx := c.Request.Context()
	refs := tagging.Names(names...)
	anyType, _ := strconv.ParseBool(c.Query("any_type"))

	switch match := c.DefaultQuery("match", "all"); {
	case match == "any" && anyType:
		return database.Tags.WithAnyTagsOfAnyType(ctx, &models.Game{}, refs)
	case match == "any":
		return database.Tags.WithAnyTags(ctx, &models.Game{}, refs, queryTypeOption(c, "tag_type")...)
	case match == "all" && anyType:
		return database.Tags.WithAllTagsOfAnyType(ctx, &models.Game{}, refs)
	case match == "all":
		return database.Tags.WithAllTags(ctx, &models.Game{}, refs, queryTypeOption(c, "tag_type")...)
	default:
		return nil, errors.Wrapf(tagging.ErrInvalidInput, "match must be all or any, got %q", match)
	}
}

// GameEvents godoc
// @Summary      Stream tag changes of a game
// @Description  Server-sent events emitted whenever a sync changes the game's tags.
// @Tags         games
// @Produce      text/event-stream
// @Param        id path int true "Game ID"
// @Success      200 {string} string "event stream"
// @Failure      404 {object} ErrorResponse "Game not found"
// @Router       /games/{id}/events [get]
func GameEvents(c *gin.Context) {
	game, ok := loadGame(c, database.DB)
	if !ok {
		return
	}

	topic := hub.Topic(game.TaggableType(), game.ID)
	client := make(hub.Client, 16)
	hub.GlobalHub.Subscribe(topic, client)
	defer hub.GlobalHub.Unsubscribe(topic, client)

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-client:
			if !ok {
				return false
			}
			c.SSEvent("message", string(msg))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// Helper to split comma-separated strings
func splitCommaSeparated(s string) []string {
	var result []string
	parts := strings.Split(s, ",")
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// endregion
