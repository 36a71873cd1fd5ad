package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"playmatch/tags/internal/database"
	"playmatch/tags/internal/models"
	"playmatch/tags/internal/tagging"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

type TagInput struct {
	Name string  `json:"name" binding:"required"`
	Type *string `json:"type"`
}

type TagUpdateInput struct {
	Name  *string `json:"name"`
	Order *int    `json:"order"`
}

// TagsInput names the tags of an attach, detach or sync call. Names and IDs
// may be mixed; Type, when present, scopes the whole call.
type TagsInput struct {
	Tags   []string `json:"tags"`
	TagIDs []uint   `json:"tag_ids"`
	Type   *string  `json:"type"`
}

type TagResponse struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `json:"name"`
	Type      string    `json:"type,omitempty"`
	Slug      string    `json:"slug"`
	Order     int       `json:"order"`
}

func newTagResponse(tag models.Tag) TagResponse {
	return TagResponse{
		ID:        tag.ID,
		CreatedAt: tag.CreatedAt,
		UpdatedAt: tag.UpdatedAt,
		Name:      tag.Name,
		Type:      tag.Type,
		Slug:      tag.Slug,
		Order:     tag.OrderColumn,
	}
}

func newTagResponses(tags []*models.Tag) []TagResponse {
	response := make([]TagResponse, 0, len(tags))
	for _, tag := range tags {
		if tag != nil {
			response = append(response, newTagResponse(*tag))
		}
	}
	return response
}

// present reports whether the input names any tag at all.
func (in TagsInput) present() bool {
	return in.Tags != nil || in.TagIDs != nil
}

// refs turns the input into engine refs. IDs must name existing tags.
func (in TagsInput) refs(ctx context.Context) ([]tagging.Ref, error) {
	refs := tagging.Names(in.Tags...)
	for _, id := range in.TagIDs {
		tag, err := database.Tags.Store().Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if tag == nil {
			return nil, errors.Wrapf(errTagNotFound, "tag %d", id)
		}
		refs = append(refs, tagging.Existing(tag))
	}
	return refs, nil
}

func (in TagsInput) options() []tagging.Option {
	return typeOption(in.Type)
}

func typeOption(typ *string) []tagging.Option {
	if typ == nil {
		return nil
	}
	return []tagging.Option{tagging.OfType(*typ)}
}

// queryTypeOption reads an optional type filter from the query string. A
// present but empty parameter selects untyped tags.
func queryTypeOption(c *gin.Context, key string) []tagging.Option {
	if typ, ok := c.GetQuery(key); ok {
		return typeOption(&typ)
	}
	return nil
}

// endregion

// GetTags godoc
// @Summary      List tags
// @Description  Lists the tags of one type in display order, or searches tag names.
// @Tags         tags
// @Produce      json
// @Param        type query     string  false  "Tag type; empty selects untyped tags"
// @Param        q    query     string  false  "Case-insensitive name search"
// @Success      200  {array}   TagResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /tags [get]
func GetTags(c *gin.Context) {
	ctx := c.Request.Context()
	store := database.Tags.Store()

	var (
		tags []*models.Tag
		err  error
	)
	if q, ok := c.GetQuery("q"); ok {
		tags, err = store.Search(ctx, q)
		if typ, typed := c.GetQuery("type"); typed && err == nil {
			tags = tagging.TagsWithType(tags, typ)
		}
	} else {
		tags, err = store.ListByType(ctx, c.Query("type"))
	}
	if err != nil {
		respondError(c, err, "Failed to retrieve tags")
		return
	}

	c.JSON(http.StatusOK, newTagResponses(tags))
}

// CreateTag godoc
// @Summary      Find or create a tag
// @Description  Returns the tag with the given name and type, creating it if needed.
// @Tags         admin-tags
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body TagInput true "Tag Info"
// @Success      200  {object}  TagResponse "Tag already existed"
// @Success      201  {object}  TagResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Admin access required"
// @Router       /admin/tags [post]
func CreateTag(c *gin.Context) {
	var input TagInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	store := database.Tags.Store()

	typ := ""
	if input.Type != nil {
		typ = *input.Type
	}
	existing, err := store.FindByName(ctx, input.Name, tagging.OfType(typ))
	if err != nil {
		respondError(c, err, "Failed to look up tag")
		return
	}
	if existing != nil {
		c.JSON(http.StatusOK, newTagResponse(*existing))
		return
	}

	tag, err := store.FindOrCreate(ctx, tagging.Name(input.Name), tagging.OfType(typ))
	if err != nil {
		respondError(c, err, "Failed to create tag")
		return
	}
	c.JSON(http.StatusCreated, newTagResponse(*tag))
}

// UpdateTag godoc
// @Summary      Update a tag
// @Description  Renames a tag or moves it within its type's ordering.
// @Tags         admin-tags
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int      true  "Tag ID"
// @Param        input body TagUpdateInput true "New Tag Info"
// @Success      200  {object}  TagResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Admin access required"
// @Failure      404  {object}  ErrorResponse "Tag not found"
// @Failure      409  {object}  ErrorResponse "Name already taken within the type"
// @Router       /admin/tags/{id} [put]
func UpdateTag(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return
	}

	var input TagUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	store := database.Tags.Store()

	tag, err := store.Get(ctx, uint(id))
	if err != nil {
		respondError(c, err, "Failed to load tag")
		return
	}
	if tag == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}

	changes := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name must not be empty"})
			return
		}
		if name != tag.Name {
			clash, err := store.FindByName(ctx, name, tagging.OfType(tag.Type))
			if err != nil {
				respondError(c, err, "Failed to look up tag")
				return
			}
			if clash != nil {
				c.JSON(http.StatusConflict, gin.H{"error": "A tag with this name and type already exists"})
				return
			}
			changes["name"] = name
		}
	}
	if input.Order != nil {
		changes["order_column"] = *input.Order
	}

	if err := store.Update(ctx, tag, changes); err != nil {
		respondError(c, err, "Failed to update tag")
		return
	}

	updated, err := store.Get(ctx, tag.ID)
	if err != nil {
		respondError(c, err, "Failed to reload tag")
		return
	}
	c.JSON(http.StatusOK, newTagResponse(*updated))
}
