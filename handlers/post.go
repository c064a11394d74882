package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"blogapi/middleware"
	"blogapi/models"
	"blogapi/store"
)

const requestTimeout = 10 * time.Second

// PostHandler owns the post lifecycle endpoints.
type PostHandler struct {
	posts      store.PostStore
	users      store.UserStore
	production bool
}

func NewPostHandler(posts store.PostStore, users store.UserStore, production bool) *PostHandler {
	return &PostHandler{posts: posts, users: users, production: production}
}

type CreatePostRequest struct {
	Title         string   `json:"title" binding:"required,min=5,max=200"`
	Content       string   `json:"content" binding:"required,min=50"`
	Excerpt       string   `json:"excerpt" binding:"omitempty,max=300"`
	Categories    []string `json:"categories"`
	Tags          []string `json:"tags"`
	FeaturedImage string   `json:"featuredImage"`
}

// Create persists a new draft owned by the authenticated caller.
func (h *PostHandler) Create(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	post := models.NewPost(identity.ID, req.Title, req.Content, req.Excerpt, req.Categories, req.Tags, req.FeaturedImage)
	if err := post.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.posts.Insert(ctx, post); err != nil {
		if errors.Is(err, store.ErrSlugConflict) {
			respondError(c, http.StatusConflict, "A post with this title already exists")
			return
		}
		respondInternal(c, h.production, "Error creating post", err)
		return
	}

	h.attachAuthor(ctx, post)
	respond(c, http.StatusCreated, "Post created successfully", gin.H{"post": post})
}

// List returns a filtered, sorted page of posts plus pagination metadata.
// Public: no identity required, status defaults to published.
func (h *PostHandler) List(c *gin.Context) {
	params := store.ListParams{
		Page:      queryInt(c, "page"),
		Limit:     queryInt(c, "limit"),
		Search:    c.Query("search"),
		Category:  c.Query("category"),
		Tag:       c.Query("tag"),
		Status:    c.Query("status"),
		SortBy:    c.DefaultQuery("sortBy", "createdAt"),
		SortOrder: c.DefaultQuery("sortOrder", "desc"),
	}.Normalize()

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := h.posts.List(ctx, params)
	if err != nil {
		respondInternal(c, h.production, "Error fetching posts", err)
		return
	}

	h.attachAuthors(ctx, result.Posts)

	respond(c, http.StatusOK, "", gin.H{
		"posts": result.Posts,
		"pagination": Pagination{
			Current: int64(params.Page),
			Pages:   params.Pages(result.Total),
			Total:   result.Total,
		},
	})
}

// Get fetches a single post by slug. Fetching a published post counts a view,
// on every fetch, with no viewer dedup.
func (h *PostHandler) Get(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	post, err := h.posts.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Post not found")
			return
		}
		respondInternal(c, h.production, "Error fetching post", err)
		return
	}

	h.attachAuthor(ctx, post)
	respond(c, http.StatusOK, "", gin.H{"post": post})
}

// Update applies a whitelisted patch to a post. Only the author or an admin
// may mutate it.
func (h *PostHandler) Update(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var patch models.PostPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	post, err := h.posts.FindBySlug(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Post not found")
			return
		}
		respondInternal(c, h.production, "Error fetching post", err)
		return
	}

	if !identity.CanModify(post.Author) {
		respondError(c, http.StatusForbidden, "Access denied, you can only update your own posts")
		return
	}

	if err := post.Apply(patch, time.Now().UTC()); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.posts.Update(ctx, post); err != nil {
		switch {
		case errors.Is(err, store.ErrSlugConflict):
			respondError(c, http.StatusConflict, "A post with this title already exists")
		case errors.Is(err, store.ErrNotFound):
			respondError(c, http.StatusNotFound, "Post not found")
		default:
			respondInternal(c, h.production, "Error updating post", err)
		}
		return
	}

	h.attachAuthor(ctx, post)
	respond(c, http.StatusOK, "Post updated successfully", gin.H{"post": post})
}

// Delete permanently removes a post under the same authorization rule as
// Update.
func (h *PostHandler) Delete(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	post, err := h.posts.FindBySlug(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Post not found")
			return
		}
		respondInternal(c, h.production, "Error fetching post", err)
		return
	}

	if !identity.CanModify(post.Author) {
		respondError(c, http.StatusForbidden, "Access denied, you can only delete your own posts")
		return
	}

	if err := h.posts.Delete(ctx, post.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Post not found")
			return
		}
		respondInternal(c, h.production, "Error deleting post", err)
		return
	}

	respond(c, http.StatusOK, "Post deleted successfully", nil)
}

// attachAuthor enriches a post with the author's display fields. Read-time
// lookup, never stored on the post. Enrichment failures are logged but do
// not fail the request.
func (h *PostHandler) attachAuthor(ctx context.Context, post *models.Post) {
	author, err := h.users.Author(ctx, post.Author)
	if err != nil {
		log.Error().Err(err).Str("slug", post.Slug).Msg("failed to load post author")
		return
	}
	post.AuthorInfo = author
}

func (h *PostHandler) attachAuthors(ctx context.Context, posts []*models.Post) {
	ids := make([]primitive.ObjectID, 0, len(posts))
	seen := make(map[primitive.ObjectID]bool, len(posts))
	for _, p := range posts {
		if !seen[p.Author] {
			seen[p.Author] = true
			ids = append(ids, p.Author)
		}
	}

	authors, err := h.users.Authors(ctx, ids)
	if err != nil {
		log.Error().Err(err).Msg("failed to load post authors")
		return
	}
	for _, p := range posts {
		p.AuthorInfo = authors[p.Author]
	}
}

func queryInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}
