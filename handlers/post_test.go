package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"blogapi/config"
	"blogapi/handlers"
	"blogapi/middleware"
	"blogapi/models"
	"blogapi/routes"
	"blogapi/store"
)

const testSecret = "test-secret"

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Data    struct {
		Post       *models.Post         `json:"post"`
		Posts      []*models.Post       `json:"posts"`
		Pagination *handlers.Pagination `json:"pagination"`
		Token      string               `json:"token"`
		UserID     string               `json:"userId"`
	} `json:"data"`
}

type testEnv struct {
	router *gin.Engine
	posts  *store.MemoryPostStore
	users  *store.MemoryUserStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:        "0",
		JWTSecret:   testSecret,
		Env:         "test",
		CORSOrigins: []string{"*"},
		RateLimit:   10000,
		RateWindow:  time.Minute,
		TokenExpiry: time.Hour,
	}

	posts := store.NewMemoryPostStore()
	users := store.NewMemoryUserStore()

	postHandler := handlers.NewPostHandler(posts, users, false)
	authHandler := handlers.NewAuthHandler(users, cfg.JWTSecret, cfg.TokenExpiry, false)

	return &testEnv{
		router: routes.SetupRouter(cfg, postHandler, authHandler),
		posts:  posts,
		users:  users,
	}
}

// newUser seeds a user and returns a signed token for it.
func (e *testEnv) newUser(t *testing.T, username, role string) (*models.User, string) {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
		Profile:  models.Profile{FirstName: username},
	}
	if err := e.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	claims := &middleware.Claims{
		UserID: user.ID.Hex(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return user, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, env
}

func createBody(title string) map[string]interface{} {
	return map[string]interface{}{
		"title":      title,
		"content":    strings.Repeat("All work and no play makes Jack a dull boy. ", 3),
		"categories": []string{"tech"},
		"tags":       []string{"go"},
	}
}

func TestCreatePost(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.newUser(t, "alice", models.RoleUser)

	w, env := e.do(t, http.MethodPost, "/api/posts", token, createBody("Hello World Post"))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !env.Success {
		t.Error("success = false")
	}
	post := env.Data.Post
	if post == nil {
		t.Fatal("no post in response")
	}
	if post.Slug != "hello-world-post" {
		t.Errorf("slug = %q, want hello-world-post", post.Slug)
	}
	if post.Status != models.StatusDraft {
		t.Errorf("status = %q, want draft", post.Status)
	}
	if post.PublishedAt != nil {
		t.Error("new post has publishedAt")
	}
	if post.AuthorInfo == nil || post.AuthorInfo.Username != "alice" {
		t.Errorf("authorInfo = %+v, want alice attached", post.AuthorInfo)
	}
}

func TestCreatePostRequiresAuth(t *testing.T) {
	e := newTestEnv(t)

	w, _ := e.do(t, http.MethodPost, "/api/posts", "", createBody("Hello World Post"))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestCreatePostValidation(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.newUser(t, "alice", models.RoleUser)

	body := createBody("Hi")
	w, env := e.do(t, http.MethodPost, "/api/posts", token, body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("short title status = %d, want 400", w.Code)
	}
	if env.Success {
		t.Error("success = true on validation failure")
	}

	body = createBody("A Perfectly Fine Title")
	body["content"] = "too short"
	w, _ = e.do(t, http.MethodPost, "/api/posts", token, body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("short content status = %d, want 400", w.Code)
	}

	// Long enough for the length bound but derives an empty slug.
	w, _ = e.do(t, http.MethodPost, "/api/posts", token, createBody("!!!!!"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("symbol-only title status = %d, want 400", w.Code)
	}
}

func TestCreatePostSlugConflict(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.newUser(t, "alice", models.RoleUser)

	w, _ := e.do(t, http.MethodPost, "/api/posts", token, createBody("Hello World Post"))
	if w.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", w.Code)
	}

	// Normalizes to the same slug.
	w, env := e.do(t, http.MethodPost, "/api/posts", token, createBody("Hello, World... Post"))
	if w.Code != http.StatusConflict {
		t.Errorf("second create status = %d, want 409", w.Code)
	}
	if env.Success {
		t.Error("success = true on conflict")
	}
}

func TestGetPostNotFound(t *testing.T) {
	e := newTestEnv(t)

	w, env := e.do(t, http.MethodGet, "/api/posts/no-such-post", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if env.Success {
		t.Error("success = true on 404")
	}
}

func TestGetPublishedPostCountsViews(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.newUser(t, "alice", models.RoleUser)

	e.do(t, http.MethodPost, "/api/posts", token, createBody("Hello World Post"))
	published := models.StatusPublished
	w, _ := e.do(t, http.MethodPut, "/api/posts/hello-world-post", token, models.PostPatch{Status: &published})
	if w.Code != http.StatusOK {
		t.Fatalf("publish status = %d", w.Code)
	}

	var env envelope
	for i := 0; i < 3; i++ {
		w, env = e.do(t, http.MethodGet, "/api/posts/hello-world-post", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("get status = %d", w.Code)
		}
	}
	if views := env.Data.Post.Meta.Views; views != 3 {
		t.Errorf("views after 3 fetches = %d, want 3", views)
	}
}

func TestGetDraftPostDoesNotCountViews(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.newUser(t, "alice", models.RoleUser)

	e.do(t, http.MethodPost, "/api/posts", token, createBody("Hello World Post"))

	var env envelope
	for i := 0; i < 3; i++ {
		_, env = e.do(t, http.MethodGet, "/api/posts/hello-world-post", "", nil)
	}
	if views := env.Data.Post.Meta.Views; views != 0 {
		t.Errorf("draft views = %d, want 0", views)
	}
}

func TestUpdateAuthorization(t *testing.T) {
	e := newTestEnv(t)
	_, ownerToken := e.newUser(t, "alice", models.RoleUser)
	_, strangerToken := e.newUser(t, "bob", models.RoleUser)
	_, adminToken := e.newUser(t, "carol", models.RoleAdmin)

	e.do(t, http.MethodPost, "/api/posts", ownerToken, createBody("Hello World Post"))

	excerpt := "A short excerpt."
	patch := models.PostPatch{Excerpt: &excerpt}

	w, env := e.do(t, http.MethodPut, "/api/posts/hello-world-post", strangerToken, patch)
	if w.Code != http.StatusForbidden {
		t.Errorf("stranger update status = %d, want 403", w.Code)
	}
	if env.Success {
		t.Error("success = true on 403")
	}

	w, _ = e.do(t, http.MethodPut, "/api/posts/hello-world-post", ownerToken, patch)
	if w.Code != http.StatusOK {
		t.Errorf("owner update status = %d, want 200", w.Code)
	}

	w, _ = e.do(t, http.MethodPut, "/api/posts/hello-world-post", adminToken, patch)
	if w.Code != http.StatusOK {
		t.Errorf("admin update status = %d, want 200", w.Code)
	}
}

func TestPublishSetsPublishedAtOnce(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.newUser(t, "alice", models.RoleUser)

	e.do(t, http.MethodPost, "/api/posts", token, createBody("Hello World Post"))

	published := models.StatusPublished
	w, env := e.do(t, http.MethodPut, "/api/posts/hello-world-post", token, models.PostPatch{Status: &published})
	if w.Code != http.StatusOK {
		t.Fatalf("publish status = %d, body = %s", w.Code, w.Body.String())
	}
	if env.Data.Post.Status != models.StatusPublished {
		t.Errorf("status = %q", env.Data.Post.Status)
	}
	if env.Data.Post.PublishedAt == nil {
		t.Fatal("publishedAt not set on publish")
	}
	first := *env.Data.Post.PublishedAt

	_, env = e.do(t, http.MethodPut, "/api/posts/hello-world-post", token, models.PostPatch{Status: &published})
	if env.Data.Post.PublishedAt == nil || !env.Data.Post.PublishedAt.Equal(first) {
		t.Errorf("publishedAt changed on republish: %v -> %v", first, env.Data.Post.PublishedAt)
	}
}

func TestUpdateTitleRederivesSlug(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.newUser(t, "alice", models.RoleUser)

	e.do(t, http.MethodPost, "/api/posts", token, createBody("Hello World Post"))

	title := "Fresh New Title"
	w, env := e.do(t, http.MethodPut, "/api/posts/hello-world-post", token, models.PostPatch{Title: &title})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d", w.Code)
	}
	if env.Data.Post.Slug != "fresh-new-title" {
		t.Errorf("slug = %q, want fresh-new-title", env.Data.Post.Slug)
	}

	// Old slug is gone, new slug resolves.
	w, _ = e.do(t, http.MethodGet, "/api/posts/hello-world-post", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("old slug status = %d, want 404", w.Code)
	}
	w, _ = e.do(t, http.MethodGet, "/api/posts/fresh-new-title", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("new slug status = %d, want 200", w.Code)
	}
}

func TestUpdateSlugConflict(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.newUser(t, "alice", models.RoleUser)

	e.do(t, http.MethodPost, "/api/posts", token, createBody("Hello World Post"))
	e.do(t, http.MethodPost, "/api/posts", token, createBody("Another Fine Post"))

	title := "Hello World Post"
	w, _ := e.do(t, http.MethodPut, "/api/posts/another-fine-post", token, models.PostPatch{Title: &title})
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestDeletePost(t *testing.T) {
	e := newTestEnv(t)
	_, ownerToken := e.newUser(t, "alice", models.RoleUser)
	_, strangerToken := e.newUser(t, "bob", models.RoleUser)

	e.do(t, http.MethodPost, "/api/posts", ownerToken, createBody("Hello World Post"))

	w, _ := e.do(t, http.MethodDelete, "/api/posts/hello-world-post", strangerToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("stranger delete status = %d, want 403", w.Code)
	}

	w, env := e.do(t, http.MethodDelete, "/api/posts/hello-world-post", ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Errorf("owner delete status = %d, want 200", w.Code)
	}
	if !env.Success {
		t.Error("success = false on delete")
	}

	w, _ = e.do(t, http.MethodGet, "/api/posts/hello-world-post", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}

	w, _ = e.do(t, http.MethodDelete, "/api/posts/hello-world-post", ownerToken, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestListPagination(t *testing.T) {
	e := newTestEnv(t)
	user, _ := e.newUser(t, "alice", models.RoleUser)

	for i := 1; i <= 25; i++ {
		p := models.NewPost(user.ID, fmt.Sprintf("Post Number %02d", i),
			strings.Repeat("body text ", 10), "", []string{"tech"}, nil, "")
		p.Status = models.StatusPublished
		if err := e.posts.Insert(context.Background(), p); err != nil {
			t.Fatal(err)
		}
	}

	w, env := e.do(t, http.MethodGet, "/api/posts?limit=10&page=2&sortBy=title&sortOrder=asc", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(env.Data.Posts) != 10 {
		t.Fatalf("page size = %d, want 10", len(env.Data.Posts))
	}
	if got := env.Data.Posts[0].Title; got != "Post Number 11" {
		t.Errorf("first post = %q, want Post Number 11", got)
	}
	p := env.Data.Pagination
	if p == nil {
		t.Fatal("no pagination in response")
	}
	if p.Current != 2 || p.Pages != 3 || p.Total != 25 {
		t.Errorf("pagination = %+v, want {2 3 25}", *p)
	}
	if env.Data.Posts[0].AuthorInfo == nil || env.Data.Posts[0].AuthorInfo.Username != "alice" {
		t.Error("author not attached to listed posts")
	}
}

func TestListFilters(t *testing.T) {
	e := newTestEnv(t)
	user, _ := e.newUser(t, "alice", models.RoleUser)

	seed := func(title string, categories, tags []string) {
		p := models.NewPost(user.ID, title, strings.Repeat("body text ", 10), "", categories, tags, "")
		p.Status = models.StatusPublished
		if err := e.posts.Insert(context.Background(), p); err != nil {
			t.Fatal(err)
		}
	}
	seed("Learning Rust Basics", []string{"tech"}, []string{"rust"})
	seed("Learning Go Basics", []string{"tech"}, []string{"go"})
	seed("Garden Rust Removal", []string{"home"}, nil)

	_, env := e.do(t, http.MethodGet, "/api/posts?category=tech", "", nil)
	if env.Data.Pagination.Total != 2 {
		t.Errorf("category=tech total = %d, want 2", env.Data.Pagination.Total)
	}

	_, env = e.do(t, http.MethodGet, "/api/posts?category=tech&search=rust", "", nil)
	if env.Data.Pagination.Total != 1 {
		t.Fatalf("category+search total = %d, want 1", env.Data.Pagination.Total)
	}
	if env.Data.Posts[0].Title != "Learning Rust Basics" {
		t.Errorf("matched %q", env.Data.Posts[0].Title)
	}
}

func TestSignupAndLoginIssueUsableTokens(t *testing.T) {
	e := newTestEnv(t)

	w, env := e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "dave",
		"email":    "dave@example.com",
		"password": "hunter22",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body = %s", w.Code, w.Body.String())
	}
	if env.Data.Token == "" {
		t.Fatal("signup returned no token")
	}

	w, _ = e.do(t, http.MethodPost, "/api/posts", env.Data.Token, createBody("Post From Dave Here"))
	if w.Code != http.StatusCreated {
		t.Errorf("create with signup token status = %d", w.Code)
	}

	w, env = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "dave@example.com",
		"password": "hunter22",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d", w.Code)
	}
	if env.Data.Token == "" {
		t.Error("login returned no token")
	}

	w, _ = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "dave@example.com",
		"password": "wrong-password",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", w.Code)
	}

	w, _ = e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "dave2",
		"email":    "dave@example.com",
		"password": "hunter22",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", w.Code)
	}
}
