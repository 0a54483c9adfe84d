package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"bridgeai-backend/internal/middleware"
	"bridgeai-backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeUserFinder for tests: returns the configured user for password123.
type fakeUserFinder struct {
	user *models.User
	err  error
}

func (f *fakeUserFinder) FindByEmailAndPassword(email, password string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.user != nil && f.user.Email == email && password == "password123" {
		return f.user, nil
	}
	if f.user != nil && f.user.Email == email {
		return nil, ErrIncorrectPassword
	}
	return nil, ErrInvalidEmail
}

func setupAuthHandlers(t *testing.T, finder UserFinder) (*Handlers, *redis.Client, *gorm.DB) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Team{}, &models.Invitation{}, &models.Notification{}))
	h := &Handlers{
		DB:         db,
		UserFinder: finder,
		Rdb:        rdb,
		Config: middleware.SessionConfig{
			AllowCrossSiteDev: false,
			IsProduction:      false,
		},
	}
	return h, rdb, db
}

func TestLogin_EmptyBody(t *testing.T) {
	h, _, _ := setupAuthHandlers(t, &fakeUserFinder{user: &models.User{}})
	app := fiber.New()
	app.Post("/login", h.Login)

	req := httptest.NewRequest("POST", "/login", nil)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLogin_InvalidEmail(t *testing.T) {
	h, _, _ := setupAuthHandlers(t, &fakeUserFinder{})
	app := fiber.New()
	app.Post("/login", h.Login)

	body, _ := json.Marshal(map[string]string{"email": "nonexistent@example.com", "password": "any"})
	req := httptest.NewRequest("POST", "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_IncorrectPassword(t *testing.T) {
	uid := uuid.New()
	h, _, _ := setupAuthHandlers(t, &fakeUserFinder{user: &models.User{UserID: uid, Email: "test@example.com", Fullname: "Test User"}})
	app := fiber.New()
	app.Post("/login", h.Login)

	body, _ := json.Marshal(map[string]string{"email": "test@example.com", "password": "wrong"})
	req := httptest.NewRequest("POST", "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_Success(t *testing.T) {
	uid := uuid.New()
	h, rdb, _ := setupAuthHandlers(t, &fakeUserFinder{user: &models.User{UserID: uid, Email: "test@example.com", Fullname: "Test User"}})
	app := fiber.New()
	app.Post("/login", h.Login)

	body, _ := json.Marshal(map[string]string{"email": "test@example.com", "password": "password123"})
	req := httptest.NewRequest("POST", "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	b, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "Login successful", out["message"])

	// Session tracked in Redis
	members, err := rdb.SMembers(req.Context(), userSessionsPrefix+uid.String()).Result()
	require.NoError(t, err)
	assert.Len(t, members, 1)

	// Cookie set
	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, middleware.SessionCookieName, cookies[0].Name)
}

func TestSignup_Success(t *testing.T) {
	h, _, db := setupAuthHandlers(t, nil)
	app := fiber.New()
	app.Post("/signup", h.Signup)

	body, _ := json.Marshal(map[string]string{
		"fullname": "New User", "email": "New@Example.com", "password": "Str0ng!pass",
	})
	req := httptest.NewRequest("POST", "/signup", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var stored models.User
	require.NoError(t, db.Where("email = ?", "new@example.com").First(&stored).Error)
	assert.NotEqual(t, "Str0ng!pass", stored.PasswordHash)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	h, _, db := setupAuthHandlers(t, nil)
	require.NoError(t, db.Create(&models.User{Fullname: "Existing", Email: "taken@example.com", PasswordHash: "x"}).Error)

	app := fiber.New()
	app.Post("/signup", h.Signup)

	body, _ := json.Marshal(map[string]string{
		"fullname": "New User", "email": "taken@example.com", "password": "Str0ng!pass",
	})
	req := httptest.NewRequest("POST", "/signup", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestSignup_NotifiesPendingInvites(t *testing.T) {
	h, _, db := setupAuthHandlers(t, nil)

	team := &models.Team{Name: "Core", CreatedBy: uuid.New()}
	require.NoError(t, db.Create(team).Error)
	require.NoError(t, db.Create(&models.Invitation{
		TeamID: team.TeamID, Email: "invited@example.com", Role: "member",
		InviteToken: "waiting", Status: "pending",
		InvitedBy: uuid.New(), ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}).Error)

	app := fiber.New()
	app.Post("/signup", h.Signup)

	body, _ := json.Marshal(map[string]string{
		"fullname": "Invited User", "email": "invited@example.com", "password": "Str0ng!pass",
	})
	req := httptest.NewRequest("POST", "/signup", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var user models.User
	require.NoError(t, db.Where("email = ?", "invited@example.com").First(&user).Error)

	var notes []models.Notification
	require.NoError(t, db.Where("user_id = ?", user.UserID).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationTeamInvitation, notes[0].Type)
	assert.Contains(t, notes[0].Message, "Core")
}

func TestMe_NotAuthenticated(t *testing.T) {
	h, _, _ := setupAuthHandlers(t, nil)
	app := fiber.New()
	app.Get("/me", h.Me)

	req := httptest.NewRequest("GET", "/me", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMe_Authenticated(t *testing.T) {
	h, _, _ := setupAuthHandlers(t, nil)
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": uuid.New().String(), "email": "me@example.com", "fullname": "Me",
		})
		return c.Next()
	})
	app.Get("/me", h.Me)

	req := httptest.NewRequest("GET", "/me", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestLogout_ClearsSession(t *testing.T) {
	h, rdb, _ := setupAuthHandlers(t, nil)
	uid := uuid.New().String()
	sid := uuid.New().String()
	ctx := httptest.NewRequest("GET", "/", nil).Context()
	require.NoError(t, rdb.SAdd(ctx, userSessionsPrefix+uid, sid).Err())
	require.NoError(t, rdb.Set(ctx, middleware.SessionRedisPrefix+sid, "{}", 0).Err())

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("session_id", sid)
		c.Locals("user", map[string]interface{}{"user_id": uid})
		return c.Next()
	})
	app.Delete("/logout", h.Logout)

	req := httptest.NewRequest("DELETE", "/logout", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	exists, err := rdb.Exists(ctx, middleware.SessionRedisPrefix+sid).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}
