package search

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/maxdaylight/HomelabWiki/internal/config"
	"github.com/maxdaylight/HomelabWiki/internal/db/models"
	websess "github.com/maxdaylight/HomelabWiki/internal/web/session"
)

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB, *http.Cookie) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Page{}, &models.Tag{}, &models.File{}); err != nil {
		t.Fatalf("failed to migrate models: %v", err)
	}

	app := fiber.New()

	websess.Init(nil)

	var s Service
	if err := s.Init(app, &config.Config{}, db); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	user := models.User{Username: "alice", IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	sessionID := websess.GenerateSessionID()

	data := &websess.Data{User: user}
	if err := data.Write(sessionID, time.Minute); err != nil {
		t.Fatalf("failed to write session: %v", err)
	}

	return app, db, &http.Cookie{Name: websess.CookieName, Value: sessionID}
}

func seedPages(t *testing.T, db *gorm.DB) {
	t.Helper()

	pages := []models.Page{
		{Title: "Proxmox Setup", Slug: "proxmox-setup", Content: "virtualization host", AuthorID: 1, IsPublished: true},
		{Title: "Docker Notes", Slug: "docker-notes", Content: "container runtime on proxmox", AuthorID: 1, IsPublished: true},
		{Title: "Secret Draft", Slug: "secret-draft", Content: "proxmox secrets", AuthorID: 1, IsPublished: false},
	}

	for i := range pages {
		if err := db.Create(&pages[i]).Error; err != nil {
			t.Fatalf("failed to seed page: %v", err)
		}
	}
}

func get(t *testing.T, app *fiber.App, target string, cookie *http.Cookie) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	return resp
}

func TestSearchRequiresQuery(t *testing.T) {
	app, _, cookie := newTestApp(t)

	resp := get(t, app, Path+"?q=", cookie)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSearchRequiresAuth(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp := get(t, app, Path+"?q=proxmox", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestSearchMatchesTitleAndContent(t *testing.T) {
	app, db, cookie := newTestApp(t)
	seedPages(t, db)

	resp := get(t, app, Path+"?q=proxmox", cookie)
	defer resp.Body.Close()

	var out struct {
		Pages []models.Page `json:"pages"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	// title match plus content match, the unpublished draft excluded
	if len(out.Pages) != 2 {
		t.Fatalf("got %d pages, want 2: %+v", len(out.Pages), out.Pages)
	}

	for _, p := range out.Pages {
		if p.Content != "" {
			t.Errorf("search results must not carry the full body: %+v", p)
		}

		if p.Slug == "secret-draft" {
			t.Error("unpublished page leaked into search results")
		}
	}
}

func TestSearchScopeTags(t *testing.T) {
	app, db, cookie := newTestApp(t)

	if err := db.Create(&models.Tag{Name: "networking"}).Error; err != nil {
		t.Fatalf("failed to seed tag: %v", err)
	}

	resp := get(t, app, Path+"?q=network&type=tags", cookie)
	defer resp.Body.Close()

	var out map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if _, ok := out["tags"]; !ok {
		t.Error("tags missing from scoped search")
	}

	if _, ok := out["pages"]; ok {
		t.Error("pages present despite tags-only scope")
	}
}

func TestSuggestions(t *testing.T) {
	app, db, cookie := newTestApp(t)
	seedPages(t, db)

	resp := get(t, app, Path+"/suggestions?q=Pro", cookie)
	defer resp.Body.Close()

	var out struct {
		Suggestions []string `json:"suggestions"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(out.Suggestions) != 1 || out.Suggestions[0] != "Proxmox Setup" {
		t.Errorf("suggestions = %v", out.Suggestions)
	}
}
