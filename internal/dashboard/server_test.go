package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/veredas/trailhead/internal/access"
	"github.com/veredas/trailhead/internal/directory"
	"github.com/veredas/trailhead/internal/models"
	"github.com/veredas/trailhead/internal/template"
	"github.com/veredas/trailhead/internal/trail"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.TrailTemplate{},
		&models.StageDefinition{},
		&models.TemplatePrereq{},
		&models.TrailInstance{},
		&models.StageProgress{},
		&models.TrailBadge{},
		&models.BadgeAward{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func testDir() directory.Static {
	return directory.Static{
		"user-1": access.Profile{Level: 5, Tags: []string{"premium"}},
	}
}

// get performs a GET against the router and decodes the JSON body into out.
func get(t *testing.T, router http.Handler, path string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s: %v\nbody: %s", path, err, rec.Body.String())
		}
	}
	return rec.Code
}

func seedTrail(t *testing.T, db *gorm.DB) (*models.TrailTemplate, *models.TrailInstance) {
	t.Helper()
	tpl, err := template.Create(db, template.CreateOpts{
		Name:           "Morning Routine",
		LifeArea:       "health",
		AvailableToAll: true,
		AutoComplete:   true,
		Stages: []template.StageOpts{
			{Name: "Wake at 6", Required: true, OrderIndex: 0},
			{Name: "Stretch", Required: true, OrderIndex: 1},
		},
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	inst, err := trail.Start(context.Background(), db, testDir(), trail.StartOpts{
		UserID: "user-1", TemplateID: tpl.ID,
	})
	if err != nil {
		t.Fatalf("start trail: %v", err)
	}
	return tpl, inst
}

func TestStart_NilDB(t *testing.T) {
	err := Start(context.Background(), StartOpts{DB: nil})
	if err == nil {
		t.Fatal("expected error for nil db")
	}
	if !strings.Contains(err.Error(), "db is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db is required")
	}
}

func TestTemplateRoutes(t *testing.T) {
	db := openTestDB(t)
	tpl, _ := seedTrail(t, db)
	router := newRouter(db, testDir())

	var list struct {
		Templates []models.TrailTemplate `json:"templates"`
	}
	if code := get(t, router, "/api/templates", &list); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if len(list.Templates) != 1 || list.Templates[0].ID != tpl.ID {
		t.Errorf("templates = %+v, want just %s", list.Templates, tpl.ID)
	}

	var detail models.TrailTemplate
	if code := get(t, router, "/api/templates/"+tpl.ID, &detail); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if len(detail.Stages) != 2 {
		t.Errorf("stages = %d, want 2", len(detail.Stages))
	}

	if code := get(t, router, "/api/templates/tpl-nope1", nil); code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unknown template", code)
	}
}

func TestAvailableRoute(t *testing.T) {
	db := openTestDB(t)
	seedTrail(t, db)
	// A gated template user-1 cannot see.
	if _, err := template.Create(db, template.CreateOpts{
		Name:          "Leaders Only",
		RequiredLevel: 10,
		Stages:        []template.StageOpts{{Name: "Step", Required: true}},
	}); err != nil {
		t.Fatalf("create template: %v", err)
	}

	router := newRouter(db, testDir())
	var resp struct {
		Templates []models.TrailTemplate `json:"templates"`
	}
	if code := get(t, router, "/api/users/user-1/available", &resp); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if len(resp.Templates) != 1 {
		t.Errorf("available = %d, the gated template must be filtered", len(resp.Templates))
	}
}

func TestInstanceRoutes(t *testing.T) {
	db := openTestDB(t)
	_, inst := seedTrail(t, db)
	router := newRouter(db, testDir())

	var detail InstanceDetail
	if code := get(t, router, "/api/instances/"+inst.ID, &detail); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if detail.ID != inst.ID || len(detail.Stages) != 2 {
		t.Errorf("unexpected detail: %+v", detail)
	}
	if detail.Summary.RequiredCount != 2 {
		t.Errorf("required count = %d, want 2", detail.Summary.RequiredCount)
	}

	var summary struct {
		CompletedCount int     `json:"completed_count"`
		RequiredCount  int     `json:"required_count"`
		Percentage     float64 `json:"percentage"`
	}
	if code := get(t, router, "/api/instances/"+inst.ID+"/progress", &summary); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if summary.RequiredCount != 2 || summary.Percentage != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	if code := get(t, router, "/api/instances/trl-nope1", nil); code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unknown instance", code)
	}
}

func TestUserTrailsRoute(t *testing.T) {
	db := openTestDB(t)
	_, inst := seedTrail(t, db)
	router := newRouter(db, testDir())

	var resp struct {
		Instances []models.TrailInstance `json:"instances"`
	}
	if code := get(t, router, "/api/users/user-1/trails", &resp); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if len(resp.Instances) != 1 || resp.Instances[0].ID != inst.ID {
		t.Errorf("instances = %+v, want %s", resp.Instances, inst.ID)
	}

	if code := get(t, router, "/api/users/user-1/trails?status=completed", &resp); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
}

func TestSummaryAndCompletions(t *testing.T) {
	db := openTestDB(t)
	_, inst := seedTrail(t, db)
	if _, err := trail.Complete(context.Background(), db, nil, inst.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	router := newRouter(db, testDir())

	var summary struct {
		LifeAreas []LifeAreaCount `json:"life_areas"`
	}
	if code := get(t, router, "/api/summary", &summary); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if len(summary.LifeAreas) != 1 || summary.LifeAreas[0].Completed != 1 {
		t.Errorf("unexpected summary: %+v", summary.LifeAreas)
	}

	var completions struct {
		Completions []CompletionRow `json:"completions"`
	}
	if code := get(t, router, "/api/completions", &completions); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if len(completions.Completions) != 1 || completions.Completions[0].InstanceID != inst.ID {
		t.Errorf("unexpected completions: %+v", completions.Completions)
	}
}

func TestAwardsRoute(t *testing.T) {
	db := openTestDB(t)
	db.Create(&models.TrailBadge{ID: "bdg-a1b2c", Name: "Finisher", Active: true})
	db.Create(&models.BadgeAward{InstanceID: "trl-aaaaa", BadgeID: "bdg-a1b2c", UserID: "user-1"})
	router := newRouter(db, testDir())

	var resp struct {
		Awards []models.BadgeAward `json:"awards"`
	}
	if code := get(t, router, "/api/users/user-1/awards", &resp); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if len(resp.Awards) != 1 || resp.Awards[0].Badge.Name != "Finisher" {
		t.Errorf("unexpected awards: %+v", resp.Awards)
	}
}
