//go:build integration || !unit

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"channelsync/internal/adapters/channex"
	server "channelsync/internal/adapters/http_server"
	"channelsync/internal/app"
	"channelsync/internal/domain"
	mysqlrepo "channelsync/internal/storage/mysql"
)

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func TestHTTP_EndToEnd_AvailabilityAndValidation(t *testing.T) {
	// Start isolated MySQL container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=channelsync",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "channelsync")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	ctx := context.Background()

	// Seed a room and block one night of its inventory.
	if _, err := db.Exec(
		`INSERT INTO rooms (id, tenant_id, property_id, room_type_id, name, base_rate, active)
		 VALUES (42, 1, 5, 3, 'Sea View', 110.00, 1)`); err != nil {
		t.Fatalf("seed room: %v", err)
	}

	inventory := mysqlrepo.NewInventoryRepo(db)
	rooms := mysqlrepo.NewRoomRepo(db)
	mappings := mysqlrepo.NewMappingRepo(db)
	restrictions := mysqlrepo.NewRestrictionRepo(db)
	plans := mysqlrepo.NewRatePlanRepo(db)
	configs := mysqlrepo.NewConfigRepo(db)
	logs := mysqlrepo.NewSyncLogRepo(db)

	blockedDate := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	blocked := domain.InventoryRecord{
		TenantID: 1, RoomID: 42, Date: blockedDate,
		Available: true, Blocked: true, MinStay: 1, Active: true, SyncPending: true,
	}
	blocked.Normalize()
	if err := inventory.Upsert(ctx, &blocked); err != nil {
		t.Fatalf("seed inventory: %v", err)
	}

	// Property-wide 2-night minimum for March.
	two := 2
	if err := restrictions.Create(ctx, &domain.Restriction{
		TenantID: 1, PropertyID: 5,
		StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Type:      domain.RestrictionMinStay, Value: &two, Priority: 1,
		Source: domain.SourceManual, Active: true, SyncPending: true,
	}); err != nil {
		t.Fatalf("seed restriction: %v", err)
	}

	// Stub channel manager; nothing in this test should reach it.
	channelStub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer channelStub.Close()
	client, err := channex.New(channelStub.URL, 5)
	if err != nil {
		t.Fatalf("channel client: %v", err)
	}

	srv := server.New()
	srv.MountHandlers(&server.Handlers{
		Availability: app.NewAvailabilityService(inventory, rooms, nil, 0),
		Restrictions: app.NewRestrictionService(restrictions, nil, 0),
		Rates:        app.NewRateService(plans, inventory, nil),
		Rooms:        app.NewRoomService(mappings, configs, inventory, client),
		Sync: app.NewOrchestrator(app.OrchestratorConfig{},
			inventory, mappings, restrictions, rooms, configs, logs, client, nil),
	})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	// Availability across the blocked night: unavailable, zero total.
	res, err := http.Get(ts.URL + "/v1/rooms/42/availability?from=2025-03-10&to=2025-03-12")
	if err != nil {
		t.Fatalf("GET availability: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("availability status %d", res.StatusCode)
	}
	var avail struct {
		Available        bool     `json:"available"`
		TotalRate        float64  `json:"total_rate"`
		UnavailableDates []string `json:"unavailable_dates"`
	}
	if err := json.NewDecoder(res.Body).Decode(&avail); err != nil {
		t.Fatalf("decode availability: %v", err)
	}
	if avail.Available || avail.TotalRate != 0 {
		t.Fatalf("blocked night reported available: %+v", avail)
	}
	if len(avail.UnavailableDates) != 1 || avail.UnavailableDates[0] != "2025-03-11" {
		t.Fatalf("unexpected unavailable dates: %v", avail.UnavailableDates)
	}

	// One-night stay violates the property-wide minimum.
	body, _ := json.Marshal(map[string]any{
		"property_id": 5,
		"check_in":    "2025-03-20T00:00:00Z",
		"check_out":   "2025-03-21T00:00:00Z",
	})
	res2, err := http.Post(ts.URL+"/v1/reservations/validate", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST validate: %v", err)
	}
	defer res2.Body.Close()
	var verdict struct {
		IsValid    bool `json:"is_valid"`
		Violations []struct {
			Type string `json:"type"`
		} `json:"violations"`
	}
	if err := json.NewDecoder(res2.Body).Decode(&verdict); err != nil {
		t.Fatalf("decode validation: %v", err)
	}
	if verdict.IsValid || len(verdict.Violations) != 1 || verdict.Violations[0].Type != "min_stay" {
		t.Fatalf("unexpected verdict: %+v", verdict)
	}

	// Bulk edit unblocks the night and flags it for sync.
	bulk, _ := json.Marshal(map[string]any{
		"tenant_id": 1,
		"room_ids":  []int64{42},
		"from":      "2025-03-11T00:00:00Z",
		"to":        "2025-03-11T00:00:00Z",
		"blocked":   false,
	})
	res3, err := http.Post(ts.URL+"/v1/availability/bulk", "application/json", bytes.NewReader(bulk))
	if err != nil {
		t.Fatalf("POST bulk: %v", err)
	}
	defer res3.Body.Close()
	if res3.StatusCode != http.StatusOK {
		t.Fatalf("bulk status %d", res3.StatusCode)
	}

	rec, err := inventory.Get(ctx, 42, blockedDate)
	if err != nil {
		t.Fatalf("Get after bulk: %v", err)
	}
	if rec.Blocked || !rec.IsBookable || !rec.SyncPending {
		t.Fatalf("bulk edit did not normalize and flag: %+v", rec)
	}
}
