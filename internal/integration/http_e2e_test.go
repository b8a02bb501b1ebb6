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

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	httpserver "grouptrip/internal/adapters/http_server"
	"grouptrip/internal/adapters/payment"
	redisad "grouptrip/internal/adapters/redis"
	"grouptrip/internal/adapters/vendor"
	"grouptrip/internal/app"
	"grouptrip/internal/domain"
	"grouptrip/internal/storage/memory"
	mysqlrepo "grouptrip/internal/storage/mysql"
)

// ---------- helpers ----------
func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir()
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir %s: %v", dir, err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
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

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env:        []string{"MYSQL_ROOT_PASSWORD=root", "MYSQL_DATABASE=grouptrip"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/grouptrip?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))
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
	return db
}

// gateway fakes the vendor gateway: hotels and flights answer, meeting rooms
// hang past the provider timeout, the rest return empty lists.
func gateway(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body any = []any{}
		switch r.URL.Path {
		case "/flight/search":
			body = map[string]any{"results": []any{
				map[string]any{"id": "fl-1", "airline": "TAP", "price": 300, "rating": 8.4, "stops": 0},
				map[string]any{"id": "fl-2", "airline": "Ryan", "price": 190, "rating": 6.0, "stops": 1},
			}}
		case "/hotel/search":
			body = map[string]any{"data": []any{
				map[string]any{"id": "ht-1", "name": "Alfama", "price_per_night": "180.00", "stars": 4, "distance_km": 0.8},
				map[string]any{"id": "ht-2", "name": "Baixa", "price_per_night": "120.00", "stars": 3, "distance_km": 2.1},
			}}
		case "/meeting_room/search":
			select {
			case <-r.Context().Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url string, in, out any) int {
	t.Helper()
	b, _ := json.Marshal(in)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

// ---------- the test ----------
func TestHTTP_EndToEnd_CheckoutPersistsBooking(t *testing.T) {
	db := startMySQL(t)
	mr := miniredis.RunT(t)

	client, err := vendor.New(gateway(t).URL, "e2e", 50)
	if err != nil {
		t.Fatal(err)
	}
	cache := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cache.Close() })

	planner := app.NewPlannerService(app.PlannerDeps{
		Discovery: app.NewDiscoveryService(vendor.Providers(client), nil, cache, time.Minute, 300*time.Millisecond),
		Sessions:  memory.NewSessionStore(time.Hour),
		Bookings:  mysqlrepo.New(db),
		Payments:  payment.NewMock(),
		Pricing:   domain.DefaultPricing(),
	})
	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{P: planner})
	api := httptest.NewServer(srv.Mux())
	defer api.Close()

	var sess struct {
		SessionID string `json:"session_id"`
	}
	if code := post(t, api.URL+"/v1/sessions", map[string]any{
		"description": "Team offsite for 15 people to Lisbon from 2026-11-02 to 2026-11-05",
	}, &sess); code != http.StatusCreated {
		t.Fatalf("analyze: %d", code)
	}
	base := api.URL + "/v1/sessions/" + sess.SessionID

	var disc struct {
		Counts   map[string]int         `json:"counts"`
		Failures []domain.ProviderError `json:"failures"`
	}
	if code := post(t, base+"/discover", nil, &disc); code != 200 {
		t.Fatalf("discover: %d", code)
	}
	if disc.Counts["meeting_room"] != 0 || len(disc.Failures) != 1 || disc.Failures[0].Reason != "timeout" {
		t.Fatalf("expected one meeting_room timeout, got %+v", disc)
	}
	if !mr.Exists("offers:gateway-hotel:hotel:lisbon:2026-11-02:2026-11-05:15") {
		t.Fatalf("hotel offers not cached; keys=%v", mr.Keys())
	}

	var ranked struct {
		Packages []domain.Package `json:"packages"`
	}
	if code := post(t, base+"/rank", map[string]any{
		"sub_weights": map[string]any{"hotel": map[string]float64{"price_weight": 80, "trust_weight": 20, "location_weight": 0, "amenities_weight": 0}},
	}, &ranked); code != 200 || len(ranked.Packages) == 0 {
		t.Fatalf("rank: %d %d", code, len(ranked.Packages))
	}
	for _, p := range ranked.Packages {
		if _, ok := p.Options[domain.CategoryMeetingRoom]; ok {
			t.Fatalf("package %s includes a meeting room", p.ID)
		}
	}

	var cart domain.Cart
	if code := post(t, base+"/cart", map[string]string{"package_id": ranked.Packages[0].ID}, &cart); code != http.StatusCreated {
		t.Fatalf("cart: %d", code)
	}

	var b domain.Booking
	if code := post(t, base+"/checkout", map[string]any{
		"contact": map[string]string{"name": "Ana", "email": "ana@example.com", "phone": "+351 555 0100"},
		"payment": map[string]string{"method": "card", "card_last4": "4242"},
	}, &b); code != http.StatusCreated {
		t.Fatalf("checkout: %d", code)
	}

	stored, err := mysqlrepo.New(db).GetBooking(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if stored.Total != cart.Total || stored.Contact.Phone != "+351 555 0100" || stored.Requirements.Headcount != 15 {
		t.Fatalf("unexpected stored booking: %+v", stored)
	}
	var snap domain.Cart
	if err := json.Unmarshal(stored.CartSnapshot, &snap); err != nil || snap.Total != cart.Total || len(snap.Items) != len(cart.Items) {
		t.Fatalf("snapshot mismatch: %v", err)
	}
}
