package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"cafes/internal/db"
	"cafes/internal/model"
)

const testKey = "TopSecretAPIKey"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T, apiKey string) (*Server, *db.Store) {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "cafes.db"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := db.NewStore(database)
	srv := NewServer(store, ServerOptions{
		APIKey: apiKey,
		Logger: log.New(io.Discard, "", 0),
	})
	return srv, store
}

func do(t *testing.T, srv *Server, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var out map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
	return out
}

func decodeCafe(t *testing.T, rec *httptest.ResponseRecorder) model.Cafe {
	t.Helper()
	raw, ok := decode(t, rec)["cafe"]
	if !ok {
		t.Fatalf("expected cafe envelope, got %s", rec.Body.String())
	}
	var c model.Cafe
	if err := json.Unmarshal(raw, &c); err != nil {
		t.Fatalf("invalid cafe: %v", err)
	}
	return c
}

func decodeCafes(t *testing.T, rec *httptest.ResponseRecorder) []model.Cafe {
	t.Helper()
	raw, ok := decode(t, rec)["cafes"]
	if !ok {
		t.Fatalf("expected cafes envelope, got %s", rec.Body.String())
	}
	var cafes []model.Cafe
	if err := json.Unmarshal(raw, &cafes); err != nil {
		t.Fatalf("invalid cafes: %v", err)
	}
	return cafes
}

const notFoundBody = `{"error":{"Not found":"Sorry"}}`
const doneBody = `{"success":{"success":"Done"}}`

func assertBody(t *testing.T, rec *httptest.ResponseRecorder, status int, want string) {
	t.Helper()
	if rec.Code != status {
		t.Errorf("expected status %d, got %d", status, rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Errorf("expected body %s, got %s", want, got)
	}
}

func cafeForm(name, loc string) url.Values {
	return url.Values{
		"name":    {name},
		"map_url": {"http://x"},
		"img_url": {"http://y"},
		"loc":     {loc},
		"seats":   {"10-20"},
	}
}

func addCafe(t *testing.T, srv *Server, form url.Values) {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/add", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("add %s: status %d body %s", form.Get("name"), rec.Code, rec.Body.String())
	}
}

func TestHome(t *testing.T) {
	srv, _ := newTestServer(t, testKey)
	rec := do(t, srv, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected text/html, got %q", ct)
	}
}

func TestAddCafeCoercesFlags(t *testing.T) {
	srv, _ := newTestServer(t, testKey)

	form := url.Values{
		"name":         {"Joe's"},
		"map_url":      {"http://x"},
		"img_url":      {"http://y"},
		"loc":          {"Midtown"},
		"sockets":      {"1"},
		"toilet":       {""},
		"wifi":         {"yes"},
		"calls":        {""},
		"seats":        {"10-20"},
		"coffee_price": {"£2.50"},
	}
	rec := do(t, srv, http.MethodPost, "/add", form)
	assertBody(t, rec, http.StatusOK, `{"response":{"success":"Successfully added the new cafe."}}`)

	cafes := decodeCafes(t, do(t, srv, http.MethodGet, "/all", nil))
	if len(cafes) != 1 {
		t.Fatalf("expected 1 cafe, got %d", len(cafes))
	}
	c := cafes[0]
	if !c.HasSockets || c.HasToilet || !c.HasWifi || c.CanTakeCalls {
		t.Errorf("unexpected flags: %+v", c)
	}
	if c.Location != "Midtown" || c.Seats != "10-20" {
		t.Errorf("unexpected cafe: %+v", c)
	}
	if c.CoffeePrice == nil || *c.CoffeePrice != "£2.50" {
		t.Errorf("expected £2.50, got %v", c.CoffeePrice)
	}
}

func TestAddCafeFalseStringIsTrue(t *testing.T) {
	srv, _ := newTestServer(t, testKey)

	form := cafeForm("Literal", "Somewhere")
	form.Set("sockets", "false")
	addCafe(t, srv, form)

	c := decodeCafes(t, do(t, srv, http.MethodGet, "/all", nil))[0]
	if !c.HasSockets {
		t.Error(`expected sockets="false" to set has_sockets`)
	}
	if c.CoffeePrice != nil {
		t.Errorf("expected null coffee_price, got %q", *c.CoffeePrice)
	}
}

func TestAddCafeDuplicateName(t *testing.T) {
	srv, _ := newTestServer(t, testKey)
	addCafe(t, srv, cafeForm("Twice", "A"))

	rec := do(t, srv, http.MethodPost, "/add", cafeForm("Twice", "B"))
	assertBody(t, rec, http.StatusConflict, `{"error":{"Conflict":"Sorry"}}`)
}

func TestAddCafeMissingField(t *testing.T) {
	srv, store := newTestServer(t, testKey)

	form := cafeForm("Nameless", "A")
	form.Del("name")
	rec := do(t, srv, http.MethodPost, "/add", form)
	assertBody(t, rec, http.StatusBadRequest, `{"error":{"Bad request":"Sorry"}}`)

	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no rows, got %d", n)
	}
}

func TestAllOrderAndLength(t *testing.T) {
	srv, _ := newTestServer(t, testKey)

	if cafes := decodeCafes(t, do(t, srv, http.MethodGet, "/all", nil)); len(cafes) != 0 {
		t.Fatalf("expected empty list, got %d", len(cafes))
	}

	for _, name := range []string{"C", "A", "B", "D"} {
		addCafe(t, srv, cafeForm(name, "X"))
	}
	rec := do(t, srv, http.MethodDelete, "/report-closed/2?api-key="+testKey, nil)
	assertBody(t, rec, http.StatusOK, doneBody)

	cafes := decodeCafes(t, do(t, srv, http.MethodGet, "/all", nil))
	if len(cafes) != 3 {
		t.Fatalf("expected 3 cafes, got %d", len(cafes))
	}
	for i := 1; i < len(cafes); i++ {
		if cafes[i-1].ID >= cafes[i].ID {
			t.Errorf("ids not ascending: %d then %d", cafes[i-1].ID, cafes[i].ID)
		}
	}
	if cafes[0].Name != "C" || cafes[1].Name != "B" || cafes[2].Name != "D" {
		t.Errorf("unexpected order: %s %s %s", cafes[0].Name, cafes[1].Name, cafes[2].Name)
	}
}

func TestSearch(t *testing.T) {
	srv, _ := newTestServer(t, testKey)
	addCafe(t, srv, cafeForm("Central", "Downtown"))
	addCafe(t, srv, cafeForm("Edge", "Suburbs"))

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"hit", "/search?loc=Downtown", "Central"},
		{"case sensitive", "/search?loc=downtown", ""},
		{"no match", "/search?loc=Nowhere", ""},
		{"absent", "/search", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, tt.target, nil)
			if tt.want == "" {
				assertBody(t, rec, http.StatusOK, notFoundBody)
				return
			}
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if c := decodeCafe(t, rec); c.Name != tt.want {
				t.Errorf("expected %s, got %s", tt.want, c.Name)
			}
		})
	}
}

func TestUpdatePrice(t *testing.T) {
	srv, _ := newTestServer(t, testKey)
	addCafe(t, srv, cafeForm("Priced", "A"))

	rec := do(t, srv, http.MethodPatch, "/update-price/1?new_price="+url.QueryEscape("£3.10"), nil)
	assertBody(t, rec, http.StatusOK, doneBody)

	c := decodeCafe(t, do(t, srv, http.MethodGet, "/search?loc=A", nil))
	if c.CoffeePrice == nil || *c.CoffeePrice != "£3.10" {
		t.Errorf("expected £3.10, got %v", c.CoffeePrice)
	}

	for _, target := range []string{"/update-price/99?new_price=1", "/update-price/abc?new_price=1"} {
		assertBody(t, do(t, srv, http.MethodPatch, target, nil), http.StatusNotFound, notFoundBody)
	}
}

func TestReportClosed(t *testing.T) {
	srv, store := newTestServer(t, testKey)
	addCafe(t, srv, cafeForm("Closing", "A"))

	wrongKey := do(t, srv, http.MethodDelete, "/report-closed/1?api-key=nope", nil)
	missing := do(t, srv, http.MethodDelete, "/report-closed/99?api-key="+testKey, nil)
	noKey := do(t, srv, http.MethodDelete, "/report-closed/1", nil)
	assertBody(t, wrongKey, http.StatusNotFound, notFoundBody)
	assertBody(t, missing, http.StatusNotFound, notFoundBody)
	assertBody(t, noKey, http.StatusNotFound, notFoundBody)
	if wrongKey.Body.String() != missing.Body.String() {
		t.Error("wrong key and missing id must be indistinguishable")
	}

	if n, _ := store.Count(context.Background()); n != 1 {
		t.Fatalf("expected cafe to survive bad deletes, got %d rows", n)
	}

	assertBody(t, do(t, srv, http.MethodDelete, "/report-closed/1?api-key="+testKey, nil), http.StatusOK, doneBody)
	assertBody(t, do(t, srv, http.MethodDelete, "/report-closed/1?api-key="+testKey, nil), http.StatusNotFound, notFoundBody)
}

func TestReportClosedWithoutConfiguredKey(t *testing.T) {
	srv, _ := newTestServer(t, "")
	addCafe(t, srv, cafeForm("Guarded", "A"))

	assertBody(t, do(t, srv, http.MethodDelete, "/report-closed/1", nil), http.StatusNotFound, notFoundBody)
	assertBody(t, do(t, srv, http.MethodDelete, "/report-closed/1?api-key=", nil), http.StatusNotFound, notFoundBody)
}

func TestRandom(t *testing.T) {
	srv, _ := newTestServer(t, testKey)

	assertBody(t, do(t, srv, http.MethodGet, "/random", nil), http.StatusNotFound, notFoundBody)

	addCafe(t, srv, cafeForm("Gone", "A"))
	addCafe(t, srv, cafeForm("Only", "B"))
	assertBody(t, do(t, srv, http.MethodDelete, "/report-closed/1?api-key="+testKey, nil), http.StatusOK, doneBody)

	for i := 0; i < 5; i++ {
		rec := do(t, srv, http.MethodGet, "/random", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if c := decodeCafe(t, rec); c.Name != "Only" {
			t.Errorf("expected the surviving cafe, got %s", c.Name)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, testKey)
	if rec := do(t, srv, http.MethodGet, "/add", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

type failingStore struct{}

var errBoom = errors.New("disk on fire")

func (failingStore) Random(context.Context) (model.Cafe, error)                 { return model.Cafe{}, errBoom }
func (failingStore) List(context.Context) ([]model.Cafe, error)                 { return nil, errBoom }
func (failingStore) FindByLocation(context.Context, string) (model.Cafe, error) { return model.Cafe{}, errBoom }
func (failingStore) Insert(context.Context, model.NewCafe) (int64, error)       { return 0, errBoom }
func (failingStore) UpdatePrice(context.Context, int64, *string) error          { return errBoom }
func (failingStore) Delete(context.Context, int64) error                        { return errBoom }

func TestStoreFailuresAreServerErrors(t *testing.T) {
	var logged strings.Builder
	srv := NewServer(failingStore{}, ServerOptions{APIKey: testKey, Logger: log.New(&logged, "", 0)})

	requests := []struct {
		method, target string
		form           url.Values
	}{
		{http.MethodGet, "/random", nil},
		{http.MethodGet, "/all", nil},
		{http.MethodGet, "/search?loc=A", nil},
		{http.MethodPost, "/add", cafeForm("A", "B")},
		{http.MethodPatch, "/update-price/1?new_price=2", nil},
		{http.MethodDelete, "/report-closed/1?api-key=" + testKey, nil},
	}
	for _, r := range requests {
		rec := do(t, srv, r.method, r.target, r.form)
		assertBody(t, rec, http.StatusInternalServerError, `{"error":{"Server error":"Sorry"}}`)
	}
	if !strings.Contains(logged.String(), "disk on fire") {
		t.Error("expected the cause to be logged")
	}
}

func TestIsTruthyFormValue(t *testing.T) {
	s := func(v string) *string { return &v }
	tests := []struct {
		raw  *string
		want bool
	}{
		{nil, false},
		{s(""), false},
		{s("false"), true},
		{s("0"), true},
		{s(" "), true},
		{s("yes"), true},
	}
	for _, tt := range tests {
		if got := isTruthyFormValue(tt.raw); got != tt.want {
			name := "<nil>"
			if tt.raw != nil {
				name = *tt.raw
			}
			t.Errorf("isTruthyFormValue(%q) = %v, want %v", name, got, tt.want)
		}
	}
}
