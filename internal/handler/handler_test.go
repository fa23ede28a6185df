package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/campus-event-management/internal/auth"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/model"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/repository"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/service"
)

type testAPI struct {
	router http.Handler
	store  *repository.MemoryStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := repository.NewMemoryStore()
	tokens := auth.NewTokenManager([]byte("test-secret"), time.Hour)
	log := zap.NewNop()

	eventSvc := service.NewEventService(store, store, store, nil, log)
	userSvc := service.NewUserService(store, tokens, log)
	router := NewRouter(NewEventHandler(eventSvc), NewUserHandler(userSvc), tokens, log, nil)

	return &testAPI{router: router, store: store}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) signup(t *testing.T, email string, admin bool) (string, string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/users/register", "", model.SignupRequest{
		Name:     "Test",
		Email:    email,
		Password: "secret1",
		IsAdmin:  admin,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup %s: status %d body %s", email, rec.Code, rec.Body)
	}
	var res model.AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	return res.User.ID, res.Token
}

func (a *testAPI) createEvent(t *testing.T, token string, capacity int) *model.Event {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/events", token, model.CreateEventRequest{
		Name:     "Spring Concert",
		Date:     time.Now().Add(72 * time.Hour),
		Time:     "7:30 PM",
		Location: "Main Quad",
		Type:     "cultural",
		Capacity: capacity,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create event: status %d body %s", rec.Code, rec.Body)
	}
	var ev model.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return &ev
}

func TestSignupLoginFlow(t *testing.T) {
	api := newTestAPI(t)

	_, token := api.signup(t, "flow@campus.edu", false)
	if token == "" {
		t.Fatal("signup returned no token")
	}

	rec := api.do(t, http.MethodPost, "/api/users/login", "", model.LoginRequest{
		Email: "flow@campus.edu", Password: "secret1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", rec.Code, rec.Body)
	}

	rec = api.do(t, http.MethodPost, "/api/users/login", "", model.LoginRequest{
		Email: "flow@campus.edu", Password: "nope",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: status %d, want 401", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/users/preferences", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status %d, want 401", rec.Code)
	}

	rec = api.do(t, http.MethodGet, "/api/users/preferences", "garbage-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d, want 401", rec.Code)
	}
}

func TestAdminGateOnEventCreation(t *testing.T) {
	api := newTestAPI(t)
	_, memberToken := api.signup(t, "member@campus.edu", false)
	_, adminToken := api.signup(t, "admin@campus.edu", true)

	rec := api.do(t, http.MethodPost, "/api/events", memberToken, model.CreateEventRequest{
		Name:     "Rogue Event",
		Date:     time.Now().Add(24 * time.Hour),
		Time:     "1:00 PM",
		Location: "Anywhere",
		Type:     "social",
		Capacity: 10,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("member create: status %d, want 403", rec.Code)
	}

	api.createEvent(t, adminToken, 10)
}

func TestRegisterFlowOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	_, adminToken := api.signup(t, "admin@campus.edu", true)
	_, aliceToken := api.signup(t, "alice@campus.edu", false)
	_, bobToken := api.signup(t, "bob@campus.edu", false)

	ev := api.createEvent(t, adminToken, 1)

	rec := api.do(t, http.MethodPost, "/api/events/"+ev.ID+"/register", aliceToken, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("alice register: status %d body %s", rec.Code, rec.Body)
	}
	var res model.RegistrationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Waitlisted {
		t.Fatal("alice should hold a confirmed seat")
	}

	// Full event waitlists bob; still 201, flagged.
	rec = api.do(t, http.MethodPost, "/api/events/"+ev.ID+"/register", bobToken, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("bob register: status %d body %s", rec.Code, rec.Body)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Waitlisted {
		t.Fatal("bob should be waitlisted")
	}

	// Duplicate registration conflicts.
	rec = api.do(t, http.MethodPost, "/api/events/"+ev.ID+"/register", aliceToken, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: status %d, want 409", rec.Code)
	}

	// Alice leaves, bob is promoted.
	rec = api.do(t, http.MethodPost, "/api/events/"+ev.ID+"/unregister", aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unregister: status %d body %s", rec.Code, rec.Body)
	}
	var after model.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &after); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(after.Attendees) != 1 || len(after.Waitlist) != 0 {
		t.Fatalf("promotion failed: %+v", after)
	}

	// Bob's confirmed list now has the event.
	rec = api.do(t, http.MethodGet, "/api/events/user/registered", bobToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("registered list: status %d", rec.Code)
	}
	var events []model.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 1 || events[0].ID != ev.ID {
		t.Fatalf("bob's events = %v", events)
	}
}

func TestListAndFilterOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	_, adminToken := api.signup(t, "admin@campus.edu", true)
	api.createEvent(t, adminToken, 5)

	rec := api.do(t, http.MethodGet, "/api/events?search=concert", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var events []model.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("search matched %d, want 1", len(events))
	}

	rec = api.do(t, http.MethodGet, "/api/events?type=quidditch", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad type filter: status %d, want 400", rec.Code)
	}

	rec = api.do(t, http.MethodGet, "/api/events?date=not-a-date", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date filter: status %d, want 400", rec.Code)
	}
}

func TestPreferencesOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.signup(t, "prefs@campus.edu", false)

	rec := api.do(t, http.MethodPost, "/api/users/preferences", token,
		model.Preferences{model.TypeTechnology: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("update prefs: status %d body %s", rec.Code, rec.Body)
	}

	rec = api.do(t, http.MethodGet, "/api/users/preferences", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get prefs: status %d", rec.Code)
	}
	var res struct {
		Preferences model.Preferences `json:"preferences"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Preferences[model.TypeTechnology] {
		t.Fatalf("preferences = %v", res.Preferences)
	}
}

func TestCapacityConflictOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	_, adminToken := api.signup(t, "admin@campus.edu", true)
	ev := api.createEvent(t, adminToken, 2)

	for i := 0; i < 2; i++ {
		_, tok := api.signup(t, fmt.Sprintf("g%d@campus.edu", i), false)
		rec := api.do(t, http.MethodPost, "/api/events/"+ev.ID+"/register", tok, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("register %d: status %d", i, rec.Code)
		}
	}

	rec := api.do(t, http.MethodPut, "/api/events/"+ev.ID, adminToken, model.UpdateEventRequest{
		Name: ev.Name, Date: ev.Date, Time: ev.Time, Location: ev.Location,
		Type: string(ev.Type), Capacity: 1,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("shrink capacity: status %d, want 409", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: status %d", rec.Code)
	}
}
