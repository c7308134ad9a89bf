package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"barberbook/internal/booking"
	"barberbook/internal/catalog"
	"barberbook/internal/model"
	"barberbook/internal/storetest"
	"barberbook/libs/auth"
	"barberbook/libs/runtime"
)

var testMonday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

type fixture struct {
	store  *storetest.Store
	signer *auth.Signer
	srv    *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storetest.New()
	signer := auth.NewSigner("test-secret", time.Hour)
	logger := runtime.NewLogger("test")

	authHandler := NewAuthHandler(store, signer, logger)
	barberHandler := NewBarberHandler(catalog.New(store), authHandler, logger)
	bookingHandler := NewBookingHandler(booking.NewLedger(store), authHandler, logger)

	srv := httptest.NewServer(NewRouter(authHandler, barberHandler, bookingHandler))
	t.Cleanup(srv.Close)
	return &fixture{store: store, signer: signer, srv: srv}
}

func (f *fixture) seedBarber(t *testing.T) (barberID, serviceID, token string) {
	t.Helper()
	barberID = "barber-1"
	serviceID = "svc-1"
	f.store.Users[barberID] = model.User{
		ID: barberID, Email: "cuts@example.com", FullName: "Sam Cutter",
		IsActive: true, IsBarber: true,
	}
	f.store.Services[serviceID] = model.Service{
		ID: serviceID, BarberID: barberID, Name: "Haircut", DurationMins: 30, Price: 25,
	}
	f.store.WorkingHours[barberID] = []model.WorkingHoursEntry{
		{BarberID: barberID, DayOfWeek: 0, StartMinute: 9 * 60, EndMinute: 17 * 60, IsWorking: true},
	}
	token, err := f.signer.Issue(barberID, "cuts@example.com", auth.RoleBarber)
	if err != nil {
		t.Fatalf("issue barber token: %v", err)
	}
	return barberID, serviceID, token
}

func (f *fixture) seedCustomer(t *testing.T) (userID, token string) {
	t.Helper()
	userID = "cust-1"
	f.store.Users[userID] = model.User{
		ID: userID, Email: "pat@example.com", FullName: "Pat Doe",
		PhoneNumber: "555-0100", IsActive: true,
	}
	token, err := f.signer.Issue(userID, "pat@example.com", auth.RoleCustomer)
	if err != nil {
		t.Fatalf("issue customer token: %v", err)
	}
	return userID, token
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, f.srv.URL+"/api/v1"+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestRegisterLoginMe(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email":     "new@example.com",
		"password":  "hunter22pass",
		"full_name": "New Person",
		"is_barber": true,
		"shop_name": "Fade Factory",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	reg := decodeBody[tokenResponse](t, resp)
	if reg.AccessToken == "" || !reg.User.IsBarber {
		t.Fatalf("register response incomplete: %+v", reg)
	}

	// Duplicate email registers conflict.
	resp = f.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "new@example.com", "password": "hunter22pass", "full_name": "Other",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "new@example.com", "password": "hunter22pass",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	login := decodeBody[tokenResponse](t, resp)

	resp = f.do(t, http.MethodGet, "/auth/me", login.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", resp.StatusCode)
	}
	me := decodeBody[userResponse](t, resp)
	if me.Email != "new@example.com" {
		t.Fatalf("me returned wrong user: %+v", me)
	}

	resp = f.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "new@example.com", "password": "wrong-password",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("bad password: expected 403, got %d", resp.StatusCode)
	}
}

func TestLoginSeededHash(t *testing.T) {
	f := newFixture(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("pw-secret-1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	f.store.Users["u-1"] = model.User{ID: "u-1", Email: "seed@example.com", FullName: "Seed", IsActive: true}
	f.store.Passwords["u-1"] = string(hash)

	resp := f.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "seed@example.com", "password": "pw-secret-1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestServiceEndpoints(t *testing.T) {
	f := newFixture(t)
	barberID, _, barberToken := f.seedBarber(t)
	_, custToken := f.seedCustomer(t)

	resp := f.do(t, http.MethodPost, "/barbers/"+barberID+"/services", barberToken, map[string]any{
		"name": "Beard Trim", "duration_mins": 15, "price": 12.5,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add service: expected 201, got %d", resp.StatusCode)
	}
	created := decodeBody[serviceResponse](t, resp)

	// Another user may not edit this barber's catalog.
	resp = f.do(t, http.MethodPost, "/barbers/"+barberID+"/services", custToken, map[string]any{
		"name": "Hostile", "duration_mins": 10, "price": 1,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign add service: expected 403, got %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodGet, "/barbers/"+barberID+"/services", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list services: expected 200, got %d", resp.StatusCode)
	}
	services := decodeBody[[]serviceResponse](t, resp)
	if len(services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(services))
	}

	resp = f.do(t, http.MethodDelete, "/barbers/"+barberID+"/services/"+created.ID, barberToken, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete service: expected 204, got %d", resp.StatusCode)
	}
	resp = f.do(t, http.MethodDelete, "/barbers/"+barberID+"/services/"+created.ID, barberToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("repeat delete: expected 404, got %d", resp.StatusCode)
	}
}

func TestWorkingHoursEndpoints(t *testing.T) {
	f := newFixture(t)
	barberID, _, barberToken := f.seedBarber(t)

	resp := f.do(t, http.MethodPut, "/barbers/"+barberID+"/working-hours", barberToken, map[string]any{
		"entries": []map[string]any{
			{"day_of_week": 0, "start_time": "10:00", "end_time": "18:00", "is_working": true},
			{"day_of_week": 6, "is_working": false},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("replace hours: expected 200, got %d", resp.StatusCode)
	}
	saved := decodeBody[[]workingHoursEntry](t, resp)
	if len(saved) != 2 || saved[0].StartTime != "10:00" {
		t.Fatalf("unexpected saved hours: %+v", saved)
	}

	resp = f.do(t, http.MethodGet, "/barbers/"+barberID+"/working-hours", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get hours: expected 200, got %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodPut, "/barbers/"+barberID+"/working-hours", barberToken, map[string]any{
		"entries": []map[string]any{
			{"day_of_week": 0, "start_time": "25:00", "end_time": "26:00", "is_working": true},
		},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad clock value: expected 400, got %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodPut, "/barbers/"+barberID+"/working-hours", "", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("anonymous replace: expected 403, got %d", resp.StatusCode)
	}
}

func TestSlotsEndpoint(t *testing.T) {
	f := newFixture(t)
	barberID, serviceID, _ := f.seedBarber(t)

	resp := f.do(t, http.MethodGet, "/barbers/"+barberID+"/slots?service_id="+serviceID+"&date=2026-03-02", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("slots: expected 200, got %d", resp.StatusCode)
	}
	slots := decodeBody[slotsResponse](t, resp)
	if len(slots.Slots) != 31 {
		t.Fatalf("expected 31 slots, got %d", len(slots.Slots))
	}

	// Day off is an empty list, not an error.
	resp = f.do(t, http.MethodGet, "/barbers/"+barberID+"/slots?service_id="+serviceID+"&date=2026-03-03", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("day-off slots: expected 200, got %d", resp.StatusCode)
	}
	slots = decodeBody[slotsResponse](t, resp)
	if len(slots.Slots) != 0 {
		t.Fatalf("expected no slots on a day off, got %d", len(slots.Slots))
	}

	resp = f.do(t, http.MethodGet, "/barbers/"+barberID+"/slots?service_id="+serviceID+"&date=not-a-date", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad date: expected 400, got %d", resp.StatusCode)
	}
	resp = f.do(t, http.MethodGet, "/barbers/"+barberID+"/slots?date=2026-03-02", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing service_id: expected 400, got %d", resp.StatusCode)
	}
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	barberID, serviceID, barberToken := f.seedBarber(t)
	_, custToken := f.seedCustomer(t)

	start := testMonday.Add(10 * time.Hour).Format(time.RFC3339)
	resp := f.do(t, http.MethodPost, "/bookings", custToken, map[string]any{
		"barber_id": barberID, "service_id": serviceID, "start_time": start,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create booking: expected 201, got %d", resp.StatusCode)
	}
	created := decodeBody[bookingResponse](t, resp)
	if created.CustomerEmail != "pat@example.com" || created.CustomerName != "Pat Doe" {
		t.Fatalf("customer details not filled from identity: %+v", created)
	}

	// Same slot again conflicts.
	resp = f.do(t, http.MethodPost, "/bookings", custToken, map[string]any{
		"barber_id": barberID, "service_id": serviceID, "start_time": start,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double booking: expected 409, got %d", resp.StatusCode)
	}

	// Anonymous booking is rejected.
	resp = f.do(t, http.MethodPost, "/bookings", "", map[string]any{
		"barber_id": barberID, "service_id": serviceID, "start_time": start,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("anonymous booking: expected 403, got %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodGet, "/bookings?barber_id="+barberID, barberToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("barber list: expected 200, got %d", resp.StatusCode)
	}
	if got := decodeBody[[]bookingResponse](t, resp); len(got) != 1 {
		t.Fatalf("expected 1 booking for barber, got %d", len(got))
	}

	resp = f.do(t, http.MethodGet, "/bookings?barber_id="+barberID, custToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign barber list: expected 403, got %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodGet, "/bookings/me", custToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("my bookings: expected 200, got %d", resp.StatusCode)
	}
	if got := decodeBody[[]bookingResponse](t, resp); len(got) != 1 {
		t.Fatalf("expected 1 booking for customer, got %d", len(got))
	}

	resp = f.do(t, http.MethodPost, "/bookings/"+created.ID+"/cancel", custToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", resp.StatusCode)
	}
	cancelled := decodeBody[bookingResponse](t, resp)
	if cancelled.Status != model.BookingCancelled {
		t.Fatalf("expected cancelled status, got %q", cancelled.Status)
	}

	// Cancelling again is a no-op success.
	resp = f.do(t, http.MethodPost, "/bookings/"+created.ID+"/cancel", custToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("repeat cancel: expected 200, got %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodPost, "/bookings/missing/cancel", custToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("cancel missing: expected 404, got %d", resp.StatusCode)
	}
}

func TestBookingIgnoresSubmittedCustomerEmail(t *testing.T) {
	f := newFixture(t)
	barberID, serviceID, _ := f.seedBarber(t)
	_, custToken := f.seedCustomer(t)

	// A payload naming someone else's email must not hand them the booking:
	// the account email always wins, so the creator keeps cancel rights.
	start := testMonday.Add(14 * time.Hour).Format(time.RFC3339)
	resp := f.do(t, http.MethodPost, "/bookings", custToken, map[string]any{
		"barber_id": barberID, "service_id": serviceID, "start_time": start,
		"customer_email": "someone-else@example.com",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create booking: expected 201, got %d", resp.StatusCode)
	}
	created := decodeBody[bookingResponse](t, resp)
	if created.CustomerEmail != "pat@example.com" {
		t.Fatalf("expected account email on booking, got %q", created.CustomerEmail)
	}

	resp = f.do(t, http.MethodGet, "/bookings/me", custToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("my bookings: expected 200, got %d", resp.StatusCode)
	}
	if got := decodeBody[[]bookingResponse](t, resp); len(got) != 1 {
		t.Fatalf("expected booking listed under the creator, got %d", len(got))
	}

	resp = f.do(t, http.MethodPost, "/bookings/"+created.ID+"/cancel", custToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("creator cancel: expected 200, got %d", resp.StatusCode)
	}
}

func TestCatalogMutationRequiresBarberRole(t *testing.T) {
	f := newFixture(t)
	barberID, _, _ := f.seedBarber(t)

	// A token with a matching user id but a customer role must not pass the
	// owner check on catalog mutations.
	custRoleToken, err := f.signer.Issue(barberID, "cuts@example.com", auth.RoleCustomer)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	resp := f.do(t, http.MethodPost, "/barbers/"+barberID+"/services", custRoleToken, map[string]any{
		"name": "Shave", "duration_mins": 20, "price": 15,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("customer-role add service: expected 403, got %d", resp.StatusCode)
	}
	resp = f.do(t, http.MethodPut, "/barbers/"+barberID+"/working-hours", custRoleToken, map[string]any{
		"entries": []map[string]any{
			{"day_of_week": 0, "start_time": "09:00", "end_time": "17:00", "is_working": true},
		},
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("customer-role replace hours: expected 403, got %d", resp.StatusCode)
	}
}

func TestCancelForbiddenForStranger(t *testing.T) {
	f := newFixture(t)
	barberID, serviceID, _ := f.seedBarber(t)
	_, custToken := f.seedCustomer(t)

	start := testMonday.Add(11 * time.Hour).Format(time.RFC3339)
	resp := f.do(t, http.MethodPost, "/bookings", custToken, map[string]any{
		"barber_id": barberID, "service_id": serviceID, "start_time": start,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create booking: expected 201, got %d", resp.StatusCode)
	}
	created := decodeBody[bookingResponse](t, resp)

	f.store.Users["other"] = model.User{ID: "other", Email: "other@example.com", IsActive: true}
	otherToken, err := f.signer.Issue("other", "other@example.com", auth.RoleCustomer)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	resp = f.do(t, http.MethodPost, "/bookings/"+created.ID+"/cancel", otherToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("stranger cancel: expected 403, got %d", resp.StatusCode)
	}
}

func TestProfileEndpoint(t *testing.T) {
	f := newFixture(t)
	barberID, _, barberToken := f.seedBarber(t)

	resp := f.do(t, http.MethodPut, "/barbers/"+barberID+"/profile", barberToken, map[string]any{
		"bio": "Fades since 2010", "shop_name": "Sharp Cuts", "shop_address": "12 High St",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update profile: expected 200, got %d", resp.StatusCode)
	}
	got := decodeBody[userResponse](t, resp)
	if got.ShopName != "Sharp Cuts" {
		t.Fatalf("profile not applied: %+v", got)
	}

	resp = f.do(t, http.MethodGet, "/barbers/"+barberID, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get barber: expected 200, got %d", resp.StatusCode)
	}
	public := decodeBody[userResponse](t, resp)
	if public.Bio != "Fades since 2010" {
		t.Fatalf("public profile missing update: %+v", public)
	}

	resp = f.do(t, http.MethodGet, "/barbers/ghost", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown barber: expected 404, got %d", resp.StatusCode)
	}
}
