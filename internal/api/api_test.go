package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"food-order-service/internal/auth"
	"food-order-service/internal/entity"
	"food-order-service/internal/pricing"
	"food-order-service/internal/realtime"
	"food-order-service/internal/repository"
	"food-order-service/internal/service"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

var secret = []byte("api-test-secret")

var (
	customer = entity.Caller{ID: "cust-1", Role: entity.RoleCustomer, Name: "Asha"}
	stranger = entity.Caller{ID: "cust-2", Role: entity.RoleCustomer}
	owner    = entity.Caller{ID: "cook-1", Role: entity.RoleCook, Name: "Chef"}
)

const orderBody = `{
	"restaurant_id": "rest-1",
	"items": [
		{"menu_item_id": "item-a", "quantity": 2},
		{"menu_item_id": "item-b", "quantity": 1, "special_request": "less sugar"}
	],
	"delivery_address": {"line1": "12 MG Road", "city": "Bengaluru", "postal_code": "560001"},
	"payment_method": "cash"
}`

type testServer struct {
	e   *echo.Echo
	hub *realtime.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repo := repository.NewMemoryRepository()
	repo.AddRestaurant(entity.Restaurant{ID: "rest-1", OwnerID: owner.ID, Name: "Dosa Corner", Active: true, DeliveryFee: decimal.RequireFromString("2.50")})
	repo.AddMenuItem(entity.MenuItem{ID: "item-a", RestaurantID: "rest-1", Name: "Masala Dosa", Price: decimal.RequireFromString("10.00"), Available: true})
	repo.AddMenuItem(entity.MenuItem{ID: "item-b", RestaurantID: "rest-1", Name: "Filter Coffee", Price: decimal.RequireFromString("5.00"), Available: true})

	hub := realtime.NewHub()
	orders := service.NewOrderService(repo, pricing.NewEngine(decimal.RequireFromString("0.05")), hub, service.Options{
		PrepBuffer:      45 * time.Minute,
		DefaultPageSize: 20,
		MaxPageSize:     100,
	})

	e := NewEcho(false)
	RegisterRoutes(e, secret, Handlers{
		Orders: NewOrderHandler(orders, false),
		Cart:   NewCartHandler(service.NewCartService(repo), false),
		Live:   NewLiveHandler(hub, repo, false),
		Health: NewHealthHandler(repo),
	})
	return &testServer{e: e, hub: hub}
}

func token(t *testing.T, c entity.Caller) string {
	t.Helper()
	tok, err := auth.Sign(secret, c, time.Hour, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (s *testServer) do(t *testing.T, method, target, body string, caller *entity.Caller) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if caller != nil {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, *caller))
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func (s *testServer) createOrder(t *testing.T) string {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/orders", orderBody, &customer)
	if code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %v", code, body)
	}
	return body["id"].(string)
}

func TestCreateOrder(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/orders", orderBody, &customer)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", code, body)
	}
	if body["final_amount"] != "28.75" || body["tax_amount"] != "1.25" || body["subtotal"] != "25.00" {
		t.Errorf("unexpected pricing: %v", body)
	}
	if body["status"] != string(entity.StatusPending) {
		t.Errorf("expected pending, got %v", body["status"])
	}
	if lines, _ := body["lines"].([]any); len(lines) != 2 {
		t.Errorf("expected 2 lines, got %v", body["lines"])
	}
}

func TestCreateOrderErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		caller   *entity.Caller
		wantCode int
		wantKind string
	}{
		{"missing token", orderBody, nil, http.StatusUnauthorized, "unauthenticated"},
		{"cook cannot order", orderBody, &owner, http.StatusForbidden, "unauthorized"},
		{"malformed json", `{"restaurant_id":`, &customer, http.StatusBadRequest, "invalid_input"},
		{"no items", `{"restaurant_id":"rest-1","items":[],"delivery_address":{"line1":"a","city":"b","postal_code":"c"},"payment_method":"card"}`, &customer, http.StatusBadRequest, "invalid_input"},
		{"zero quantity", `{"restaurant_id":"rest-1","items":[{"menu_item_id":"item-a","quantity":0}],"delivery_address":{"line1":"a","city":"b","postal_code":"c"},"payment_method":"card"}`, &customer, http.StatusBadRequest, "invalid_input"},
		{"missing city", `{"restaurant_id":"rest-1","items":[{"menu_item_id":"item-a","quantity":1}],"delivery_address":{"line1":"a","postal_code":"c"},"payment_method":"card"}`, &customer, http.StatusBadRequest, "invalid_input"},
		{"unknown item", `{"restaurant_id":"rest-1","items":[{"menu_item_id":"nope","quantity":1}],"delivery_address":{"line1":"a","city":"b","postal_code":"c"},"payment_method":"card"}`, &customer, http.StatusNotFound, "not_found"},
		{"unknown restaurant", `{"restaurant_id":"rest-9","items":[{"menu_item_id":"item-a","quantity":1}],"delivery_address":{"line1":"a","city":"b","postal_code":"c"},"payment_method":"card"}`, &customer, http.StatusNotFound, "not_found"},
	}

	s := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := s.do(t, http.MethodPost, "/orders", tt.body, tt.caller)
			if code != tt.wantCode {
				t.Errorf("expected %d, got %d: %v", tt.wantCode, code, body)
			}
			if body["kind"] != tt.wantKind {
				t.Errorf("expected kind %q, got %v", tt.wantKind, body["kind"])
			}
		})
	}
}

func TestGetOrderVisibility(t *testing.T) {
	s := newTestServer(t)
	id := s.createOrder(t)

	tests := []struct {
		name   string
		target string
		caller entity.Caller
		want   int
	}{
		{"owner customer", "/orders/" + id, customer, http.StatusOK},
		{"restaurant cook", "/orders/" + id, owner, http.StatusOK},
		{"other customer", "/orders/" + id, stranger, http.StatusForbidden},
		{"unknown order", "/orders/missing", customer, http.StatusNotFound},
		{"history", "/orders/" + id + "/history", customer, http.StatusOK},
		{"history other customer", "/orders/" + id + "/history", stranger, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := tt.caller
			code, body := s.do(t, http.MethodGet, tt.target, "", &caller)
			if code != tt.want {
				t.Errorf("expected %d, got %d: %v", tt.want, code, body)
			}
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	s := newTestServer(t)
	id := s.createOrder(t)
	target := "/orders/" + id + "/status"

	steps := []struct {
		name     string
		body     string
		caller   entity.Caller
		wantCode int
		wantKind string
	}{
		{"customer cannot transition", `{"status":"confirmed"}`, customer, http.StatusForbidden, "unauthorized"},
		{"unknown status", `{"status":"teleported"}`, owner, http.StatusBadRequest, "invalid_input"},
		{"empty status", `{}`, owner, http.StatusBadRequest, "invalid_input"},
		{"confirm", `{"status":"confirmed"}`, owner, http.StatusOK, ""},
		{"skip to delivered", `{"status":"delivered"}`, owner, http.StatusConflict, "invalid_transition"},
		{"prepare", `{"status":"preparing"}`, owner, http.StatusOK, ""},
	}
	for _, st := range steps {
		caller := st.caller
		code, body := s.do(t, http.MethodPatch, target, st.body, &caller)
		if code != st.wantCode {
			t.Fatalf("%s: expected %d, got %d: %v", st.name, st.wantCode, code, body)
		}
		if st.wantKind != "" && body["kind"] != st.wantKind {
			t.Errorf("%s: expected kind %q, got %v", st.name, st.wantKind, body["kind"])
		}
	}

	_, conflict := s.do(t, http.MethodPatch, target, `{"status":"confirmed"}`, &owner)
	if msg, _ := conflict["error"].(string); !strings.Contains(msg, "allowed: sent_to_delivery, cancelled") {
		t.Errorf("expected allowed statuses in conflict body, got %v", conflict)
	}

	_, order := s.do(t, http.MethodGet, "/orders/"+id, "", &customer)
	if order["status"] != string(entity.StatusPreparing) {
		t.Errorf("expected preparing, got %v", order["status"])
	}
}

func TestListOrders(t *testing.T) {
	s := newTestServer(t)
	s.createOrder(t)
	s.createOrder(t)

	code, body := s.do(t, http.MethodGet, "/orders?page=1&page_size=1", "", &customer)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	if body["total"] != float64(2) || body["page_size"] != float64(1) {
		t.Errorf("unexpected page: %v", body)
	}
	if orders, _ := body["orders"].([]any); len(orders) != 1 {
		t.Errorf("expected one order on the page, got %v", body["orders"])
	}

	_, body = s.do(t, http.MethodGet, "/orders", "", &stranger)
	if body["total"] != float64(0) {
		t.Errorf("stranger should see no orders, got %v", body["total"])
	}

	code, _ = s.do(t, http.MethodGet, "/orders?page_size=abc", "", &customer)
	if code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad page_size, got %d", code)
	}
	code, _ = s.do(t, http.MethodGet, "/orders?status=lost", "", &customer)
	if code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad status, got %d", code)
	}
}

func TestCart(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPut, "/cart/items", `{"menu_item_id":"item-a","quantity":3}`, &customer)
	if code != http.StatusOK {
		t.Fatalf("put: expected 200, got %d: %v", code, body)
	}

	_, body = s.do(t, http.MethodGet, "/cart", "", &customer)
	items, _ := body["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one cart item, got %v", body)
	}
	if q := items[0].(map[string]any)["quantity"]; q != float64(3) {
		t.Errorf("expected quantity 3, got %v", q)
	}

	if code, _ := s.do(t, http.MethodPut, "/cart/items", `{"menu_item_id":"item-a","quantity":0}`, &customer); code != http.StatusBadRequest {
		t.Errorf("expected 400 for zero quantity, got %d", code)
	}
	if code, _ := s.do(t, http.MethodDelete, "/cart/items/item-a", "", &customer); code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", code)
	}
	if code, _ := s.do(t, http.MethodDelete, "/cart/items/item-a", "", &customer); code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", code)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(t, http.MethodGet, "/healthz", "", nil)
	if code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("unexpected health response %d %v", code, body)
	}
}

func TestLiveNewOrderReachesCook(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token(t, owner)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.hub.Subscribers("restaurant:rest-1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("cook never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	id := s.createOrder(t)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg struct {
		Event   string         `json:"event"`
		Payload map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Event != "new_order" || msg.Payload["order_id"] != id {
		t.Errorf("unexpected message %s", data)
	}
	if msg.Payload["customer_name"] != "Asha" {
		t.Errorf("expected customer name, got %v", msg.Payload["customer_name"])
	}
}
