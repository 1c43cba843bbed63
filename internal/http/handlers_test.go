package httpapi

import (
	"bytes"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/auth"
	"storefront/internal/blob"
	"storefront/internal/cache"
	"storefront/internal/cart"
	"storefront/internal/events"
	"storefront/internal/repository"
	"storefront/internal/service"
)

const adminEmail = "admin@iphonehub.com"

type testEnv struct {
	s      *Server
	events *events.Recorder
	clock  *time.Time
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Now()
	env := &testEnv{events: &events.Recorder{}, clock: &now}
	clock := func() time.Time { return *env.clock }

	store := repository.NewMemoryStore()
	if err := repository.SeedCatalog(t.Context(), store); err != nil {
		t.Fatal(err)
	}
	ordersRepo := repository.NewMemoryOrders(store)
	tx := repository.NewMemoryTx(store)
	kv := cache.NewMemoryCache("test")
	carts := cart.NewStore(kv, time.Hour)

	authSvc, err := auth.NewService(auth.Config{Secret: []byte("secret"), AdminEmail: adminEmail, AdminPassword: "admin-pass"})
	if err != nil {
		t.Fatal(err)
	}
	authz, err := auth.NewAuthorizer()
	if err != nil {
		t.Fatal(err)
	}
	media, err := blob.NewLocalStore(t.TempDir(), "/media")
	if err != nil {
		t.Fatal(err)
	}

	env.s = NewServer(Deps{
		Auth:       authSvc,
		Authorizer: authz,
		Products:   service.NewProductService(store),
		Orders:     service.NewOrderService(ordersRepo, tx, nil, env.events, nil),
		Checkout: service.NewCheckoutService(service.CheckoutConfig{
			Orders:    ordersRepo,
			Carts:     carts,
			Sessions:  kv,
			Publisher: env.events,
			Now:       clock,
		}),
		Banners:    service.NewBannerService(repository.NewMemoryBanners(store), media, nil),
		Carts:      carts,
		MediaDir:   media.Dir(),
		MediaURL:   "/media",
		LoginRPS:   100,
		LoginBurst: 100,
	})
	return env
}

type reqOpt func(*http.Request)

func withToken(tok string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

func withCart(id string) reqOpt {
	return func(r *http.Request) { r.Header.Set(cartHeader, id) }
}

func doJSON(t *testing.T, s *Server, method, path string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func login(t *testing.T, s *Server, path, email, password string) string {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, path, map[string]any{"email": email, "password": password})
	if w.Code != http.StatusOK {
		t.Fatalf("login code %v: %s", w.Code, w.Body.String())
	}
	return decode(t, w)["token"].(string)
}

func customerToken(t *testing.T, s *Server, email string) string {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/v1/auth/register", map[string]any{"email": email, "password": "secret1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("register code %v: %s", w.Code, w.Body.String())
	}
	return login(t, s, "/api/v1/auth/login", email, "secret1")
}

var (
	shippingBody = map[string]any{"name": "Jo Doe", "address": "1 Infinite Loop", "city": "Cupertino", "zip": "95014", "country": "US"}
	cardBody     = map[string]any{"paymentMethod": "card", "cardNumber": "4242424242424242", "expiry": "12/29", "cvc": "123"}
)

func TestProductFlow(t *testing.T) {
	env := setupServer(t)
	s := env.s
	admin := login(t, s, "/api/v1/auth/admin/login", adminEmail, "admin-pass")

	// create
	w := doJSON(t, s, http.MethodPost, "/api/v1/admin/products", map[string]any{
		"name": "MagSafe Charger", "price": "39.00", "stock": 5,
	}, withToken(admin))
	if w.Code != http.StatusCreated {
		t.Fatalf("create code %v", w.Code)
	}
	id := decode(t, w)["id"].(string)

	// customers cannot
	cust := customerToken(t, s, "eve@example.com")
	w = doJSON(t, s, http.MethodPost, "/api/v1/admin/products", map[string]any{"name": "X", "price": 1}, withToken(cust))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer, got %v", w.Code)
	}

	// get
	w = doJSON(t, s, http.MethodGet, "/api/v1/products/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get code %v", w.Code)
	}
	// update
	w = doJSON(t, s, http.MethodPut, "/api/v1/admin/products/"+id, map[string]any{
		"name": "MagSafe Charger 2", "price": 49, "stock": 7,
	}, withToken(admin))
	if w.Code != http.StatusOK {
		t.Fatalf("update code %v", w.Code)
	}
	// list
	w = doJSON(t, s, http.MethodGet, "/api/v1/products?q=magsafe", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list code %v", w.Code)
	}
	w = doJSON(t, s, http.MethodGet, "/api/v1/products?min_price=abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad price code %v", w.Code)
	}
	// collection
	w = doJSON(t, s, http.MethodGet, "/api/v1/collections/accessories", nil)
	if w.Code != http.StatusOK || len(decode(t, w)["products"].([]any)) != 1 {
		t.Fatalf("collection code %v: %s", w.Code, w.Body.String())
	}
	// delete
	w = doJSON(t, s, http.MethodDelete, "/api/v1/admin/products/"+id, nil, withToken(admin))
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete code %v", w.Code)
	}
	w = doJSON(t, s, http.MethodGet, "/api/v1/products/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %v", w.Code)
	}
}

func TestCheckoutFlow(t *testing.T) {
	env := setupServer(t)
	s := env.s
	tok := customerToken(t, s, "jo@example.com")
	cartID := withCart("cart-1")

	// empty cart bounces home
	w := doJSON(t, s, http.MethodPost, "/api/v1/checkout", nil, cartID, withToken(tok))
	if w.Code != http.StatusBadRequest || decode(t, w)["redirect"] != "/" {
		t.Fatalf("empty cart: %v %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": "iphone-se", "quantity": 2}, cartID)
	if w.Code != http.StatusOK || decode(t, w)["subtotal"] != "858.00" {
		t.Fatalf("add item: %v %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodPost, "/api/v1/checkout", nil, cartID, withToken(tok))
	if w.Code != http.StatusOK || decode(t, w)["step"] != "shipping" {
		t.Fatalf("start: %v %s", w.Code, w.Body.String())
	}

	// invalid shipping keeps the step and reports fields
	w = doJSON(t, s, http.MethodPost, "/api/v1/checkout/shipping", map[string]any{"name": "J"}, cartID, withToken(tok))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid shipping code %v", w.Code)
	}
	if fields := decode(t, w)["fields"].(map[string]any); fields["zip"] == nil {
		t.Fatalf("expected zip message, got %v", fields)
	}

	w = doJSON(t, s, http.MethodPost, "/api/v1/checkout/shipping", shippingBody, cartID, withToken(tok))
	if w.Code != http.StatusOK || decode(t, w)["step"] != "payment" {
		t.Fatalf("shipping: %v %s", w.Code, w.Body.String())
	}

	// anonymous payment redirects to login
	w = doJSON(t, s, http.MethodPost, "/api/v1/checkout/payment", cardBody, cartID)
	if w.Code != http.StatusUnauthorized || decode(t, w)["redirect"] != "/login" {
		t.Fatalf("anonymous payment: %v %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodPost, "/api/v1/checkout/payment", cardBody, cartID, withToken(tok))
	if w.Code != http.StatusOK {
		t.Fatalf("payment: %v %s", w.Code, w.Body.String())
	}
	view := decode(t, w)
	orderID := view["orderId"].(string)
	if view["step"] != "verification" || view["remainingSeconds"].(float64) != 180 {
		t.Fatalf("unexpected view %v", view)
	}

	// the order exists as Pending without verification
	w = doJSON(t, s, http.MethodGet, "/api/v1/orders/"+orderID, nil, withToken(tok))
	order := decode(t, w)
	if w.Code != http.StatusOK || order["status"] != "Pending" || order["otp"] != nil || order["total"] != "858.00" {
		t.Fatalf("pending order: %v %v", w.Code, order)
	}

	// another customer cannot see it
	other := customerToken(t, s, "mallory@example.com")
	w = doJSON(t, s, http.MethodGet, "/api/v1/orders/"+orderID, nil, withToken(other))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", w.Code)
	}

	// only the owner may verify: anonymous and foreign tokens are rejected
	w = doJSON(t, s, http.MethodPost, "/api/v1/checkout/verify", map[string]any{"otp": "999999"}, cartID)
	if w.Code != http.StatusUnauthorized || decode(t, w)["redirect"] != "/login" {
		t.Fatalf("anonymous verify: %v %s", w.Code, w.Body.String())
	}
	w = doJSON(t, s, http.MethodPost, "/api/v1/checkout/verify", map[string]any{"otp": "999999"}, cartID, withToken(other))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("foreign verify: %v %s", w.Code, w.Body.String())
	}
	w = doJSON(t, s, http.MethodGet, "/api/v1/orders/"+orderID, nil, withToken(tok))
	if decode(t, w)["otp"] != nil {
		t.Fatalf("order must stay unverified: %s", w.Body.String())
	}

	w = doJSON(t, s, http.MethodPost, "/api/v1/checkout/verify", map[string]any{"otp": "12345"}, cartID, withToken(tok))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("short otp code %v", w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/api/v1/checkout/verify", map[string]any{"otp": "123456"}, cartID, withToken(tok))
	if w.Code != http.StatusOK {
		t.Fatalf("verify: %v %s", w.Code, w.Body.String())
	}
	if got := decode(t, w)["redirect"]; got != "/order-confirmation?orderId="+orderID {
		t.Fatalf("unexpected redirect %v", got)
	}

	w = doJSON(t, s, http.MethodGet, "/api/v1/cart", nil, cartID)
	if items := decode(t, w)["items"].([]any); len(items) != 0 {
		t.Fatalf("cart must be cleared, got %v", items)
	}

	w = doJSON(t, s, http.MethodGet, "/api/v1/orders", nil, withToken(tok))
	var mine []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &mine); err != nil || len(mine) != 1 || mine[0]["otp"] != "123456" {
		t.Fatalf("dashboard: %v %s", err, w.Body.String())
	}

	if n := len(env.events.Events()); n != 2 {
		t.Fatalf("expected created+verified events, got %d", n)
	}
}

func TestCheckoutExpiredAndBack(t *testing.T) {
	env := setupServer(t)
	s := env.s
	tok := customerToken(t, s, "jo@example.com")
	cartID := withCart("cart-2")

	doJSON(t, s, http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": "iphone-15"}, cartID)
	doJSON(t, s, http.MethodPost, "/api/v1/checkout/shipping", shippingBody, cartID, withToken(tok))
	w := doJSON(t, s, http.MethodPost, "/api/v1/checkout/payment", map[string]any{"paymentMethod": "crypto"}, cartID, withToken(tok))
	if w.Code != http.StatusOK {
		t.Fatalf("payment: %v %s", w.Code, w.Body.String())
	}

	*env.clock = env.clock.Add(3 * time.Minute)
	w = doJSON(t, s, http.MethodPost, "/api/v1/checkout/verify", map[string]any{"cryptoTrxId": "0xabc"}, cartID, withToken(tok))
	if w.Code != http.StatusGone {
		t.Fatalf("expected 410, got %v", w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/api/v1/checkout/back", nil, cartID, withToken(tok))
	if w.Code != http.StatusOK || decode(t, w)["step"] != "payment" {
		t.Fatalf("back: %v %s", w.Code, w.Body.String())
	}
	w = doJSON(t, s, http.MethodPost, "/api/v1/checkout/back", nil, cartID, withToken(tok))
	if w.Code != http.StatusOK || decode(t, w)["step"] != "shipping" {
		t.Fatalf("back: %v %s", w.Code, w.Body.String())
	}
	w = doJSON(t, s, http.MethodPost, "/api/v1/checkout/back", nil, cartID, withToken(tok))
	if w.Code != http.StatusConflict {
		t.Fatalf("back from shipping: expected 409, got %v", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, "/api/v1/checkout", nil, withToken(tok))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing cart header: expected 400, got %v", w.Code)
	}
}

func TestCartQuantityLimits(t *testing.T) {
	env := setupServer(t)
	s := env.s
	cartID := withCart("cart-q")

	w := doJSON(t, s, http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": "iphone-se", "quantity": 1}, cartID)
	if w.Code != http.StatusOK {
		t.Fatalf("add: %v %s", w.Code, w.Body.String())
	}
	w = doJSON(t, s, http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": "iphone-se", "quantity": int64(math.MaxInt64)}, cartID)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("overflow add: expected 400, got %v %s", w.Code, w.Body.String())
	}
	w = doJSON(t, s, http.MethodPatch, "/api/v1/cart/items/iphone-se", map[string]any{"quantity": 1000}, cartID)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("large update: expected 400, got %v", w.Code)
	}
	w = doJSON(t, s, http.MethodGet, "/api/v1/cart", nil, cartID)
	items := decode(t, w)["items"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["quantity"].(float64) != 1 {
		t.Fatalf("cart must be unchanged: %s", w.Body.String())
	}
}

func TestAdminOrderStatus(t *testing.T) {
	env := setupServer(t)
	s := env.s
	tok := customerToken(t, s, "jo@example.com")
	admin := login(t, s, "/api/v1/auth/admin/login", adminEmail, "admin-pass")
	cartID := withCart("cart-3")

	doJSON(t, s, http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": "iphone-14"}, cartID)
	doJSON(t, s, http.MethodPost, "/api/v1/checkout/shipping", shippingBody, cartID, withToken(tok))
	w := doJSON(t, s, http.MethodPost, "/api/v1/checkout/payment", cardBody, cartID, withToken(tok))
	orderID := decode(t, w)["orderId"].(string)

	w = doJSON(t, s, http.MethodGet, "/api/v1/admin/orders", nil, withToken(tok))
	if w.Code != http.StatusForbidden {
		t.Fatalf("customer on admin list: expected 403, got %v", w.Code)
	}
	w = doJSON(t, s, http.MethodGet, "/api/v1/admin/orders", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous admin list: expected 401, got %v", w.Code)
	}

	statusPath := "/api/v1/admin/orders/" + orderID + "/status"
	w = doJSON(t, s, http.MethodPost, statusPath, map[string]any{"status": "Shipped"}, withToken(admin))
	if w.Code != http.StatusOK || decode(t, w)["status"] != "Shipped" {
		t.Fatalf("ship: %v %s", w.Code, w.Body.String())
	}
	w = doJSON(t, s, http.MethodPost, statusPath, map[string]any{"status": "Pending"}, withToken(admin))
	if w.Code != http.StatusConflict {
		t.Fatalf("regress: expected 409, got %v", w.Code)
	}
	w = doJSON(t, s, http.MethodPost, statusPath, map[string]any{"status": "Lost"}, withToken(admin))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status: expected 400, got %v", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, "/api/v1/admin/orders/"+orderID+"/history", nil, withToken(admin))
	if w.Code != http.StatusOK {
		t.Fatalf("history code %v", w.Code)
	}

	w = doJSON(t, s, http.MethodDelete, "/api/v1/admin/orders/"+orderID, nil, withToken(admin))
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete code %v", w.Code)
	}
	w = doJSON(t, s, http.MethodGet, "/api/v1/orders/"+orderID, nil, withToken(admin))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %v", w.Code)
	}
}

func TestAuthErrors(t *testing.T) {
	env := setupServer(t)
	s := env.s
	customerToken(t, s, "jo@example.com")

	w := doJSON(t, s, http.MethodPost, "/api/v1/auth/register", map[string]any{"email": "jo@example.com", "password": "secret1"})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %v", w.Code)
	}
	w = doJSON(t, s, http.MethodPost, "/api/v1/auth/register", map[string]any{"email": "ADMIN@iphonehub.com", "password": "attacker1"})
	if w.Code != http.StatusConflict {
		t.Fatalf("admin email must be reserved, got %v", w.Code)
	}
	w = doJSON(t, s, http.MethodPost, "/api/v1/auth/login", map[string]any{"email": "jo@example.com", "password": "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %v", w.Code)
	}
	w = doJSON(t, s, http.MethodPost, "/api/v1/auth/admin/login", map[string]any{"email": "jo@example.com", "password": "secret1"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("non-admin: expected 403, got %v", w.Code)
	}
	w = doJSON(t, s, http.MethodGet, "/api/v1/orders", nil, withToken("garbage"))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %v", w.Code)
	}
}

func TestLoginRateLimit(t *testing.T) {
	env := setupServer(t)
	env.s.login.rps = 0.001
	env.s.login.burst = 2
	var last int
	for i := 0; i < 3; i++ {
		last = doJSON(t, env.s, http.MethodPost, "/api/v1/auth/login", map[string]any{"email": "x@example.com", "password": "x"}).Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", last)
	}
}

func TestBannerUpload(t *testing.T) {
	env := setupServer(t)
	s := env.s
	admin := login(t, s, "/api/v1/auth/admin/login", adminEmail, "admin-pass")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="hero.png"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("png-bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/banners/main", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	if w.Code != http.StatusOK || decode(t, w)["main"] != "/media/banners/main.png" {
		t.Fatalf("upload: %v %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodGet, "/media/banners/main.png", nil)
	if w.Code != http.StatusOK || w.Body.String() != "png-bytes" {
		t.Fatalf("media: %v %q", w.Code, w.Body.String())
	}
	w = doJSON(t, s, http.MethodGet, "/api/v1/banners", nil)
	if decode(t, w)["main"] != "/media/banners/main.png" {
		t.Fatalf("banners not updated: %s", w.Body.String())
	}
}
