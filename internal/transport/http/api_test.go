package http

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/dsolution-crm/internal/config"
	"github.com/vovakirdan/dsolution-crm/internal/proto"
	"github.com/vovakirdan/dsolution-crm/internal/service/catalog"
	"github.com/vovakirdan/dsolution-crm/internal/store"
)

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := env.ts.Client().Get(env.ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", string(body))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.ts.Client().Get(env.ts.URL + "/health")
	require.NoError(t, err)

	resp, err := env.ts.Client().Get(env.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "crm_http_requests_total")
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	created := env.register(t, "  Alice@Example.com ")
	require.NotEmpty(t, created.Token)
	require.Equal(t, "alice@example.com", created.User.Email)
	require.Equal(t, store.RoleCustomer, created.User.Role)

	resp := env.doJSON(t, http.MethodPost, "/api/register", "", CredentialsRequest{Email: "alice@example.com", Password: "secret123"}, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.doJSON(t, http.MethodPost, "/api/register", "", CredentialsRequest{Email: "not-an-email", Password: "secret123"}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.doJSON(t, http.MethodPost, "/api/register", "", CredentialsRequest{Email: "short@example.com", Password: "123"}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.doJSON(t, http.MethodPost, "/api/register", "", map[string]string{"email": "x@example.com"}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var loggedIn AuthResponse
	resp = env.doJSON(t, http.MethodPost, "/api/login", "", CredentialsRequest{Email: "alice@example.com", Password: "secret123"}, &loggedIn)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, created.User.ID, loggedIn.User.ID)

	resp = env.doJSON(t, http.MethodPost, "/api/login", "", CredentialsRequest{Email: "alice@example.com", Password: "wrong-password"}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.doJSON(t, http.MethodPost, "/api/login", "", CredentialsRequest{Email: "nobody@example.com", Password: "secret123"}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	staff := env.register(t, testStaffEmail)
	require.Equal(t, store.RoleStaff, staff.User.Role)
}

func TestServicesAreSeeded(t *testing.T) {
	env := newTestEnv(t, nil)

	var services []ServiceResponse
	resp := env.doJSON(t, http.MethodGet, "/api/services", "", nil, &services)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, services, len(catalog.Defaults))
	require.Equal(t, catalog.Defaults[0].Name, services[0].Name)
	require.NotEmpty(t, services[0].ID)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.doJSON(t, http.MethodGet, "/api/orders", "", nil, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.doJSON(t, http.MethodGet, "/api/orders", "garbage", nil, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.doJSON(t, http.MethodGet, "/api/messages/anyone", "", nil, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOrderLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	customer := env.register(t, "customer@example.com")
	other := env.register(t, "other@example.com")
	staff := env.register(t, testStaffEmail)

	var services []ServiceResponse
	env.doJSON(t, http.MethodGet, "/api/services", "", nil, &services)
	serviceID := services[0].ID

	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
	var order OrderResponse
	resp := env.postOrder(t, customer.Token, map[string]string{"serviceId": serviceID, "specs": "two pages"}, &formFile{name: "brief.pdf", content: pdf}, &order)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, customer.User.ID, order.UserID)
	require.Equal(t, store.OrderStatusPending, order.Status)
	require.True(t, strings.HasPrefix(order.FileURL, "/uploads/"), order.FileURL)
	require.True(t, strings.HasSuffix(order.FileURL, ".pdf"), order.FileURL)

	// The attachment is served back.
	fileResp, err := env.ts.Client().Get(env.ts.URL + order.FileURL)
	require.NoError(t, err)
	served, err := io.ReadAll(fileResp.Body)
	_ = fileResp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, fileResp.StatusCode)
	require.Equal(t, pdf, served)

	var plain OrderResponse
	resp = env.postOrder(t, other.Token, map[string]string{"serviceId": serviceID, "specs": "no file"}, nil, &plain)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Empty(t, plain.FileURL)

	var mine []OrderResponse
	resp = env.doJSON(t, http.MethodGet, "/api/orders", customer.Token, nil, &mine)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, mine, 1)
	require.Equal(t, order.ID, mine[0].ID)

	var all []OrderResponse
	resp = env.doJSON(t, http.MethodGet, "/api/orders", staff.Token, nil, &all)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, all, 2)

	resp = env.doJSON(t, http.MethodGet, "/api/orders/"+order.ID, customer.Token, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.doJSON(t, http.MethodGet, "/api/orders/"+order.ID, other.Token, nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.doJSON(t, http.MethodGet, "/api/orders/"+order.ID, staff.Token, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	status := UpdateStatusRequest{Status: string(store.OrderStatusInProgress)}
	resp = env.doJSON(t, http.MethodPatch, "/api/orders/"+order.ID+"/status", customer.Token, status, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	var updated OrderResponse
	resp = env.doJSON(t, http.MethodPatch, "/api/orders/"+order.ID+"/status", staff.Token, status, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, store.OrderStatusInProgress, updated.Status)

	resp = env.doJSON(t, http.MethodPatch, "/api/orders/"+order.ID+"/status", staff.Token, UpdateStatusRequest{Status: "shipped"}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.doJSON(t, http.MethodPatch, "/api/orders/missing/status", staff.Token, status, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateOrderErrors(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.MaxUploadBytes = 64
	})
	customer := env.register(t, "customer@example.com")

	var services []ServiceResponse
	env.doJSON(t, http.MethodGet, "/api/services", "", nil, &services)
	serviceID := services[0].ID

	cases := []struct {
		name   string
		fields map[string]string
		file   *formFile
		status int
	}{
		{"missing specs", map[string]string{"serviceId": serviceID}, nil, http.StatusBadRequest},
		{"unknown service", map[string]string{"serviceId": "missing", "specs": "x"}, nil, http.StatusNotFound},
		{"disallowed type", map[string]string{"serviceId": serviceID, "specs": "x"}, &formFile{name: "setup.exe", content: append([]byte("MZ"), make([]byte, 32)...)}, http.StatusUnsupportedMediaType},
		{"too large", map[string]string{"serviceId": serviceID, "specs": "x"}, &formFile{name: "notes.txt", content: []byte(strings.Repeat("a", 200))}, http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.postOrder(t, customer.Token, tc.fields, tc.file, nil)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}

	var mine []OrderResponse
	env.doJSON(t, http.MethodGet, "/api/orders", customer.Token, nil, &mine)
	require.Empty(t, mine)
}

func TestMessageHistoryEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	customer := env.register(t, "customer@example.com")
	other := env.register(t, "other@example.com")
	staff := env.register(t, testStaffEmail)

	for _, body := range []string{"hello", "is anyone there?"} {
		_, err := env.hub.Submit(ctx, customer.User.ID, body)
		require.NoError(t, err)
	}

	var history []proto.EventMessage
	resp := env.doJSON(t, http.MethodGet, "/api/messages/"+customer.User.ID, customer.Token, nil, &history)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, history, 2)
	require.Equal(t, "hello", history[0].Body)
	require.Equal(t, customer.User.ID, history[0].OwnerID)

	resp = env.doJSON(t, http.MethodGet, "/api/messages/"+customer.User.ID, other.Token, nil, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	var viaStaff []proto.EventMessage
	resp = env.doJSON(t, http.MethodGet, "/api/messages/"+customer.User.ID, staff.Token, nil, &viaStaff)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, viaStaff, 2)

	var empty []proto.EventMessage
	resp = env.doJSON(t, http.MethodGet, "/api/messages/"+other.User.ID, other.Token, nil, &empty)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}
