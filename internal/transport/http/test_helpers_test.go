package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/dsolution-crm/internal/auth"
	"github.com/vovakirdan/dsolution-crm/internal/config"
	"github.com/vovakirdan/dsolution-crm/internal/core"
	"github.com/vovakirdan/dsolution-crm/internal/objectstore"
	"github.com/vovakirdan/dsolution-crm/internal/proto"
	"github.com/vovakirdan/dsolution-crm/internal/service/catalog"
	"github.com/vovakirdan/dsolution-crm/internal/service/orders"
	"github.com/vovakirdan/dsolution-crm/internal/store/sqlite"
)

const (
	testSecret     = "test-secret"
	testStaffEmail = "staff@dsolution.test"
)

type testEnv struct {
	ts    *httptest.Server
	store *sqlite.SQLiteStore
	auth  *auth.Service
	hub   *core.Hub
	cfg   config.Config
}

// newTestEnv wires the full server over an in-memory SQLite store.
func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.JWTSecret = testSecret
	cfg.StaffEmails = []string{testStaffEmail}
	cfg.UploadDir = t.TempDir()
	cfg.MaxUploadBytes = 1 << 20
	cfg.MaxMessageBytes = 256
	cfg.RateLimitPerMinute = 0
	if mutate != nil {
		mutate(&cfg)
	}

	st, err := sqlite.New(":memory:")
	require.NoError(t, err, "failed to create test store")
	t.Cleanup(func() { _ = st.Close() })

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}, cfg.StaffEmails)

	objects, err := objectstore.NewLocal(cfg.UploadDir, cfg.UploadBaseURL, cfg.MaxUploadBytes, nil)
	require.NoError(t, err, "failed to create object store")

	hub := core.NewHub(st, core.Options{MaxBodyBytes: cfg.MaxMessageBytes}, nil)
	server := NewServer(Deps{
		Hub:     hub,
		Auth:    authService,
		Catalog: catalog.New(st),
		Orders:  orders.New(st, st, objects, nil),
	}, &cfg, nil)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, store: st, auth: authService, hub: hub, cfg: cfg}
}

func (e *testEnv) register(t *testing.T, email string) AuthResponse {
	t.Helper()

	var out AuthResponse
	resp := e.doJSON(t, http.MethodPost, "/api/register", "", CredentialsRequest{Email: email, Password: "secret123"}, &out)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "register %s", email)
	return out
}

// doJSON sends body as JSON and decodes the response into out when out is not nil.
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body, out any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err, "marshal body")
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err, "build request")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.do(t, req, token, out)
}

type formFile struct {
	name    string
	content []byte
}

func (e *testEnv) postOrder(t *testing.T, token string, fields map[string]string, file *formFile, out any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v), "write field")
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", file.name)
		require.NoError(t, err, "create form file")
		_, err = fw.Write(file.content)
		require.NoError(t, err, "write form file")
	}
	require.NoError(t, mw.Close(), "close multipart")

	req, err := http.NewRequest(http.MethodPost, e.ts.URL+"/api/orders", &buf)
	require.NoError(t, err, "build request")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(t, req, token, out)
}

func (e *testEnv) do(t *testing.T, req *http.Request, token string, out any) *http.Response {
	t.Helper()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err, "%s %s", req.Method, req.URL.Path)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out), "decode %s response", req.URL.Path)
	}
	return resp
}

// wireOutbound mirrors proto.Outbound with the payload left raw.
type wireOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func (e *testEnv) dial(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err, "dial")
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func writeFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	require.NoError(t, err, "marshal %s payload", typ)
	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}), "send %s", typ)
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) wireOutbound {
	t.Helper()

	var out wireOutbound
	require.NoError(t, wsjson.Read(ctx, conn, &out), "read outbound")
	return out
}

func expectEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string, data any) {
	t.Helper()

	out := readFrame(t, ctx, conn)
	require.Equal(t, proto.OutboundTypeEvent, out.Type, "expected %s event (error %+v)", event, out.Error)
	require.Equal(t, event, out.Event)
	if data != nil {
		require.NoError(t, json.Unmarshal(out.Data, data), "unmarshal %s data", event)
	}
}

func expectError(t *testing.T, ctx context.Context, conn *websocket.Conn, code string) {
	t.Helper()

	out := readFrame(t, ctx, conn)
	require.Equal(t, proto.OutboundTypeError, out.Type, "expected %s error, got %+v", code, out)
	require.NotNil(t, out.Error)
	require.Equal(t, code, out.Error.Code)
}

func join(t *testing.T, ctx context.Context, conn *websocket.Conn, userID, token string) {
	t.Helper()

	writeFrame(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{UserID: userID, Token: token})
	var joined proto.EventJoined
	expectEvent(t, ctx, conn, proto.EventNameJoined, &joined)
	if userID != "" {
		require.Equal(t, userID, joined.UserID)
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
