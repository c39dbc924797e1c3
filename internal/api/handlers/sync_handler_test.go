package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulfillment-platform/portal/internal/application"
	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/logging"
)

const testDashboardURL = "https://portal.example.com/dashboard"

type stubConnectionRepo struct {
	states      map[string]*domain.OAuthState
	connections map[string]*domain.StoreConnection
}

func newStubConnectionRepo() *stubConnectionRepo {
	return &stubConnectionRepo{
		states:      make(map[string]*domain.OAuthState),
		connections: make(map[string]*domain.StoreConnection),
	}
}

func (r *stubConnectionRepo) SaveConnection(_ context.Context, conn *domain.StoreConnection) error {
	r.connections[conn.ClientID] = conn
	return nil
}

func (r *stubConnectionRepo) FindByClient(_ context.Context, clientID string) (*domain.StoreConnection, error) {
	conn, ok := r.connections[clientID]
	if !ok {
		return nil, domain.ErrConnectionNotFound
	}
	return conn, nil
}

func (r *stubConnectionRepo) FindByShopDomain(_ context.Context, shopDomain string) (*domain.StoreConnection, error) {
	for _, conn := range r.connections {
		if conn.ShopDomain == shopDomain {
			return conn, nil
		}
	}
	return nil, domain.ErrConnectionNotFound
}

func (r *stubConnectionRepo) SaveState(_ context.Context, state *domain.OAuthState) error {
	r.states[state.State] = state
	return nil
}

func (r *stubConnectionRepo) ConsumeState(_ context.Context, state string) (*domain.OAuthState, error) {
	stored, ok := r.states[state]
	if !ok {
		return nil, domain.ErrOAuthStateNotFound
	}
	delete(r.states, state)
	return stored, nil
}

func (r *stubConnectionRepo) DeleteExpiredStates(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type stubGateway struct{}

func (g *stubGateway) AuthorizeURL(shopDomain, state string) string {
	return "https://" + shopDomain + "/admin/oauth/authorize?state=" + state
}

func (g *stubGateway) ExchangeToken(_ context.Context, _, _ string) (*application.TokenExchange, error) {
	return &application.TokenExchange{AccessToken: "shpat_test", Scope: "read_inventory"}, nil
}

func (g *stubGateway) SetInventoryLevel(_ context.Context, _ *domain.StoreConnection, _ string, _ int) error {
	return nil
}

func newCallbackRouter(t *testing.T) (*gin.Engine, *stubConnectionRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	connections := newStubConnectionRepo()
	logger := logging.New(&logging.Config{
		Level:       logging.LevelError,
		ServiceName: "test",
		Output:      io.Discard,
	})
	service := application.NewSyncService(connections, nil, nil, nil, nil, nil,
		&stubGateway{}, nil, nil, logger, nil)
	handler := NewSyncHandler(service, testDashboardURL, logger)

	router := gin.New()
	handler.RegisterCallbackRoutes(router.Group("/oauth"))
	return router, connections
}

func doCallback(router *gin.Engine, query string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/oauth/callback"+query, nil)
	router.ServeHTTP(rec, req)
	return rec
}

func TestCallbackRedirectsToDashboardOnSuccess(t *testing.T) {
	router, connections := newCallbackRouter(t)

	state, err := domain.NewOAuthState("CL-001", "acme.myshopify.com", 10*time.Minute)
	require.NoError(t, err)
	require.NoError(t, connections.SaveState(context.Background(), state))

	rec := doCallback(router, "?code=auth-code&shop=acme.myshopify.com&state="+state.State)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testDashboardURL+"?connected=1", rec.Header().Get("Location"))

	conn, err := connections.FindByClient(context.Background(), "CL-001")
	require.NoError(t, err)
	assert.Equal(t, "acme.myshopify.com", conn.ShopDomain)
}

func TestCallbackRedirectsWithErrorFlagOnUnknownState(t *testing.T) {
	router, _ := newCallbackRouter(t)

	rec := doCallback(router, "?code=auth-code&shop=acme.myshopify.com&state=bogus")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testDashboardURL+"?error=resource_not_found", rec.Header().Get("Location"))
}

func TestCallbackRedirectsWithErrorFlagOnMissingParams(t *testing.T) {
	router, _ := newCallbackRouter(t)

	rec := doCallback(router, "?code=auth-code")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testDashboardURL+"?error=missing_parameters", rec.Header().Get("Location"))
}
