package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splitchain/internal/adapter/api"
	"splitchain/internal/adapter/api/handler"
	"splitchain/internal/adapter/api/middleware"
	"splitchain/internal/adapter/api/router"
	"splitchain/internal/adapter/repository"
	"splitchain/internal/domain/service"
	"splitchain/internal/usecase"
)

const (
	alice = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	bob   = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	carol = "0xcccccccccccccccccccccccccccccccccccccccc"
)

// newTestServer wires the full HTTP stack against the local file store in
// development auth mode, where callers identify via X-Wallet-Address.
func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	repo, err := repository.NewLocalGroupRepository(filepath.Join(t.TempDir(), "groups.json"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	groupUseCase := usecase.NewGroupUseCase(repo, nil, nil)

	e := echo.New()
	e.Validator = api.NewValidator()

	authMiddleware := middleware.NewAuthMiddleware(nil, service.NewCredentialResolver())
	handler.Setup(groupUseCase, nil, authMiddleware)
	handler.SetupHealthHandler("local")
	router.Setup(e, authMiddleware, middleware.NewRateLimiter(1000, time.Minute))

	return e
}

func doRequest(e *echo.Echo, method, path, wallet string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if wallet != "" {
		req.Header.Set("X-Wallet-Address", wallet)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "response: %s", rec.Body.String())
	return envelope.Data
}

func TestHealthCheck(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "local")
}

func TestListChains(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodGet, "/v1/chains", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Polygon")
	assert.Contains(t, rec.Body.String(), "42161")
}

func TestAuthRequired(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodGet, "/v1/groups", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(e, http.MethodGet, "/v1/groups", "not-an-address", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGroupLifecycle(t *testing.T) {
	e := newTestServer(t)

	// Alice creates a group.
	rec := doRequest(e, http.MethodPost, "/v1/groups", alice, `{"name":"Trip to Lisbon"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	group := decodeData(t, rec)
	groupID := group["id"].(string)
	assert.Equal(t, "Trip to Lisbon", group["name"])
	assert.Equal(t, alice, group["createdBy"])

	// Bob joins it.
	rec = doRequest(e, http.MethodPost, "/v1/groups/"+groupID+"/join", bob, `{}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	group = decodeData(t, rec)
	assert.Len(t, group["participants"], 2)

	// Both see it in their group lists.
	for _, wallet := range []string{alice, bob} {
		rec = doRequest(e, http.MethodGet, "/v1/groups", wallet, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), groupID)
	}

	// Carol does not.
	rec = doRequest(e, http.MethodGet, "/v1/groups", carol, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), groupID)

	// Alice closes the group.
	rec = doRequest(e, http.MethodPatch, "/v1/groups/"+groupID+"/status", alice, `{"isActive":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	group = decodeData(t, rec)
	assert.Equal(t, false, group["isActive"])

	// And deletes it.
	rec = doRequest(e, http.MethodDelete, "/v1/groups/"+groupID, alice, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(e, http.MethodGet, "/v1/groups/"+groupID, alice, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExpenseAndBalances(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodPost, "/v1/groups", alice, `{"name":"Flat"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	groupID := decodeData(t, rec)["id"].(string)

	rec = doRequest(e, http.MethodPost, "/v1/groups/"+groupID+"/join", bob, `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(e, http.MethodPost, "/v1/groups/"+groupID+"/join", carol, `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := fmt.Sprintf(`{"amount":90,"description":"Dinner","paidBy":"%s","splitAmong":["%s","%s","%s"]}`,
		alice, alice, bob, carol)
	rec = doRequest(e, http.MethodPost, "/v1/groups/"+groupID+"/expenses", alice, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	expense := decodeData(t, rec)
	assert.Equal(t, "USDC", expense["currency"])

	rec = doRequest(e, http.MethodGet, "/v1/groups/"+groupID+"/balances", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			Balances []struct {
				Address   string  `json:"address"`
				NetAmount float64 `json:"netAmount"`
			} `json:"balances"`
			Transfers []struct {
				From   string  `json:"from"`
				To     string  `json:"to"`
				Amount float64 `json:"amount"`
			} `json:"transfers"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))

	require.Len(t, envelope.Data.Balances, 3)
	assert.Equal(t, alice, envelope.Data.Balances[0].Address)
	assert.InDelta(t, 60.0, envelope.Data.Balances[0].NetAmount, 1e-9)

	require.Len(t, envelope.Data.Transfers, 2)
	for _, transfer := range envelope.Data.Transfers {
		assert.Equal(t, alice, transfer.To)
		assert.InDelta(t, 30.0, transfer.Amount, 1e-9)
	}
}

func TestExpenseValidation(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodPost, "/v1/groups", alice, `{"name":"Flat"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	groupID := decodeData(t, rec)["id"].(string)

	// Empty split is rejected before it can reach the store.
	body := fmt.Sprintf(`{"amount":10,"paidBy":"%s","splitAmong":[]}`, alice)
	rec = doRequest(e, http.MethodPost, "/v1/groups/"+groupID+"/expenses", alice, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "split among at least one participant")

	// So is a malformed payer address.
	body = fmt.Sprintf(`{"amount":10,"paidBy":"nope","splitAmong":["%s"]}`, alice)
	rec = doRequest(e, http.MethodPost, "/v1/groups/"+groupID+"/expenses", alice, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettlementRecording(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodPost, "/v1/groups", alice, `{"name":"Flat"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	groupID := decodeData(t, rec)["id"].(string)

	rec = doRequest(e, http.MethodPost, "/v1/groups/"+groupID+"/join", bob, `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := fmt.Sprintf(`{"to":"%s","amount":30,"fromChain":137,"toChain":42161}`, alice)
	rec = doRequest(e, http.MethodPost, "/v1/groups/"+groupID+"/settlements", bob, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	settlement := decodeData(t, rec)
	assert.Equal(t, bob, settlement["from"])
	assert.Equal(t, "pending", settlement["status"])

	rec = doRequest(e, http.MethodGet, "/v1/groups/"+groupID, alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	group := decodeData(t, rec)
	assert.Len(t, group["settlements"], 1)
}
