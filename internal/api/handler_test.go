package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	h := NewHandler(nil, nil, nil, "partner-key", "admin-key")
	h.SetupRoutes(router)
	return router
}

func TestPartnerEndpointsRequireKey(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/openapi/giftcard/allocate?giftType=0", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPartnerKeyWrongValueRejected(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/openapi/giftcard/allocate?giftType=0", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAllocateRequiresGiftType(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/openapi/giftcard/allocate", nil)
	req.Header.Set("Authorization", "Bearer partner-key")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "giftType")
}

func TestAllocateRejectsUnknownGiftType(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/openapi/giftcard/allocate?giftType=9", nil)
	req.Header.Set("Authorization", "Bearer partner-key")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfirmRejectsNonTerminalStatus(t *testing.T) {
	router := newTestRouter()

	body := `{"code":"abc","status":"RESERVED","usage_type":"2"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/openapi/giftcard/confirm", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer partner-key")
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "USED or ERROR")
}

func TestConfirmRejectsMissingFields(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/openapi/giftcard/confirm", strings.NewReader(`{"code":"abc"}`))
	req.Header.Set("Authorization", "Bearer partner-key")
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminListRejectsBadDate(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cards?beginTime=not-a-date", nil)
	req.Header.Set("Authorization", "Bearer admin-key")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminDeleteRejectsBadIDs(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cards/1,abc", nil)
	req.Header.Set("Authorization", "Bearer admin-key")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthOpenWithoutKey(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
