package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	schedmocks "notify-dispatcher/internal/mocks/scheduler"
	ucmocks "notify-dispatcher/internal/mocks/usecase"
	"notify-dispatcher/internal/notification/delivery"
	"notify-dispatcher/internal/notification/domain"
	"notify-dispatcher/pkg/config"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutes_AuthWhenSecretConfigured(t *testing.T) {
	ctrl := gomock.NewController(t)
	uc := ucmocks.NewMockNotificationUsecase(ctrl)
	runner := schedmocks.NewMockRunner(ctrl)

	engine := NewHandler(uc, runner, &config.Config{JWTSecret: "s3cret"}).Engine()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := delivery.IssueToken("s3cret", "ops", time.Minute)
	require.NoError(t, err)
	uc.EXPECT().ListHistory(gomock.Any(), 50).Return([]*domain.HistoryRecord{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_OpenWithoutSecret(t *testing.T) {
	ctrl := gomock.NewController(t)
	uc := ucmocks.NewMockNotificationUsecase(ctrl)
	runner := schedmocks.NewMockRunner(ctrl)

	engine := NewHandler(uc, runner, &config.Config{}).Engine()

	uc.EXPECT().GetJob(gomock.Any(), "job-1").Return(nil, domain.ErrJobNotFound)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/job-1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/jobs", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
