package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printforge/teepress/pkg/models"
)

func newTestService(t *testing.T) (*Service, *fakeClient) {
	t.Helper()
	client := &fakeClient{}
	client.submitFn = func(int) (*models.FulfillmentOrder, error) {
		return okOrder(client.submitted[len(client.submitted)-1]), nil
	}
	return &Service{
		e:            echo.New(),
		cfg:          testConfig(),
		orchestrator: newTestOrchestrator(t, client),
		keywords:     []string{"tshirt", "t-shirt", "shirt", "merch"},
	}, client
}

func TestCreateTee(t *testing.T) {
	s, client := newTestService(t)

	body := `{"message":"I want a t-shirt that says \"Hello World\"","user_id":"u1","username":"user one"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tee", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := s.e.NewContext(req, rec)

	require.NoError(t, s.CreateTee(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Contains(t, rec.Body.String(), "teemill.com/order")
	assert.Equal(t, 1, client.submitCalls)
}

func TestCreateTeeRejectsMissingFields(t *testing.T) {
	s, client := newTestService(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tee", strings.NewReader(`{"message":"shirt please"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := s.e.NewContext(req, rec)

	require.NoError(t, s.CreateTee(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, client.submitCalls)
}

func TestGetUserDesignsEmpty(t *testing.T) {
	s, _ := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/designs/u1", nil)
	rec := httptest.NewRecorder()
	c := s.e.NewContext(req, rec)
	c.SetParamNames("user_id")
	c.SetParamValues("u1")

	require.NoError(t, s.GetUserDesigns(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestTriggered(t *testing.T) {
	s, _ := newTestService(t)

	assert.True(t, s.triggered("Can I get a T-SHIRT with my name on it?"))
	assert.True(t, s.triggered("new merch when?"))
	assert.False(t, s.triggered("how is the weather"))
}

func TestConcurrentRequestsAreIndependent(t *testing.T) {
	s, client := newTestService(t)

	done := make(chan models.RequestOutcome, 8)
	for i := 0; i < 8; i++ {
		go func() {
			done <- s.orchestrator.HandleRequest(context.Background(),
				`shirt that says "Parallel"`, "u1", "user one")
		}()
	}
	for i := 0; i < 8; i++ {
		out := <-done
		assert.True(t, out.Success)
	}
	assert.Equal(t, 8, client.calls())
}
