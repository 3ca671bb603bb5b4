package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"course-checkout-api/internal/client"
	"course-checkout-api/internal/config"
	"course-checkout-api/internal/model"
	"course-checkout-api/internal/repository"
	"course-checkout-api/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	testWebhookSecret = "whsec_test"
	testAdminSecret   = "admin_jwt_test"
)

type stubGateway struct {
	customerCalls int
	chargeCalls   int
}

func (f *stubGateway) CreateCustomer(_ context.Context, _ client.CustomerData) (string, error) {
	f.customerCalls++
	return "cus_test", nil
}

func (f *stubGateway) CreateCharge(_ context.Context, _ string, _ client.CustomerData) (*client.CreateChargeResponse, error) {
	f.chargeCalls++
	return &client.CreateChargeResponse{
		ChargeID:    "bill_test",
		CheckoutURL: "https://pay.example/bill_test",
	}, nil
}

func newTestServer(t *testing.T) (*Server, repository.RegistrationRepository, *stubGateway) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Registration{}, &model.WebhookEvent{}))

	logger := zap.NewNop()
	gateway := &stubGateway{}
	mailer := client.NewMailer(&config.Mail{}, logger)

	regRepo := repository.NewRegistrationRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)

	regSvc := service.NewRegistrationService(regRepo, gateway, mailer, logger)
	recSvc := service.NewReconcilerService(regRepo, eventRepo, mailer, testWebhookSecret, logger)

	return NewServer(regSvc, recSvc, testAdminSecret, logger), regRepo, gateway
}

func doJSON(t *testing.T, srv *Server, method, target, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

const anaBody = `{"name":"Ana Silva","age":28,"email":"ana@example.com","phone":"11999990000","taxId":"12345678900"}`

func TestRegister_CreatesAndReplays(t *testing.T) {
	srv, regRepo, gateway := newTestServer(t)

	rec, body := doJSON(t, srv, http.MethodPost, "/api/students/register", anaBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["paymentRequired"])
	assert.NotEmpty(t, body["checkoutUrl"])
	registrationID := body["registrationId"].(string)
	idempotencyKey := body["idempotencyKey"].(string)
	require.NotEmpty(t, idempotencyKey)

	stored, err := regRepo.FindByID(context.Background(), registrationID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusProcessing, stored.PaymentStatus)

	// replay with the generated key returns the same registration, 200
	rec, body = doJSON(t, srv, http.MethodPost, "/api/students/register", anaBody,
		map[string]string{"Idempotency-Key": idempotencyKey})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, registrationID, body["registrationId"])
	assert.Equal(t, 1, gateway.customerCalls)
	assert.Equal(t, 1, gateway.chargeCalls)
}

func TestRegister_InvalidBody(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec, body := doJSON(t, srv, http.MethodPost, "/api/students/register",
		`{"name":"an","age":0,"email":"bad","phone":"1","taxId":"x"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", body["error"])
	assert.Len(t, body["fields"], 5)
}

func TestCheckEmail(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec, body := doJSON(t, srv, http.MethodGet, "/api/students/check-email?email=ana@example.com", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["available"])

	_, _ = doJSON(t, srv, http.MethodPost, "/api/students/register", anaBody, nil)

	rec, body = doJSON(t, srv, http.MethodGet, "/api/students/check-email?email=ana@example.com", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["available"])
}

func webhookBody(eventID string) string {
	return `{"id":"` + eventID + `","event":"billing.paid","data":{"billing":{"id":"bill_test","customer":{"email":"ana@example.com"}}}}`
}

func TestWebhook_BadSecret(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec, _ := doJSON(t, srv, http.MethodPost, "/api/payments/webhook?secret=wrong", webhookBody("evt_1"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWebhook_ApprovesAndDeduplicates(t *testing.T) {
	srv, regRepo, _ := newTestServer(t)

	rec, body := doJSON(t, srv, http.MethodPost, "/api/students/register", anaBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	registrationID := body["registrationId"].(string)

	rec, body = doJSON(t, srv, http.MethodPost, "/api/payments/webhook?secret="+testWebhookSecret, webhookBody("evt_1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "processed", body["status"])

	stored, err := regRepo.FindByID(context.Background(), registrationID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusApproved, stored.PaymentStatus)
	require.NotNil(t, stored.PaymentConfirmedAt)

	// replay with the same event id via the header variant
	rec, body = doJSON(t, srv, http.MethodPost, "/api/payments/webhook", webhookBody("evt_1"),
		map[string]string{"X-Webhook-Secret": testWebhookSecret})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "duplicate", body["status"])
}

func TestWebhook_UnknownRegistration(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec, body := doJSON(t, srv, http.MethodPost, "/api/payments/webhook?secret="+testWebhookSecret,
		`{"id":"evt_9","event":"billing.paid","data":{"billing":{"id":"bill_ghost","customer":{"email":"ghost@example.com"}}}}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body["status"])
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "admin"}).
		SignedString([]byte(testAdminSecret))
	require.NoError(t, err)
	return token
}

func TestConfirmPayment(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec, body := doJSON(t, srv, http.MethodPost, "/api/students/register", anaBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	registrationID := body["registrationId"].(string)

	// no token
	rec, _ = doJSON(t, srv, http.MethodPut, "/api/payments/confirm/"+registrationID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// valid admin token
	rec, body = doJSON(t, srv, http.MethodPut, "/api/payments/confirm/"+registrationID, "",
		map[string]string{"Authorization": "Bearer " + adminToken(t)})
	require.Equal(t, http.StatusOK, rec.Code)
	registration := body["registration"].(map[string]interface{})
	assert.Equal(t, model.PaymentStatusApproved, registration["paymentStatus"])
	assert.NotEmpty(t, registration["paymentConfirmedAt"])
}

func TestConfirmPayment_UnknownID(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec, _ := doJSON(t, srv, http.MethodPut, "/api/payments/confirm/missing", "",
		map[string]string{"Authorization": "Bearer " + adminToken(t)})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
