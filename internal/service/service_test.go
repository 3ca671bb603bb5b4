package service

import (
	"context"
	"path/filepath"
	"testing"

	"course-checkout-api/internal/client"
	"course-checkout-api/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Registration{}, &model.WebhookEvent{}))

	return db
}

type fakeGateway struct {
	customerCalls int
	chargeCalls   int
	customerErr   error
	chargeErr     error
}

func (f *fakeGateway) CreateCustomer(_ context.Context, _ client.CustomerData) (string, error) {
	f.customerCalls++
	if f.customerErr != nil {
		return "", f.customerErr
	}
	return "cus_test", nil
}

func (f *fakeGateway) CreateCharge(_ context.Context, _ string, _ client.CustomerData) (*client.CreateChargeResponse, error) {
	f.chargeCalls++
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	return &client.CreateChargeResponse{
		ChargeID:    "bill_test",
		CheckoutURL: "https://pay.example/bill_test",
	}, nil
}

type fakeMailer struct {
	sent chan string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{sent: make(chan string, 8)}
}

func (f *fakeMailer) SendConfirmation(_ context.Context, to, _, _ string) error {
	f.sent <- to
	return nil
}
