package database

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestConnectRejectsMalformedDSN(t *testing.T) {
	_, err := Connect(context.Background(), "://not-a-dsn", zap.NewNop())
	if err == nil {
		t.Fatal("expected an error for a malformed dsn")
	}
}
