package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestInit(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		l, err := Init(LogConfig{Level: "debug", Environment: env, ServiceName: "sales"})
		if err != nil {
			t.Fatalf("%s: init: %v", env, err)
		}
		if GetLogger() != l {
			t.Fatalf("%s: GetLogger must return the initialised logger", env)
		}
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected global fallback logger")
	}
	scoped := zap.NewNop().With(zap.String("request_id", "abc"))
	ctx := WithContext(context.Background(), scoped)
	if FromContext(ctx) != scoped {
		t.Fatal("expected scoped logger from context")
	}
}
