package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewDevelopmentLogger(t *testing.T) {
	l, err := New("development")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer l.Sync()

	if !l.Core().Enabled(zap.DebugLevel) {
		t.Errorf("development logger should enable debug level")
	}
}

func TestNewProductionLogger(t *testing.T) {
	l, err := New("production")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer l.Sync()

	if l.Core().Enabled(zap.DebugLevel) {
		t.Errorf("production logger should not enable debug level")
	}
	if !l.Core().Enabled(zap.InfoLevel) {
		t.Errorf("production logger should enable info level")
	}
}
