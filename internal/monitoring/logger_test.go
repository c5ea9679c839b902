package monitoring

import (
	"testing"
)

func TestSetLogger(t *testing.T) {
	origLogf, origWarnf := Logf, Warnf
	defer func() { Logf, Warnf = origLogf, origWarnf }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("custom logger was not called")
	}

	// Warnings route through the same replacement logger.
	called = false
	Warnf("degraded accuracy")
	if !called {
		t.Error("custom logger was not called via Warnf")
	}

	// nil installs a no-op for both loggers.
	called = false
	SetLogger(nil)
	Logf("test")
	Warnf("test")
	if called {
		t.Error("no-op logger should not have triggered callback")
	}
}

func TestDefaultLoggersNotNil(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
	if Warnf == nil {
		t.Error("Warnf should not be nil by default")
	}
}
