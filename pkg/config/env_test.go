package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestGetEnvWithDefault(t *testing.T) {
	t.Setenv("FOO", "")
	if got := GetEnv("FOO", "bar"); got != "bar" {
		t.Fatalf("expected bar, got %s", got)
	}
	t.Setenv("FOO", "baz")
	if got := GetEnv("FOO", "bar"); got != "baz" {
		t.Fatalf("expected baz, got %s", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("NUM", "")
	if got := GetEnvInt("NUM", 42); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	t.Setenv("NUM", "100")
	if got := GetEnvInt("NUM", 42); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
	t.Setenv("NUM", "notint")
	if got := GetEnvInt("NUM", 7); got != 7 {
		t.Fatalf("expected 7 on parse error, got %d", got)
	}
}

func TestGetEnvMillis(t *testing.T) {
	t.Setenv("INTERVAL_MS", "")
	if got := GetEnvMillis("INTERVAL_MS", 30*time.Second); got != 30*time.Second {
		t.Fatalf("expected default, got %v", got)
	}
	t.Setenv("INTERVAL_MS", "1500")
	if got := GetEnvMillis("INTERVAL_MS", 30*time.Second); got != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s, got %v", got)
	}
	t.Setenv("INTERVAL_MS", "-5")
	if got := GetEnvMillis("INTERVAL_MS", time.Second); got != time.Second {
		t.Fatalf("expected default on negative, got %v", got)
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("ORIGINS", "")
	if got := GetEnvList("ORIGINS", []string{"*"}); len(got) != 1 || got[0] != "*" {
		t.Fatalf("expected default list, got %v", got)
	}
	t.Setenv("ORIGINS", "http://a.test, http://b.test ,")
	got := GetEnvList("ORIGINS", nil)
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Fatalf("unexpected list: %v", got)
	}
}

func TestGetLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	if GetLogLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level")
	}
	t.Setenv("LOG_LEVEL", "")
	if GetLogLevel() != logrus.InfoLevel {
		t.Fatalf("expected info default")
	}
}
