package keyring

import (
	"errors"
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

func TestSetGetDelete(t *testing.T) {
	gokeyring.MockInit()

	dsn := "postgres://wroklog@localhost:5432/wroklog?sslmode=disable"
	if err := Set(DatabaseDSN, dsn); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	got, err := Get(DatabaseDSN)
	if err != nil || got != dsn {
		t.Fatalf("Get() = %q, %v", got, err)
	}
	if err := Delete(DatabaseDSN); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := Get(DatabaseDSN); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want %v", err, ErrNotFound)
	}
	if err := Delete(DatabaseDSN); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want %v", err, ErrNotFound)
	}
}

func TestSetRejectsEmpty(t *testing.T) {
	gokeyring.MockInit()
	if err := Set(SummaryAPIKey, ""); err == nil {
		t.Error("Set with empty value should return an error")
	}
}

func TestFallback(t *testing.T) {
	gokeyring.MockInit()

	if got := Fallback("from-config", SummaryAPIKey); got != "from-config" {
		t.Errorf("Fallback kept %q", got)
	}
	if got := Fallback("", SummaryAPIKey); got != "" {
		t.Errorf("Fallback with empty keyring = %q", got)
	}
	_ = Set(SummaryAPIKey, "sk-test")
	if got := Fallback("", SummaryAPIKey); got != "sk-test" {
		t.Errorf("Fallback = %q, want keyring value", got)
	}
}

func TestParseSecret(t *testing.T) {
	if _, err := ParseSecret("database-dsn"); err != nil {
		t.Errorf("ParseSecret(database-dsn) = %v", err)
	}
	if _, err := ParseSecret("password"); err == nil {
		t.Error("ParseSecret(password) should fail")
	}
}
