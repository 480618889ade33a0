package db

import (
	"errors"
	"testing"

	"gorm.io/gorm"
)

func TestConnectWithRetryReportsLastError(t *testing.T) {
	dialErr := errors.New("dial refused")
	pingErr := errors.New("ping timeout")

	attempt := 0
	_, err := connectWithRetry(func() (*gorm.DB, error) {
		attempt++
		if attempt < 3 {
			return nil, dialErr
		}
		return nil, pingErr
	}, 3, 0)

	if attempt != 3 {
		t.Fatalf("attempts = %d, want 3", attempt)
	}
	if !errors.Is(err, pingErr) {
		t.Errorf("err = %v, want the final attempt's error", err)
	}
}

func TestConnectWithRetryStopsOnSuccess(t *testing.T) {
	want := &gorm.DB{}

	attempt := 0
	db, err := connectWithRetry(func() (*gorm.DB, error) {
		attempt++
		if attempt < 2 {
			return nil, errors.New("not ready")
		}
		return want, nil
	}, 5, 0)

	if err != nil {
		t.Fatalf("err = %v, want success", err)
	}
	if db != want {
		t.Error("returned handle is not the opened one")
	}
	if attempt != 2 {
		t.Errorf("attempts = %d, want 2 (no retries after success)", attempt)
	}
}

func TestConnectWithRetryImmediateSuccess(t *testing.T) {
	want := &gorm.DB{}
	db, err := connectWithRetry(func() (*gorm.DB, error) {
		return want, nil
	}, 10, 0)

	if err != nil || db != want {
		t.Fatalf("db, err = %v, %v; want first attempt to succeed", db, err)
	}
}
