package domain

import (
	"testing"
	"time"
)

func TestCancellationToken_Cancel(t *testing.T) {
	token := NewCancellationToken()

	if token.Cancelled() {
		t.Fatal("fresh token reports cancelled")
	}
	if !token.RequestedAt().IsZero() {
		t.Fatal("fresh token carries a request time")
	}

	token.Cancel()

	if !token.Cancelled() {
		t.Fatal("token not cancelled after Cancel")
	}
	select {
	case <-token.Done():
	default:
		t.Fatal("Done channel not closed after Cancel")
	}
	if token.RequestedAt().IsZero() {
		t.Fatal("request time not recorded")
	}
}

func TestCancellationToken_CancelIsIdempotent(t *testing.T) {
	token := NewCancellationToken()

	token.Cancel()
	first := token.RequestedAt()

	time.Sleep(5 * time.Millisecond)
	token.Cancel()

	if !token.RequestedAt().Equal(first) {
		t.Fatal("second Cancel moved the request time")
	}
}
