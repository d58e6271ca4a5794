// Package metrics contains tests for the Prometheus collectors.
package metrics

import (
	"testing"
	"time"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	if grabPagesTotal == nil || grabListingRetriesTotal == nil {
		t.Fatal("expected collectors to be registered")
	}
}

func TestObserveHelpersDoNotPanic(t *testing.T) {
	Init()

	ObservePage(PageListing, "ok", 120*time.Millisecond)
	ObservePage(PageDetail, "error", time.Second)
	ObserveListingRetry()
	ObserveAbandonedDay()
	ObserveProgramme("m1.hu")
}

func TestHandlerNotNil(t *testing.T) {
	Init()
	if Handler() == nil {
		t.Fatal("expected metrics handler")
	}
}
