package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDelivery(t *testing.T) {
	before := testutil.ToFloat64(JobDeliveries.WithLabelValues(OutcomeSkipped))

	RecordDelivery(OutcomeSkipped, time.Second)

	if got := testutil.ToFloat64(JobDeliveries.WithLabelValues(OutcomeSkipped)); got != before+1 {
		t.Fatalf("skipped = %v, want %v", got, before+1)
	}

	RecordDelivery(OutcomeDelivered, 20*time.Millisecond)
	if got := testutil.ToFloat64(JobDeliveries.WithLabelValues(OutcomeDelivered)); got < 1 {
		t.Fatalf("delivered = %v, want >= 1", got)
	}
}

func TestRecordLicense(t *testing.T) {
	RecordLicense("active", true)
	if testutil.ToFloat64(LicenseActive) != 1 {
		t.Fatalf("license gauge not set")
	}
	RecordLicense("inactive", false)
	if testutil.ToFloat64(LicenseActive) != 0 {
		t.Fatalf("license gauge not cleared")
	}
}

func TestSetPolling(t *testing.T) {
	SetPolling(true)
	if testutil.ToFloat64(Polling) != 1 {
		t.Fatalf("polling gauge not set")
	}
	SetPolling(false)
	if testutil.ToFloat64(Polling) != 0 {
		t.Fatalf("polling gauge not cleared")
	}
}
