package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)

	defer func() {
		if recover() == nil {
			t.Error("registering twice should panic")
		}
	}()
	Register(reg)
}

func TestObserveListOp(t *testing.T) {
	before := testutil.ToFloat64(ListOperationsTotal.WithLabelValues("append", "ok"))
	failed := testutil.ToFloat64(ListOperationsTotal.WithLabelValues("append", "error"))

	ObserveListOp("append", nil)
	ObserveListOp("append", errors.New("boom"))

	if got := testutil.ToFloat64(ListOperationsTotal.WithLabelValues("append", "ok")); got != before+1 {
		t.Errorf("expected ok counter %v, got %v", before+1, got)
	}
	if got := testutil.ToFloat64(ListOperationsTotal.WithLabelValues("append", "error")); got != failed+1 {
		t.Errorf("expected error counter %v, got %v", failed+1, got)
	}
}
