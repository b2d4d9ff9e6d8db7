package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestMetricsServer(t *testing.T) {
	srv := Start(8899)
	// Give it a tiny bit of time to start up
	time.Sleep(100 * time.Millisecond)

	defer srv.Stop(context.Background())

	RecordStage("research", time.Now().Add(-1*time.Second), nil)
	RecordStage("content", time.Now(), errors.New("boom"))
	GatewayRetriesTotal.WithLabelValues("anthropic").Inc()

	resp, err := http.Get("http://localhost:8899/metrics")
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	output := string(body)

	if !strings.Contains(output, `storeforge_stage_requests_total{stage="research",status="ok"}`) {
		t.Errorf("expected ok counter for research stage")
	}

	if !strings.Contains(output, `storeforge_stage_requests_total{stage="content",status="error"}`) {
		t.Errorf("expected error counter for content stage")
	}

	if !strings.Contains(output, "storeforge_stage_duration_seconds_bucket") {
		t.Errorf("expected stage duration histogram")
	}

	if !strings.Contains(output, `storeforge_gateway_retries_total{gateway="anthropic"}`) {
		t.Errorf("expected gateway retry counter")
	}
}
