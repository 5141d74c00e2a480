package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/offerwell/intent-bench/pkg/models"
)

func TestRecorder_ObserveTrial(t *testing.T) {
	r := NewRecorder()

	r.ObserveTrial(&models.Trial{
		Model:     "qwen",
		Status:    models.TrialStatusSuccess,
		LatencyMs: 250,
		Record: &models.VerifiedRecord{
			Dropped: models.Filters{
				models.CategoryFeatures:        {"Pool", "Garage"},
				models.CategoryLocationSignals: {"Quiet"},
			},
		},
	})
	r.ObserveTrial(&models.Trial{
		Model:                "gemma",
		Status:               models.TrialStatusFailed,
		LatencyMs:            1500,
		UsedFallbackTemplate: true,
	})
	r.ObserveTrial(&models.Trial{Model: "qwen", Status: models.TrialStatusFailed, LatencyMs: 100})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.TrialsTotal.WithLabelValues("qwen", "SUCCESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.TrialsTotal.WithLabelValues("qwen", "FAILED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.TrialsTotal.WithLabelValues("gemma", "FAILED")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.DroppedTagsTotal.WithLabelValues("qwen")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.FallbackPromptsTotal.WithLabelValues("gemma")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.TrialLatencySeconds))
}

func TestRecorder_ObserveModelLoadFailure(t *testing.T) {
	r := NewRecorder()

	r.ObserveModelLoadFailure("phi")
	r.ObserveModelLoadFailure("phi")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.ModelLoadFailuresTotal.WithLabelValues("phi")))
}

func TestRecorder_IsolatedRegistries(t *testing.T) {
	// Two recorders in one process must not panic on duplicate registration.
	a := NewRecorder()
	b := NewRecorder()

	a.ObserveModelLoadFailure("x")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ModelLoadFailuresTotal.WithLabelValues("x")))
}

func TestServer_ServesMetrics(t *testing.T) {
	r := NewRecorder()
	r.ObserveTrial(&models.Trial{Model: "qwen", Status: models.TrialStatusSuccess, LatencyMs: 10})

	srv := NewServer("127.0.0.1:0", r, zap.NewNop())
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `intent_bench_trials_total{model="qwen",status="SUCCESS"} 1`))
}
