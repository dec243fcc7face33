package telemetry

import (
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledIsNoop(t *testing.T) {
	require.False(t, enabled.Load())

	// must not panic and must not register samples
	ObserveMerge("set", 100, 4800)
	ObserveWorkerError()

	Serve("", nil)
	assert.False(t, enabled.Load(), "an empty address must leave telemetry off")
}

func TestServeExposesCounters(t *testing.T) {
	const addr = "127.0.0.1:19712"

	Serve(addr, nil)
	t.Cleanup(func() { enabled.Store(false) })

	ObserveMerge("set", 42, 1344)

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		body = string(data)
		return true
	}, 5*time.Second, 50*time.Millisecond)

	assert.Contains(t, body, `cbench_ops_total{bench="set"} 42`)
	assert.Contains(t, body, `cbench_bytes_total{bench="set"} 1344`)
}
