package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/taoyao-code/camera-bridge/internal/bcs"
)

func TestAppMetrics_Observer(t *testing.T) {
	reg := NewRegistry()
	m := NewAppMetrics(reg)

	key := bcs.Frame(bcs.BuildGain(3)).Key()
	m.FrameSubmitted(key, false)
	m.FrameSubmitted(key, true)
	m.FrameWritten(key, nil)
	m.FrameWritten(key, errors.New("gatt"))
	m.NotificationHandled(bcs.AddrManualWB, "filtered")
	m.ListenerPanicked(bcs.AddrGain)
	m.Published("mqtt", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesSubmitted.WithLabelValues("1.13")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesCoalesced))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WritesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WritesTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationTotal.WithLabelValues("1.2", "filtered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ListenerPanics))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishTotal.WithLabelValues("mqtt", "ok")))
}
