package bootstrap

import (
	"testing"
	"time"

	"github.com/eahydra/gotftp/wire"
	"github.com/stretchr/testify/assert"
)

func TestProcessOptionsBlockSizeValidation(t *testing.T) {
	cases := []struct {
		name     string
		value    string
		accepted bool
	}{
		{"minimum accepted", "8", true},
		{"below minimum dropped", "7", false},
		{"maximum accepted", "65464", true},
		{"above maximum dropped", "65465", false},
		{"non-integer dropped", "foo", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := wire.NewOptions()
			req.Set("blksize", c.value)
			accepted := ProcessOptions(req)
			_, ok := accepted.Get("blksize")
			assert.Equal(t, c.accepted, ok)
		})
	}
}

func TestProcessOptionsTimeoutValidation(t *testing.T) {
	cases := []struct {
		value    string
		accepted bool
	}{
		{"1", true},
		{"255", true},
		{"0", false},
		{"256", false},
		{"nope", false},
	}
	for _, c := range cases {
		req := wire.NewOptions()
		req.Set("timeout", c.value)
		accepted := ProcessOptions(req)
		_, ok := accepted.Get("timeout")
		assert.Equal(t, c.accepted, ok, "timeout=%s", c.value)
	}
}

func TestProcessOptionsUnknownNameDropped(t *testing.T) {
	req := wire.NewOptions()
	req.Set("rollover", "1")
	accepted := ProcessOptions(req)
	assert.Equal(t, 0, accepted.Len())
}

func TestProcessOptionsNilRequestYieldsEmpty(t *testing.T) {
	accepted := ProcessOptions(nil)
	assert.Equal(t, 0, accepted.Len())
}

func TestApplyOptionsSetsTimeoutScheduleToThreeAttempts(t *testing.T) {
	accepted := wire.NewOptions()
	accepted.Set("timeout", "2")
	cfg := &recordingConfigurer{}
	ApplyOptions(cfg, accepted)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, cfg.timeout)
}

type recordingConfigurer struct {
	blockSize uint16
	timeout   []time.Duration
	tsize     *uint64
}

func (c *recordingConfigurer) SetBlockSize(n uint16)       { c.blockSize = n }
func (c *recordingConfigurer) SetTimeout(d []time.Duration) { c.timeout = d }
func (c *recordingConfigurer) SetTSize(n *uint64)           { c.tsize = n }

func TestWatchdogDurationSumsAllButLastAttempt(t *testing.T) {
	schedule := []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}
	assert.Equal(t, 4*time.Second, watchdogDuration(schedule))
}

func TestWatchdogDurationSingleAttempt(t *testing.T) {
	schedule := []time.Duration{5 * time.Second}
	assert.Equal(t, 5*time.Second, watchdogDuration(schedule))
}
