package shell

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/behrlich/go-seq/internal/pv/loopback"
	"github.com/behrlich/go-seq/internal/registry"
	"github.com/behrlich/go-seq/internal/runtime"
	"github.com/behrlich/go-seq/internal/vartype"
)

func simpleTable(name string) *runtime.ProgramTable {
	return &runtime.ProgramTable{
		Name:       name,
		NumEvFlags: 1,
		Channels: []runtime.ChannelDesc{
			{VarName: "x", Tag: vartype.Long, Count: 1, PVName: "pv:x", Monitor: true},
		},
		StateSets: []runtime.StateSetDesc{
			{
				Name: "ss1",
				States: []runtime.StateDesc{
					{
						Name: "init",
						Event: func(ss *runtime.StateSet) (int, bool) {
							return 0, false
						},
					},
				},
			},
		},
	}
}

func TestSeqShowAndStop(t *testing.T) {
	reg := registry.New()
	client := loopback.New()
	p, err := runtime.Start(simpleTable("demo"), "", client, reg, nil)
	require.NoError(t, err)
	defer p.Stop()

	time.Sleep(20 * time.Millisecond)

	out := SeqShow(reg, "")
	assert.Contains(t, out, "demo[0]")

	thread := "demo#0"
	detail := SeqShow(reg, thread)
	assert.Contains(t, detail, "state set \"ss1\"")

	chans := SeqChanShow(reg, thread, "")
	assert.Contains(t, chans, "x")

	stopped := SeqStop(reg, thread)
	assert.Contains(t, stopped, "stopped")

	assert.Empty(t, reg.Find("demo"))
}

func TestSeqcarLevels(t *testing.T) {
	reg := registry.New()
	client := loopback.New()
	p, err := runtime.Start(simpleTable("car"), "", client, reg, nil)
	require.NoError(t, err)
	defer p.Stop()

	time.Sleep(20 * time.Millisecond)

	out := Seqcar(reg, 2)
	assert.Contains(t, out, "car[0]")
	assert.Contains(t, out, "pv=pv:x")
}

func TestChanFilterParsing(t *testing.T) {
	connected, disconnected, substr := parseChanFilter("+foo")
	assert.True(t, connected)
	assert.False(t, disconnected)
	assert.Equal(t, "foo", substr)

	connected, disconnected, substr = parseChanFilter("-bar")
	assert.False(t, connected)
	assert.True(t, disconnected)
	assert.Equal(t, "bar", substr)

	connected, disconnected, substr = parseChanFilter("baz")
	assert.False(t, connected)
	assert.False(t, disconnected)
	assert.Equal(t, "baz", substr)
}
