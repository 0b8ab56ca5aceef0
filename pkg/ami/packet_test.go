package ami_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stumpfworks/asterisk-ami/pkg/ami"
)

func TestPacketAddAndGet(t *testing.T) {
	p := ami.NewPacket()
	p.Add("Action", "Login")
	p.Add("Username", "admin")

	v, ok := p.Get("Action")
	require.True(t, ok)
	assert.Equal(t, "Login", v)

	_, ok = p.Get("Missing")
	assert.False(t, ok)
}

func TestPacketRepeatedHeadersAccumulate(t *testing.T) {
	p := ami.NewPacket()
	p.Add("Variable", "A=1")
	p.Add("Variable", "B=2")

	assert.Equal(t, []string{"A=1", "B=2"}, p.Values("Variable"))
	first, ok := p.Get("Variable")
	require.True(t, ok)
	assert.Equal(t, "A=1", first)
}

func TestPacketSetReplacesAllValues(t *testing.T) {
	p := ami.NewPacket()
	p.Add("ActionID", "old-1")
	p.Add("ActionID", "old-2")
	p.Set("ActionID", "new-1")

	assert.Equal(t, []string{"new-1"}, p.Values("ActionID"))
}

func TestPacketDeleteRemovesKeyAndOrder(t *testing.T) {
	p := ami.NewPacket()
	p.Set("Action", "Ping")
	p.Set("ActionID", "abc")
	p.Delete("ActionID")

	assert.False(t, p.Has("ActionID"))
	assert.Equal(t, []string{"Action"}, p.Keys())

	// Deleting an absent key is a no-op, not a panic.
	p.Delete("ActionID")
}

func TestPacketHasSuffix(t *testing.T) {
	p := ami.NewPacket()
	p.Set("Message", "Originate successfully queued")
	assert.True(t, p.HasSuffix("Message", "successfully queued"))
	assert.False(t, p.HasSuffix("Message", "rejected"))
	assert.False(t, p.HasSuffix("Missing", "x"))
}

func TestPacketCloneIsIndependent(t *testing.T) {
	p := ami.NewPacket()
	p.Add("Action", "Originate")
	p.Add("Variable", "X=1")

	clone := p.Clone()
	clone.Add("Variable", "Y=2")
	clone.Set("Action", "Hangup")

	assert.Equal(t, []string{"X=1"}, p.Values("Variable"))
	assert.Equal(t, []string{"X=1", "Y=2"}, clone.Values("Variable"))
	first, _ := p.Get("Action")
	assert.Equal(t, "Originate", first)
}

func TestPacketFromMapAndToMap(t *testing.T) {
	m := map[string]string{"Action": "Login", "Secret": "hunter2"}
	p := ami.PacketFromMap(m)
	assert.Equal(t, m, p.ToMap())
}

func TestSubscriptionWildcardMatchesEverything(t *testing.T) {
	p := ami.NewPacket()
	p.Set("Event", "PeerStatus")

	matched := false
	sub := ami.Subscription{Pattern: "*", Callback: func(*ami.Packet) { matched = true }}
	// matches is unexported; exercise it indirectly through Dispatcher.
	d := ami.NewDispatcher(ami.NewActionRegistry(nil, ami.NewIdGenerator("t")), func() {})
	defer d.Close()
	d.Subscribe(sub.Pattern, sub.Callback)
	d.Dispatch(p)

	require.Eventually(t, func() bool { return matched }, assertEventuallyWait, assertEventuallyTick)
}
