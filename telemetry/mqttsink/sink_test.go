package mqttsink

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/mongoose-os/pico2swd-riscv/riscv/trace"
)

// fakeToken is a completed mqtt.Token: Wait/WaitTimeout return
// immediately with the outcome baked in at construction.
type fakeToken struct{ err error }

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }

// fakePublisher stands in for a broker connection: it records every
// published message instead of putting it on a wire.
type fakePublisher struct {
	published []fakePublish
	tokenErr  error
	disconnected bool
}

type fakePublish struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.published = append(p.published, fakePublish{topic, qos, retained, payload.([]byte)})
	return fakeToken{err: p.tokenErr}
}

func (p *fakePublisher) Disconnect(quiesce uint) { p.disconnected = true }

func TestPublishOmitsRegsWhenNotCaptured(t *testing.T) {
	pub := &fakePublisher{}
	s := &Sink{cli: pub, topic: "swddbg/trace", qos: 1}

	s.Publish(trace.Record{PC: 0x2000, Instruction: 0x13})

	require.Len(t, pub.published, 1)
	require.Equal(t, "swddbg/trace", pub.published[0].topic)
	require.Equal(t, byte(1), pub.published[0].qos)
	require.False(t, pub.published[0].retained)

	var wr wireRecord
	require.NoError(t, json.Unmarshal(pub.published[0].payload, &wr))
	require.Equal(t, uint32(0x2000), wr.PC)
	require.Nil(t, wr.Regs)
}

func TestPublishIncludesRegsWhenCaptured(t *testing.T) {
	pub := &fakePublisher{}
	s := &Sink{cli: pub, topic: "swddbg/trace", qos: 0}

	var regs [32]uint32
	regs[5] = 0x99
	s.Publish(trace.Record{PC: 0x3000, Regs: regs, HasRegs: true})

	var wr wireRecord
	require.NoError(t, json.Unmarshal(pub.published[0].payload, &wr))
	require.NotNil(t, wr.Regs)
	require.Equal(t, uint32(0x99), wr.Regs[5])
}

func TestPublishSwallowsTokenError(t *testing.T) {
	pub := &fakePublisher{tokenErr: errors.New("broker down")}
	s := &Sink{cli: pub, topic: "swddbg/trace", qos: 0}

	require.NotPanics(t, func() {
		s.Publish(trace.Record{PC: 0x1})
	})
	require.Len(t, pub.published, 1)
}

func TestCallbackAlwaysContinuesTrace(t *testing.T) {
	pub := &fakePublisher{}
	s := &Sink{cli: pub, topic: "swddbg/trace", qos: 0}

	cont := s.Callback()(trace.Record{PC: 0x4000})
	require.True(t, cont)
	require.Len(t, pub.published, 1)
}

func TestCloseDisconnects(t *testing.T) {
	pub := &fakePublisher{}
	s := &Sink{cli: pub, topic: "swddbg/trace", qos: 0}

	s.Close()
	require.True(t, pub.disconnected)
}
