// Package mqttsink is an optional ambient consumer of the L4 tracer:
// it publishes every trace.Record to an MQTT topic for a remote
// dashboard, entirely outside the debug protocol itself.
package mqttsink

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/juju/errors"

	"github.com/mongoose-os/pico2swd-riscv/riscv/trace"
)

// publisher is the slice of mqtt.Client this package actually drives;
// accepting it instead of the full client interface lets tests swap in
// a fake broker connection without dialing a real one.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Sink publishes trace records to a single MQTT topic, one retained-
// false JSON message per record.
type Sink struct {
	cli   publisher
	topic string
	qos   byte
}

// wireRecord is the JSON shape published for each trace.Record; Regs
// is omitted unless HasRegs was set, so a sink running without
// register capture doesn't spam 32 zeroes over the wire.
type wireRecord struct {
	PC          uint32     `json:"pc"`
	Instruction uint32     `json:"instruction"`
	Regs        *[32]uint32 `json:"regs,omitempty"`
}

// Dial connects to the broker at url (e.g. "tcp://localhost:1883")
// and returns a Sink ready to publish on topic.
func Dial(url, clientID, topic string, qos byte) (*Sink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(url).
		SetClientID(clientID).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			glog.Warningf("mqttsink: connection to %s lost: %s", url, err)
		})
	cli := mqtt.NewClient(opts)
	token := cli.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, errors.Annotatef(err, "connecting to %s", url)
	}
	glog.V(1).Infof("mqttsink: connected to %s, publishing on %s", url, topic)
	return &Sink{cli: cli, topic: topic, qos: qos}, nil
}

// Callback adapts Sink to trace.Callback: publish the record, always
// continue the trace (a dropped publish never aborts debugging).
func (s *Sink) Callback() trace.Callback {
	return func(rec trace.Record) bool {
		s.Publish(rec)
		return true
	}
}

// Publish sends one record and waits at most publishTimeout for it to
// complete; publish errors and timeouts are logged, not returned, so a
// lost telemetry sample never fails a trace.
func (s *Sink) Publish(rec trace.Record) {
	wr := wireRecord{PC: rec.PC, Instruction: rec.Instruction}
	if rec.HasRegs {
		wr.Regs = &rec.Regs
	}
	payload, err := json.Marshal(wr)
	if err != nil {
		glog.Warningf("mqttsink: marshaling record: %s", err)
		return
	}
	token := s.cli.Publish(s.topic, s.qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		glog.Warningf("mqttsink: publish to %s timed out", s.topic)
		return
	}
	if err := token.Error(); err != nil {
		glog.Warningf("mqttsink: publish to %s: %s", s.topic, err)
	}
}

const publishTimeout = 2 * time.Second

// Close disconnects from the broker, waiting up to 250ms for
// in-flight publishes to drain.
func (s *Sink) Close() {
	s.cli.Disconnect(250)
}
