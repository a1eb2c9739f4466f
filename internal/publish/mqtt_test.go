package publish

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/camera-bridge/internal/bcs"
	cfgpkg "github.com/taoyao-code/camera-bridge/internal/config"
)

type doneToken struct {
	err error
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Error() error                   { return t.err }

func (t *doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient 只实现发布路径用到的方法
type fakeClient struct {
	mqtt.Client
	mu           sync.Mutex
	open         bool
	err          error
	msgs         []message
	disconnected bool
}

func (c *fakeClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.msgs = append(c.msgs, message{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	}
	return &doneToken{err: c.err}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	c.disconnected = true
	c.open = false
	c.mu.Unlock()
}

func newPublisher(client *fakeClient) *Publisher {
	p := New(client, cfgpkg.MQTTConfig{TopicPrefix: "studio/", QoS: 1, Retained: true}, zap.NewNop())
	p.now = func() time.Time { return time.UnixMilli(1000) }
	return p
}

func TestPublisher_Topic(t *testing.T) {
	p := newPublisher(&fakeClient{open: true})
	assert.Equal(t, "studio/A/white_balance", p.Topic("A", bcs.WhiteBalance{}))
	assert.Equal(t, "studio/A/unparsed/10.1", p.Topic("A", bcs.Unparsed{Addr: bcs.Address{Category: 10, Parameter: 1}}))

	bare := New(&fakeClient{}, cfgpkg.MQTTConfig{}, nil)
	assert.Equal(t, "A/gain", bare.Topic("A", bcs.Gain{}))
}

func TestPublisher_PublishAndSkipUnchanged(t *testing.T) {
	client := &fakeClient{open: true}
	p := newPublisher(client)
	ctx := context.Background()

	sent, err := p.Publish(ctx, "A", bcs.ShutterAngle{Degrees: 180})
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = p.Publish(ctx, "A", bcs.ShutterAngle{Degrees: 180})
	require.NoError(t, err)
	assert.False(t, sent)

	sent, err = p.Publish(ctx, "A", bcs.ShutterAngle{Degrees: 90})
	require.NoError(t, err)
	assert.True(t, sent)

	require.Len(t, client.msgs, 2)
	m := client.msgs[0]
	assert.Equal(t, "studio/A/shutter_angle", m.topic)
	assert.Equal(t, byte(1), m.qos)
	assert.True(t, m.retained)

	var ev struct {
		Camera    string          `json:"camera"`
		Kind      string          `json:"kind"`
		Address   string          `json:"address"`
		Timestamp int64           `json:"timestamp"`
		Value     json.RawMessage `json:"value"`
	}
	require.NoError(t, json.Unmarshal(m.payload, &ev))
	assert.Equal(t, "A", ev.Camera)
	assert.Equal(t, "shutter_angle", ev.Kind)
	assert.Equal(t, "1.11", ev.Address)
	assert.Equal(t, int64(1000), ev.Timestamp)
	assert.JSONEq(t, `{"degrees":180}`, string(ev.Value))
}

func TestPublisher_ForgetRepublishes(t *testing.T) {
	client := &fakeClient{open: true}
	p := newPublisher(client)
	ctx := context.Background()

	_, _ = p.Publish(ctx, "A", bcs.Gain{DB: 6})
	_, _ = p.Publish(ctx, "B", bcs.Gain{DB: 6})
	p.Forget("A")

	sentA, _ := p.Publish(ctx, "A", bcs.Gain{DB: 6})
	sentB, _ := p.Publish(ctx, "B", bcs.Gain{DB: 6})
	assert.True(t, sentA)
	assert.False(t, sentB)
}

func TestPublisher_Errors(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client)
	_, err := p.Publish(context.Background(), "A", bcs.Gain{DB: 1})
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, p.Connected())

	client.open = true
	client.err = errors.New("not authorized")
	_, err = p.Publish(context.Background(), "A", bcs.Gain{DB: 1})
	assert.Error(t, err)

	// 失败后不记入去重
	client.err = nil
	sent, err := p.Publish(context.Background(), "A", bcs.Gain{DB: 1})
	require.NoError(t, err)
	assert.True(t, sent)

	p.Close()
	assert.True(t, client.disconnected)
}
