// Package mqtt forwards received messages to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"soundchat/internal/conf"
	"soundchat/internal/errors"
	"soundchat/pkg/modem"
)

const publishTimeout = 5 * time.Second

// Client is the part of paho.Client the publisher uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

type Message struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Bits      string    `json:"bits"`
	Bytes     []int     `json:"bytes"`
	Warnings  []string  `json:"warnings,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMessage(res *modem.Result, at time.Time) Message {
	msg := Message{
		ID:        uuid.New(),
		Text:      res.Text,
		Bits:      res.Bits,
		Bytes:     make([]int, 0, len(res.Symbols)),
		Timestamp: at.UTC(),
	}
	for _, b := range res.Bytes() {
		msg.Bytes = append(msg.Bytes, int(b))
	}
	for _, w := range res.Warnings {
		msg.Warnings = append(msg.Warnings, w.String())
	}
	return msg
}

type Publisher struct {
	client   Client
	settings conf.MQTTSettings
	logger   *zap.Logger
}

func NewPublisher(client Client, settings conf.MQTTSettings, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, settings: settings, logger: logger}
}

// Connect dials the broker described by settings.
func Connect(settings conf.MQTTSettings, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	clientID := settings.ClientID
	if clientID == "" {
		clientID = "soundchat-" + uuid.NewString()[:8]
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(settings.Broker)
	opts.SetClientID(clientID)
	if settings.Username != "" {
		opts.SetUsername(settings.Username)
	}
	if settings.Password != "" {
		opts.SetPassword(settings.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetOnConnectHandler(func(paho.Client) {
		logger.Info("connected to broker", zap.String("broker", settings.Broker))
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("connection to broker lost", zap.Error(err))
	})

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.New(token.Error()).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Context("broker", settings.Broker).
			Build()
	}
	return NewPublisher(client, settings, logger), nil
}

func (p *Publisher) Publish(msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	token := p.client.Publish(p.settings.Topic, p.settings.QoS, p.settings.Retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.Newf("publish timed out after %s", publishTimeout).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", p.settings.Topic).
			Build()
	}
	if err := token.Error(); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", p.settings.Topic).
			Build()
	}
	p.logger.Debug("published message", zap.String("topic", p.settings.Topic), zap.Stringer("id", msg.ID))
	return nil
}

// PublishResult publishes a decoded message stamped with the current time.
func (p *Publisher) PublishResult(res *modem.Result) (Message, error) {
	msg := NewMessage(res, time.Now())
	return msg, p.Publish(msg)
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
