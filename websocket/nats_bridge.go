package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jdvalenciag/emprende_hub/models"
	"github.com/nats-io/nats.go"
)

// subjectPrefix carries the recipient's user ID as the last token:
// messages.<user_id>.
const subjectPrefix = "messages."

// NATSBridge connects hubs on different nodes through NATS so a publish on
// any node reaches every node holding a subscription for the recipient.
// Without a bridge the hub delivers locally and behaves identically.
type NATSBridge struct {
	conn *nats.Conn
	hub  *Hub
	sub  *nats.Subscription
}

func NewNATSBridge(url string, hub *Hub) (*NATSBridge, error) {
	conn, err := nats.Connect(url,
		nats.Name("emprende-hub-chat"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	b := &NATSBridge{conn: conn, hub: hub}
	b.sub, err = conn.Subscribe(subjectPrefix+">", b.handle)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("nats subscribe: %w", err)
	}

	hub.UseBridge(b)
	log.Printf("[nats] bridge connected to %s", conn.ConnectedUrl())
	return b, nil
}

func (b *NATSBridge) publish(msg *models.Message, recipients []uuid.UUID) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[nats] marshal message %s: %v", msg.ID, err)
		return
	}
	for _, r := range recipients {
		if err := b.conn.Publish(subjectPrefix+r.String(), data); err != nil {
			log.Printf("[nats] publish to %s: %v", r, err)
		}
	}
}

func (b *NATSBridge) handle(m *nats.Msg) {
	userID, err := uuid.Parse(strings.TrimPrefix(m.Subject, subjectPrefix))
	if err != nil {
		log.Printf("[nats] bad subject %q: %v", m.Subject, err)
		return
	}
	var msg models.Message
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		log.Printf("[nats] unmarshal message: %v", err)
		return
	}
	b.hub.deliverLocal(userID, &msg)
}

// Close drains the subscription and the connection.
func (b *NATSBridge) Close() {
	if err := b.sub.Drain(); err != nil {
		log.Printf("[nats] drain subscription: %v", err)
	}
	if err := b.conn.Drain(); err != nil {
		log.Printf("[nats] drain connection: %v", err)
	}
}
