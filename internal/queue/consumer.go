// Background consumer for the catalogue audit queue. It appends one line
// per organiser mutation to logs/audit.log so there is a durable trail of
// who changed what, independent of the primary database.
package queue

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartAuditConsumer connects to RabbitMQ at brokerURL, declares the
// durable audit queue and consumes it forever. It runs a reconnect loop
// with exponential backoff and never returns under normal operation;
// processing errors are logged and the offending message rejected without
// requeue so the stream keeps moving.
func StartAuditConsumer(brokerURL, queueName string) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL)
		if err != nil {
			log.Printf("audit-consumer: dial failed: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeAudit(conn, queueName); err != nil {
			log.Printf("audit-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeAudit(conn *amqp.Connection, queueName string) error {
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("audit-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := appendAuditLine(d.Body); err != nil {
			log.Printf("audit-consumer: handle message failed: %v", err)
			_ = d.Reject(false)
			continue
		}
		_ = d.Ack(false)
	}
	return fmt.Errorf("delivery channel closed")
}

// appendAuditLine renders one event as a single human-readable line in
// logs/audit.log.
func appendAuditLine(body []byte) error {
	var ev AuditEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	if err := os.MkdirAll("logs", 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join("logs", "audit.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	when := ev.OccurredAt
	if when == "" {
		when = time.Now().UTC().Format(time.RFC3339)
	}
	line := fmt.Sprintf("%s action=%s actor=%d role=%s %s=%d name=%q\n",
		when, ev.Action, ev.ActorID, ev.ActorRole, ev.EntityType, ev.EntityID, ev.EntityName)
	_, err = f.WriteString(line)
	return err
}
