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

// StartSignupConsumer connects to RabbitMQ, declares the user.signedup queue
// (durable), and starts consuming messages. Each event is appended to
// logs/signup.log in a single-line format. The function runs a reconnect
// loop with backoff and keeps running across broker restarts; processing
// errors are logged and the offending message rejected so the server
// continues operating.
func StartSignupConsumer() {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("signup-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeSignupLoop(conn); err != nil {
			log.Printf("signup-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeSignupLoop(conn *amqp.Connection) error {
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(signupQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	deliveries, err := ch.Consume(signupQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for d := range deliveries {
		var ev UserSignedUpEvent
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			log.Printf("signup-consumer: bad payload: %v", err)
			_ = d.Reject(false)
			continue
		}
		if err := appendSignupLog(ev); err != nil {
			log.Printf("signup-consumer: write log: %v", err)
			_ = d.Reject(true) // requeue, the disk may recover
			continue
		}
		_ = d.Ack(false)
	}
	return fmt.Errorf("delivery channel closed")
}

func appendSignupLog(ev UserSignedUpEvent) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join("logs", "signup.log"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	line := fmt.Sprintf("%s signup user=%s email=%s name=%q\n",
		ev.SignedUpAt, ev.UserID, ev.Email, ev.DisplayName)
	_, err = f.WriteString(line)
	return err
}
