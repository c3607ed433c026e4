package lib

import (
	"context"
	"encoding/json"
	"hbs/src/payments"
	"log"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSAPI is the subset of the SQS client used to publish messages.
type SQSAPI interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

func AWSGetSQSClient() *sqs.Client {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Printf("Failed to initialize SQS client: %s\n", err.Error())
		return nil
	}
	return sqs.NewFromConfig(cfg)
}

func SQSProduceMessage(ctx context.Context, client SQSAPI, queueURL string, body string) error {
	out, err := client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(body),
	})
	if err != nil {
		log.Printf("[SQS] Error sending message: %s\n", err.Error())
		return err
	}
	log.Printf("[SQS] Sent message %s\n", aws.ToString(out.MessageId))
	return nil
}

type PaymentUpdateMessage struct {
	Event         payments.Event `json:"event"`
	BookingID     string         `json:"bookingId"`
	BookingStatus string         `json:"bookingStatus"`
	PaymentStatus string         `json:"paymentStatus"`
	Amount        float64        `json:"amount"`
	PaymentID     string         `json:"paymentId,omitempty"`
	PaymentMethod string         `json:"paymentMethod,omitempty"`
	Status        string         `json:"status,omitempty"`
	TransactionID string         `json:"transactionId,omitempty"`
	SentAt        time.Time      `json:"sentAt"`
}

const QUEUE_URL_LOOKUP_TIMEOUT = 5 * time.Second

// PaymentUpdatePublisher publishes booking and payment state changes to an
// SQS queue. The queue url is resolved on first use and only cached once the
// lookup succeeds.
type PaymentUpdatePublisher struct {
	client SQSAPI
	queue  string

	mu       sync.Mutex
	queueURL string
}

func NewPaymentUpdatePublisher(client SQSAPI, queue string) *PaymentUpdatePublisher {
	return &PaymentUpdatePublisher{client: client, queue: queue}
}

// resolveQueueURL is detached from the caller's request so a cancelled
// request cannot fail the lookup for everyone else.
func (p *PaymentUpdatePublisher) resolveQueueURL() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.queueURL != "" {
		return p.queueURL, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), QUEUE_URL_LOOKUP_TIMEOUT)
	defer cancel()
	out, err := p.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(p.queue),
	})
	if err != nil {
		log.Printf("Failed to retrieve queue URL for %s: %s\n", p.queue, err.Error())
		return "", err
	}
	p.queueURL = aws.ToString(out.QueueUrl)
	return p.queueURL, nil
}

func (p *PaymentUpdatePublisher) Notify(ctx context.Context, n payments.Notification) error {
	url, err := p.resolveQueueURL()
	if err != nil {
		return err
	}
	msg := PaymentUpdateMessage{
		Event:         n.Event,
		BookingID:     n.Booking.BookingID,
		BookingStatus: string(n.Booking.BookingStatus),
		PaymentStatus: string(n.Booking.PaymentStatus),
		Amount:        n.Booking.Amount,
		SentAt:        time.Now().UTC(),
	}
	if n.Payment != nil {
		msg.PaymentID = n.Payment.ID.String()
		msg.PaymentMethod = string(n.Payment.PaymentMethod)
		msg.Status = string(n.Payment.Status)
		msg.TransactionID = aws.ToString(n.Payment.TransactionID)
	}
	body, err := json.Marshal(&msg)
	if err != nil {
		return err
	}
	return SQSProduceMessage(ctx, p.client, url, string(body))
}
