package config

import (
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

func getKafkaBrokerURLs() []string {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		brokers = "localhost:9092, localhost:9093, localhost:9094"
	}
	var urls []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			urls = append(urls, b)
		}
	}
	return urls
}

// NewKafkaWriter builds a synchronous writer for order events: WriteMessages
// blocks until the batch is acknowledged. Callers are kept off that path by
// notify.Async. Messages keyed by the same topic land on the same partition.
func (n NotifyConfig) NewKafkaWriter() *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(n.KafkaBrokers...),
		Topic:                  n.KafkaTopic,
		Balancer:               &kafka.CRC32Balancer{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
	}
}
