package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"swift-gateway/internal/config"
	"swift-gateway/internal/observability"
	"swift-gateway/internal/queue"
)

const sampleMessage = "{1:F01BANKDEFFAXXX0000000000}{2:I103BANKGB2LXXXXN}{4:\n" +
	":20:SAMPLE-REF-001\n" +
	":23B:CRED\n" +
	":32A:241215EUR1250,50\n" +
	":50K:/DE89370400440532013000\n" +
	"JOHN DOE\n" +
	"HAUPTSTRASSE 1\n" +
	"BERLIN\n" +
	":59:/GB29NWBK60161331926819\n" +
	"JANE SMITH\n" +
	"LONDON\n" +
	":70:INVOICE 2024-881\n" +
	":71A:SHA\n" +
	"-}"

func main() {
	var (
		queueName = flag.String("queue", "", "queue to send to (defaults to INPUT_QUEUE)")
		filePath  = flag.String("file", "", "file containing a raw message to send; omitted sends a built-in sample")
		count     = flag.Int("count", 1, "number of copies to send")
	)
	flag.Parse()

	cfg := config.Load()
	observability.InitLogger(cfg.Logging.Level)
	appLog := observability.WithComponent("ingest")

	if err := cfg.Validate(); err != nil {
		appLog.WithError(err).Fatal("invalid configuration")
	}

	zlog, err := zap.NewProduction()
	if err != nil {
		appLog.WithError(err).Fatal("failed to build logger")
	}
	defer zlog.Sync()

	target := *queueName
	if target == "" {
		target = cfg.Pipeline.InputQueue
	}

	payload := []byte(sampleMessage)
	if *filePath != "" {
		payload, err = os.ReadFile(*filePath)
		if err != nil {
			appLog.WithError(err).Fatal("failed to read message file")
		}
	}

	queues, err := queue.NewAdapter(queue.Config{
		Backend:        cfg.Queue.Backend,
		Brokers:        cfg.Queue.KafkaBrokers,
		GroupID:        cfg.Queue.KafkaGroupID,
		RedisURL:       cfg.Queue.RedisURL,
		ReceiveMaxWait: cfg.Queue.ReceiveMaxWait,
	}, zlog)
	if err != nil {
		appLog.WithError(err).Fatal("failed to create queue adapter")
	}
	defer queues.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for i := 0; i < *count; i++ {
		if err := queues.Send(ctx, target, payload); err != nil {
			appLog.WithError(err).WithField("queue", target).Fatal("failed to send message")
		}
	}

	fmt.Printf("sent %d message(s) to %s\n", *count, target)
}
