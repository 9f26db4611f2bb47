package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
)

type Publisher interface {
	PublishEvent(ctx context.Context, key string, event any) error
}

// KafkaSink keys messages by user id so one user's events stay ordered.
type KafkaSink struct {
	Producer Publisher
}

func (s KafkaSink) Write(ctx context.Context, e Event) error {
	return s.Producer.PublishEvent(ctx, strconv.FormatUint(uint64(e.UserID), 10), e)
}

type ElasticSink struct {
	Client *elasticsearch.Client
	Index  string
}

func (s ElasticSink) Write(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("es: marshal audit event: %w", err)
	}

	res, err := s.Client.Index(s.Index, bytes.NewReader(body), s.Client.Index.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es: index audit event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("es: index returned %s: %s", res.Status(), msg)
	}
	return nil
}
