// Package audit indexes every served prediction into Elasticsearch.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

// Event is one prediction as indexed.
type Event struct {
	Timestamp            time.Time `json:"timestamp"`
	Endpoint             string    `json:"endpoint"`
	ClientIP             string    `json:"client_ip"`
	ModelName            string    `json:"model_name"`
	Prediction           int       `json:"prediction"`
	Confidence           float64   `json:"confidence"`
	MaliciousProbability float64   `json:"malicious_probability"`
	Text                 string    `json:"text,omitempty"`
}

type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
}

// Logger writes events to a single index.
type Logger struct {
	client *elasticsearch.Client
	index  string
}

func New(cfg Config) (*Logger, error) {
	if cfg.Index == "" {
		return nil, errors.New("audit: index is required")
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("audit: create elasticsearch client: %w", err)
	}
	return &Logger{client: client, index: cfg.Index}, nil
}

func (l *Logger) Log(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}
	res, err := l.client.Index(
		l.index,
		bytes.NewReader(body),
		l.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("audit: index event: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("audit: index event: %s", res.String())
	}
	return nil
}
