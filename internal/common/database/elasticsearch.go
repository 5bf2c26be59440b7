package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nadhanasaripv257/skillq-app/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchClient wraps the Elasticsearch client holding the candidate index.
type ElasticsearchClient struct {
	Client *elasticsearch.Client

	transport *http.Transport
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	addresses := cfg.Addresses
	if len(addresses) == 0 && cfg.URL != "" {
		addresses = []string{cfg.URL}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	esCfg := elasticsearch.Config{Addresses: addresses, Transport: transport}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchClient{Client: es, transport: transport}, nil
}

// Close drops the client's idle connections.
func (c *ElasticsearchClient) Close() {
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
}

// Ping tests the Elasticsearch connection with a 5s ceiling.
func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}
