package config

import "time"

// ElasticsearchConfig holds the class search index connection.
// An empty URL disables search.
type ElasticsearchConfig struct {
	URL        string
	Index      string
	Username   string
	Password   string
	MaxRetries int
	Timeout    time.Duration
}

func (c ElasticsearchConfig) Enabled() bool {
	return c.URL != ""
}

func loadElasticsearchConfig() ElasticsearchConfig {
	return ElasticsearchConfig{
		URL:        getEnv("ELASTICSEARCH_URL", ""),
		Index:      getEnv("ELASTICSEARCH_INDEX", "classes"),
		Username:   getEnv("ELASTICSEARCH_USERNAME", ""),
		Password:   getEnv("ELASTICSEARCH_PASSWORD", ""),
		MaxRetries: getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
		Timeout:    getEnvDuration("ELASTICSEARCH_TIMEOUT", 30*time.Second),
	}
}
