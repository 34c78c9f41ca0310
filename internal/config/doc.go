// Package config loads the dashboard configuration.
//
// # Configuration Sources
//
// Load reads, in order of precedence:
//
//  1. Environment variables (highest priority), after a .env file in the
//     working directory has been loaded with godotenv
//  2. An optional YAML file: config.yaml, configs/config.yaml or
//     ../configs/config.yaml, whichever exists first
//  3. The `default` struct tags (lowest priority)
//
// # Environment Variables
//
// Every variable carries the DASH_ prefix followed by the section and the
// field, as processed by envconfig:
//
//	DASH_SERVER_PORT=8080
//	DASH_DATASET_URL=https://example.com/DiscAnSamp.xlsx
//	DASH_DATASET_PATH=data/transactions.xlsx
//	DASH_COMMENTARY_PROVIDER=groq
//	DASH_COMMENTARY_API_KEY=...
//	DASH_LOGGING_LEVEL=debug
//	DASH_TELEMETRY_METRIC_EXPORTER=prometheus
//
// # Validation
//
// Load rejects an out-of-range port, non-positive timeouts, an empty origin
// list, a missing dataset location and unknown commentary providers. A
// provider without an API key is accepted; CommentaryEnabled then reports
// false and the dashboard runs without AI text.
//
// # Testing
//
// Default returns the configuration Load would produce with no environment
// and no file, which tests adjust field by field.
package config
