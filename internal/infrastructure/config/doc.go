// Package config handles loading and validating touch node configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (TOUCHNODE_*)
//   - Validation of required fields
//   - Default value handling
//   - Watching the file for changes (Watch)
//
// Timing values (scan interval, retry intervals, monitor delays) are written
// as Go duration strings in YAML, e.g. "20ms" or "2s".
//
// Security Considerations:
//   - MQTT credentials and the InfluxDB token should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Node.ID)
package config
