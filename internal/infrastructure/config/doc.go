// Package config handles loading and validating langcheck configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Sensitive values (MQTT password, InfluxDB token) should be set via
// environment variables rather than the config file.
//
// Usage:
//
//	cfg, err := config.Load("configs/langcheck.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Check.Language)
//
// A minimal file for a local engine with a result cache:
//
//	engine:
//	  archive_dir: "/opt/LanguageTool-6.5"
//	  server_config:
//	    cacheSize: 1000
//	check:
//	  language: "en-GB"
//	cache:
//	  enabled: true
package config
