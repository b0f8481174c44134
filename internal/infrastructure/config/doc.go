// Package config loads and validates the MyQ bridge configuration.
//
// Configuration is layered: hardcoded defaults, then an optional YAML file,
// then environment variable overrides. The bridge runs with no config file
// at all: a bare container with MYQ_SERVER_PORT set gets the same behaviour
// as previous releases.
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Server.Port) // 8090 unless overridden
//
// # Environment Variables
//
//   - MYQ_SERVER_PORT: listening port (legacy name, kept for compatibility)
//   - MYQBRIDGE_SERVER_HOST, MYQBRIDGE_LOG_LEVEL, MYQBRIDGE_LOG_FORMAT
//   - MYQBRIDGE_UPDATE_URL, MYQBRIDGE_MYQ_BASE_URL
//   - MYQBRIDGE_MQTT_ENABLED, MYQBRIDGE_MQTT_HOST,
//     MYQBRIDGE_MQTT_USERNAME, MYQBRIDGE_MQTT_PASSWORD
package config
