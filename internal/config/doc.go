// Package config provides configuration for the attendees command.
//
// Configuration starts from built-in defaults, is optionally overlaid by a
// YAML file and finally by ATTENDEES_* environment variables.
//
// # Configuration File Structure
//
//	api:
//	  baseURL: http://localhost:3333
//	  eventId: 9e9bd979-9d10-4915-b339-3786b1634f33
//	  timeout: 10s
//	url:
//	  mode: replace
//	  searchKey: search
//	  pageKey: page
//	serve:
//	  addr: ":8080"
//	  metricsAddr: ":9090"
//	log:
//	  level: info
//	locale: pt-BR
//	telemetry:
//	  endpoint: ""
//
// # Environment
//
// Every field has a matching variable, for example ATTENDEES_API_BASE_URL,
// ATTENDEES_API_TIMEOUT, ATTENDEES_URL_MODE, ATTENDEES_LOG_LEVEL and
// ATTENDEES_TELEMETRY_ENDPOINT. Variables win over the file.
//
// # Usage
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
