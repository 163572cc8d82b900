// Package config loads the froyo-channels configuration file.
//
// The file is YAML; every key is optional and falls back to Default:
//
//	catalog_dir: /usr/share/froyo-channels/channels
//	apt_root: /etc/apt
//	lists_dir: /var/lib/apt/lists
//	policy_dir: /etc/froyo-channels/policies
//	history:
//	  enabled: true
//	  path: /var/lib/froyo-channels/history.db
//	  retention: 2160h
//	telemetry:
//	  logging:
//	    level: info
//	    format: console
//	  metrics:
//	    enabled: true
//	    textfile_path: /var/lib/prometheus/node-exporter/froyo_channels.prom
//
// Relative paths are resolved against the directory of the file. LOG_LEVEL
// overrides telemetry.logging.level.
package config
