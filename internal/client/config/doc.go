// Package config loads runtime configuration for the PhotoVault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
// The JSON loader uses timex.Duration for timeouts, so values can be either
// strings like "120s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_url": "https://api.photovault.example",
//	  "gallery_dir": "/home/me/Pictures",
//	  "camera_dir": "/home/me/Pictures/camera",
//	  "upload_timeout": "120s",
//	  "upload_concurrency": 1,
//	  "analysis_mode": "light"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
