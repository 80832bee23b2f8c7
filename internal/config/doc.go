// Package config loads uidelegate configuration.
//
// Configuration is layered, higher layers overriding lower:
//
//  1. Built-in defaults (Default)
//  2. A TOML file, with its includes
//  3. UIDELEGATE_* environment variables
//
// A file looks like:
//
//	include = "base.toml"
//
//	[logging]
//	level = "debug"
//	format = "json"
//
//	[delegate]
//	emitter = "UI"
//	outside_suffix = "outside"
//	unsupported_events = ["mouseenter", "mouseleave"]
//
//	[bus]
//	queue_size = 1024
//	handler_timeout = "2s"
//
// Unknown keys are rejected. Environment variables are named after the
// section and key: UIDELEGATE_BUS_QUEUE_SIZE sets bus.queue_size, and
// UIDELEGATE_LOG_LEVEL is accepted for logging.level.
package config
