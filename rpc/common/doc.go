// Package common provides the configuration structures and the logging setup
// shared by the server, the client and the command line tools.
//
// Key Components:
//
//   - ServerConfig: transport, dispatch mode (goroutine per connection or worker
//     pool), frame limits, deadlines, shutdown timeout, expiry sweep interval,
//     metrics endpoint and log level. Validate reports every invalid field at once.
//
//   - ClientConfig: endpoints, transport, timeout and retry behavior.
//
//   - Logger: a logger factory for Dragonboat's logger package so all packages
//     log in the same "LEVEL | package | message" format. InitLoggers installs
//     it and sets the level of every package logger.
package common
