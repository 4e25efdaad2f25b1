// Package config loads the alarm configuration from a YAML file and
// validates it into an immutable alarm.Config snapshot.
//
// Loading is all or nothing: any unreadable file, malformed document,
// unknown weekday or out-of-range time fails the whole load.
package config
