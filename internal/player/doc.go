// Package player owns the lifecycle of alarm sound playback.
//
// A Player decodes a WAV asset into 16-bit PCM, opens an output stream on a
// Sink and hands back a Session. At most one session per Player is active:
// starting a new one stops the previous one first. Stopping a session
// releases the output synchronously and may be repeated safely.
package player
