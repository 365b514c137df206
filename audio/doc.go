// Package audio carries the audio track's wire contract: the Opus
// parameter set a MediaTrack's audio configuration is allowed to
// negotiate, validated against github.com/pion/opus's bandwidth table.
//
// Audio capture and encode/decode live outside this module; only the
// wire-contract parameter validation is here. Sessions carry opaque
// Opus packets produced and consumed by the surrounding application.
package audio
