// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, SampleBuffer and sample conversion functions
// Package audio provides fundamental audio types for the tapedeck library.
//
// This package defines the core types used throughout:
//   - Format: a PCM stream description (sample rate, channels, encoding)
//   - SampleBuffer: one fully decoded track of interleaved float32 samples
//
// It also provides utilities for converting between float32 and 16-bit
// integer samples at device boundaries.
//
// Example:
//
//	format := audio.Format{
//	    SampleRate: 48000,
//	    Channels:   2,
//	    Encoding:   audio.FormatFloat32LE,
//	}
package audio
