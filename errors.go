package prism

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidTextureData is returned when pixel data does not match the
	// declared texture dimensions.
	ErrInvalidTextureData = errors.New("invalid texture data")

	// ErrUnsupportedFormat is returned when decoded image data cannot be
	// converted to a bindable RGBA8 texture.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrPipelineVariantMismatch is returned when a requested pipeline variant
	// combination has no matching shader, or a scene object pairs a mesh with a
	// variant whose vertex layout it cannot satisfy. This is a programmer error
	// and is caught at creation time, never at draw time.
	ErrPipelineVariantMismatch = errors.New("pipeline variant mismatch")
)

// SurfaceErrorKind classifies a failed surface-texture acquisition.
type SurfaceErrorKind int

const (
	// SurfaceErrorRecoverable covers outdated/lost surfaces: reconfigure and
	// retry once.
	SurfaceErrorRecoverable SurfaceErrorKind = iota
	// SurfaceErrorTransient covers timeouts and other per-frame failures that
	// resolve themselves: skip this frame, no retry.
	SurfaceErrorTransient
	// SurfaceErrorFatal means the device is out of memory; the engine must
	// shut down.
	SurfaceErrorFatal
)

// classifySurfaceError maps a wgpu surface acquisition error onto the kinds the
// frame loop reacts to. The binding reports these as opaque error strings, so
// classification goes by message.
func classifySurfaceError(err error) SurfaceErrorKind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "out of memory") || strings.Contains(msg, "outofmemory"):
		return SurfaceErrorFatal
	case strings.Contains(msg, "outdated") || strings.Contains(msg, "lost"):
		return SurfaceErrorRecoverable
	default:
		return SurfaceErrorTransient
	}
}
