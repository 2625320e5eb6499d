// Package constants provides shared constants used across the codebase.
package constants

import "time"

// File upload constants
const (
	// MaxUploadSize is the maximum selfie upload size in bytes (32MB)
	MaxUploadSize = 32 << 20
)

// Server timeouts
const (
	ServerReadTimeout = 30 * time.Second
	// ServerWriteTimeout covers encoding a large selfie on a slow recogniser
	ServerWriteTimeout = 5 * time.Minute
	ServerIdleTimeout  = 60 * time.Second
)

// Route constants
const (
	// ImagesRoutePrefix is the URL prefix under which indexed photos are served
	ImagesRoutePrefix = "/images/"
)
