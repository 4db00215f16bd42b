// Package limits holds request body size limits.
package limits

const (
	// MaxJSONBody bounds JSON request bodies.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxImageUpload bounds a single document image.
	MaxImageUpload = 10 << 20 // 10 MB

	// MaxImportUpload bounds a CSV or XLSX bulk upload.
	MaxImportUpload = 20 << 20 // 20 MB
)
