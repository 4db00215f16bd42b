// internal/app/system/csvimport/limits.go
package csvimport

// Upload size and row limits for bulk imports.
const (
	MaxUploadSize = 5 << 20 // 5 MB
	MaxRows       = 20000
)
