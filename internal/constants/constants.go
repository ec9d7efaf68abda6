package constants

import "time"

const (
	ShutdownTimeout = 10 * time.Second

	// DatabaseTimeout bounds every store mutation and the full-history
	// reload that follows it.
	DatabaseTimeout = 15 * time.Second

	// OCRTimeout bounds the screenshot-parsing call. The OCR backend is the
	// only slow collaborator in the system; when it blows this budget the
	// upload degrades to manual entry.
	OCRTimeout = 45 * time.Second

	MaxUploadBytes = 16 << 20 // screenshot uploads

	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 30 * time.Minute
	DBConnMaxIdleTime = 5 * time.Minute
)
