package compress

// JobResult is the response envelope returned by the compression service for
// one submission. It is produced once per job and read-only afterwards.
type JobResult struct {
	Success        bool            `json:"success"`
	Stats          Stats           `json:"stats"`
	ProcessedFiles []ProcessedFile `json:"processed_files"`
	DownloadURL    string          `json:"download_url,omitempty"`
	Error          string          `json:"error,omitempty"`

	// RequestID is the X-Request-ID the job was submitted under. Not part of
	// the wire envelope.
	RequestID string `json:"-"`
}

// Stats summarizes the whole batch.
type Stats struct {
	FilesProcessed   int     `json:"files_processed"`
	OriginalSize     int64   `json:"original_size"`
	CompressedSize   int64   `json:"compressed_size"`
	CompressionRatio float64 `json:"compression_ratio"`
}

// ProcessedFile reports per-file outcome details. ProtectionMethod and
// PasswordHint are empty when the service omits them.
type ProcessedFile struct {
	OriginalFilename  string `json:"original_filename"`
	PasswordProtected bool   `json:"password_protected"`
	ProtectionMethod  string `json:"protection_method,omitempty"`
	PasswordHint      string `json:"password_hint,omitempty"`
}
