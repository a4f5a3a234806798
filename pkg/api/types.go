package api

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port int
	Bind string
}

// StatsResponse summarizes the served dataset
type StatsResponse struct {
	NumRecords int      `json:"num_records"`
	NumFiles   int      `json:"num_files"`
	TotalBytes uint64   `json:"total_bytes"`
	Files      []string `json:"files"`
}

// RecordResponse carries one record payload. Payload is base64 in JSON.
type RecordResponse struct {
	Index   int    `json:"index"`
	Path    string `json:"path"`
	Offset  int64  `json:"offset"`
	Length  uint64 `json:"length"`
	Payload []byte `json:"payload"`
}

// FeatureSummary describes one feature of a decoded example
type FeatureSummary struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Length int    `json:"length"`
}

// FeaturesResponse lists the features of one record
type FeaturesResponse struct {
	Index    int              `json:"index"`
	Features []FeatureSummary `json:"features"`
}
