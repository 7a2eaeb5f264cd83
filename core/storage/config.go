package storage

// Config holds configuration for the object store that caches extracted content.
type Config struct {
	// Enabled turns the object-store content cache on. When off, extracted text lives only in the index.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Endpoint is the host:port of the S3-compatible service.
	Endpoint string `mapstructure:"endpoint" default:"localhost:9000"`
	// AccessKey is the access key ID.
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	// SecretKey is the secret access key.
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	// UseSSL enables TLS.
	UseSSL bool `mapstructure:"use_ssl" default:"false"`
	// Bucket holds the compressed content blobs.
	Bucket string `mapstructure:"bucket" default:"index-content"`
	// Region is the bucket location (e.g., us-east-1).
	Region string `mapstructure:"region" default:""`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
