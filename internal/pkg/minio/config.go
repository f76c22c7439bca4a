package minio

import (
	"errors"
	"regexp"
	"time"
)

// BucketLookupType selects virtual-host or path style addressing
type BucketLookupType string

const (
	BucketLookupAuto BucketLookupType = "auto"
	BucketLookupDNS  BucketLookupType = "dns"
	BucketLookupPath BucketLookupType = "path"
)

var bucketNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9.\-]{1,61}[a-z0-9]$`)

// Config represents the configuration for the MinIO client
type Config struct {
	// Endpoint is host[:port] of the S3-compatible service, e.g. "localhost:9000"
	Endpoint        string           `mapstructure:"endpoint"`
	AccessKeyID     string           `mapstructure:"access_key_id"`
	SecretAccessKey string           `mapstructure:"secret_access_key"`
	SessionToken    string           `mapstructure:"session_token"`
	Region          string           `mapstructure:"region"`
	UseSSL          bool             `mapstructure:"use_ssl"`
	BucketLookup    BucketLookupType `mapstructure:"bucket_lookup"`

	// Bucket holds every catalog blob
	Bucket string `mapstructure:"bucket"`
	// CreateBucket makes the bucket on startup when missing
	CreateBucket bool `mapstructure:"create_bucket"`

	// PresignExpiry is the default lifetime of presigned download URLs
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
	// RequestTimeout bounds single object calls issued without a deadline
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("minio: endpoint is required")
	}
	if c.AccessKeyID == "" {
		return errors.New("minio: access key ID is required")
	}
	if c.SecretAccessKey == "" {
		return errors.New("minio: secret access key is required")
	}
	if !bucketNameRegex.MatchString(c.Bucket) {
		return errors.New("minio: bucket name must be 3-63 lowercase letters, digits, dots or hyphens")
	}
	switch c.BucketLookup {
	case "", BucketLookupAuto, BucketLookupDNS, BucketLookupPath:
	default:
		return errors.New("minio: invalid bucket lookup type")
	}
	if c.PresignExpiry < 0 || c.PresignExpiry > 7*24*time.Hour {
		return errors.New("minio: presign expiry must be between 0 and 7 days")
	}
	return nil
}

// SetDefaults fills unspecified fields
func (c *Config) SetDefaults() {
	if c.BucketLookup == "" {
		c.BucketLookup = BucketLookupAuto
	}
	if c.PresignExpiry == 0 {
		c.PresignExpiry = 15 * time.Minute
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
}

// DefaultConfig returns a configuration for a local MinIO
func DefaultConfig() *Config {
	cfg := &Config{
		Endpoint:        "localhost:9000",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		Bucket:          "catalog-files",
		CreateBucket:    true,
	}
	cfg.SetDefaults()
	return cfg
}
