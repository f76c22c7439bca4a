package minio

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// PresignedGetObject returns a time-limited GET URL for key. A non-empty
// filename is sent back as the attachment name. A zero expiry uses
// Config.PresignExpiry.
func (c *Client) PresignedGetObject(ctx context.Context, key, filename string, expiry time.Duration) (*url.URL, error) {
	if err := c.checkObject(key); err != nil {
		return nil, err
	}
	if expiry == 0 {
		expiry = c.config.PresignExpiry
	}
	if expiry < time.Second || expiry > 7*24*time.Hour {
		return nil, wrap("PresignedGetObject", c.config.Bucket, key,
			fmt.Errorf("%w: expiry %s out of range", ErrInvalidArgument, expiry))
	}

	params := url.Values{}
	if filename != "" {
		params.Set("response-content-disposition", ContentDisposition(filename))
	}

	u, err := c.client.PresignedGetObject(ctx, c.config.Bucket, key, expiry, params)
	if err != nil {
		return nil, wrap("PresignedGetObject", c.config.Bucket, key, err)
	}

	c.logger.Debug("presigned GET URL generated",
		zap.String("object", key),
		zap.Duration("expiry", expiry),
	)
	return u, nil
}

// ContentDisposition formats an attachment header value for filename
func ContentDisposition(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
