// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage provides an S3-compatible object storage client for
// reading the assets that file and link pages point at. It wraps the AWS
// SDK v2 and is configured for path-style access.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNotAsset is returned when a reference does not point into the assets
// bucket.
var ErrNotAsset = errors.New("reference is not an asset")

// MaxObjectSize caps how much of an object Fetch reads into memory.
const MaxObjectSize = 64 << 20

// Client wraps an S3 client for the assets bucket.
type Client struct {
	s3        *s3.Client
	bucket    string
	endpoint  string
	publicURL string // optional CDN/direct URL for assets
}

// Object is a fetched asset.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

// New creates an S3 storage client with path-style addressing. Returns
// (nil, nil) if endpoint or credentials are empty, allowing the app to
// start without storage.
func New(endpoint, region, accessKey, secretKey, bucket, publicURL string) (*Client, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, nil
	}

	// Strip trailing slash from endpoint for consistent URL building.
	endpoint = strings.TrimRight(endpoint, "/")

	s3Client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})

	return &Client{
		s3:        s3Client,
		bucket:    bucket,
		endpoint:  endpoint,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// Bucket returns the name of the assets bucket.
func (c *Client) Bucket() string {
	return c.bucket
}

// GetBlob retrieves an object and returns its bytes and content type.
func (c *Client) GetBlob(ctx context.Context, bucket, key string) (*Object, error) {
	output, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s/%s: %w", bucket, key, err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(io.LimitReader(output.Body, MaxObjectSize+1))
	if err != nil {
		return nil, fmt.Errorf("s3 read body %s/%s: %w", bucket, key, err)
	}
	if len(data) > MaxObjectSize {
		return nil, fmt.Errorf("s3 object %s/%s larger than %d bytes", bucket, key, MaxObjectSize)
	}
	return &Object{Key: key, ContentType: aws.ToString(output.ContentType), Data: data}, nil
}

// Fetch downloads the asset a page reference points at.
func (c *Client) Fetch(ctx context.Context, ref string) (*Object, error) {
	key, ok := c.AssetKey(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotAsset, ref)
	}
	return c.GetBlob(ctx, c.bucket, key)
}

// FileURL returns the public URL of an asset key.
func (c *Client) FileURL(key string) string {
	if c.publicURL != "" {
		return c.publicURL + "/" + key
	}
	return c.endpoint + "/" + c.bucket + "/" + key
}

// AssetKey extracts the object key from a page reference. References are
// either site-relative paths ("/42/1700000000/report.pdf") or absolute
// URLs under the public URL or the path-style bucket URL. Returns
// ("", false) for anything else.
func (c *Client) AssetKey(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}

	// Try publicURL prefix first (CDN or custom domain).
	if c.publicURL != "" {
		if key, ok := strings.CutPrefix(ref, c.publicURL+"/"); ok {
			return unescape(key)
		}
	}

	// Try endpoint/bucket prefix (path-style S3).
	if key, ok := strings.CutPrefix(ref, c.endpoint+"/"+c.bucket+"/"); ok {
		return unescape(key)
	}

	if strings.Contains(ref, "://") {
		return "", false
	}
	return unescape(strings.TrimLeft(ref, "/"))
}

func unescape(key string) (string, bool) {
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	unescaped, err := url.PathUnescape(key)
	if err != nil || unescaped == "" || strings.Contains(unescaped, "..") {
		return "", false
	}
	return unescaped, true
}
