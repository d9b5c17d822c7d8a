// Package fetch reads tile descriptions and images from http(s), file and s3 URIs.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/dustin/go-humanize"
	"github.com/rotblauer/skytile/params"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported uri scheme")
	ErrTooLarge          = errors.New("resource too large")
	ErrStatus            = errors.New("unexpected http status")
)

// Fetcher returns the bytes behind a URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, uri string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, uri string) ([]byte, error) {
	return f(ctx, uri)
}

// Multi dispatches on the URI scheme.
// URIs without a scheme are treated as local file paths.
type Multi struct {
	config *params.FetchConfig
	client *http.Client
	logger *slog.Logger

	s3Once       sync.Once
	s3Downloader *s3manager.Downloader
	s3Err        error
}

func NewMulti(config *params.FetchConfig) *Multi {
	if config == nil {
		config = params.DefaultFetchConfig()
	}
	return &Multi{
		config: config,
		client: &http.Client{Timeout: config.HTTPTimeout},
		logger: slog.With("d", "fetch"),
	}
}

func (m *Multi) Fetch(ctx context.Context, uri string) ([]byte, error) {
	scheme := Scheme(uri)
	var b []byte
	var err error
	switch scheme {
	case "http", "https":
		b, err = m.fetchHTTP(ctx, uri)
	case "", "file":
		b, err = m.fetchFile(uri)
	case "s3":
		b, err = m.fetchS3(ctx, uri)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
	if err != nil {
		return nil, err
	}
	m.logger.Debug("Fetched", "uri", uri, "size", humanize.Bytes(uint64(len(b))))
	return b, nil
}

func (m *Multi) readLimited(r io.Reader) ([]byte, error) {
	if m.config.MaxBytes <= 0 {
		return io.ReadAll(r)
	}
	b, err := io.ReadAll(io.LimitReader(r, m.config.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > m.config.MaxBytes {
		return nil, fmt.Errorf("%w: over %s", ErrTooLarge, humanize.Bytes(uint64(m.config.MaxBytes)))
	}
	return b, nil
}

func (m *Multi) fetchHTTP(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	if m.config.UserAgent != "" {
		req.Header.Set("User-Agent", m.config.UserAgent)
	}
	res, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s %s", ErrStatus, res.Status, uri)
	}
	return m.readLimited(res.Body)
}

func (m *Multi) fetchFile(uri string) ([]byte, error) {
	p := uri
	if strings.HasPrefix(uri, "file:") {
		u, err := url.Parse(uri)
		if err != nil {
			return nil, err
		}
		p = u.Path
	}
	f, err := os.Open(filepath.FromSlash(p))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return m.readLimited(f)
}

// fetchS3 reads s3://bucket/key.
// The AWS library uses environment variables to configure itself.
func (m *Multi) fetchS3(ctx context.Context, uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("malformed s3 uri %q", uri)
	}

	m.s3Once.Do(func() {
		sess, err := session.NewSession(&aws.Config{Region: aws.String(m.config.S3Region)})
		if err != nil {
			m.s3Err = err
			return
		}
		m.s3Downloader = s3manager.NewDownloader(sess)
	})
	if m.s3Err != nil {
		return nil, m.s3Err
	}

	buf := aws.NewWriteAtBuffer(nil)
	n, err := m.s3Downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == request.CanceledErrorCode {
			m.logger.Warn("S3 download canceled", "uri", uri, "error", err)
		}
		return nil, fmt.Errorf("failed to download S3 object: %w", err)
	}
	if m.config.MaxBytes > 0 && n > m.config.MaxBytes {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, humanize.Bytes(uint64(n)))
	}
	return buf.Bytes(), nil
}

// Scheme returns the lowercased URI scheme, or "" for a plain path.
// Single letter schemes are taken to be Windows drive letters.
func Scheme(uri string) string {
	i := strings.Index(uri, "://")
	if i <= 1 {
		if strings.HasPrefix(uri, "file:") {
			return "file"
		}
		return ""
	}
	return strings.ToLower(uri[:i])
}

// Resolve resolves ref against the URI of the document that referenced it.
// Absolute refs are returned unchanged. Against a plain path base the
// result is an absolute path, so resolving it again is a no-op.
func Resolve(base, ref string) string {
	if ref == "" || Scheme(ref) != "" || base == "" {
		return ref
	}
	if Scheme(base) == "" {
		if filepath.IsAbs(ref) {
			return ref
		}
		if abs, err := filepath.Abs(base); err == nil {
			base = abs
		}
		return filepath.Join(filepath.Dir(base), ref)
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
