package gcs

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/angelmondragon/conduit-storefront/pkg/config"
	"github.com/angelmondragon/conduit-storefront/pkg/gcp"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
)

const (
	publicHost  = "storage.googleapis.com"
	pingTimeout = 5 * time.Second
)

var errNotInitialized = errors.New("gcs client not initialized")

// Client signs read URLs for product images stored in a single bucket.
type Client struct {
	client *storage.Client
	bucket string
	expiry time.Duration
	signer *serviceAccountSigner
}

// serviceAccountSigner lets URLs be signed locally instead of through the IAM
// SignBlob API when a private key is available.
type serviceAccountSigner struct {
	email      string
	privateKey []byte
}

// NewClient creates the storage client and checks the bucket is reachable.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcpCfg config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BucketName) == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	signer, err := signerFromCredentials(gcpCfg)
	if err != nil {
		return nil, err
	}
	if signer == nil && cfg.SignerEmail != "" {
		signer = &serviceAccountSigner{email: cfg.SignerEmail}
	}

	sc, err := storage.NewClient(ctx, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}

	client := &Client{
		client: sc,
		bucket: strings.TrimSpace(cfg.BucketName),
		expiry: cfg.DownloadURLExpiry,
		signer: signer,
	}
	if err := client.Ping(ctx); err != nil {
		_ = sc.Close()
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", client.bucket), "gcs client initialized")
	}
	return client, nil
}

func signerFromCredentials(gcpCfg config.GCPConfig) (*serviceAccountSigner, error) {
	raw := strings.TrimSpace(gcpCfg.CredentialsJSON)
	if raw == "" && gcpCfg.ApplicationCredentials != "" {
		bytes, err := os.ReadFile(gcpCfg.ApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		raw = string(bytes)
	}
	if raw == "" {
		return nil, nil
	}
	var creds struct {
		Type        string `json:"type"`
		ClientEmail string `json:"client_email"`
		PrivateKey  string `json:"private_key"`
	}
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, fmt.Errorf("parsing service account credentials: %w", err)
	}
	if creds.ClientEmail == "" || creds.PrivateKey == "" {
		// user credentials cannot sign; fall back to the client's own signing path
		return nil, nil
	}
	if err := validatePrivateKey(creds.PrivateKey); err != nil {
		return nil, err
	}
	return &serviceAccountSigner{email: creds.ClientEmail, privateKey: []byte(creds.PrivateKey)}, nil
}

func validatePrivateKey(pemData string) error {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return errors.New("invalid private key")
	}
	if _, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return nil
	}
	if _, err := x509.ParsePKCS1PrivateKey(block.Bytes); err != nil {
		return errors.New("unsupported private key format")
	}
	return nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// Ping lists at most one object, which needs storage.objects.list on the bucket.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	it := c.client.Bucket(c.bucket).Objects(ctx, &storage.Query{Prefix: ""})
	it.PageInfo().MaxSize = 1
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return err
	}
	return nil
}

// SignedReadURL returns a time-limited GET URL for object.
func (c *Client) SignedReadURL(ctx context.Context, object string) (string, error) {
	if c == nil {
		return "", errNotInitialized
	}
	object = strings.TrimPrefix(strings.TrimSpace(object), "/")
	if object == "" {
		return "", errors.New("object name is required")
	}
	opts := signedURLOptions(c.expiry, c.signer)
	if c.signer != nil && len(c.signer.privateKey) > 0 {
		return storage.SignedURL(c.bucket, object, opts)
	}
	if c.client == nil {
		return "", errNotInitialized
	}
	return c.client.Bucket(c.bucket).SignedURL(object, opts)
}

func signedURLOptions(expiry time.Duration, signer *serviceAccountSigner) *storage.SignedURLOptions {
	if expiry <= 0 {
		expiry = time.Hour
	}
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(expiry),
	}
	if signer != nil {
		opts.GoogleAccessID = signer.email
		opts.PrivateKey = signer.privateKey
	}
	return opts
}

// PublicURL is the unsigned URL of an object in a public bucket.
func PublicURL(bucket, object string) string {
	return fmt.Sprintf("https://%s/%s/%s", publicHost, bucket, strings.TrimPrefix(object, "/"))
}

// ObjectNameFromURL extracts the object name from either public URL style.
func ObjectNameFromURL(bucket, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	host := strings.ToLower(u.Host)
	path := strings.TrimPrefix(u.Path, "/")

	switch host {
	case publicHost:
		prefix := bucket + "/"
		if !strings.HasPrefix(path, prefix) {
			return "", errors.New("url bucket mismatch")
		}
		return strings.TrimPrefix(path, prefix), nil
	case strings.ToLower(bucket) + "." + publicHost:
		if path == "" {
			return "", errors.New("missing object path")
		}
		return path, nil
	}
	return "", errors.New("not a gcs public url")
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
