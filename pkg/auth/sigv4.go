// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// SigV4Config configures AWS Signature Version 4 signing.
type SigV4Config struct {
	// Service is the AWS signing name (e.g., "execute-api", required)
	Service string

	// Region is the AWS region (e.g., "us-east-1", required)
	Region string

	// AccessKeyID and SecretAccessKey select static credentials.
	// When both are empty the default credential chain is used
	// (environment, shared config, IMDS).
	AccessKeyID     string
	SecretAccessKey string

	// SessionToken accompanies temporary static credentials (optional)
	SessionToken string
}

// Validate checks the configuration is valid.
func (c SigV4Config) Validate() error {
	if c.Service == "" {
		return fmt.Errorf("service is required for aws_sigv4 auth")
	}
	if c.Region == "" {
		return fmt.Errorf("region is required for aws_sigv4 auth")
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("access_key_id and secret_access_key must be set together")
	}
	return nil
}

// SigV4Provider signs requests for AWS-fronted APIs.
type SigV4Provider struct {
	cfg       SigV4Config
	awsConfig aws.Config
	signer    *v4.Signer
	now       func() time.Time
	logger    *slog.Logger
}

// SigV4Option configures a SigV4Provider.
type SigV4Option func(*SigV4Provider)

// WithSigV4Clock overrides the signing time source.
func WithSigV4Clock(now func() time.Time) SigV4Option {
	return func(p *SigV4Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithSigV4Logger sets the logger.
func WithSigV4Logger(logger *slog.Logger) SigV4Option {
	return func(p *SigV4Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewSigV4Provider creates a SigV4 provider. ctx bounds loading the default
// credential chain.
func NewSigV4Provider(ctx context.Context, cfg SigV4Config, opts ...SigV4Option) (*SigV4Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var awsCfg aws.Config
	if cfg.AccessKeyID != "" {
		awsCfg = aws.Config{
			Region: cfg.Region,
			Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken,
			)),
		}
	} else {
		loaded, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %s", sanitizeAWSError(err.Error()))
		}
		awsCfg = loaded
	}

	p := &SigV4Provider{
		cfg:       cfg,
		awsConfig: awsCfg,
		signer:    v4.NewSigner(),
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Authenticate implements Provider.
func (p *SigV4Provider) Authenticate(req *http.Request) error {
	if req == nil || req.URL == nil || req.Method == "" {
		signingFailures.WithLabelValues("aws_sigv4").Inc()
		return &SigningError{Op: "canonicalize", Err: fmt.Errorf("%w: method and URL are required", ErrMalformedRequest)}
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}

	body, err := requestBody(req)
	if err != nil {
		signingFailures.WithLabelValues("aws_sigv4").Inc()
		return &SigningError{Op: "canonicalize", Err: err}
	}
	hash := payloadHash(body)
	req.Header.Set("X-Amz-Content-Sha256", hash)

	creds, err := p.awsConfig.Credentials.Retrieve(req.Context())
	if err != nil {
		signingFailures.WithLabelValues("aws_sigv4").Inc()
		return &SigningError{
			Op:  "credentials",
			Err: fmt.Errorf("unable to resolve AWS credentials: %s", sanitizeAWSError(err.Error())),
		}
	}

	if err := p.signer.SignHTTP(req.Context(), creds, req, hash, p.cfg.Service, p.cfg.Region, p.now()); err != nil {
		signingFailures.WithLabelValues("aws_sigv4").Inc()
		p.logger.Debug("sigv4 signing failed", "method", req.Method, "error", err)
		return &SigningError{Op: "sign", Err: err}
	}
	return nil
}

// Verify checks the credentials with STS GetCallerIdentity and returns the
// caller ARN.
func (p *SigV4Provider) Verify(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := sts.NewFromConfig(p.awsConfig).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("AWS credential validation failed: %s", sanitizeAWSError(err.Error()))
	}
	return aws.ToString(out.Arn), nil
}

func payloadHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// sanitizeAWSError redacts access key IDs (AKIA + 16 characters).
func sanitizeAWSError(msg string) string {
	searchPos := 0
	for {
		idx := strings.Index(msg[searchPos:], "AKIA")
		if idx == -1 {
			return msg
		}
		idx += searchPos

		end := idx + 20
		if end > len(msg) {
			end = len(msg)
		}
		msg = msg[:idx] + "AKIA****" + msg[end:]
		searchPos = idx + len("AKIA****")
	}
}
