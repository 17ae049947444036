package keys

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsAPI is the slice of the Secrets Manager client this source uses.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerSource reads all LLM keys from a single AWS Secrets Manager
// secret whose SecretString is a JSON object mapping service names to API
// keys. Intended for fleets already standardized on AWS: credentials for
// the AWS API itself come from the SDK's default chain (env, shared config,
// IMDS), so nothing secret is configured locally.
//
// Optional; unconfigured without a secret id (LLMKEYS_AWS_SECRET_ID or the
// aws.secret_id config key).
type SecretsManagerSource struct {
	// SecretID is the name or ARN of the secret.
	SecretID string

	// Region overrides the SDK's resolved region when set.
	Region string

	// Client is optional and replaces the lazily constructed SDK client
	// in tests.
	Client SecretsAPI

	mu     sync.Mutex
	client SecretsAPI
}

// ID implements Source.
func (*SecretsManagerSource) ID() string { return "aws-secrets-manager" }

// Available reports whether a secret id is configured. The AWS credential
// chain is only consulted on lookup.
func (s *SecretsManagerSource) Available() bool {
	return s.SecretID != ""
}

// Key fetches the secret and extracts the entry for service.
func (s *SecretsManagerSource) Key(ctx context.Context, service string) (string, error) {
	client, err := s.secretsClient(ctx)
	if err != nil {
		return "", sourceMiss(s.ID(), ReasonTransport, err)
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &s.SecretID,
	})
	if err != nil {
		return "", sourceMiss(s.ID(), ReasonTransport, err)
	}
	if out.SecretString == nil {
		return "", sourceMiss(s.ID(), ReasonProtocol, fmt.Errorf("secret %s has no string value", s.SecretID))
	}

	var m map[string]string
	if err := json.Unmarshal([]byte(*out.SecretString), &m); err != nil {
		return "", sourceMiss(s.ID(), ReasonProtocol, fmt.Errorf("parsing secret %s: %w", s.SecretID, err))
	}

	key, ok := lookupService(m, service)
	if !ok {
		return "", sourceMiss(s.ID(), ReasonNoMatch, nil)
	}
	return key, nil
}

// secretsClient returns the injected client or lazily builds one from the
// default AWS config chain. Construction happens at most once.
func (s *SecretsManagerSource) secretsClient(ctx context.Context) (SecretsAPI, error) {
	if s.Client != nil {
		return s.Client, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if s.Region != "" {
		opts = append(opts, awsconfig.WithRegion(s.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	s.client = secretsmanager.NewFromConfig(cfg)
	return s.client, nil
}
