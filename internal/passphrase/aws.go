package passphrase

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// AWSFetcher fetches named secrets from AWS Secrets Manager. The client is
// built lazily on first use so that deployments running in the other
// protection modes never touch the AWS credential chain.
type AWSFetcher struct {
	region string

	mu     sync.Mutex
	client *secretsmanager.Client
}

// NewAWSFetcher returns a fetcher for the given region. An empty region
// defers to the SDK's default resolution (environment, shared config, IMDS).
func NewAWSFetcher(region string) *AWSFetcher {
	return &AWSFetcher{region: region}
}

// FetchSecret retrieves the secret's string payload by name.
func (f *AWSFetcher) FetchSecret(ctx context.Context, name string) (string, error) {
	client, err := f.clientFor(ctx)
	if err != nil {
		return "", err
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", err
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string payload", name)
	}
	return *out.SecretString, nil
}

func (f *AWSFetcher) clientFor(ctx context.Context) (*secretsmanager.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client != nil {
		return f.client, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if f.region != "" {
		opts = append(opts, awsconfig.WithRegion(f.region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS configuration: %w", err)
	}

	f.client = secretsmanager.NewFromConfig(cfg)
	return f.client, nil
}
