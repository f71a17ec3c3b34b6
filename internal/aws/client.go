package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/ratelimit"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/go-logr/logr"
)

const (
	defaultConcurrency = 4
	defaultNATWait     = 10 * time.Minute
	zoneCacheTTL       = 5 * time.Minute
)

// Applier submits a recorded plan to EC2. It creates each declared resource
// once and does not compare against existing state.
//
// The region's availability zones are cached per Applier for five minutes,
// so the lookup is only saved when one Applier runs several plans.
type Applier struct {
	ec2Client   EC2API
	stsClient   STSAPI
	region      string
	log         logr.Logger
	concurrency int
	natWait     time.Duration
	zones       *ttlCache[[]string]
}

type Option func(*Applier)

func WithLogger(log logr.Logger) Option {
	return func(a *Applier) { a.log = log }
}

// WithConcurrency bounds how many independent resources are created at once.
func WithConcurrency(n int) Option {
	return func(a *Applier) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

func WithNATWait(d time.Duration) Option {
	return func(a *Applier) {
		if d > 0 {
			a.natWait = d
		}
	}
}

func newRetryer() aws.Retryer {
	return retry.NewStandard(func(o *retry.StandardOptions) {
		o.MaxAttempts = 5
		o.MaxBackoff = 30 * time.Second
		o.Backoff = retry.NewExponentialJitterBackoff(o.MaxBackoff)
		o.RateLimiter = ratelimit.None
	})
}

func NewApplier(cfg aws.Config, opts ...Option) *Applier {
	retryer := newRetryer()
	return newApplier(
		ec2.NewFromConfig(cfg, func(o *ec2.Options) { o.Retryer = retryer }),
		sts.NewFromConfig(cfg, func(o *sts.Options) { o.Retryer = retryer }),
		cfg.Region,
		opts...,
	)
}

func newApplier(ec2Client EC2API, stsClient STSAPI, region string, opts ...Option) *Applier {
	a := &Applier{
		ec2Client:   ec2Client,
		stsClient:   stsClient,
		region:      region,
		log:         logr.Discard(),
		concurrency: defaultConcurrency,
		natWait:     defaultNATWait,
		zones:       newTTLCache[[]string](zoneCacheTTL, 16),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Applier) Region() string {
	return a.region
}

// CallerAccount returns the account the configured credentials resolve to.
func (a *Applier) CallerAccount(ctx context.Context) (string, error) {
	out, err := a.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("get caller identity: %w", err)
	}
	return derefString(out.Account), nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
