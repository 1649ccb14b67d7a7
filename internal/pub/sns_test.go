package pub

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	got *sns.PublishInput
	err error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.got = in
	return &sns.PublishOutput{}, f.err
}

func TestPublishRaw(t *testing.T) {
	f := &fakeSNS{}
	p := NewSNS(f, "arn:aws:sns:us-east-1:000000000000:counts")

	require.NoError(t, p.PublishRaw(context.Background(), []byte(`{"count":1}`)))
	require.NotNil(t, f.got)
	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:counts", *f.got.TopicArn)
	assert.Equal(t, `{"count":1}`, *f.got.Message)
	assert.Equal(t, "poultry_count", *f.got.MessageAttributes["event-type"].StringValue)
}

func TestPublishRawError(t *testing.T) {
	f := &fakeSNS{err: errors.New("throttled")}
	p := NewSNS(f, "arn")
	assert.EqualError(t, p.PublishRaw(context.Background(), []byte("{}")), "throttled")
}
