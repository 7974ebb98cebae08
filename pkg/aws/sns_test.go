package aws

import (
	"context"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	input *sns.PublishInput
}

func (f *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	return &sns.PublishOutput{}, nil
}

func TestSNSPublish(t *testing.T) {
	fake := &fakeSNS{}
	c := &SNSClient{client: fake, EventType: func([]byte) string { return "order_paid" }}

	require.NoError(t, c.Publish(context.Background(), "arn:aws:sns:us-east-1:000000000000:order-events", []byte(`{"type":"order_paid"}`)))
	assert.Equal(t, `{"type":"order_paid"}`, sdkaws.ToString(fake.input.Message))
	assert.Equal(t, "order_paid", sdkaws.ToString(fake.input.MessageAttributes["event_type"].StringValue))
}

func TestSNSPublish_EmptyTopic(t *testing.T) {
	c := &SNSClient{client: &fakeSNS{}}
	assert.ErrorIs(t, c.Publish(context.Background(), "", []byte("{}")), ErrEmptyTopic)
}
