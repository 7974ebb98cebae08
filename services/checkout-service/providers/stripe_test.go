package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
)

func TestPaymentIntentID(t *testing.T) {
	assert.Equal(t, "pi_3Abc", PaymentIntentID("pi_3Abc_secret_XyZ"))
	assert.Equal(t, "pi_3Abc", PaymentIntentID("pi_3Abc"))
	assert.Equal(t, "", PaymentIntentID(""))
}

func TestParseWebhook(t *testing.T) {
	p := NewStripeProvider("sk_test_x", "whsec_test", nil)
	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent","metadata":{"order_id":"o-1"}}}}`)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_test",
		Timestamp: time.Now(),
	})

	evt, err := p.ParseWebhook(signed.Payload, signed.Header)
	require.NoError(t, err)
	assert.Equal(t, stripe.EventTypePaymentIntentSucceeded, evt.Type)

	_, err = p.ParseWebhook(payload, "t=1,v1=bad")
	assert.Error(t, err)
}

func TestParseWebhook_NotConfigured(t *testing.T) {
	p := NewStripeProvider("sk_test_x", "", nil)
	_, err := p.ParseWebhook([]byte("{}"), "")
	assert.ErrorIs(t, err, ErrWebhookNotConfigured)
}

func TestToPaymentIntent_CarriesAmountAndCurrency(t *testing.T) {
	pi := toPaymentIntent(&stripe.PaymentIntent{
		ID:       "pi_1",
		Status:   stripe.PaymentIntentStatusSucceeded,
		Amount:   60000,
		Currency: stripe.CurrencyUSD,
		Metadata: map[string]string{"order_id": "o-1"},
	})
	assert.Equal(t, int64(60000), pi.Amount)
	assert.Equal(t, "usd", pi.Currency)
	assert.Equal(t, "succeeded", pi.Status)
}
