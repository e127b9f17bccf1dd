package payments

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayPalOrderResponseToOrder(t *testing.T) {
	raw := []byte(`{
		"id": "pp-1",
		"status": "COMPLETED",
		"purchase_units": [{
			"custom_id": "wallet_alice_10_10",
			"amount": {"currency_code": "USD", "value": "10.00"},
			"payments": {"captures": [{"id": "cap-1", "status": "COMPLETED"}]}
		}]
	}`)
	var resp paypalOrderResponse
	require.NoError(t, json.Unmarshal(raw, &resp))

	order, err := resp.toOrder()
	require.NoError(t, err)
	assert.Equal(t, "pp-1", order.ID)
	assert.Equal(t, "wallet_alice_10_10", order.CustomID)
	assert.Equal(t, 10.0, order.Amount)
	assert.Equal(t, "USD", order.Currency)
	assert.Equal(t, "cap-1", order.CaptureID)
}

func TestPayPalOrderResponseToOrderBadAmount(t *testing.T) {
	raw := []byte(`{
		"id": "pp-2",
		"status": "COMPLETED",
		"purchase_units": [{"amount": {"currency_code": "USD", "value": "ten dollars"}}]
	}`)
	var resp paypalOrderResponse
	require.NoError(t, json.Unmarshal(raw, &resp))

	_, err := resp.toOrder()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ten dollars")
}
