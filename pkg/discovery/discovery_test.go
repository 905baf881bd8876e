package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInstance(t *testing.T) {
	instance, err := ParseInstance("order-service", "10.0.0.7:50052")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", instance.Host)
	assert.Equal(t, 50052, instance.Port)
	assert.Equal(t, "10.0.0.7:50052", instance.Addr())

	_, err = ParseInstance("order-service", "10.0.0.7")
	assert.Error(t, err)

	_, err = ParseInstance("order-service", "host:http")
	assert.Error(t, err)
}

func TestInstanceKey(t *testing.T) {
	key := instanceKey("/shopfront/services/", &ServiceInstance{Name: "order-service", Host: "::1", Port: 50052})
	assert.Equal(t, "/shopfront/services/order-service/[::1]:50052", key)
}
