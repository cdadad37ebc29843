package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMapGatewayState(t *testing.T) {
	assert.Equal(t, ConnectionStatusConnected, MapGatewayState("open"))
	assert.Equal(t, ConnectionStatusConnected, MapGatewayState("connected"))
	assert.Equal(t, ConnectionStatusConnecting, MapGatewayState("connecting"))
	assert.Equal(t, ConnectionStatusDisconnected, MapGatewayState("close"))
	assert.Equal(t, ConnectionStatusDisconnected, MapGatewayState("refused"))
	assert.Equal(t, ConnectionStatusDisconnected, MapGatewayState(""))
	assert.Equal(t, ConnectionStatusDisconnected, MapGatewayState("whatever"))
}

func TestApplyStateTracksDistinctPrevious(t *testing.T) {
	now := time.Now().UTC()
	st := InstanceStatus{Status: ConnectionStatusConnected, PreviousStatus: ConnectionStatusConnected}

	st.ApplyState(ConnectionStatusDisconnected, "close", now)
	assert.Equal(t, ConnectionStatusDisconnected, st.Status)
	assert.Equal(t, ConnectionStatusConnected, st.PreviousStatus)
	assert.True(t, st.Transitioned(ConnectionStatusConnected, ConnectionStatusDisconnected))

	// Repeated identical update must not move the previous status, so the
	// edge is observable exactly once per transition
	st.ApplyState(ConnectionStatusDisconnected, "close", now.Add(time.Second))
	assert.Equal(t, ConnectionStatusConnected, st.PreviousStatus)

	st.ApplyState(ConnectionStatusConnected, "open", now.Add(2*time.Second))
	assert.True(t, st.Transitioned(ConnectionStatusDisconnected, ConnectionStatusConnected))
}

func TestConnectionStatusIsConnected(t *testing.T) {
	assert.True(t, ConnectionStatusConnected.IsConnected())
	assert.False(t, ConnectionStatusConnecting.IsConnected())
	assert.False(t, ConnectionStatusDisconnected.IsConnected())
}
