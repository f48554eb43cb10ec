package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionBindSession(t *testing.T) {
	assert := assert.New(t)
	cm := NewConnectionManager()

	cm.BindSession("conn1", SessionInfo{
		Token: "token1", RoomCode: "BEAR", Seat: 2, Username: "Alice",
	})

	assert.Equal("token1", cm.GetTokenByConnection("conn1"))
	assert.Equal("conn1", cm.GetConnectionByToken("token1"))

	// The full session rides along for disconnect logging.
	player, exists := cm.GetPlayer("conn1")
	assert.True(exists)
	assert.Equal("BEAR", player.RoomCode)
	assert.Equal(2, player.Seat)
	assert.Equal("Alice", player.Username)

	assert.Empty(cm.GetTokenByConnection("conn2"))
	assert.Empty(cm.GetConnectionByToken("token2"))
}

func TestConnectionUnmapToken(t *testing.T) {
	assert := assert.New(t)
	cm := NewConnectionManager()

	cm.BindSession("conn1", SessionInfo{Token: "token1", RoomCode: "BEAR", Seat: 0, Username: "Alice"})
	cm.UnmapToken("token1")

	assert.Empty(cm.GetTokenByConnection("conn1"))
	assert.Empty(cm.GetConnectionByToken("token1"))
	_, exists := cm.GetPlayer("conn1")
	assert.False(exists)
}

func TestConnectionRebindAfterReconnect(t *testing.T) {
	assert := assert.New(t)
	cm := NewConnectionManager()

	// The same token moves to a fresh connection after a drop.
	session := SessionInfo{Token: "token1", RoomCode: "BEAR", Seat: 1, Username: "Bob"}
	cm.BindSession("conn1", session)
	cm.UnmapToken("token1")
	cm.BindSession("conn2", session)

	assert.Equal("conn2", cm.GetConnectionByToken("token1"))
}

func TestRemoveConnectionClearsMapping(t *testing.T) {
	assert := assert.New(t)
	cm := NewConnectionManager()

	cm.BindSession("conn1", SessionInfo{Token: "token1", RoomCode: "BEAR", Seat: 0, Username: "Alice"})
	cm.RemoveConnection("conn1")

	assert.Nil(cm.GetConnection("conn1"))
	assert.Empty(cm.GetTokenByConnection("conn1"))
}
