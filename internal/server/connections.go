package server

import (
	"sync"

	"github.com/coder/websocket"
)

type PlayerConnection struct {
	RoomCode string
	Seat     int
	Username string
	Token    string
}

// ConnectionManager tracks live sockets and which token each one speaks for.
type ConnectionManager struct {
	connections map[string]*websocket.Conn
	players     map[string]PlayerConnection
	mu          sync.RWMutex
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
		players:     make(map[string]PlayerConnection),
	}
}

func (cm *ConnectionManager) AddConnection(id string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[id] = conn
}

func (cm *ConnectionManager) RemoveConnection(id string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.connections, id)
	delete(cm.players, id)
}

// BindSession records which session a connection speaks for.
func (cm *ConnectionManager) BindSession(connectionID string, session SessionInfo) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.players[connectionID] = PlayerConnection{
		RoomCode: session.RoomCode,
		Seat:     session.Seat,
		Username: session.Username,
		Token:    session.Token,
	}
}

func (cm *ConnectionManager) GetPlayer(connectionID string) (PlayerConnection, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	player, exists := cm.players[connectionID]
	return player, exists
}

func (cm *ConnectionManager) UnmapToken(token string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for connID, player := range cm.players {
		if player.Token == token {
			delete(cm.players, connID)
			break
		}
	}
}

func (cm *ConnectionManager) GetTokenByConnection(connectionID string) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return cm.players[connectionID].Token
}

func (cm *ConnectionManager) GetConnectionByToken(token string) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for connID, player := range cm.players {
		if player.Token == token {
			return connID
		}
	}
	return ""
}

func (cm *ConnectionManager) GetConnection(connectionID string) *websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return cm.connections[connectionID]
}
