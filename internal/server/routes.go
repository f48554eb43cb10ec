package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"canasta-arena/internal/canasta"
)

func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.indexHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/websocket", s.websocketHandler)

	return s.corsMiddleware(mux)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"service": "canasta-arena"}
	jsonResp, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(jsonResp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := json.Marshal(s.db.Health())
	if err != nil {
		http.Error(w, "Failed to marshal health check response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // TODO: restrict to the deployed frontend origin
	})
	if err != nil {
		http.Error(w, "Failed to open websocket", http.StatusInternalServerError)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()

	connectionID := uuid.New().String()
	log.Printf("New connection: %s", connectionID)
	s.connectionManager.AddConnection(connectionID, socket)
	defer s.handleDisconnect(connectionID)

	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			log.Printf("Connection %s read error: %v", connectionID, err)
			return
		}

		if msgType != websocket.MessageText {
			log.Printf("Non-text input from %s", connectionID)
			continue
		}

		s.connectionHealth.UpdateActivity(connectionID)

		if !s.rateLimiter.Allow(connectionID) {
			s.sendError(socket, ctx, "RATE_LIMITED: Too many requests, slow down")
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Invalid JSON from %s: %v", connectionID, err)
			s.sendError(socket, ctx, "Invalid JSON")
			continue
		}

		if err := ValidateMessageType(msg.Type); err != nil {
			s.sendError(socket, ctx, err.Error())
			continue
		}

		log.Printf("Message type '%s' from %s", msg.Type, connectionID)

		switch msg.Type {
		case "ping":
			s.handlePing(socket, ctx, connectionID)
		case "create_game":
			s.handleCreateGame(socket, ctx, connectionID, msg.Payload)
		case "join_game":
			s.handleJoinGame(socket, ctx, connectionID, msg.Payload)
		case "reconnect":
			s.handleReconnect(socket, ctx, connectionID, msg.Payload)
		case "set_ready":
			s.handleSetReady(socket, ctx, connectionID, msg.Payload)
		case "leave_game":
			s.handleLeaveGame(socket, ctx, connectionID)
		case "execute_move":
			s.handleExecuteMove(socket, ctx, connectionID, msg.Payload)
		}
	}
}

// handleDisconnect runs when a socket drops: the seat is marked offline and
// the game pauses until everyone is back.
func (s *Server) handleDisconnect(connectionID string) {
	player, bound := s.connectionManager.GetPlayer(connectionID)

	s.connectionManager.RemoveConnection(connectionID)
	s.rateLimiter.RemoveConnection(connectionID)
	s.connectionHealth.RemoveConnection(connectionID)
	log.Printf("Connection closed: %s", connectionID)

	if !bound {
		return
	}

	log.Printf("Seat %d (%s) dropped from room %s",
		player.Seat, player.Username, player.RoomCode)

	gamePaused, game, seat, err := s.gameManager.MarkPlayerDisconnected(player.Token)
	if err != nil {
		// Expected when the player already left via leave_game.
		if err.Error() != "TOKEN_NOT_FOUND: Invalid session token" {
			log.Printf("Error marking player disconnected: %v", err)
		}
		return
	}

	s.broadcastToGame(game, "player_disconnected", PlayerStatusNotification{
		Seat:      seat,
		Username:  game.Players[seat].Username,
		Connected: false,
	})

	if gamePaused {
		s.broadcastToGame(game, "game_paused", GamePausedNotification{
			Message: fmt.Sprintf("%s disconnected. Game paused.", game.Players[seat].Username),
		})
	}
}

func (s *Server) handlePing(socket *websocket.Conn, ctx context.Context, connectionID string) {
	response := ServerMessage{
		Type:    "pong",
		Payload: struct{}{},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send pong to %s: %v", connectionID, err)
	}
}

func (s *Server) handleCreateGame(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req CreateGameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid create_game payload")
		return
	}

	game, token, err := s.gameManager.CreateGame(req.Username, req.Rules)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	session := SessionInfo{Token: token, RoomCode: game.RoomCode, Seat: 0, Username: req.Username}
	s.sessionManager.StoreSession(session)
	s.connectionManager.BindSession(connectionID, session)
	s.persistGame(game, session)

	s.sendTyped(socket, ctx, "game_created", CreateGameResponse{
		RoomCode: game.RoomCode,
		Token:    token,
		Seat:     0,
		Rules:    game.Rules,
	})
	s.broadcastLobbyState(game)
}

func (s *Server) handleJoinGame(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req JoinGameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid join_game payload")
		return
	}

	game, token, seat, err := s.gameManager.JoinGame(req.RoomCode, req.Username)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	session := SessionInfo{Token: token, RoomCode: game.RoomCode, Seat: seat, Username: req.Username}
	s.sessionManager.StoreSession(session)
	s.connectionManager.BindSession(connectionID, session)
	s.persistGame(game, session)

	s.sendTyped(socket, ctx, "game_joined", JoinGameResponse{
		Success: true,
		Token:   token,
		Seat:    seat,
	})
	s.broadcastLobbyState(game)
}

func (s *Server) handleReconnect(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req ReconnectRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid reconnect payload")
		return
	}

	session, err := s.sessionManager.GetSession(req.Token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	game, err := s.gameManager.ReconnectPlayer(session.Token, session.RoomCode, session.Seat)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.connectionManager.BindSession(connectionID, session)

	s.sendTyped(socket, ctx, "reconnected", ReconnectResponse{
		Success:  true,
		RoomCode: game.RoomCode,
		Seat:     session.Seat,
		Status:   string(game.Status),
	})

	s.broadcastToGame(game, "player_reconnected", PlayerStatusNotification{
		Seat:      session.Seat,
		Username:  session.Username,
		Connected: true,
	})

	switch game.Status {
	case StatusLobby:
		s.broadcastLobbyState(game)
	default:
		s.broadcastGameState(game)
	}
}

func (s *Server) handleSetReady(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req SetReadyRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid set_ready payload")
		return
	}

	token := s.connectionManager.GetTokenByConnection(connectionID)
	if token == "" {
		s.sendError(socket, ctx, "NOT_IN_GAME: Connection has no session")
		return
	}

	session, err := s.sessionManager.GetSession(token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	game, allReady, err := s.gameManager.SetReady(session.RoomCode, token, req.Ready)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.broadcastLobbyState(game)

	if allReady {
		if err := s.gameManager.StartGame(game.RoomCode); err != nil {
			s.sendError(socket, ctx, err.Error())
			return
		}
		s.broadcastToGame(game, "game_started", GameStartedNotification{
			Message: "All players ready. Dealing.",
		})
		s.broadcastGameState(game)
		s.persistGame(game)
	}
}

func (s *Server) handleLeaveGame(socket *websocket.Conn, ctx context.Context, connectionID string) {
	token := s.connectionManager.GetTokenByConnection(connectionID)
	if token == "" {
		s.sendError(socket, ctx, "NOT_IN_GAME: Connection has no session")
		return
	}

	session, err := s.sessionManager.GetSession(token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	game, err := s.gameManager.LeaveGame(session.RoomCode, token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.sessionManager.RemoveSession(token)
	s.connectionManager.UnmapToken(token)
	if s.persistenceManager != nil {
		if err := s.persistenceManager.DeleteSession(context.Background(), token); err != nil {
			log.Printf("Failed to delete session: %v", err)
		}
	}

	s.sendTyped(socket, ctx, "game_left", struct{}{})
	s.broadcastLobbyState(game)
}

func (s *Server) handleExecuteMove(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req ExecuteMoveRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid execute_move payload")
		return
	}

	token := s.connectionManager.GetTokenByConnection(connectionID)
	if token == "" {
		s.sendError(socket, ctx, "NOT_IN_GAME: Connection has no session")
		return
	}

	game, seat, outcome, err := s.gameManager.ExecuteMove(token, req.Move)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	// The engine's message goes back verbatim; rejections carry the rule
	// that fired.
	s.sendTyped(socket, ctx, "move_result", ExecuteMoveResponse{Result: outcome.Result})

	if !outcome.Result.Success {
		return
	}

	log.Printf("Game %s: seat %d played %s", game.RoomCode, seat, req.Move.Type)

	if outcome.RoundOver {
		reason := "went_out"
		if outcome.Result.Message == canasta.MsgGameOverDeckEmpty {
			reason = "deck_empty"
		}
		s.broadcastToGame(game, "round_over", RoundOverNotification{
			Reason:      reason,
			FinalScores: outcome.FinalScores,
			Match:       outcome.Match,
		})
	}

	s.broadcastGameState(game)
	s.persistGame(game)
}

/*
 * Send and broadcast helpers
 */

func (s *Server) sendMessage(socket *websocket.Conn, ctx context.Context, msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return socket.Write(ctx, websocket.MessageText, data)
}

func (s *Server) sendTyped(socket *websocket.Conn, ctx context.Context, msgType string, payload interface{}) {
	if err := s.sendMessage(socket, ctx, ServerMessage{Type: msgType, Payload: payload}); err != nil {
		log.Printf("Failed to send %s: %v", msgType, err)
	}
}

func (s *Server) sendError(socket *websocket.Conn, ctx context.Context, message string) {
	s.sendTyped(socket, ctx, "error", ErrorMessage{Message: message})
}

// broadcastToGame sends the same payload to every connected player.
func (s *Server) broadcastToGame(game *ActiveGame, msgType string, payload interface{}) {
	for _, slot := range game.Players {
		if slot.Token == "" {
			continue
		}
		s.sendToToken(slot.Token, msgType, payload)
	}
}

// broadcastLobbyState sends each player a personalized lobby view.
func (s *Server) broadcastLobbyState(game *ActiveGame) {
	for seat, slot := range game.Players {
		if slot.Token == "" {
			continue
		}

		players := make([]LobbyPlayer, len(game.Players))
		for i, p := range game.Players {
			players[i] = LobbyPlayer{
				Username:  p.Username,
				Ready:     p.Ready,
				Connected: p.Connected,
				IsYou:     i == seat,
			}
		}

		s.sendToToken(slot.Token, "lobby_update", LobbyState{
			RoomCode:    game.RoomCode,
			Players:     players,
			PlayerCount: len(game.Players),
			Rules:       game.Rules,
			Status:      string(game.Status),
			AllReady:    game.allReady(),
		})
	}
}

// broadcastGameState sends each seat its own projection; nobody ever sees
// another hand or the stock.
func (s *Server) broadcastGameState(game *ActiveGame) {
	if game.Game == nil {
		return
	}
	for seat, slot := range game.Players {
		if slot.Token == "" {
			continue
		}
		s.sendToToken(slot.Token, "game_state", game.Game.GetClientState(seat))
	}
}

func (s *Server) sendToToken(token, msgType string, payload interface{}) {
	connID := s.connectionManager.GetConnectionByToken(token)
	if connID == "" {
		return
	}
	socket := s.connectionManager.GetConnection(connID)
	if socket == nil {
		return
	}
	s.sendTyped(socket, context.Background(), msgType, payload)
}

func (s *Server) persistGame(game *ActiveGame, sessions ...SessionInfo) {
	// Persistence is optional; a server without a database just skips saves.
	if s.persistenceManager == nil {
		return
	}
	ctx := context.Background()
	if err := s.persistenceManager.SaveGame(ctx, game); err != nil {
		log.Printf("Failed to persist game %s: %v", game.RoomCode, err)
	}
	if err := s.persistenceManager.SaveRoomCode(ctx, game.RoomCode, true); err != nil {
		log.Printf("Failed to persist room code %s: %v", game.RoomCode, err)
	}
	for _, session := range sessions {
		if err := s.persistenceManager.SaveSession(ctx, session); err != nil {
			log.Printf("Failed to persist session: %v", err)
		}
	}
}
