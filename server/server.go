package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/townserver/broadcast"
	"github.com/wfunc/townserver/config"
	"github.com/wfunc/townserver/logger"
	"github.com/wfunc/townserver/models"
	"github.com/wfunc/townserver/monitor"
	"github.com/wfunc/townserver/network"
	"github.com/wfunc/townserver/persistence"
	townserver_rpc "github.com/wfunc/townserver/rpc"
	"github.com/wfunc/townserver/services"
	"github.com/wfunc/townserver/session"
	"github.com/wfunc/townserver/timer"
	"github.com/wfunc/townserver/town"
)

type TownServer struct {
	addr           string
	monitorAddr    string
	upgrader       websocket.Upgrader
	townManager    *town.Manager
	sessionManager *session.Manager
	broadcaster    broadcast.Broadcaster
	leaderboards   *services.LeaderboardService
	db             persistence.Database
	rpcServer      *townserver_rpc.Server
	timers         *timer.Manager
	monitor        *monitor.Monitor
	townConfig     config.TownConfig
	shutdownChan   chan struct{}
}

func NewTownServer(cfg *config.Config, db persistence.Database) *TownServer {
	s := &TownServer{
		addr:           cfg.Server.HTTPAddress,
		monitorAddr:    cfg.Server.MonitorAddress,
		townManager:    town.NewManager(),
		sessionManager: session.NewManager(),
		leaderboards:   services.NewLeaderboardService(db),
		db:             db,
		timers:         timer.NewManager(),
		monitor:        monitor.NewMonitor("townserver"),
		townConfig:     cfg.Town,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 初始化广播器
	s.broadcaster = broadcast.NewTownBroadcaster(s.townManager, s.sessionManager)

	// 初始化RPC服务器
	rpcServer, err := townserver_rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer
	rpc.Register(townserver_rpc.NewAdminService(s.leaderboards))

	// 倒计时驱动: 区域本身不推进timer, 由这里每秒走一格
	tick := time.Duration(cfg.Town.CountdownSeconds) * time.Second
	if tick <= 0 {
		tick = time.Second
	}
	s.timers.AddTimer(tick, tick, s.advanceCountdowns)

	return s
}

func (s *TownServer) Start() error {
	go s.rpcServer.Start()
	if s.monitorAddr != "" {
		s.monitor.StartServer(s.monitorAddr)
	}

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Town server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *TownServer) Shutdown() {
	close(s.shutdownChan)
	s.timers.Stop()
	s.rpcServer.Stop()
}

func (s *TownServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *TownServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.leaveCurrentTown(sess)
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlinePlayers()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			start := time.Now()
			s.handlePacket(sess, packet)
			s.monitor.IncMessagesReceived()
			s.monitor.ObserveMessageLatency(time.Since(start))
		}
	}
}

func (s *TownServer) handlePacket(sess *session.Session, packet *network.Packet) {
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.LastActive = time.Now()
	case network.MsgTypeCreateTown:
		s.handleCreateTown(sess, packet)
	case network.MsgTypeJoinTown:
		s.handleJoinTown(sess, packet)
	case network.MsgTypeLeaveTown:
		s.leaveCurrentTown(sess)
	case network.MsgTypePlayerMove:
		s.handlePlayerMove(sess, packet)
	case network.MsgTypeAreaUpdate:
		s.handleAreaUpdate(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

func (s *TownServer) handleCreateTown(sess *session.Session, packet *network.Packet) {
	var req struct {
		FriendlyName string `json:"friendly_name"`
		UserName     string `json:"user_name"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, err)
		return
	}

	townID := uuid.New().String()
	emitter := broadcast.NewEmitter(townID, s.broadcaster)
	t, err := s.townManager.CreateTown(townID, req.FriendlyName, s.townConfig.MaxPlayers, emitter, s.mapObjects())
	if err != nil {
		logger.Log.Errorf("Failed to create town %s: %v", townID, err)
		s.sendError(sess, err)
		return
	}
	s.monitor.SetActiveTowns(s.townManager.Count())

	// 排行榜跨会话保留: 从数据库恢复
	s.seedLeaderboards(t)

	logger.Log.Infof("Session %s created town %s", sess.GetID(), townID)
	s.admit(sess, t, req.UserName)
}

func (s *TownServer) handleJoinTown(sess *session.Session, packet *network.Packet) {
	var req struct {
		TownID   string `json:"town_id"`
		UserName string `json:"user_name"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, err)
		return
	}

	t, exists := s.townManager.GetTown(req.TownID)
	if !exists {
		t = s.restoreTown(req.TownID)
	}
	if t == nil {
		s.sendError(sess, broadcast.ErrTownNotFound)
		return
	}

	logger.Log.Infof("Session %s joined town %s", sess.GetID(), req.TownID)
	s.admit(sess, t, req.UserName)
}

// admit adds the player and sends the initial-state payload with every
// interactable in the town.
func (s *TownServer) admit(sess *session.Session, t *town.Town, userName string) {
	sess.UserID = userName
	sess.UserName = userName

	if err := t.AddPlayer(sess); err != nil {
		s.sendError(sess, err)
		return
	}

	state := models.TownState{
		TownID:        t.ID,
		FriendlyName:  t.FriendlyName,
		Interactables: t.Interactables(),
	}
	data, _ := json.Marshal(state)
	sess.Send(network.MsgTypeTownState, data)
}

func (s *TownServer) leaveCurrentTown(sess *session.Session) {
	if sess.TownID == "" {
		return
	}
	if t, exists := s.townManager.GetTown(sess.TownID); exists {
		t.RemovePlayer(sess.GetID())
		if t.PlayerCount() == 0 {
			s.saveTownState(t)
			s.townManager.RemoveTown(t.ID)
			s.monitor.SetActiveTowns(s.townManager.Count())
		}
	}
}

// saveTownState persists an emptied town so it can be rejoined later.
func (s *TownServer) saveTownState(t *town.Town) {
	state := map[string]interface{}{
		"friendly_name": t.FriendlyName,
	}
	if err := s.db.SaveTownState(t.ID, t.FriendlyName, state); err != nil {
		logger.Log.Warnf("Failed to save state for town %s: %v", t.ID, err)
	}
}

// restoreTown rebuilds a previously persisted town: fresh areas from the
// configured map, leaderboards reloaded from the database.
func (s *TownServer) restoreTown(townID string) *town.Town {
	state, err := s.db.LoadTownState(townID)
	if err != nil {
		return nil
	}

	friendlyName, _ := state["friendly_name"].(string)
	emitter := broadcast.NewEmitter(townID, s.broadcaster)
	t, err := s.townManager.CreateTown(townID, friendlyName, s.townConfig.MaxPlayers, emitter, s.mapObjects())
	if err != nil {
		logger.Log.Errorf("Failed to restore town %s: %v", townID, err)
		return nil
	}
	s.monitor.SetActiveTowns(s.townManager.Count())
	s.seedLeaderboards(t)
	logger.Log.Infof("Restored town %s from persistence", townID)
	return t
}

func (s *TownServer) handlePlayerMove(sess *session.Session, packet *network.Packet) {
	t, exists := s.townManager.GetTown(sess.TownID)
	if !exists {
		logger.Log.Warnf("Session %s moved but is not in a town", sess.GetID())
		return
	}

	var loc models.PlayerLocation
	if err := json.Unmarshal(packet.Data, &loc); err != nil {
		s.sendError(sess, err)
		return
	}
	t.MovePlayer(sess, loc)
}

// handleAreaUpdate is the request-level gate in front of UpdateModel: the
// target id must name an existing dance area in the player's town, otherwise
// the request is rejected before any state changes.
func (s *TownServer) handleAreaUpdate(sess *session.Session, packet *network.Packet) {
	t, exists := s.townManager.GetTown(sess.TownID)
	if !exists {
		logger.Log.Warnf("Session %s sent an area update but is not in a town", sess.GetID())
		return
	}

	var model models.DanceAreaModel
	if err := json.Unmarshal(packet.Data, &model); err != nil {
		s.sendError(sess, err)
		return
	}

	if err := t.UpdateArea(model); err != nil {
		if errors.Is(err, town.ErrAreaNotFound) {
			logger.Log.Warnf("Session %s targeted unknown area %s", sess.GetID(), model.ID)
		}
		s.sendError(sess, err)
	}
}

// advanceCountdowns walks every occupied dance area once per tick,
// decrementing its timer through the same update-then-emit path area
// updates take. A timer reaching zero settles the round.
func (s *TownServer) advanceCountdowns() {
	for _, t := range s.townManager.Towns() {
		for _, a := range t.Areas() {
			if !a.IsOccupied() {
				continue
			}

			model := a.ToModel()
			if model.Timer <= 0 {
				continue
			}

			model.Timer--
			if model.Timer == 0 {
				s.settleRound(t, &model)
			}

			if err := t.UpdateArea(model); err != nil {
				logger.Log.Errorf("Countdown update failed for area %s: %v", model.ID, err)
			}
		}
	}
}

// settleRound records the finished round and rearms the area for the next
// one. The leaderboard merge and cap live in the leaderboard service.
func (s *TownServer) settleRound(t *town.Town, model *models.DanceAreaModel) {
	board, err := s.leaderboards.RecordScore(model.ID, model.Leaderboard, model.CurrentScore)
	if err != nil {
		logger.Log.Errorf("Failed to record score for area %s: %v", model.ID, err)
	} else {
		model.Leaderboard = board
	}

	logger.Log.Infof("Round over in area %s: %s scored %d",
		model.ID, model.CurrentScore.UserID, model.CurrentScore.Score)
	s.monitor.IncDanceSessions()

	record := &models.GormDanceRecord{
		TownID:     t.ID,
		AreaID:     model.ID,
		Difficulty: int(model.Difficulty),
		Players: map[string]interface{}{
			"scorer": model.CurrentScore.UserID,
		},
		Result: map[string]interface{}{
			"score":  model.CurrentScore.Score,
			"clicks": len(model.UserClicks),
		},
		Duration: models.TimerMultiplier * int(model.Difficulty),
	}
	if err := s.db.SaveDanceRecord(record); err != nil {
		logger.Log.Errorf("Failed to save dance record for area %s: %v", model.ID, err)
	}

	model.CurrentScore = models.ScoreObject{}
	model.UserClicks = []models.Arrow{}
	model.Timer = models.TimerMultiplier * int(model.Difficulty)
}

// seedLeaderboards restores each area's persisted leaderboard into the
// freshly built town.
func (s *TownServer) seedLeaderboards(t *town.Town) {
	for _, a := range t.Areas() {
		board, err := s.leaderboards.AreaLeaderboard(a.ID())
		if err != nil {
			logger.Log.Warnf("Could not load leaderboard for area %s: %v", a.ID(), err)
			continue
		}
		if len(board) == 0 {
			continue
		}
		model := a.ToModel()
		model.Leaderboard = board
		a.UpdateModel(model)
	}
}

func (s *TownServer) mapObjects() []models.MapObject {
	objects := make([]models.MapObject, 0, len(s.townConfig.DanceAreas))
	for _, o := range s.townConfig.DanceAreas {
		objects = append(objects, models.MapObject{
			Name:   o.Name,
			X:      o.X,
			Y:      o.Y,
			Width:  o.Width,
			Height: o.Height,
		})
	}
	return objects
}

func (s *TownServer) sendError(sess *session.Session, err error) {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	sess.Send(network.MsgTypeError, data)
}
