package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/townserver/logger"
	"github.com/wfunc/townserver/models"
	"github.com/wfunc/townserver/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes leaderboard reads over net/rpc.
type AdminService struct {
	leaderboards *services.LeaderboardService
}

func NewAdminService(ls *services.LeaderboardService) *AdminService {
	return &AdminService{leaderboards: ls}
}

type LeaderboardArgs struct {
	AreaID string
}

type LeaderboardReply struct {
	Scores []models.ScoreObject
}

// GetLeaderboard returns an area's persisted leaderboard.
func (a *AdminService) GetLeaderboard(args *LeaderboardArgs, reply *LeaderboardReply) error {
	scores, err := a.leaderboards.AreaLeaderboard(args.AreaID)
	if err != nil {
		return err
	}
	reply.Scores = scores
	return nil
}

type PlayerBestArgs struct {
	UserID string
}

type PlayerBestReply struct {
	Best *models.PlayerBest
}

// GetPlayerBest returns a player's best score across all areas.
func (a *AdminService) GetPlayerBest(args *PlayerBestArgs, reply *PlayerBestReply) error {
	best, err := a.leaderboards.PlayerBest(args.UserID)
	if err != nil {
		return err
	}
	reply.Best = best
	return nil
}
