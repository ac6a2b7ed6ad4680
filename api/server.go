package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chainode/config"
	"chainode/ledger"
	"chainode/node"
	"chainode/types"
)

type Server struct {
	router *gin.Engine
	srv    *http.Server

	node   *node.Node
	ledger *ledger.Ledger
}

func New(n *node.Node, ld *ledger.Ledger, cfg *config.ServerConfig) *Server {
	router := gin.Default()
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HttpPort),
		Handler: router,
	}

	return &Server{
		router: router,
		srv:    srv,

		node:   n,
		ledger: ld,
	}
}

func (s *Server) Start() {
	s.router.GET("/head", s.head)
	s.router.GET("/blocks", s.blocks)
	s.router.GET("/blocks/:hash", s.blockByHash)
	s.router.GET("/verify", s.verify)
	s.router.POST("/propose", s.propose)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(err)
		}
	}()
}

func (s *Server) Stop() {
	if err := s.srv.Shutdown(context.Background()); err != nil {
		zap.S().Errorf("Shutdown api server error: [%s]", err.Error())
	}
}

func (s *Server) head(c *gin.Context) {
	head := s.ledger.Head()
	if head == nil {
		c.JSON(200, gin.H{
			"head":   types.GenesisHash,
			"height": 0,
		})
		return
	}

	c.JSON(200, gin.H{
		"head":   head.Hash,
		"height": s.ledger.Len(),
		"block":  head,
	})
}

func (s *Server) blocks(c *gin.Context) {
	c.JSON(200, gin.H{
		"height": s.ledger.Len(),
		"blocks": s.ledger.Blocks(),
	})
}

func (s *Server) blockByHash(c *gin.Context) {
	block, ok := s.ledger.Get(c.Param("hash"))
	if !ok {
		c.JSON(404, gin.H{
			"error": "block not found",
		})
		return
	}

	c.JSON(200, block)
}

func (s *Server) verify(c *gin.Context) {
	if err := s.ledger.Verify(); err != nil {
		c.JSON(500, gin.H{
			"ok":    false,
			"error": err.Error(),
		})
		return
	}

	c.JSON(200, gin.H{
		"ok":     true,
		"height": s.ledger.Len(),
	})
}

type proposeRequest struct {
	Payload string `json:"payload" binding:"required"`
}

func (s *Server) propose(c *gin.Context) {
	var req proposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{
			"error": err.Error(),
		})
		return
	}

	hash, err := s.node.Propose([]byte(req.Payload))
	if err != nil {
		c.JSON(502, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(200, gin.H{
		"hash": hash,
	})
}
