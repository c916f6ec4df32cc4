package server

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/sumoctl/internal/arsdk/command"
	"github.com/danmuck/sumoctl/internal/arsdk/frame"
	"github.com/danmuck/sumoctl/internal/builder"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ErrAmbiguousBuffer = errors.New("exactly one of buffer_id, send or receive is required")
	ErrNoLink          = errors.New("no device link attached")
)

// EncodeRequest describes one frame to build. Exactly one of BufferID, Send
// and Receive selects the buffer.
type EncodeRequest struct {
	Type     string         `json:"type"`
	BufferID *uint8         `json:"buffer_id,omitempty"`
	Send     string         `json:"send,omitempty"`
	Receive  string         `json:"receive,omitempty"`
	Sequence uint8          `json:"sequence"`
	Command  string         `json:"command"`
	Params   command.Params `json:"params,omitempty"`
}

type CommandRequest struct {
	Type   string         `json:"type,omitempty"`
	Send   string         `json:"send,omitempty"`
	Params command.Params `json:"params,omitempty"`
}

type FeatureView struct {
	Name    string `json:"name,omitempty"`
	Project string `json:"project"`
	Class   uint8  `json:"class"`
	Command uint16 `json:"command"`
	Args    string `json:"args"`
}

type FrameView struct {
	Type     string       `json:"type"`
	BufferID uint8        `json:"buffer_id"`
	Buffer   string       `json:"buffer"`
	Sequence uint8        `json:"sequence"`
	Feature  *FeatureView `json:"feature,omitempty"`
	Payload  string       `json:"payload,omitempty"`
	Hex      string       `json:"hex"`
	Len      int          `json:"len"`
}

type roleView struct {
	Name     string `json:"name"`
	BufferID uint8  `json:"buffer_id"`
}

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": "sumoctl",
			"link":    s.sender != nil,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/buffers", func(c *gin.Context) {
		send := make([]roleView, 0)
		for _, r := range builder.SendBuffers() {
			send = append(send, roleView{Name: r.String(), BufferID: uint8(r.BufferID())})
		}
		receive := make([]roleView, 0)
		for _, r := range builder.ReceiveBuffers() {
			receive = append(receive, roleView{Name: r.String(), BufferID: uint8(r.BufferID())})
		}
		c.JSON(http.StatusOK, gin.H{"send": send, "receive": receive})
	})

	s.router.GET("/commands", func(c *gin.Context) {
		list := make([]gin.H, 0)
		for _, spec := range s.registry.List() {
			list = append(list, gin.H{"id": spec.ID, "description": spec.Description})
		}
		c.JSON(http.StatusOK, gin.H{"commands": list})
	})

	s.router.POST("/frames/encode", func(c *gin.Context) {
		var req EncodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		f, err := BuildFrame(s.registry, req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		view, err := s.view(f)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, view)
	})

	s.router.POST("/frames/decode", func(c *gin.Context) {
		var req struct {
			Hex string `json:"hex" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		raw, err := hex.DecodeString(strings.ReplaceAll(strings.TrimSpace(req.Hex), " ", ""))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		f, err := frame.Decode(raw)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		view, err := s.view(f)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, view)
	})

	s.router.POST("/commands/:name", func(c *gin.Context) {
		if s.sender == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrNoLink.Error()})
			return
		}
		var req CommandRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		typ, role, err := parseSendTarget(req.Type, req.Send)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		feat, err := s.registry.Build(c.Param("name"), req.Params)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, command.ErrUnknownCommand) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		f, err := s.sender.SendFeature(c.Request.Context(), typ, role, feat)
		if err != nil {
			s.logger.Error().Err(err).Str("command", c.Param("name")).Msg("command send failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		view, err := s.view(f)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "sent", "frame": view})
	})
}

// BuildFrame resolves req against the catalogue and runs it through the
// builder path matching its buffer selector.
func BuildFrame(registry *command.Registry, req EncodeRequest) (frame.Frame, error) {
	typ, err := frame.ParseType(defaultString(req.Type, frame.TypeDataWithAck.String()))
	if err != nil {
		return frame.Frame{}, err
	}
	feat, err := registry.Build(req.Command, req.Params)
	if err != nil {
		return frame.Frame{}, err
	}

	selectors := 0
	for _, set := range []bool{req.BufferID != nil, req.Send != "", req.Receive != ""} {
		if set {
			selectors++
		}
	}
	if selectors != 1 {
		return frame.Frame{}, ErrAmbiguousBuffer
	}

	typed := builder.New().FrameType(typ)
	switch {
	case req.BufferID != nil:
		return typed.BufferID(frame.BufferID(*req.BufferID)).Feature(req.Sequence, feat), nil
	case req.Send != "":
		role, err := builder.ParseSendBuffer(req.Send)
		if err != nil {
			return frame.Frame{}, err
		}
		return typed.Send(role).Feature(req.Sequence, feat), nil
	default:
		role, err := builder.ParseReceiveBuffer(req.Receive)
		if err != nil {
			return frame.Frame{}, err
		}
		return typed.Receive(role).Feature(req.Sequence, feat), nil
	}
}

func parseSendTarget(rawType, rawSend string) (frame.Type, builder.SendBuffer, error) {
	typ, err := frame.ParseType(defaultString(rawType, frame.TypeDataWithAck.String()))
	if err != nil {
		return 0, 0, err
	}
	role, err := builder.ParseSendBuffer(defaultString(rawSend, builder.SendAck.String()))
	if err != nil {
		return 0, 0, err
	}
	return typ, role, nil
}

func (s *Server) view(f frame.Frame) (FrameView, error) {
	b, err := frame.Encode(f)
	if err != nil {
		return FrameView{}, fmt.Errorf("encode frame: %w", err)
	}
	v := FrameView{
		Type:     f.Type.String(),
		BufferID: uint8(f.BufferID),
		Buffer:   f.BufferID.String(),
		Sequence: f.Sequence,
		Hex:      hex.EncodeToString(b),
		Len:      len(b),
	}
	if f.Feature != nil {
		name, _ := s.registry.Name(*f.Feature)
		v.Feature = &FeatureView{
			Name:    name,
			Project: f.Feature.Project.String(),
			Class:   f.Feature.Class,
			Command: f.Feature.Command,
			Args:    hex.EncodeToString(f.Feature.Args),
		}
	} else if len(f.Payload) > 0 {
		v.Payload = hex.EncodeToString(f.Payload)
	}
	return v, nil
}

func defaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}
