package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hydration-user-service/internal/adapter/gin/response"
	"hydration-user-service/internal/adapter/rpc"
	pkgerrors "hydration-user-service/pkg/errors"
	"hydration-user-service/pkg/logger"
)

// maxInputBytes bounds a POSTed procedure input.
const maxInputBytes = 1 << 20

// RPCHandler exposes the procedure router over HTTP.
type RPCHandler struct {
	router *rpc.Router
	log    *zap.Logger
}

// NewRPCHandler creates a new RPC handler
func NewRPCHandler(router *rpc.Router, log *zap.Logger) *RPCHandler {
	return &RPCHandler{router: router, log: log}
}

// Call handles GET and POST /api/rpc/:procedure.
// GET reads the input from the "input" query parameter, POST from the body.
func (h *RPCHandler) Call(c *gin.Context) {
	name := c.Param("procedure")

	input, err := readInput(c)
	if err != nil {
		logger.WithContext(c.Request.Context(), h.log).Debug("rejecting rpc input", zap.String("procedure", name), zap.Error(err))
		response.Error(c, err)
		return
	}

	out, err := h.router.Call(c.Request.Context(), name, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, out)
}

func readInput(c *gin.Context) (json.RawMessage, error) {
	var raw []byte
	switch c.Request.Method {
	case http.MethodGet:
		raw = []byte(c.Query("input"))
	default:
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxInputBytes+1))
		if err != nil {
			return nil, pkgerrors.NewValidationError("input", "failed to read request body")
		}
		if len(body) > maxInputBytes {
			return nil, pkgerrors.NewValidationError("input", "request body too large")
		}
		raw = body
	}

	if len(raw) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, pkgerrors.NewValidationError("input", "input must be valid JSON")
	}
	return raw, nil
}
