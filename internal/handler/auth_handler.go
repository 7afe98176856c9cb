package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smsline/smsline/internal/pkg/errcode"
	"github.com/smsline/smsline/internal/pkg/jwt"
	"github.com/smsline/smsline/internal/pkg/password"
	"github.com/smsline/smsline/internal/pkg/response"
)

type AuthHandler struct {
	accessKeyHash string
	secret        []byte
	ttl           time.Duration
}

func NewAuthHandler(accessKeyHash string, secret []byte, ttl time.Duration) *AuthHandler {
	return &AuthHandler{accessKeyHash: accessKeyHash, secret: secret, ttl: ttl}
}

type tokenRequest struct {
	AccessKey string `json:"access_key"`
}

func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.AccessKey == "" || !password.Verify(h.accessKeyHash, req.AccessKey) {
		response.Error(c, errcode.ErrUnauthorized, "bad access key")
		return
	}
	token, err := jwt.GenerateToken("operator", h.secret, h.ttl)
	if err != nil {
		response.Error(c, errcode.ErrInternal, "internal error")
		return
	}
	response.Success(c, gin.H{"token": token})
}
