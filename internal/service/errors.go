package service

import "errors"

// 业务层错误哨兵，由 handler 映射为对应的 HTTP 状态码。
var (
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrEmptyMessage         = errors.New("message content is empty")
	ErrEmptyQuery           = errors.New("search query is empty")
)
