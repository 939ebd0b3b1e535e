package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"scholar-search-go/internal/config"
	"scholar-search-go/internal/model"
	"scholar-search-go/internal/service"
	"scholar-search-go/pkg/log"
	"scholar-search-go/pkg/storage"
)

// maxAvatarSize 是头像上传的大小上限。
const maxAvatarSize = 5 << 20 // 5 MiB

// UserHandler 负责处理用户资料相关的 API 请求。
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// avatarURLExpiry 是头像预签名链接的有效期。
const avatarURLExpiry = 24 * time.Hour

// Me 返回当前登录用户的资料。
// 头像以限时的预签名链接形式返回，对象存储本身不对外开放。
func (h *UserHandler) Me(c *gin.Context) {
	user := c.MustGet("user").(*model.User)
	c.JSON(http.StatusOK, gin.H{
		"user":      user,
		"avatarUrl": h.presignedAvatarURL(user),
	})
}

// presignedAvatarURL 为用户头像生成预签名访问链接，没有头像时返回空串。
func (h *UserHandler) presignedAvatarURL(user *model.User) string {
	if user.AvatarURL == "" {
		return ""
	}
	url, err := storage.GetPresignedURL(config.Conf.MinIO.BucketName, user.AvatarURL, avatarURLExpiry)
	if err != nil {
		log.Warnf("[UserHandler] 生成头像预签名链接失败, userID: %s, error: %v", user.ID, err)
		return ""
	}
	return url
}

// UploadAvatar 接收 multipart 头像文件，上传到对象存储并更新用户资料。
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	user := c.MustGet("user").(*model.User)

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file required"})
		return
	}
	if fileHeader.Size > maxAvatarSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read avatar file"})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	avatarURL, err := storage.UploadAvatar(c.Request.Context(), config.Conf.MinIO, user.ID, file, fileHeader.Size, contentType)
	if err != nil {
		log.Errorf("[UserHandler] 上传头像失败, userID: %s, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload avatar"})
		return
	}

	updated, err := h.userService.SetAvatar(c.Request.Context(), user.ID, avatarURL)
	if err != nil {
		log.Errorf("[UserHandler] 更新头像地址失败, userID: %s, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update avatar"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":      updated,
		"avatarUrl": h.presignedAvatarURL(updated),
	})
}
