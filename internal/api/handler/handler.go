package handler

import (
	"go.uber.org/zap"

	"github.com/quochuy14775/SmartResourceBookingBE/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	User       *UserHandler
	Department *DepartmentHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth, logger),
		User:       NewUserHandler(svc.User, logger),
		Department: NewDepartmentHandler(svc.Department, logger),
	}
}
