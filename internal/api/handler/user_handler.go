package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quochuy14775/SmartResourceBookingBE/internal/currentuser"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/dto"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/service"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/odata"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/response"
)

// UserHandler 用户模块 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
	logger  *zap.Logger
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{userSvc: userSvc, logger: logger}
}

// ListUsers 获取用户列表（支持 $filter/$orderby/$top/$skip/$count）
// GET /api/v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	opts, err := odata.Parse(c.Request.URL.Query(), service.UserFields)
	if err != nil {
		respondError(c, h.logger, err, 0)
		return
	}

	count, users, err := h.userSvc.List(c.Request.Context(), opts)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OKList(c, users, count)
}

// GetCurrentUser 获取当前登录用户
// GET /api/v1/users/me
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	if _, ok := MustGetCaller(c); !ok {
		return
	}

	ctx := c.Request.Context()
	account, err := currentuser.FromContext(c).GetCurrentUser(ctx)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	user, err := h.userSvc.GetCurrent(ctx, account)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// GetUser 获取用户详情
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.userSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// GetUserRoles 获取用户角色
// GET /api/v1/users/:id/roles
func (h *UserHandler) GetUserRoles(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	roles, err := h.userSvc.Roles(c.Request.Context(), id)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, roles)
}

// CreateUser 创建用户
// POST /api/v1/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	user, err := h.userSvc.Create(c.Request.Context(), &req, callerFrom(c))
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.Created(c, user)
}

// UpdateUser 更新用户
// PUT /api/v1/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	user, err := h.userSvc.Update(c.Request.Context(), id, &req, callerFrom(c))
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// DeleteUser 删除用户
// DELETE /api/v1/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.userSvc.Delete(c.Request.Context(), id, callerFrom(c)); err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, nil)
}

// SetLockout 锁定 / 解锁用户
// POST /api/v1/users/:id/lockout
func (h *UserHandler) SetLockout(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.LockoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.userSvc.SetLockout(c.Request.Context(), id, *req.Lockout, callerFrom(c)); err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, nil)
}

// ResetPassword 管理员重置密码
// POST /api/v1/users/:id/reset-password
func (h *UserHandler) ResetPassword(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.userSvc.ResetPassword(c.Request.Context(), id, req.NewPassword, callerFrom(c)); err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, nil)
}

// ChangePassword 修改本人密码
// POST /api/v1/users/change-password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.userSvc.ChangePassword(c.Request.Context(), caller, &req); err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, nil)
}

// ImportUsers Excel 批量导入用户
// POST /api/v1/users/import
func (h *UserHandler) ImportUsers(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 12007, "请上传 Excel 文件")
		return
	}
	defer file.Close()

	rows, err := h.userSvc.ParseImportFile(file)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	result, err := h.userSvc.Import(c.Request.Context(), rows, callerFrom(c))
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, result)
}

// handleUserError 统一处理用户模块业务错误
func (h *UserHandler) handleUserError(c *gin.Context, err error) {
	code := 0
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		code = 12001
	case errors.Is(err, service.ErrDuplicateUserName):
		code = 12002
	case errors.Is(err, service.ErrDuplicateEmail), errors.Is(err, service.ErrEmailInUse):
		code = 12003
	case errors.Is(err, service.ErrSelfDeletionForbidden), errors.Is(err, service.ErrSelfLockoutForbidden):
		code = 12004
	case errors.Is(err, service.ErrRoleAssignmentFailed):
		code = 12005
	case errors.Is(err, service.ErrUnauthorized):
		code = 12006
	case errors.Is(err, service.ErrImportNoData), errors.Is(err, service.ErrImportTooManyRows),
		errors.Is(err, service.ErrImportBadHeader), errors.Is(err, service.ErrImportBadFile):
		code = 12007
	case errors.Is(err, service.ErrDepartmentNotFound):
		code = 13001
	}
	respondError(c, h.logger, err, code)
}
