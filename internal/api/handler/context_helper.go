package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quochuy14775/SmartResourceBookingBE/internal/currentuser"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/service"
	pkgerrors "github.com/quochuy14775/SmartResourceBookingBE/pkg/errors"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/response"
)

// callerFrom 将请求的当前用户转换为显式的 service.Caller
// 匿名请求返回 ID 为 0 的 Caller
func callerFrom(c *gin.Context) service.Caller {
	a := currentuser.FromContext(c)
	return service.Caller{
		ID:       a.GetCurrentUserID(),
		UserName: a.Name(),
		Roles:    a.Roles(),
	}
}

// MustGetCaller 取出已认证的调用者；未认证时写入 401 并返回 false
func MustGetCaller(c *gin.Context) (service.Caller, bool) {
	caller := callerFrom(c)
	if caller.ID == 0 {
		response.Unauthorized(c, 10002, "未认证")
		return caller, false
	}
	return caller, true
}

// parseID 解析路径参数 :id，非法时写入 400 并返回 false
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, "ID格式不正确")
		return 0, false
	}
	return id, true
}

// respondError 按错误类别输出响应
// code 为模块内的业务码，传 0 时使用类别默认码；未归类的错误记录日志后返回 500
func respondError(c *gin.Context, logger *zap.Logger, err error, code int) {
	pick := func(def int) int {
		if code != 0 {
			return code
		}
		return def
	}

	switch pkgerrors.Kind(err) {
	case pkgerrors.ErrNotFound:
		response.NotFound(c, pick(40400), err.Error())
	case pkgerrors.ErrDuplicate:
		response.Conflict(c, pick(40900), err.Error())
	case pkgerrors.ErrConstraintViolation:
		// 驱动错误不外露
		logger.Warn("数据约束冲突", zap.String("path", c.FullPath()), zap.Error(err))
		response.Conflict(c, pick(40901), pkgerrors.ErrConstraintViolation.Error())
	case pkgerrors.ErrOptimisticLock:
		response.Conflict(c, pick(40902), pkgerrors.ErrOptimisticLock.Error())
	case pkgerrors.ErrForbidden:
		response.Forbidden(c, pick(40300), err.Error())
	case pkgerrors.ErrUnauthorized:
		response.Unauthorized(c, pick(40100), err.Error())
	case pkgerrors.ErrValidation:
		response.BadRequest(c, pick(10001), err.Error())
	case pkgerrors.ErrIdentityOperation:
		var idErr *pkgerrors.IdentityError
		var details []string
		if errors.As(err, &idErr) {
			details = idErr.Descriptions
		}
		response.ErrorWithDetails(c, http.StatusBadRequest, pick(10006), err.Error(), details)
	default:
		logger.Error("请求处理失败",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		response.InternalError(c)
	}
}
