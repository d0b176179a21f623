package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quochuy14775/SmartResourceBookingBE/internal/dto"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/service"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/odata"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/response"
)

// DepartmentHandler 部门模块 HTTP 处理器
type DepartmentHandler struct {
	deptSvc service.DepartmentService
	logger  *zap.Logger
}

// NewDepartmentHandler 创建 DepartmentHandler
func NewDepartmentHandler(deptSvc service.DepartmentService, logger *zap.Logger) *DepartmentHandler {
	return &DepartmentHandler{deptSvc: deptSvc, logger: logger}
}

// ListDepartments 获取部门列表（支持 $filter/$orderby/$top/$skip/$count）
// GET /api/v1/departments
func (h *DepartmentHandler) ListDepartments(c *gin.Context) {
	opts, err := odata.Parse(c.Request.URL.Query(), service.DepartmentFields)
	if err != nil {
		respondError(c, h.logger, err, 0)
		return
	}

	count, depts, err := h.deptSvc.List(c.Request.Context(), opts)
	if err != nil {
		h.handleDepartmentError(c, err)
		return
	}

	response.OKList(c, depts, count)
}

// GetDepartment 获取部门详情
// GET /api/v1/departments/:id
func (h *DepartmentHandler) GetDepartment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	dept, err := h.deptSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleDepartmentError(c, err)
		return
	}

	response.OK(c, dept)
}

// CreateDepartment 创建部门
// POST /api/v1/departments
func (h *DepartmentHandler) CreateDepartment(c *gin.Context) {
	var req dto.CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	dept, err := h.deptSvc.Create(c.Request.Context(), &req, callerFrom(c))
	if err != nil {
		h.handleDepartmentError(c, err)
		return
	}

	response.Created(c, dept)
}

// UpdateDepartment 更新部门
// PUT /api/v1/departments/:id
func (h *DepartmentHandler) UpdateDepartment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	dept, err := h.deptSvc.Update(c.Request.Context(), id, &req, callerFrom(c))
	if err != nil {
		h.handleDepartmentError(c, err)
		return
	}

	response.OK(c, dept)
}

// DeleteDepartments 批量软删除部门
// PUT /api/v1/departments/delete
func (h *DepartmentHandler) DeleteDepartments(c *gin.Context) {
	h.bulk(c, h.deptSvc.Delete)
}

// DisableDepartments 批量停用部门
// PUT /api/v1/departments/disable
func (h *DepartmentHandler) DisableDepartments(c *gin.Context) {
	h.bulk(c, h.deptSvc.Disable)
}

// EnableDepartments 批量启用部门
// PUT /api/v1/departments/enable
func (h *DepartmentHandler) EnableDepartments(c *gin.Context) {
	h.bulk(c, h.deptSvc.Enable)
}

type bulkFunc func(ctx context.Context, ids []int64, caller service.Caller) ([]int64, error)

func (h *DepartmentHandler) bulk(c *gin.Context, op bulkFunc) {
	var req dto.DepartmentIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	affected, err := op(c.Request.Context(), req.IDs, callerFrom(c))
	if err != nil {
		h.handleDepartmentError(c, err)
		return
	}

	response.OK(c, dto.BulkResultResponse{Affected: affected})
}

// handleDepartmentError 统一处理部门模块业务错误
func (h *DepartmentHandler) handleDepartmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDepartmentNotFound):
		respondError(c, h.logger, err, 13001)
	case errors.Is(err, service.ErrDepartmentNameExists):
		respondError(c, h.logger, err, 13002)
	default:
		respondError(c, h.logger, err, 0)
	}
}
