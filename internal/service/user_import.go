package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/quochuy14775/SmartResourceBookingBE/internal/dto"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/model"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/repository"
	pkgerrors "github.com/quochuy14775/SmartResourceBookingBE/pkg/errors"
)

// ImportUserRow Excel 导入解析后的单行数据
type ImportUserRow struct {
	Row            int
	UserName       string
	Email          string
	FullName       string
	Password       string
	DepartmentName string
	Roles          []string
}

// ────────────────────── ParseImportFile ──────────────────────

const maxImportRows = 1000

var (
	ErrImportNoData      = pkgerrors.New(pkgerrors.ErrValidation, "Excel文件无数据行（第一行为表头）")
	ErrImportTooManyRows = pkgerrors.New(pkgerrors.ErrValidation, fmt.Sprintf("数据行数超过上限 %d 行", maxImportRows))
	ErrImportBadHeader   = pkgerrors.New(pkgerrors.ErrValidation, "Excel表头缺少必要列（用户名/邮箱/姓名/密码）")
	ErrImportBadFile     = pkgerrors.New(pkgerrors.ErrValidation, "无法解析Excel文件")
)

const (
	colUserName   = "username"
	colEmail      = "email"
	colFullName   = "full_name"
	colPassword   = "password"
	colDepartment = "department"
	colRoles      = "roles"
)

func (s *userService) ParseImportFile(reader io.Reader) ([]ImportUserRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportBadFile, err)
	}
	defer f.Close()

	excelRows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportBadFile, err)
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	// 表头支持任意列序，部门与角色列可选
	colIndex := parseHeaderIndex(excelRows[0])
	for _, required := range []string{colUserName, colEmail, colFullName, colPassword} {
		if colIndex[required] < 0 {
			return nil, ErrImportBadHeader
		}
	}

	cell := func(row []string, col string) string {
		if idx := colIndex[col]; idx >= 0 && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var rows []ImportUserRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := ImportUserRow{
			Row:            i + 1,
			UserName:       cell(row, colUserName),
			Email:          cell(row, colEmail),
			FullName:       cell(row, colFullName),
			Password:       cell(row, colPassword),
			DepartmentName: cell(row, colDepartment),
			Roles:          splitRoles(cell(row, colRoles)),
		}

		// 跳过全空行
		if item.UserName == "" && item.Email == "" && item.FullName == "" && item.Password == "" && item.DepartmentName == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return rows, nil
}

// parseHeaderIndex 解析 Excel 表头，返回列名 -> 列索引映射
func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		colUserName:   -1,
		colEmail:      -1,
		colFullName:   -1,
		colPassword:   -1,
		colDepartment: -1,
		colRoles:      -1,
	}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "用户名", "username", "user_name":
			idx[colUserName] = i
		case "邮箱", "email":
			idx[colEmail] = i
		case "姓名", "fullname", "full_name":
			idx[colFullName] = i
		case "密码", "password":
			idx[colPassword] = i
		case "部门", "department":
			idx[colDepartment] = i
		case "角色", "roles":
			idx[colRoles] = i
		}
	}
	return idx
}

// splitRoles 角色列以逗号或分号分隔
func splitRoles(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' || r == '，' })
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			roles = append(roles, p)
		}
	}
	return roles
}

// ────────────────────── Import ──────────────────────

func (s *userService) Import(ctx context.Context, rows []ImportUserRow, caller Caller) (*dto.ImportUserResponse, error) {
	resp := &dto.ImportUserResponse{Total: len(rows)}

	// 预加载所有未删除部门，便于按名称查找
	depts, err := repository.For[model.Department](s.store.NewSession(ctx, 0)).Query().List()
	if err != nil {
		s.logger.Error("加载部门列表失败", zap.Error(err))
		return nil, err
	}
	deptMap := make(map[string]int64, len(depts))
	for i := range depts {
		deptMap[strings.ToLower(depts[i].Name)] = depts[i].ID
	}

	fail := func(row int, reason string) {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportUserError{Row: row, Reason: reason})
		s.observeImport("failed")
	}

	for _, row := range rows {
		if row.UserName == "" || row.Email == "" || row.FullName == "" || row.Password == "" {
			fail(row.Row, "必填字段为空")
			continue
		}

		req := &dto.CreateUserRequest{
			UserName: row.UserName,
			Email:    row.Email,
			FullName: row.FullName,
			Password: row.Password,
			Roles:    row.Roles,
		}
		if row.DepartmentName != "" {
			id, ok := deptMap[strings.ToLower(row.DepartmentName)]
			if !ok {
				fail(row.Row, fmt.Sprintf("部门不存在: %s", row.DepartmentName))
				continue
			}
			req.DepartmentID = &id
		}

		// 每行独立创建，业务拒绝记入错误列表，基础设施故障中止导入
		if _, err := s.Create(ctx, req, caller); err != nil {
			if pkgerrors.Kind(err) == nil {
				s.logger.Error("导入用户写入失败", zap.Int("row", row.Row), zap.Error(err))
				return nil, fmt.Errorf("第 %d 行写入失败，导入中止: %w", row.Row, err)
			}
			fail(row.Row, importReason(err))
			continue
		}
		resp.Success++
		s.observeImport("created")
	}

	s.logger.Info("用户导入完成",
		zap.Int("total", resp.Total),
		zap.Int("success", resp.Success),
		zap.Int("failed", resp.Failed),
		zap.Int64("caller", caller.ID),
	)
	return resp, nil
}

// importReason 优先展示账号子系统给出的详细描述
func importReason(err error) string {
	var ie *pkgerrors.IdentityError
	if errors.As(err, &ie) && len(ie.Descriptions) > 0 {
		return strings.Join(ie.Descriptions, "; ")
	}
	return err.Error()
}

func (s *userService) observeImport(result string) {
	if s.metrics != nil {
		s.metrics.UsersImported.WithLabelValues(result).Inc()
	}
}
