package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/deskflow/internal/api/dto"
	"github.com/spec-kit/deskflow/internal/domain"
	"github.com/spec-kit/deskflow/internal/service"
	apperrors "github.com/spec-kit/deskflow/pkg/util"
)

// LookupHandler serves reference data endpoints.
type LookupHandler struct {
	lookups *service.LookupService
}

// NewLookupHandler constructs handler.
func NewLookupHandler(lookups *service.LookupService) *LookupHandler {
	return &LookupHandler{lookups: lookups}
}

// ListDepartments GET /departments.
func (h *LookupHandler) ListDepartments(c *fiber.Ctx) error {
	depts, err := h.lookups.ListDepartments(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(depts))
	for i := range depts {
		items = append(items, departmentResponse(&depts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateDepartment POST /departments.
func (h *LookupHandler) CreateDepartment(c *fiber.Ctx) error {
	var req dto.CreateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.NewValidationError("name required", nil)
	}
	dept, err := h.lookups.CreateDepartment(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": departmentResponse(dept)})
}

// ListCategories GET /categories.
func (h *LookupHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.lookups.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		items = append(items, categoryResponse(&categories[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateCategory POST /categories.
func (h *LookupHandler) CreateCategory(c *fiber.Ctx) error {
	var req dto.CreateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.DepartmentID == "" || strings.TrimSpace(req.Name) == "" {
		return apperrors.NewValidationError("department_id, name required", nil)
	}
	category, err := h.lookups.CreateCategory(c.UserContext(), req.DepartmentID, req.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": categoryResponse(category)})
}

// ListCauseTypes GET /cause-types.
func (h *LookupHandler) ListCauseTypes(c *fiber.Ctx) error {
	causeTypes, err := h.lookups.ListCauseTypes(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.CauseTypeResponse, 0, len(causeTypes))
	for i := range causeTypes {
		items = append(items, causeTypeResponse(&causeTypes[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateCauseType POST /cause-types.
func (h *LookupHandler) CreateCauseType(c *fiber.Ctx) error {
	var req dto.CreateCauseTypeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.NewValidationError("name required", nil)
	}
	ct, err := h.lookups.CreateCauseType(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": causeTypeResponse(ct)})
}

func departmentResponse(dept *domain.Department) dto.DepartmentResponse {
	return dto.DepartmentResponse{
		ID:        dept.ID,
		Name:      dept.Name,
		IsActive:  dept.IsActive,
		CreatedAt: dept.CreatedAt,
	}
}

func categoryResponse(category *domain.Category) dto.CategoryResponse {
	return dto.CategoryResponse{
		ID:           category.ID,
		DepartmentID: category.DepartmentID,
		Name:         category.Name,
		CreatedAt:    category.CreatedAt,
	}
}

func causeTypeResponse(ct *domain.CauseType) dto.CauseTypeResponse {
	return dto.CauseTypeResponse{
		ID:        ct.ID,
		Name:      ct.Name,
		CreatedAt: ct.CreatedAt,
	}
}
