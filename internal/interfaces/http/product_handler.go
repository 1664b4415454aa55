package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-movil/internal/application/dto"
	"github.com/jhoicas/inventario-movil/internal/application/inventory"
)

// ProductHandler maneja las peticiones HTTP del catálogo.
type ProductHandler struct {
	catalog *inventory.CatalogService
}

// NewProductHandler construye el handler.
func NewProductHandler(catalog *inventory.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// Create godoc
// @Summary      Crear producto
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateProductRequest  true  "Datos del producto"
// @Success      201   {object}  dto.ProductResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/products [post]
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	p := in.ToEntity()
	if err := h.catalog.Create(c.UserContext(), p); err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromProduct(p))
}

// Get godoc
// @Summary      Obtener producto por SKU
// @Tags         products
// @Produce      json
// @Param        sku  path  string  true  "SKU"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{sku} [get]
func (h *ProductHandler) Get(c *fiber.Ctx) error {
	p, err := h.catalog.Get(c.UserContext(), c.Params("sku"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromProduct(p))
}

// List godoc
// @Summary      Listar catálogo
// @Tags         products
// @Produce      json
// @Success      200  {object}  dto.ListResponse[dto.ProductResponse]
// @Router       /api/products [get]
func (h *ProductHandler) List(c *fiber.Ctx) error {
	list, err := h.catalog.ListProducts(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		out = append(out, dto.FromProduct(p))
	}
	return c.JSON(dto.NewList(out))
}

// Update godoc
// @Summary      Actualizar metadatos de un producto
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        sku   path  string  true  "SKU"
// @Param        body  body  dto.UpdateProductRequest  true  "Campos a cambiar"
// @Success      200   {object}  dto.ProductResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/products/{sku} [put]
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	p, err := h.catalog.Get(c.UserContext(), c.Params("sku"))
	if err != nil {
		return writeError(c, err)
	}
	in.Apply(p)
	if err := h.catalog.UpdateMetadata(c.UserContext(), p); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromProduct(p))
}

// ResolveBarcode godoc
// @Summary      Traducir código de barras a SKU
// @Tags         products
// @Produce      json
// @Param        code  path  string  true  "Código de barras antiguo o maestro"
// @Success      200   {object}  map[string]string
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/products/barcode/{code} [get]
func (h *ProductHandler) ResolveBarcode(c *fiber.Ctx) error {
	sku, ok, err := h.catalog.ResolveBarcode(c.UserContext(), c.Params("code"))
	if err != nil {
		return writeError(c, err)
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "código de barras no registrado"})
	}
	return c.JSON(fiber.Map{"code": strings.TrimSpace(c.Params("code")), "sku": sku})
}

// LowStock godoc
// @Summary      Productos bajo stock mínimo en bodega
// @Tags         products
// @Produce      json
// @Success      200  {object}  dto.ListResponse[dto.LowStockResponse]
// @Router       /api/products/low-stock [get]
func (h *ProductHandler) LowStock(c *fiber.Ctx) error {
	items, err := h.catalog.LowStock(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewList(dto.FromLowStock(items)))
}
