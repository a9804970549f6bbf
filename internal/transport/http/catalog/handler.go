package catalog

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/gestorventas/deposito/internal/dto"
	"github.com/gestorventas/deposito/internal/entity"
	"github.com/gestorventas/deposito/internal/money"
	"github.com/gestorventas/deposito/internal/presentation/http/response"
	service "github.com/gestorventas/deposito/internal/service/catalog"
	"github.com/gestorventas/deposito/internal/transport/http/identity"
	"github.com/gestorventas/deposito/pkg/errorbank"
)

// Handler exposes categories and products. Reads are open to every seller;
// writes are admin only.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a catalog Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	categories := e.Group("/categories", identity.Middleware())
	categories.GET("", h.listCategories)
	categories.POST("", h.addCategory, identity.RequireAdmin)
	categories.DELETE("/:categoryID", h.deleteCategory, identity.RequireAdmin)

	products := e.Group("/products", identity.Middleware())
	products.GET("", h.listProducts)
	products.GET("/:productID", h.getProduct)
	products.POST("", h.addProduct, identity.RequireAdmin)
	products.PUT("/:productID", h.updateProduct, identity.RequireAdmin)
	products.DELETE("/:productID", h.deleteProduct, identity.RequireAdmin)
}

func (h *Handler) listCategories(c echo.Context) error {
	b := response.New(c)
	categories, err := h.svc.ListCategories(c.Request().Context())
	if err != nil {
		return b.WithError(err).Build()
	}
	out := make([]dto.CategoryResponse, 0, len(categories))
	for _, cat := range categories {
		out = append(out, toCategoryDTO(cat))
	}
	return b.WithData(out).Build()
}

func (h *Handler) addCategory(c echo.Context) error {
	b := response.New(c)
	var payload struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.InvalidArgument("invalid payload", errorbank.WithCause(err))).Build()
	}
	category, err := h.svc.AddCategory(c.Request().Context(), payload.Name)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(toCategoryDTO(category)).Build()
}

func (h *Handler) deleteCategory(c echo.Context) error {
	b := response.New(c)
	id, err := response.PathID(c, "categoryID")
	if err != nil {
		return b.WithError(err).Build()
	}
	if err := h.svc.DeleteCategory(c.Request().Context(), id); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(map[string]int64{"deleted": id}).Build()
}

func (h *Handler) listProducts(c echo.Context) error {
	b := response.New(c)
	var categoryID *int64
	if raw := c.QueryParam("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return b.WithError(errorbank.InvalidArgument("invalid category filter", errorbank.WithCause(err))).Build()
		}
		categoryID = &id
	}

	products, err := h.svc.ListProducts(c.Request().Context(), categoryID)
	if err != nil {
		return b.WithError(err).Build()
	}
	out := make([]dto.ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductDTO(p))
	}
	return b.WithData(out).WithMeta("count", len(out)).Build()
}

func (h *Handler) getProduct(c echo.Context) error {
	b := response.New(c)
	id, err := response.PathID(c, "productID")
	if err != nil {
		return b.WithError(err).Build()
	}
	product, err := h.svc.GetProduct(c.Request().Context(), id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toProductDTO(product)).Build()
}

type productPayload struct {
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  int64           `json:"category_id"`
}

func (p productPayload) input() service.ProductInput {
	return service.ProductInput{Description: p.Description, Price: p.Price, CategoryID: p.CategoryID}
}

func (h *Handler) addProduct(c echo.Context) error {
	b := response.New(c)
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.InvalidArgument("invalid payload", errorbank.WithCause(err))).Build()
	}
	product, err := h.svc.AddProduct(c.Request().Context(), payload.input())
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(toProductDTO(product)).Build()
}

func (h *Handler) updateProduct(c echo.Context) error {
	b := response.New(c)
	id, err := response.PathID(c, "productID")
	if err != nil {
		return b.WithError(err).Build()
	}
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.InvalidArgument("invalid payload", errorbank.WithCause(err))).Build()
	}
	product, err := h.svc.UpdateProduct(c.Request().Context(), id, payload.input())
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toProductDTO(product)).Build()
}

func (h *Handler) deleteProduct(c echo.Context) error {
	b := response.New(c)
	id, err := response.PathID(c, "productID")
	if err != nil {
		return b.WithError(err).Build()
	}
	if err := h.svc.DeleteProduct(c.Request().Context(), id); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(map[string]int64{"deleted": id}).Build()
}

func toCategoryDTO(c *entity.Category) dto.CategoryResponse {
	return dto.CategoryResponse{ID: c.ID, Name: c.Name, Active: c.Active}
}

func toProductDTO(p *entity.Product) dto.ProductResponse {
	out := dto.ProductResponse{
		ID:          p.ID,
		Description: p.Description,
		Price:       money.Format(p.Price),
		CategoryID:  p.CategoryID,
		Active:      p.Active,
	}
	if p.Category != nil {
		out.CategoryName = p.Category.Name
	}
	return out
}
