package transfer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gestorventas/deposito/internal/config"
	"github.com/gestorventas/deposito/internal/dto"
	"github.com/gestorventas/deposito/internal/presentation/http/response"
	service "github.com/gestorventas/deposito/internal/service/transfer"
	"github.com/gestorventas/deposito/internal/transport/http/identity"
	"github.com/gestorventas/deposito/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/gestorventas/deposito/transport/http/transfer")

const csvContentType = "text/csv; charset=utf-8"

// Handler exposes dataset import, export and purge to administrators.
type Handler struct {
	svc      *service.Service
	maxBytes int64
}

// NewHandler constructs a transfer Handler.
func NewHandler(svc *service.Service, cfg config.Config) *Handler {
	return &Handler{svc: svc, maxBytes: cfg.Transfer.MaxUploadBytes}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/config", identity.Middleware(), identity.RequireAdmin)
	g.POST("/import/:kind", h.importDataset)
	g.GET("/export/:kind", h.exportDataset)
	g.DELETE("/data", h.purge)
}

func (h *Handler) importDataset(c echo.Context) error {
	b := response.New(c)
	kind, err := service.ParseKind(c.Param("kind"))
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "transfer.import", trace.WithAttributes(attribute.String("kind", string(kind))))
	defer span.End()

	src, closeFn, err := h.upload(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	defer closeFn()

	n, err := h.svc.Import(ctx, kind, src)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = errorbank.InvalidArgument("upload exceeds size limit", errorbank.WithDetail("max_bytes", h.maxBytes))
		}
		return b.WithError(err).Build()
	}
	return b.WithData(dto.ImportResponse{Kind: string(kind), Records: n}).Build()
}

// upload returns the multipart "file" field when present, otherwise the raw
// request body, capped at the configured size.
func (h *Handler) upload(c echo.Context) (io.Reader, func(), error) {
	req := c.Request()
	if h.maxBytes > 0 {
		req.Body = http.MaxBytesReader(c.Response(), req.Body, h.maxBytes)
	}

	if !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return req.Body, func() {}, nil
	}

	header, err := c.FormFile("file")
	if err != nil {
		return nil, nil, errorbank.InvalidArgument("multipart field \"file\" is required", errorbank.WithCause(err))
	}
	file, err := header.Open()
	if err != nil {
		return nil, nil, errorbank.InvalidArgument("unreadable upload", errorbank.WithCause(err))
	}
	return file, func() { _ = file.Close() }, nil
}

func (h *Handler) exportDataset(c echo.Context) error {
	b := response.New(c)
	kind, err := service.ParseKind(c.Param("kind"))
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "transfer.export", trace.WithAttributes(attribute.String("kind", string(kind))))
	defer span.End()

	var buf bytes.Buffer
	if err := h.svc.Export(ctx, kind, &buf); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithAttachment(fmt.Sprintf("%s.csv", kind), csvContentType, buf.Bytes()).Build()
}

func (h *Handler) purge(c echo.Context) error {
	b := response.New(c)
	if err := h.svc.Purge(c.Request().Context()); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(map[string]bool{"purged": true}).Build()
}
