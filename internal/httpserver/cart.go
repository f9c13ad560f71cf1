package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/shopping/internal/logging"
	"github.com/Skotchmaster/shopping/internal/middleware/auth"
	"github.com/Skotchmaster/shopping/internal/service"
	"github.com/Skotchmaster/shopping/internal/transport"
	"github.com/labstack/echo/v4"
)

type CartHTTP struct {
	Svc *service.CartService
}

func customerID(c echo.Context) (string, error) {
	id, ok := auth.CustomerID(c)
	if !ok {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return id, nil
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.cart")

	userID, err := customerID(c)
	if err != nil {
		return err
	}

	cart, err := h.Svc.GetCart(ctx, userID)
	if err != nil {
		status, herr := httpError(err)
		l.Error("get_cart_error", "status", status, "error", err)
		return herr
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "add.cart")

	userID, err := customerID(c)
	if err != nil {
		return err
	}

	var req transport.AddItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, transport.ErrorResponse{Error: "invalid body"})
	}
	if missing := req.MissingFields(); len(missing) > 0 {
		l.Warn("add_to_cart_error", "status", 400, "missing", missing)
		return echo.NewHTTPError(http.StatusBadRequest, transport.ErrorResponse{
			Error:  "missing required fields",
			Fields: missing,
		})
	}

	cart, err := h.Svc.AddItem(ctx, userID, req.Item(), req.Units())
	if err != nil {
		status, herr := httpError(err)
		l.Warn("add_to_cart_error", "status", status, "error", err)
		return herr
	}

	l.Info("item added to cart", "product_id", req.ProductID)
	return c.JSON(http.StatusCreated, cart)
}

func (h *CartHTTP) UpdateQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "update.cart.item")

	userID, err := customerID(c)
	if err != nil {
		return err
	}

	var req transport.UpdateQuantityRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_quantity_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, transport.ErrorResponse{Error: "invalid body"})
	}
	if req.Quantity == nil {
		return echo.NewHTTPError(http.StatusBadRequest, transport.ErrorResponse{
			Error:  "missing required fields",
			Fields: []string{"quantity"},
		})
	}

	cart, err := h.Svc.UpdateQuantity(ctx, userID, c.Param("productId"), *req.Quantity)
	if err != nil {
		status, herr := httpError(err)
		l.Warn("update_quantity_error", "status", status, "error", err)
		return herr
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "delete.one.from.cart")

	userID, err := customerID(c)
	if err != nil {
		return err
	}

	cart, err := h.Svc.RemoveItem(ctx, userID, c.Param("productId"))
	if err != nil {
		status, herr := httpError(err)
		l.Warn("delete_one_from_cart_error", "status", status, "error", err)
		return herr
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "delete.all.from.cart")

	userID, err := customerID(c)
	if err != nil {
		return err
	}

	cart, err := h.Svc.ClearCart(ctx, userID)
	if err != nil {
		status, herr := httpError(err)
		l.Error("delete_all_from_cart_error", "status", status, "error", err)
		return herr
	}

	l.Info("cart cleared")
	return c.JSON(http.StatusOK, cart)
}
