package gateway

import (
	"net/http"

	"github.com/example/shopfront/pkg/service"
	"github.com/gin-gonic/gin"
)

func (g *Gateway) getCart(c *gin.Context) {
	view, err := g.cart.Get(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// respondCart answers a cart mutation with the cart as it now reads.
func (g *Gateway) respondCart(c *gin.Context, code int) {
	view, err := g.cart.Get(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(code, view)
}

func (g *Gateway) addShop(c *gin.Context) {
	var req service.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := g.cart.AddShop(c.Request.Context(), c.GetString(userIDKey), c.Param("shopId"), req); err != nil {
		g.fail(c, err)
		return
	}
	g.respondCart(c, http.StatusCreated)
}

func (g *Gateway) addItem(c *gin.Context) {
	var req service.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := g.cart.AddItem(c.Request.Context(), c.GetString(userIDKey), c.Param("shopId"), req); err != nil {
		g.fail(c, err)
		return
	}
	g.respondCart(c, http.StatusCreated)
}

func (g *Gateway) updateItem(c *gin.Context) {
	var req service.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	err := g.cart.UpdateItem(c.Request.Context(), c.GetString(userIDKey), c.Param("shopId"), c.Param("productId"), req)
	if err != nil {
		g.fail(c, err)
		return
	}
	g.respondCart(c, http.StatusOK)
}

func (g *Gateway) removeItem(c *gin.Context) {
	err := g.cart.RemoveItem(c.Request.Context(), c.GetString(userIDKey), c.Param("shopId"), c.Param("productId"))
	if err != nil {
		g.fail(c, err)
		return
	}
	g.respondCart(c, http.StatusOK)
}

func (g *Gateway) toggleItem(c *gin.Context) {
	var req service.ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	userID := c.GetString(userIDKey)
	present, err := g.cart.Toggle(ctx, userID, c.Param("shopId"), req)
	if err != nil {
		g.fail(c, err)
		return
	}
	view, err := g.cart.Get(ctx, userID)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inCart": present, "cart": view})
}
