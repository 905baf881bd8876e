package gateway

import (
	"net/http"

	"github.com/example/shopfront/pkg/service"
	"github.com/gin-gonic/gin"
)

func (g *Gateway) getProduct(c *gin.Context) {
	var sel service.VariantSelector
	if err := c.ShouldBindQuery(&sel); err != nil {
		badRequest(c, err)
		return
	}

	view, err := g.catalog.Get(c.Request.Context(), c.Param("shopId"), c.Param("productId"), sel)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (g *Gateway) createProduct(c *gin.Context) {
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	product, err := g.catalog.Create(c.Request.Context(), c.Param("shopId"), in)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (g *Gateway) updateProduct(c *gin.Context) {
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	product, err := g.catalog.Update(c.Request.Context(), c.Param("shopId"), c.Param("productId"), in)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (g *Gateway) deleteProduct(c *gin.Context) {
	if err := g.catalog.Delete(c.Request.Context(), c.Param("shopId"), c.Param("productId")); err != nil {
		g.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
