// Package supplierrules implements the endpoints for managing supplier
// rules. A rule maps transaction info texts matching a glob pattern to a
// supplier name, shadowing the external classifier for those texts.
package supplierrules

import (
	"net/http"

	"github.com/costledger/backend/internal/httperror"
	"github.com/costledger/backend/internal/httputil"
	"github.com/costledger/backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SupplierRuleEditable contains the fields settable by the client.
type SupplierRuleEditable struct {
	Priority     uint   `json:"priority" example:"1"`                                     // Rules are evaluated in ascending priority order
	Match        string `json:"match" binding:"required" example:"SWISH *"`               // Glob pattern matched against the transaction info text
	SupplierName string `json:"supplier_name" binding:"required" example:"Swish Payment"` // The supplier name to assign
}

func (editable SupplierRuleEditable) model() models.SupplierRule {
	return models.SupplierRule{
		Priority:     editable.Priority,
		Match:        editable.Match,
		SupplierName: editable.SupplierName,
	}
}

// SupplierRule is the API representation of a supplier rule.
type SupplierRule struct {
	ID uuid.UUID `json:"id" example:"042d101d-f1de-4403-9295-59dc0ea58677"`
	SupplierRuleEditable
}

func newSupplierRule(model models.SupplierRule) SupplierRule {
	return SupplierRule{
		ID: model.ID,
		SupplierRuleEditable: SupplierRuleEditable{
			Priority:     model.Priority,
			Match:        model.Match,
			SupplierName: model.SupplierName,
		},
	}
}

type URIID struct {
	ID string `uri:"id" binding:"required"` // ID of the resource
}

// RegisterRoutes registers the routes for supplier rules with the
// RouterGroup that is passed.
func RegisterRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", Options)
	r.GET("", List)
	r.POST("", Create)

	r.OPTIONS("/:id", OptionsDetail)
	r.DELETE("/:id", Delete)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			SupplierRules
// @Success		204
// @Router			/supplier-rules [options]
func Options(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			SupplierRules
// @Success		204
// @Failure		404	{object}	httperror.Error
// @Router			/supplier-rules/{id} [options]
func OptionsDetail(c *gin.Context) {
	_, err := find(c)
	if err != nil {
		c.JSON(httperror.Status(err), httperror.New(err))
		return
	}

	httputil.OptionsDelete(c)
}

// @Summary		List supplier rules
// @Description	Returns all supplier rules in priority order
// @Tags			SupplierRules
// @Produce		json
// @Success		200	{object}	[]SupplierRule
// @Failure		500	{object}	httperror.Error
// @Router			/supplier-rules [get]
func List(c *gin.Context) {
	var rules []models.SupplierRule
	err := models.DB.Order("priority ASC").Find(&rules).Error
	if err != nil {
		c.JSON(httperror.Status(err), httperror.New(err))
		return
	}

	data := make([]SupplierRule, 0, len(rules))
	for _, rule := range rules {
		data = append(data, newSupplierRule(rule))
	}

	c.JSON(http.StatusOK, data)
}

// @Summary		Create a supplier rule
// @Description	Creates a new supplier rule
// @Tags			SupplierRules
// @Accept			json
// @Produce		json
// @Success		201		{object}	SupplierRule
// @Failure		400		{object}	httperror.Error
// @Failure		500		{object}	httperror.Error
// @Param			rule	body		SupplierRuleEditable	true	"Supplier rule"
// @Router			/supplier-rules [post]
func Create(c *gin.Context) {
	var editable SupplierRuleEditable
	if err := c.ShouldBindJSON(&editable); err != nil {
		c.JSON(http.StatusBadRequest, httperror.New(err))
		return
	}

	rule := editable.model()
	if err := models.DB.Create(&rule).Error; err != nil {
		c.JSON(httperror.Status(err), httperror.New(err))
		return
	}

	c.JSON(http.StatusCreated, newSupplierRule(rule))
}

// @Summary		Delete a supplier rule
// @Description	Deletes a supplier rule
// @Tags			SupplierRules
// @Success		204
// @Failure		400	{object}	httperror.Error
// @Failure		404	{object}	httperror.Error
// @Failure		500	{object}	httperror.Error
// @Param			id	path	string	true	"ID of the supplier rule"
// @Router			/supplier-rules/{id} [delete]
func Delete(c *gin.Context) {
	rule, err := find(c)
	if err != nil {
		c.JSON(httperror.Status(err), httperror.New(err))
		return
	}

	if err := models.DB.Delete(&rule).Error; err != nil {
		c.JSON(httperror.Status(err), httperror.New(err))
		return
	}

	c.Status(http.StatusNoContent)
}

// find loads the supplier rule addressed by the id path parameter.
func find(c *gin.Context) (models.SupplierRule, error) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		return models.SupplierRule{}, err
	}

	id, err := uuid.Parse(uri.ID)
	if err != nil {
		return models.SupplierRule{}, httputil.ErrInvalidUUID
	}

	var rule models.SupplierRule
	err = models.DB.First(&rule, "id = ?", id).Error
	if err != nil {
		return models.SupplierRule{}, err
	}

	return rule, nil
}
