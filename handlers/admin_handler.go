package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nextyou21/planner-backend/docstore"
	"github.com/nextyou21/planner-backend/models"
	"github.com/nextyou21/planner-backend/services"
	"github.com/nextyou21/planner-backend/utils"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// approval durations offered by the console; 999 means lifetime and stores
// no expiry at all.
var approvalDays = map[int]bool{30: true, 90: true, 365: true, 999: true}

// AdminRoster lists every account with its gating fields and computed
// signals.
func AdminRoster(docs *docstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		roster, err := services.BuildRosterConcurrently(docs, utils.Logger)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build roster"})
			return
		}
		c.JSON(http.StatusOK, roster)
	}
}

func userIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return 0, false
	}
	return uint(id), true
}

type approveRequest struct {
	Days int `json:"days" validate:"required"`
}

// ApproveUser grants access for a fixed window. The write goes through the
// merge path so an account that never synced still gets a document.
func ApproveUser(docs *docstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c)
		if !ok {
			return
		}

		var req approveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if !approvalDays[req.Days] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Days must be one of 30, 90, 365, 999"})
			return
		}

		now := time.Now()
		fields := map[string]interface{}{
			models.FieldStatus:     models.StatusApproved,
			models.FieldApprovedAt: now,
			models.FieldIsPaid:     true,
		}
		if req.Days == 999 {
			fields[models.FieldValidUntil] = nil
		} else {
			fields[models.FieldValidUntil] = now.AddDate(0, 0, req.Days)
		}

		if err := docs.Update(userID, fields); err != nil {
			if !errors.Is(err, docstore.ErrNotFound) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve user"})
				return
			}
			if err := docs.SetMerge(userID, fields); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve user"})
				return
			}
		}

		services.InvalidateRoster(utils.Logger)
		utils.Logger.Info("user_approved",
			zap.Uint("user_id", userID),
			zap.Int("days", req.Days),
		)
		c.JSON(http.StatusOK, gin.H{"message": "User approved"})
	}
}

func setUserStatus(docs *docstore.Store, userID uint, fields map[string]interface{}) error {
	err := docs.Update(userID, fields)
	if errors.Is(err, docstore.ErrNotFound) {
		return docs.SetMerge(userID, fields)
	}
	return err
}

func BlockUser(docs *docstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c)
		if !ok {
			return
		}

		fields := map[string]interface{}{models.FieldStatus: models.StatusBlocked}
		if err := setUserStatus(docs, userID, fields); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to block user"})
			return
		}

		services.InvalidateRoster(utils.Logger)
		utils.Logger.Info("user_blocked", zap.Uint("user_id", userID))
		c.JSON(http.StatusOK, gin.H{"message": "User blocked"})
	}
}

// RevokeUser drops an account back to pending and clears its expiry.
func RevokeUser(docs *docstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c)
		if !ok {
			return
		}

		fields := map[string]interface{}{
			models.FieldStatus:     models.StatusPending,
			models.FieldValidUntil: nil,
		}
		if err := setUserStatus(docs, userID, fields); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}

		services.InvalidateRoster(utils.Logger)
		utils.Logger.Info("user_set_pending", zap.Uint("user_id", userID))
		c.JSON(http.StatusOK, gin.H{"message": "User set to pending"})
	}
}

type paidRequest struct {
	IsPaid bool `json:"is_paid"`
}

func SetUserPaid(docs *docstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c)
		if !ok {
			return
		}

		var req paidRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		fields := map[string]interface{}{models.FieldIsPaid: req.IsPaid}
		if err := setUserStatus(docs, userID, fields); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}

		services.InvalidateRoster(utils.Logger)
		c.JSON(http.StatusOK, gin.H{"message": "Payment flag updated"})
	}
}

// ---- coupons ----

func ListCoupons(docs *docstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		coupons, err := docs.ListCoupons()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list coupons"})
			return
		}
		c.JSON(http.StatusOK, coupons)
	}
}

type couponRequest struct {
	Code     string `json:"code" validate:"required"`
	Discount int    `json:"discount" validate:"required,min=1,max=100"`
	Active   bool   `json:"active"`
}

func CreateCoupon(docs *docstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req couponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		coupon, err := docs.AddCoupon(req.Code, req.Discount, req.Active)
		if err != nil {
			if errors.Is(err, docstore.ErrDuplicateCode) {
				c.JSON(http.StatusConflict, gin.H{"error": "Coupon code already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create coupon"})
			return
		}

		c.JSON(http.StatusCreated, coupon)
	}
}

func DeleteCoupon(docs *docstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := docs.DeleteCoupon(c.Param("id"))
		if errors.Is(err, docstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Coupon not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete coupon"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Coupon deleted"})
	}
}

// ---- export ----

// ExportRoster writes the roster as an xlsx workbook for offline review.
func ExportRoster(docs *docstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		roster, err := services.BuildRosterConcurrently(docs, utils.Logger)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build roster"})
			return
		}

		f := excelize.NewFile()
		defer f.Close()

		sheet := "Users"
		f.SetSheetName("Sheet1", sheet)

		headers := []string{"ID", "Email", "Full Name", "Contact", "Status", "Paid",
			"Valid Until", "Trial Remaining", "Completion %", "Net Liquidity"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
		}

		for row, entry := range roster.Entries {
			validUntil := ""
			if entry.ValidUntil != nil {
				validUntil = entry.ValidUntil.Format("2006-01-02")
			}
			values := []interface{}{
				entry.UserID,
				entry.Email,
				entry.FullName,
				entry.Contact,
				entry.Status,
				entry.IsPaid,
				validUntil,
				entry.Trial.RemainingDays,
				entry.CompletionRate,
				entry.NetLiquidity.String(),
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
				f.SetCellValue(sheet, cell, v)
			}
		}

		filename := fmt.Sprintf("planner_users_%s.xlsx", time.Now().Format("20060102"))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

		if err := f.Write(c.Writer); err != nil {
			utils.Logger.Warn("roster_export_failed", zap.Error(err))
		}
	}
}
