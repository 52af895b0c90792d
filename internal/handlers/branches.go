package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BhataDev/mtc-server/internal/branch"
)

// NearestBranchRequest represents query parameters for the nearest lookup
type NearestBranchRequest struct {
	Lat   float64 `form:"lat" binding:"required,min=-90,max=90"`
	Lng   float64 `form:"lng" binding:"required,min=-180,max=180"`
	MaxKm float64 `form:"maxKm" binding:"min=0"`
}

// BranchView is the client-facing shape of one branch.
type BranchView struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

func branchView(b *branch.Branch) BranchView {
	return BranchView{ID: b.ID, Name: b.Name, Lat: b.Lat, Lng: b.Lng}
}

// NearestBranch returns the closest active branch to the given point.
// GET /api/v1/branches/nearest?lat=..&lng=..&maxKm=..
func NearestBranch(c *gin.Context) {
	var req NearestBranchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MaxKm == 0 {
		req.MaxKm = 50
	}

	b, err := branchLocator.Nearest(c.Request.Context(), req.Lng, req.Lat, req.MaxKm)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to locate branch"})
		return
	}
	if b == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No branch within range"})
		return
	}

	c.JSON(http.StatusOK, branchView(b))
}

// BranchesWithinRequest represents query parameters for the radius lookup
type BranchesWithinRequest struct {
	Lat      float64 `form:"lat" binding:"required,min=-90,max=90"`
	Lng      float64 `form:"lng" binding:"required,min=-180,max=180"`
	RadiusKm float64 `form:"radiusKm" binding:"required,min=0,max=20000"`
}

// BranchesWithin returns the active branches inside the given radius,
// nearest first.
// GET /api/v1/branches/within?lat=..&lng=..&radiusKm=..
func BranchesWithin(c *gin.Context) {
	var req BranchesWithinRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	branches, err := branchLocator.Within(c.Request.Context(), req.Lng, req.Lat, req.RadiusKm)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query branches"})
		return
	}

	views := make([]BranchView, 0, len(branches))
	for _, b := range branches {
		views = append(views, branchView(b))
	}
	c.JSON(http.StatusOK, gin.H{"branches": views, "total": len(views)})
}
