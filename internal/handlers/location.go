package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/BhataDev/mtc-server/internal/geo"
	"github.com/BhataDev/mtc-server/internal/pricing"
)

// CoordinatesParam is a device-supplied position in request bodies.
type CoordinatesParam struct {
	Lat float64 `json:"lat" binding:"min=-90,max=90"`
	Lng float64 `json:"lng" binding:"min=-180,max=180"`
}

// LocationParams are the optional location hints shared by the offer and
// pricing endpoints.
type LocationParams struct {
	BranchID    string            `json:"branchId,omitempty"`
	City        string            `json:"city,omitempty"`
	Coordinates *CoordinatesParam `json:"coordinates,omitempty"`
}

// locationContext builds the per-request location context. Device
// coordinates take precedence; when absent, the client IP is resolved
// best-effort. Lookup failure just leaves the context without coordinates.
func locationContext(c *gin.Context, p LocationParams) pricing.LocationContext {
	loc := pricing.LocationContext{
		BranchID: p.BranchID,
		City:     p.City,
	}
	if p.Coordinates != nil {
		loc.Coordinates = &geo.Point{Lat: p.Coordinates.Lat, Lng: p.Coordinates.Lng}
		return loc
	}

	if ipResolver != nil {
		if ipLoc := ipResolver.Resolve(c.Request.Context(), c.ClientIP()); ipLoc != nil {
			pt := ipLoc.Point()
			loc.Coordinates = &pt
			if loc.City == "" {
				loc.City = ipLoc.City
			}
		}
	}
	return loc
}
