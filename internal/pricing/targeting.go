package pricing

import (
	"time"

	"github.com/BhataDev/mtc-server/internal/geo"
)

// admitsFunc is one independent targeting dimension test. A campaign is
// admitted when any dimension admits it, or when it carries no targeting at
// all. The dimensions are unioned, never intersected: a campaign restricted
// to city X is visible to a requester matching on city even if their
// coordinates fall outside a geofence the campaign also defines.
type admitsFunc func(c *Campaign, loc LocationContext) bool

var admitsDimensions = []admitsFunc{
	admitsBranch,
	admitsCity,
	admitsGeofence,
}

func admitsBranch(c *Campaign, loc LocationContext) bool {
	if loc.BranchID == "" {
		return false
	}
	if c.LegacyBranch == loc.BranchID {
		return true
	}
	for _, id := range c.BranchIDs {
		if id == loc.BranchID {
			return true
		}
	}
	return false
}

func admitsCity(c *Campaign, loc LocationContext) bool {
	if loc.City == "" {
		return false
	}
	for _, city := range c.Cities {
		if city == loc.City {
			return true
		}
	}
	return false
}

func admitsGeofence(c *Campaign, loc LocationContext) bool {
	if loc.Coordinates == nil || c.Geofence == nil {
		return false
	}
	return c.Geofence.Contains(geo.Point{Lat: loc.Coordinates.Lat, Lng: loc.Coordinates.Lng})
}

// Admits reports whether the campaign is visible to a requester with the
// given location context.
func Admits(c *Campaign, loc LocationContext) bool {
	if c.Unrestricted() {
		return true
	}
	for _, admits := range admitsDimensions {
		if admits(c, loc) {
			return true
		}
	}
	return false
}

// FilterActive selects the campaigns that are temporally active at now and
// spatially/organizationally eligible for the location context. Input order
// is preserved.
func FilterActive(campaigns []*Campaign, now time.Time, loc LocationContext) []*Campaign {
	out := make([]*Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if !c.ActiveAt(now) {
			continue
		}
		if !Admits(c, loc) {
			continue
		}
		out = append(out, c)
	}
	return out
}
