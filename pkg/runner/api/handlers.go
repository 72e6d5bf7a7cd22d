package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/filter"
	"tableflip.dev/moodlog/pkg/history"
	"tableflip.dev/moodlog/pkg/profile"
	"tableflip.dev/moodlog/pkg/remote"
	moodmcp "tableflip.dev/moodlog/pkg/runner/mcp"
)

type handlers struct {
	svc *moodmcp.Service
}

type moodRequest struct {
	State      string   `json:"emotionalState"`
	Trigger    string   `json:"trigger"`
	Social     string   `json:"socialSituation"`
	Visibility string   `json:"postType"`
	Timestamp  string   `json:"timestamp"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Place      string   `json:"placeName"`
}

func (r moodRequest) options() (moodmcp.AddEventOptions, error) {
	o := moodmcp.AddEventOptions{
		State:      r.State,
		Trigger:    r.Trigger,
		Social:     r.Social,
		Visibility: r.Visibility,
	}
	if strings.TrimSpace(r.Timestamp) != "" {
		at, err := event.ParseTime(r.Timestamp)
		if err != nil {
			return o, err
		}
		o.At = &at
	}
	switch {
	case r.Latitude != nil && r.Longitude != nil:
		o.Location = &event.Location{Latitude: *r.Latitude, Longitude: *r.Longitude, PlaceName: strings.TrimSpace(r.Place)}
	case r.Latitude != nil || r.Longitude != nil:
		return o, errors.New("latitude and longitude must be given together")
	}
	return o, nil
}

func errorResponse(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// statusFor maps domain errors to HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, moodmcp.ErrEventNotFound), errors.Is(err, history.ErrNotFound),
		errors.Is(err, remote.ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, remote.ErrRequestExists), errors.Is(err, profile.ErrAlreadyFollowing):
		return http.StatusConflict
	case errors.Is(err, history.ErrInvalidEvent):
		return http.StatusBadRequest
	case errors.Is(err, profile.ErrNoFollowGraph), errors.Is(err, profile.ErrNoFollowRequests):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) listEvents(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		errorResponse(c, http.StatusBadRequest, "Invalid limit")
		return
	}
	events, err := h.svc.ListEvents(c.Request.Context(), moodmcp.ListOptions{
		Scope:   c.Query("scope"),
		Window:  c.Query("window"),
		State:   c.Query("state"),
		Trigger: c.Query("trigger"),
		Limit:   limit,
	})
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

func (h *handlers) addEvent(c *gin.Context) {
	var req moodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	o, err := req.options()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	res, err := h.svc.AddEvent(c.Request.Context(), o)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	status := http.StatusCreated
	if res.Queued {
		status = http.StatusAccepted
	}
	c.JSON(status, res)
}

func (h *handlers) getEvent(c *gin.Context) {
	dto, err := h.svc.EventByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, dto)
}

func (h *handlers) editEvent(c *gin.Context) {
	var req moodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	o, err := req.options()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	res, err := h.svc.EditEvent(c.Request.Context(), c.Param("id"), o)
	if err != nil {
		errorResponse(c, statusFor(err), err.Error())
		return
	}
	status := http.StatusOK
	if res.Queued {
		status = http.StatusAccepted
	}
	c.JSON(status, res)
}

func (h *handlers) deleteEvent(c *gin.Context) {
	res, err := h.svc.DeleteEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, statusFor(err), err.Error())
		return
	}
	if res.Queued {
		c.JSON(http.StatusAccepted, res)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) monthlyStats(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid year")
		return
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid month")
		return
	}
	stats, err := h.svc.MonthlyStats(c.Request.Context(), year, time.Month(month))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *handlers) nearby(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid lat")
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid lng")
		return
	}
	radius := filter.DefaultRadiusKm
	if raw := c.Query("radius"); raw != "" {
		if radius, err = strconv.ParseFloat(raw, 64); err != nil || radius <= 0 {
			errorResponse(c, http.StatusBadRequest, "Invalid radius")
			return
		}
	}
	results, err := h.svc.Nearby(c.Request.Context(), lat, lng, radius)
	if err != nil {
		errorResponse(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

func (h *handlers) pending(c *gin.Context) {
	ops, err := h.svc.Pending(c.Request.Context())
	if err != nil {
		errorResponse(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": ops, "count": len(ops)})
}

func (h *handlers) sync(c *gin.Context) {
	report, err := h.svc.SyncPending(c.Request.Context())
	body := gin.H{"applied": report.Applied, "remaining": report.Remaining}
	if err != nil {
		body["error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

// follow sends a follow request; nothing is followed until it is accepted.
func (h *handlers) follow(c *gin.Context) {
	req, err := h.svc.RequestFollow(c.Request.Context(), c.Param("user"))
	if err != nil {
		errorResponse(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"request": req})
}

func (h *handlers) following(c *gin.Context) {
	following, err := h.svc.Following(c.Request.Context())
	if err != nil {
		errorResponse(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following})
}

func (h *handlers) followers(c *gin.Context) {
	followers, err := h.svc.Followers(c.Request.Context())
	if err != nil {
		errorResponse(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"followers": followers})
}

func (h *handlers) followRequests(c *gin.Context) {
	sent, err := strconv.ParseBool(c.DefaultQuery("sent", "false"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid sent flag")
		return
	}
	reqs, err := h.svc.FollowRequests(c.Request.Context(), sent)
	if err != nil {
		errorResponse(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs, "count": len(reqs)})
}

func (h *handlers) answer(accept bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := h.svc.AnswerFollowRequest(c.Request.Context(), c.Param("id"), accept)
		if err != nil {
			errorResponse(c, statusFor(err), err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"request": req})
	}
}

func (h *handlers) unfollow(c *gin.Context) {
	following, err := h.svc.Unfollow(c.Request.Context(), c.Param("user"))
	if err != nil {
		errorResponse(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following})
}
