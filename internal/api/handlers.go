package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cafes/internal/db"
	"cafes/internal/model"
)

func (s *Server) handleHome(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", nil)
}

// handleRandom picks one existing cafe uniformly.
// An empty catalog yields 404.
func (s *Server) handleRandom(c *gin.Context) {
	cafe, err := s.store.Random(c.Request.Context())
	if errors.Is(err, db.ErrNotFound) {
		writeNotFound(c, http.StatusNotFound)
		return
	}
	if err != nil {
		s.serverError(c, "random", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cafe": cafe})
}

func (s *Server) handleAll(c *gin.Context) {
	cafes, err := s.store.List(c.Request.Context())
	if err != nil {
		s.serverError(c, "all", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cafes": cafes})
}

// handleSearch answers 200 on both hit and miss.
func (s *Server) handleSearch(c *gin.Context) {
	loc, ok := c.GetQuery("loc")
	if !ok {
		// No location column is NULL, so an absent loc can never match.
		writeNotFound(c, http.StatusOK)
		return
	}

	cafe, err := s.store.FindByLocation(c.Request.Context(), loc)
	if errors.Is(err, db.ErrNotFound) {
		writeNotFound(c, http.StatusOK)
		return
	}
	if err != nil {
		s.serverError(c, "search", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cafe": cafe})
}

func (s *Server) handleAdd(c *gin.Context) {
	nc := model.NewCafe{
		Name:         postFormValue(c, "name"),
		MapURL:       postFormValue(c, "map_url"),
		ImgURL:       postFormValue(c, "img_url"),
		Location:     postFormValue(c, "loc"),
		Seats:        postFormValue(c, "seats"),
		HasSockets:   isTruthyFormValue(postFormValue(c, "sockets")),
		HasToilet:    isTruthyFormValue(postFormValue(c, "toilet")),
		HasWifi:      isTruthyFormValue(postFormValue(c, "wifi")),
		CanTakeCalls: isTruthyFormValue(postFormValue(c, "calls")),
		CoffeePrice:  postFormValue(c, "coffee_price"),
	}

	_, err := s.store.Insert(c.Request.Context(), nc)
	switch {
	case errors.Is(err, db.ErrConflict):
		writeError(c, http.StatusConflict, "Conflict")
		return
	case errors.Is(err, db.ErrMissingField):
		writeError(c, http.StatusBadRequest, "Bad request")
		return
	case err != nil:
		s.serverError(c, "add", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": gin.H{"success": addedMessage}})
}

// handleUpdatePrice sets coffee_price. An absent new_price clears it.
func (s *Server) handleUpdatePrice(c *gin.Context) {
	id, ok := cafeID(c)
	if !ok {
		writeNotFound(c, http.StatusNotFound)
		return
	}

	err := s.store.UpdatePrice(c.Request.Context(), id, queryValue(c, "new_price"))
	if errors.Is(err, db.ErrNotFound) {
		writeNotFound(c, http.StatusNotFound)
		return
	}
	if err != nil {
		s.serverError(c, "update-price", err)
		return
	}
	writeDone(c)
}

// handleReportClosed deletes a cafe. A wrong key and a missing cafe are
// reported identically.
func (s *Server) handleReportClosed(c *gin.Context) {
	id, ok := cafeID(c)
	if !ok || !s.keyMatches(c.Query("api-key")) {
		writeNotFound(c, http.StatusNotFound)
		return
	}

	err := s.store.Delete(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		writeNotFound(c, http.StatusNotFound)
		return
	}
	if err != nil {
		s.serverError(c, "report-closed", err)
		return
	}
	writeDone(c)
}

func (s *Server) keyMatches(key string) bool {
	if s.apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) == 1
}

// serverError logs the cause and returns a generic envelope.
func (s *Server) serverError(c *gin.Context, op string, err error) {
	s.logger.Printf("api: %s: %v", op, err)
	writeError(c, http.StatusInternalServerError, "Server error")
}

// cafeID parses the :id path segment. Non-integers are treated as
// ids that do not exist.
func cafeID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
