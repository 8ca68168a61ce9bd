package api

import "github.com/gin-gonic/gin"

// isTruthyFormValue reports whether a submitted form value counts as set.
// Any non-empty string is true, including "false" and "0"; an absent field
// or an empty string is false. This is not boolean parsing.
func isTruthyFormValue(raw *string) bool {
	return raw != nil && *raw != ""
}

// postFormValue returns the form value for key, or nil when the field was
// not submitted at all.
func postFormValue(c *gin.Context, key string) *string {
	v, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &v
}

// queryValue is postFormValue for the URL query string.
func queryValue(c *gin.Context, key string) *string {
	v, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	return &v
}
